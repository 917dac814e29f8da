package client

import (
	"context"
	"net/url"

	"github.com/goforsam/toast-etl/pkg/normalize"
	"github.com/goforsam/toast-etl/pkg/ratelimit"
)

// Endpoint paths for the supported exports.
const (
	ordersBulkPath   = "/orders/v2/ordersBulk"
	cashEntriesPath  = "/cashmgmt/v1/entries"
	cashDepositsPath = "/cashmgmt/v1/deposits"
	timeEntriesPath  = "/labor/v1/timeEntries"
	employeesPath    = "/labor/v1/employees"
	jobsPath         = "/labor/v1/jobs"
	restaurantsPath  = "/restaurants/v1/restaurants/"
	menusPath        = "/menus/v2/menus"
)

// Data source tags stamped into records for lineage.
const (
	DataSourceToast  = "toast_api"
	DataSourceCash   = "cash_api"
	DataSourceLabor  = "labor_api"
	DataSourceConfig = "config_api"
	DataSourceMenu   = "menu_api"
)

// dayBounds expands inclusive calendar dates into the API's fixed-offset
// day-boundary timestamp parameters.
func dayBounds(startDate, endDate string) url.Values {
	return url.Values{
		"startDate": []string{startDate + "T00:00:00.000-0000"},
		"endDate":   []string{endDate + "T23:59:59.999-0000"},
	}
}

// FetchOrders pulls the bulk order export for one restaurant and inclusive
// date range. Orders carry the full warehouse key set, so validation is on.
func (c *Client) FetchOrders(ctx context.Context, tenant, startDate, endDate string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       ordersBulkPath,
		Class:      ratelimit.ClassOrders,
		Tenant:     tenant,
		Query:      dayBounds(startDate, endDate),
		DataSource: DataSourceToast,
		Paginate:   true,
		Validate:   true,
	})
}

// FetchCashEntries pulls cash drawer entries for a date range.
func (c *Client) FetchCashEntries(ctx context.Context, tenant, startDate, endDate string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       cashEntriesPath,
		Class:      ratelimit.ClassCash,
		Tenant:     tenant,
		Query:      dayBounds(startDate, endDate),
		DataSource: DataSourceCash,
		Paginate:   true,
	})
}

// FetchCashDeposits pulls cash deposits for a date range.
func (c *Client) FetchCashDeposits(ctx context.Context, tenant, startDate, endDate string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       cashDepositsPath,
		Class:      ratelimit.ClassCash,
		Tenant:     tenant,
		Query:      dayBounds(startDate, endDate),
		DataSource: DataSourceCash,
		Paginate:   true,
	})
}

// FetchTimeEntries pulls labor time entries for a date range.
func (c *Client) FetchTimeEntries(ctx context.Context, tenant, startDate, endDate string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       timeEntriesPath,
		Class:      ratelimit.ClassLabor,
		Tenant:     tenant,
		Query:      dayBounds(startDate, endDate),
		DataSource: DataSourceLabor,
		Paginate:   true,
	})
}

// FetchEmployees pulls the full employee roster.
func (c *Client) FetchEmployees(ctx context.Context, tenant string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       employeesPath,
		Class:      ratelimit.ClassConfig,
		Tenant:     tenant,
		DataSource: DataSourceConfig,
		Paginate:   true,
	})
}

// FetchJobs pulls the job catalog.
func (c *Client) FetchJobs(ctx context.Context, tenant string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       jobsPath,
		Class:      ratelimit.ClassConfig,
		Tenant:     tenant,
		DataSource: DataSourceConfig,
		Paginate:   true,
	})
}

// FetchRestaurant pulls the restaurant's configuration record.
func (c *Client) FetchRestaurant(ctx context.Context, tenant string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       restaurantsPath + tenant,
		Class:      ratelimit.ClassConfig,
		Tenant:     tenant,
		DataSource: DataSourceConfig,
	})
}

// FetchMenus pulls the published menus. The endpoint answers with either a
// bare menu array or an object wrapping one.
func (c *Client) FetchMenus(ctx context.Context, tenant string) ([]normalize.Record, []string, error) {
	return c.Fetch(ctx, FetchSpec{
		Path:       menusPath,
		Class:      ratelimit.ClassMenus,
		Tenant:     tenant,
		DataSource: DataSourceMenu,
	})
}
