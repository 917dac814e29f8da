// Package pipeline drives the tenant × date-range × endpoint iteration:
// fetch, flatten, load. No single tenant or table failure stops a run;
// every failure lands in the result's error list and the loop continues.
// The one exception is a credential rejection: it fails every tenant
// identically, so the run aborts with an error instead of looping.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/goforsam/toast-etl/pkg/client"
	"github.com/goforsam/toast-etl/pkg/flatten"
	"github.com/goforsam/toast-etl/pkg/warehouse"
)

// Pipeline wires the API client to the warehouse loader. Loads against a
// given table happen sequentially within a run, which preserves the
// loader's no-duplicate invariant.
type Pipeline struct {
	client *client.Client
	loader *warehouse.Loader
	logger zerolog.Logger
}

// New creates a pipeline over a client and a loader.
func New(c *client.Client, l *warehouse.Loader) *Pipeline {
	return &Pipeline{
		client: c,
		loader: l,
		logger: log.With().Str("component", "pipeline").Logger(),
	}
}

// OrdersResult summarizes one orders run.
type OrdersResult struct {
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date"`
	RestaurantsProcessed int      `json:"restaurants_processed"`
	OrdersFetched        int      `json:"orders_fetched"`
	ItemsFlattened       int      `json:"items_flattened"`
	RowsLoaded           int      `json:"rows_loaded"`
	Errors               []string `json:"errors"`
}

// RunOrders pulls the bulk order export per tenant for the inclusive date
// range and merges the flattened item rows into fact_order_items. An empty
// start date defaults to yesterday (UTC); an empty end date defaults to
// the start date. A non-nil error means the run aborted: rejected
// credentials fail every tenant the same way, so the loop stops instead
// of hammering the login endpoint.
func (p *Pipeline) RunOrders(ctx context.Context, tenants []string, startDate, endDate string) (OrdersResult, error) {
	startDate, endDate = dateRange(startDate, endDate)
	result := OrdersResult{StartDate: startDate, EndDate: endDate, Errors: []string{}}

	p.logger.Info().
		Int("tenants", len(tenants)).
		Str("start_date", startDate).
		Str("end_date", endDate).
		Msg("Orders run starting")

	for _, tenant := range tenants {
		result.RestaurantsProcessed++

		orders, errs, fatal := p.client.FetchOrders(ctx, tenant, startDate, endDate)
		result.Errors = append(result.Errors, errs...)
		result.OrdersFetched += len(orders)
		if fatal != nil {
			return result, fmt.Errorf("orders run aborted at tenant %s: %w", tenant, fatal)
		}
		if len(orders) == 0 {
			continue
		}

		rows := flatten.OrderItems(orders, tenant)
		result.ItemsFlattened += len(rows)
		if len(rows) == 0 {
			continue
		}

		inserted, loadErrs := p.loader.Load(ctx, rows, warehouse.FactOrderItems)
		result.Errors = append(result.Errors, loadErrs...)
		result.RowsLoaded += inserted

		p.logger.Info().
			Str("tenant", tenant).
			Int("orders", len(orders)).
			Int("items", len(rows)).
			Int("loaded", inserted).
			Msg("Tenant orders processed")
	}

	p.logger.Info().
		Int("rows_loaded", result.RowsLoaded).
		Int("errors", len(result.Errors)).
		Msg("Orders run complete")

	return result, nil
}

// CashResult summarizes one cash run.
type CashResult struct {
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date"`
	RestaurantsProcessed int      `json:"restaurants_processed"`
	EntriesFlattened     int      `json:"entries_flattened"`
	EntriesLoaded        int      `json:"entries_loaded"`
	DepositsFlattened    int      `json:"deposits_flattened"`
	DepositsLoaded       int      `json:"deposits_loaded"`
	Errors               []string `json:"errors"`
}

// RunCash pulls cash entries and deposits per tenant and merges them into
// their fact tables. Aborts with a non-nil error when the credentials are
// rejected.
func (p *Pipeline) RunCash(ctx context.Context, tenants []string, startDate, endDate string) (CashResult, error) {
	startDate, endDate = dateRange(startDate, endDate)
	result := CashResult{StartDate: startDate, EndDate: endDate, Errors: []string{}}

	p.logger.Info().
		Int("tenants", len(tenants)).
		Str("start_date", startDate).
		Str("end_date", endDate).
		Msg("Cash run starting")

	for _, tenant := range tenants {
		result.RestaurantsProcessed++

		entries, errs, fatal := p.client.FetchCashEntries(ctx, tenant, startDate, endDate)
		result.Errors = append(result.Errors, errs...)
		if fatal != nil {
			return result, fmt.Errorf("cash run aborted at tenant %s: %w", tenant, fatal)
		}
		if len(entries) > 0 {
			rows := flatten.CashEntries(entries, tenant)
			result.EntriesFlattened += len(rows)
			if len(rows) > 0 {
				inserted, loadErrs := p.loader.Load(ctx, rows, warehouse.FactCashEntries)
				result.Errors = append(result.Errors, loadErrs...)
				result.EntriesLoaded += inserted
			}
		}

		deposits, errs, fatal := p.client.FetchCashDeposits(ctx, tenant, startDate, endDate)
		result.Errors = append(result.Errors, errs...)
		if fatal != nil {
			return result, fmt.Errorf("cash run aborted at tenant %s: %w", tenant, fatal)
		}
		if len(deposits) > 0 {
			rows := flatten.CashDeposits(deposits, tenant)
			result.DepositsFlattened += len(rows)
			if len(rows) > 0 {
				inserted, loadErrs := p.loader.Load(ctx, rows, warehouse.FactCashDeposits)
				result.Errors = append(result.Errors, loadErrs...)
				result.DepositsLoaded += inserted
			}
		}

		p.logger.Info().
			Str("tenant", tenant).
			Int("entries", len(entries)).
			Int("deposits", len(deposits)).
			Msg("Tenant cash processed")
	}

	p.logger.Info().
		Int("entries_loaded", result.EntriesLoaded).
		Int("deposits_loaded", result.DepositsLoaded).
		Int("errors", len(result.Errors)).
		Msg("Cash run complete")

	return result, nil
}

// LaborResult summarizes one labor run.
type LaborResult struct {
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date"`
	RestaurantsProcessed int      `json:"restaurants_processed"`
	EntriesFetched       int      `json:"entries_fetched"`
	ShiftsFlattened      int      `json:"shifts_flattened"`
	ShiftsLoaded         int      `json:"shifts_loaded"`
	Errors               []string `json:"errors"`
}

// RunLabor pulls labor time entries per tenant and merges the flattened
// shifts into fact_labor_shifts. Aborts with a non-nil error when the
// credentials are rejected.
func (p *Pipeline) RunLabor(ctx context.Context, tenants []string, startDate, endDate string) (LaborResult, error) {
	startDate, endDate = dateRange(startDate, endDate)
	result := LaborResult{StartDate: startDate, EndDate: endDate, Errors: []string{}}

	p.logger.Info().
		Int("tenants", len(tenants)).
		Str("start_date", startDate).
		Str("end_date", endDate).
		Msg("Labor run starting")

	for _, tenant := range tenants {
		result.RestaurantsProcessed++

		entries, errs, fatal := p.client.FetchTimeEntries(ctx, tenant, startDate, endDate)
		result.Errors = append(result.Errors, errs...)
		result.EntriesFetched += len(entries)
		if fatal != nil {
			return result, fmt.Errorf("labor run aborted at tenant %s: %w", tenant, fatal)
		}
		if len(entries) == 0 {
			continue
		}

		rows := flatten.LaborShifts(entries, tenant)
		result.ShiftsFlattened += len(rows)
		if len(rows) == 0 {
			continue
		}

		inserted, loadErrs := p.loader.Load(ctx, rows, warehouse.FactLaborShifts)
		result.Errors = append(result.Errors, loadErrs...)
		result.ShiftsLoaded += inserted

		p.logger.Info().
			Str("tenant", tenant).
			Int("entries", len(entries)).
			Int("shifts", len(rows)).
			Int("loaded", inserted).
			Msg("Tenant labor processed")
	}

	p.logger.Info().
		Int("shifts_loaded", result.ShiftsLoaded).
		Int("errors", len(result.Errors)).
		Msg("Labor run complete")

	return result, nil
}

// ConfigResult summarizes one dimension refresh run.
type ConfigResult struct {
	RestaurantsProcessed int      `json:"restaurants_processed"`
	RestaurantsLoaded    int      `json:"restaurants_loaded"`
	EmployeesLoaded      int      `json:"employees_loaded"`
	JobsLoaded           int      `json:"jobs_loaded"`
	MenuItemsLoaded      int      `json:"menu_items_loaded"`
	Errors               []string `json:"errors"`
}

// RunConfig pulls the current restaurant, employee, job, and menu state
// for every tenant, then replaces the four dimension tables wholesale.
// Rows accumulate across tenants so each table refreshes exactly once.
// Aborts with a non-nil error when the credentials are rejected; no
// dimension is touched in that case.
func (p *Pipeline) RunConfig(ctx context.Context, tenants []string) (ConfigResult, error) {
	result := ConfigResult{Errors: []string{}}

	p.logger.Info().
		Int("tenants", len(tenants)).
		Msg("Config run starting")

	var restaurants, employees, jobs, menuItems []flatten.Row
	for _, tenant := range tenants {
		result.RestaurantsProcessed++

		info, errs, fatal := p.client.FetchRestaurant(ctx, tenant)
		result.Errors = append(result.Errors, errs...)
		if fatal != nil {
			return result, fmt.Errorf("config run aborted at tenant %s: %w", tenant, fatal)
		}
		if len(info) > 0 {
			if row := flatten.Restaurant(info[0], tenant); row != nil {
				restaurants = append(restaurants, row)
			}
		}

		rawEmployees, errs, fatal := p.client.FetchEmployees(ctx, tenant)
		result.Errors = append(result.Errors, errs...)
		if fatal != nil {
			return result, fmt.Errorf("config run aborted at tenant %s: %w", tenant, fatal)
		}
		employees = append(employees, flatten.Employees(rawEmployees, tenant)...)

		rawJobs, errs, fatal := p.client.FetchJobs(ctx, tenant)
		result.Errors = append(result.Errors, errs...)
		if fatal != nil {
			return result, fmt.Errorf("config run aborted at tenant %s: %w", tenant, fatal)
		}
		jobs = append(jobs, flatten.Jobs(rawJobs, tenant)...)

		menus, errs, fatal := p.client.FetchMenus(ctx, tenant)
		result.Errors = append(result.Errors, errs...)
		if fatal != nil {
			return result, fmt.Errorf("config run aborted at tenant %s: %w", tenant, fatal)
		}
		items := flatten.MenuItems(menus, tenant)
		menuItems = append(menuItems, items...)

		p.logger.Info().
			Str("tenant", tenant).
			Int("employees", len(rawEmployees)).
			Int("jobs", len(rawJobs)).
			Int("menu_items", len(items)).
			Msg("Tenant config fetched")
	}

	loaded, errs := p.loader.RefreshDimension(ctx, restaurants, warehouse.DimRestaurants)
	result.Errors = append(result.Errors, errs...)
	result.RestaurantsLoaded = loaded

	loaded, errs = p.loader.RefreshDimension(ctx, employees, warehouse.DimEmployees)
	result.Errors = append(result.Errors, errs...)
	result.EmployeesLoaded = loaded

	loaded, errs = p.loader.RefreshDimension(ctx, jobs, warehouse.DimJobs)
	result.Errors = append(result.Errors, errs...)
	result.JobsLoaded = loaded

	loaded, errs = p.loader.RefreshDimension(ctx, menuItems, warehouse.DimMenuItems)
	result.Errors = append(result.Errors, errs...)
	result.MenuItemsLoaded = loaded

	p.logger.Info().
		Int("restaurants", result.RestaurantsLoaded).
		Int("employees", result.EmployeesLoaded).
		Int("jobs", result.JobsLoaded).
		Int("menu_items", result.MenuItemsLoaded).
		Int("errors", len(result.Errors)).
		Msg("Config run complete")

	return result, nil
}

// dateRange defaults an empty start to yesterday (UTC) and an empty end
// to the start.
func dateRange(startDate, endDate string) (string, string) {
	if startDate == "" {
		startDate = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	if endDate == "" {
		endDate = startDate
	}
	return startDate, endDate
}
