package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goforsam/toast-etl/pkg/auth"
	"github.com/goforsam/toast-etl/pkg/normalize"
	"github.com/goforsam/toast-etl/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for fetch progress.
var (
	toastRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_rate_limited_total",
		Help: "Total 429 responses by endpoint class",
	}, []string{"endpoint_class"})

	toastPagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_pages_fetched_total",
		Help: "Total pages fetched by endpoint class",
	}, []string{"endpoint_class"})

	toastRecordsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_records_fetched_total",
		Help: "Total records accepted by endpoint class",
	}, []string{"endpoint_class"})

	toastRecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_records_dropped_total",
		Help: "Total records dropped by validation, by endpoint class",
	}, []string{"endpoint_class"})
)

// FetchSpec describes one pull against the API.
type FetchSpec struct {
	// Path is the endpoint path, e.g. /orders/v2/ordersBulk. For
	// resource-scoped endpoints the path already carries the identifier.
	Path string

	// Class is the endpoint's rate-limit class.
	Class ratelimit.EndpointClass

	// Tenant is the restaurant GUID, sent as the external-ID header and
	// injected into records that omit it.
	Tenant string

	// Query carries endpoint-specific parameters such as date bounds.
	// Page parameters are added by the fetch loop.
	Query url.Values

	// DataSource tags each record's lineage (_data_source).
	DataSource string

	// Paginate walks page/pageSize until exhaustion; false issues one GET.
	Paginate bool

	// Validate gates records on the required warehouse keys. Date-keyed
	// exports carry them; configuration payloads do not and skip the gate.
	Validate bool
}

// pageEnvelope is the object form some endpoints use instead of a bare
// record array.
type pageEnvelope struct {
	Data       []normalize.Record `json:"data"`
	Pagination *pagePagination    `json:"pagination"`
}

type pagePagination struct {
	HasNextPage bool `json:"hasNextPage"`
}

// Fetch pulls all records for the spec. Paginated specs walk pages until
// an empty page, an explicit hasNextPage=false, or the page cap; single
// specs issue one GET through the same rate-limit, retry, and 429 path.
// Accepted records are tenant-injected, validated, normalized and stamped.
// Returns the records plus error strings; on failure the records fetched
// so far are still returned. A non-nil error means the run cannot
// continue: the API rejected the credentials, so every further request
// would fail identically. Ordinary per-page failures stay in the string
// list with a nil error.
func (c *Client) Fetch(ctx context.Context, spec FetchSpec) ([]normalize.Record, []string, error) {
	if spec.Paginate {
		return c.fetchPaginated(ctx, spec)
	}
	return c.fetchSingle(ctx, spec)
}

func (c *Client) fetchPaginated(ctx context.Context, spec FetchSpec) ([]normalize.Record, []string, error) {
	logger := c.logger.With().
		Str("endpoint", spec.Path).
		Str("tenant", spec.Tenant).
		Logger()

	var records []normalize.Record
	var errs []string

	done := false
	page := 1
	for page <= c.config.MaxPages {
		body, err := c.get(ctx, spec, pageQuery(spec.Query, page, c.config.PageSize))
		if err != nil {
			if wait, ok := retryAfterWait(err); ok {
				toastRateLimitedTotal.WithLabelValues(string(spec.Class)).Inc()
				logger.Warn().
					Int("page", page).
					Dur("retry_after", wait).
					Msg("Rate limited, honoring Retry-After before replaying page")

				if serr := c.sleep(ctx, wait); serr != nil {
					errs = append(errs, fmt.Sprintf("fetch %s page %d for %s: %v", spec.Path, page, spec.Tenant, serr))
					return records, errs, nil
				}
				continue // same page
			}

			errs = append(errs, fmt.Sprintf("fetch %s page %d for %s: %v", spec.Path, page, spec.Tenant, err))
			if errors.Is(err, auth.ErrAuthFailed) {
				return records, errs, err
			}
			return records, errs, nil
		}

		pageRecords, hasNext, err := decodePage(body)
		if err != nil {
			errs = append(errs, fmt.Sprintf("decode %s page %d for %s: %v", spec.Path, page, spec.Tenant, err))
			return records, errs, nil
		}

		toastPagesFetched.WithLabelValues(string(spec.Class)).Inc()

		if len(pageRecords) == 0 {
			done = true
			break
		}

		records = append(records, c.accept(spec, pageRecords)...)

		logger.Debug().
			Int("page", page).
			Int("page_records", len(pageRecords)).
			Int("total_records", len(records)).
			Msg("Fetched page")

		if hasNext != nil && !*hasNext {
			done = true
			break
		}
		page++
	}

	if !done {
		logger.Warn().
			Int("max_pages", c.config.MaxPages).
			Msg("Page cap reached before the endpoint was exhausted")
	}

	logger.Info().
		Int("pages", page).
		Int("records", len(records)).
		Msg("Fetch complete")

	return records, errs, nil
}

func (c *Client) fetchSingle(ctx context.Context, spec FetchSpec) ([]normalize.Record, []string, error) {
	for {
		body, err := c.get(ctx, spec, spec.Query)
		if err != nil {
			if wait, ok := retryAfterWait(err); ok {
				toastRateLimitedTotal.WithLabelValues(string(spec.Class)).Inc()
				if serr := c.sleep(ctx, wait); serr != nil {
					return nil, []string{fmt.Sprintf("fetch %s for %s: %v", spec.Path, spec.Tenant, serr)}, nil
				}
				continue
			}
			errs := []string{fmt.Sprintf("fetch %s for %s: %v", spec.Path, spec.Tenant, err)}
			if errors.Is(err, auth.ErrAuthFailed) {
				return nil, errs, err
			}
			return nil, errs, nil
		}

		records, err := decodeSingle(body)
		if err != nil {
			return nil, []string{fmt.Sprintf("decode %s for %s: %v", spec.Path, spec.Tenant, err)}, nil
		}

		return c.accept(spec, records), nil, nil
	}
}

// accept runs the per-record pipeline: tenant injection, optional
// validation, normalization, metadata stamps. Records failing validation
// are dropped with a warning and never reach the caller.
func (c *Client) accept(spec FetchSpec, raw []normalize.Record) []normalize.Record {
	accepted := make([]normalize.Record, 0, len(raw))
	for _, rec := range raw {
		if rec == nil {
			continue
		}
		if _, ok := rec["restaurantGuid"]; !ok {
			rec["restaurantGuid"] = spec.Tenant
		}

		if spec.Validate && !normalize.Validate(rec) {
			toastRecordsDropped.WithLabelValues(string(spec.Class)).Inc()
			c.logger.Warn().
				Str("endpoint", spec.Path).
				Str("tenant", spec.Tenant).
				Interface("guid", rec["guid"]).
				Msg("Record failed validation, dropped")
			continue
		}

		normalize.Normalize(rec)
		normalize.Stamp(rec, spec.Tenant, spec.DataSource)
		accepted = append(accepted, rec)
	}

	toastRecordsFetched.WithLabelValues(string(spec.Class)).Add(float64(len(accepted)))
	return accepted
}

// pageQuery copies the spec query and adds the page parameters.
func pageQuery(base url.Values, page, pageSize int) url.Values {
	query := url.Values{}
	for k, vs := range base {
		query[k] = vs
	}
	query.Set("pageSize", strconv.Itoa(pageSize))
	query.Set("page", strconv.Itoa(page))
	return query
}

// retryAfterWait extracts the Retry-After wait from a rate limit error.
func retryAfterWait(err error) (wait time.Duration, ok bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ErrorClass == ErrorClassRateLimit {
		return apiErr.RetryAfter, true
	}
	return 0, false
}

// decodePage decodes one page body: either a bare record array or an
// envelope object with data and pagination. hasNext is nil when the
// response carries no pagination signal.
func decodePage(body []byte) ([]normalize.Record, *bool, error) {
	var records []normalize.Record
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil, nil
	}

	var envelope pageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, fmt.Errorf("response is neither a record array nor a page envelope: %w", err)
	}
	if envelope.Pagination == nil {
		return envelope.Data, nil, nil
	}
	hasNext := envelope.Pagination.HasNextPage
	return envelope.Data, &hasNext, nil
}

// decodeSingle decodes a non-paginated body: a bare array, an object
// wrapping a menus array, or a single record.
func decodeSingle(body []byte) ([]normalize.Record, error) {
	var records []normalize.Record
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var object normalize.Record
	if err := json.Unmarshal(body, &object); err != nil {
		return nil, fmt.Errorf("response is neither a record array nor an object: %w", err)
	}
	if object == nil {
		return nil, nil
	}

	if nested, ok := object["menus"].([]any); ok {
		records = make([]normalize.Record, 0, len(nested))
		for _, item := range nested {
			if rec, ok := item.(map[string]any); ok {
				records = append(records, rec)
			}
		}
		return records, nil
	}

	return []normalize.Record{object}, nil
}
