// Package testutil provides testing utilities for the Toast ETL pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LoginPath is the machine-client login endpoint the mock serves.
const LoginPath = "/authentication/v1/authentication/login"

// Token is the bearer token the mock's login endpoint issues.
const Token = "mock-toast-token"

// MockResponse defines the behavior of one mocked endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockToast is a configurable fake Toast API for tests: a login endpoint,
// per-path handlers, and request counters.
type MockToast struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount      int
	pathCounts        map[string]int
	loginCount        int
	lastRequestHeader http.Header
}

// NewMockToast starts a mock server. The login endpoint works out of the
// box; every other path answers an empty record array until a handler is
// registered for it.
func NewMockToast() *MockToast {
	mock := &MockToast{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		if r.URL.Path == LoginPath {
			mock.loginCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server's base URL.
func (m *MockToast) URL() string {
	return m.server.URL
}

// Close shuts the mock server down.
func (m *MockToast) Close() {
	m.server.Close()
}

// Reset clears all counters and registered handlers.
func (m *MockToast) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[string]http.HandlerFunc)
	m.pathCounts = make(map[string]int)
	m.requestCount = 0
	m.loginCount = 0
	m.lastRequestHeader = nil
}

// SetHandler registers a custom handler for a path.
func (m *MockToast) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse registers a fixed response for a path.
func (m *MockToast) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPages registers a paginated handler: the nth request with page=n
// serves pages[n-1]; pages beyond the slice serve an empty array.
func (m *MockToast) SetPages(path string, pages ...string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		w.Header().Set("Content-Type", "application/json")
		if page > len(pages) {
			w.Write([]byte("[]"))
			return
		}
		w.Write([]byte(pages[page-1]))
	})
}

// RequestCount returns the total number of requests served.
func (m *MockToast) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests served for one path.
func (m *MockToast) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LoginCount returns the number of logins served.
func (m *MockToast) LoginCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loginCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockToast) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// defaultHandler serves the login endpoint and an empty record array for
// everything else, which ends pagination immediately.
func (m *MockToast) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == LoginPath {
		fmt.Fprintf(w, `{"token": {"accessToken": %q}}`, Token)
		return
	}

	w.Write([]byte("[]"))
}

// NewRateLimitResponse creates a 429 response with a Retry-After header.
func NewRateLimitResponse(retryAfterSeconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After": strconv.Itoa(retryAfterSeconds),
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// OrdersPage builds a JSON array of count orders for the given calendar
// date, each with one check carrying one selection. Every record passes
// validation once the client injects the restaurant GUID.
func OrdersPage(count int, date string) string {
	businessDate, _ := strconv.Atoi(strings.ReplaceAll(date, "-", ""))

	orders := make([]map[string]any, count)
	for i := range orders {
		orders[i] = map[string]any{
			"guid":         fmt.Sprintf("ord-%04d", i),
			"businessDate": businessDate,
			"openedDate":   date + "T12:00:00.000+0000",
			"server":       map[string]any{"guid": "srv-1"},
			"checks": []map[string]any{{
				"guid":        fmt.Sprintf("chk-%04d", i),
				"totalAmount": 25.0,
				"taxAmount":   2.0,
				"payments": []map[string]any{{
					"type":      "CREDIT",
					"tipAmount": 4.0,
				}},
				"selections": []map[string]any{{
					"guid":        fmt.Sprintf("sel-%04d", i),
					"displayName": fmt.Sprintf("Item %d", i),
					"itemGuid":    fmt.Sprintf("item-%04d", i),
					"quantity":    1.0,
					"price":       19.0,
				}},
			}},
		}
	}
	return mustJSON(orders)
}

// CashEntriesPage builds a JSON array of count cash entries.
func CashEntriesPage(count int, date string) string {
	businessDate, _ := strconv.Atoi(strings.ReplaceAll(date, "-", ""))

	entries := make([]map[string]any, count)
	for i := range entries {
		entries[i] = map[string]any{
			"guid":         fmt.Sprintf("entry-%04d", i),
			"businessDate": businessDate,
			"type":         "CASH_IN",
			"amount":       12.5,
			"date":         date + "T09:00:00.000+0000",
			"employee":     map[string]any{"guid": "emp-1"},
		}
	}
	return mustJSON(entries)
}

// TimeEntriesPage builds a JSON array of count labor time entries.
func TimeEntriesPage(count int, date string) string {
	businessDate, _ := strconv.Atoi(strings.ReplaceAll(date, "-", ""))

	entries := make([]map[string]any, count)
	for i := range entries {
		entries[i] = map[string]any{
			"guid":              fmt.Sprintf("te-%04d", i),
			"businessDate":      businessDate,
			"inDate":            date + "T15:00:00.000+0000",
			"outDate":           date + "T23:00:00.000+0000",
			"regularHours":      8.0,
			"wage":              16.5,
			"employeeReference": map[string]any{"guid": fmt.Sprintf("emp-%d", i)},
			"jobReference":      map[string]any{"guid": "job-1", "title": "Server"},
		}
	}
	return mustJSON(entries)
}

// RestaurantBody builds a restaurant configuration payload.
func RestaurantBody(name string) string {
	return mustJSON(map[string]any{
		"general":      map[string]any{"name": name, "timeZone": "America/Denver"},
		"locationName": name,
		"location": map[string]any{
			"address": map[string]any{
				"addressLine1": "100 Main St",
				"city":         "Denver",
				"stateCode":    "CO",
				"zipCode":      "80202",
			},
		},
	})
}

// MenusBody builds a menus payload with one menu, one group and two items.
func MenusBody() string {
	return mustJSON([]map[string]any{{
		"name": "Dinner",
		"menuGroups": []map[string]any{{
			"name": "Entrees",
			"menuItems": []map[string]any{
				{"guid": "mi-1", "name": "Steak", "price": 32.0},
				{"guid": "mi-2", "name": "Pasta", "price": 21.0},
			},
		}},
	}})
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
