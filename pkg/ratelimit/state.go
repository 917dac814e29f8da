// Package ratelimit enforces minimum spacing between Toast API requests.
// The API budgets requests per endpoint family and per restaurant, so the
// limiter keys its state by (endpoint class, restaurant GUID) and blocks
// callers until the class's floor interval has elapsed since the previous
// request for that key.
package ratelimit

import (
	"sync"
	"time"
)

// EndpointClass groups API endpoints that share a rate budget.
type EndpointClass string

const (
	// ClassOrders covers the orders bulk export endpoints.
	ClassOrders EndpointClass = "orders"

	// ClassCash covers cash management entries and deposits.
	ClassCash EndpointClass = "cash"

	// ClassLabor covers time entry endpoints.
	ClassLabor EndpointClass = "labor"

	// ClassMenus covers the menus export, the most restricted family.
	ClassMenus EndpointClass = "menus"

	// ClassConfig covers restaurant, employee and job configuration endpoints.
	ClassConfig EndpointClass = "config"
)

// DefaultIntervals returns the floor interval per endpoint class. Values
// reflect the API's published budgets with headroom: orders allows 5/min,
// menus 1/min, the rest 20/min.
func DefaultIntervals() map[EndpointClass]time.Duration {
	return map[EndpointClass]time.Duration{
		ClassOrders: 12 * time.Second,
		ClassCash:   3 * time.Second,
		ClassLabor:  3 * time.Second,
		ClassMenus:  60 * time.Second,
		ClassConfig: 3 * time.Second,
	}
}

// bucketKey identifies one rate-limit bucket.
type bucketKey struct {
	class  EndpointClass
	tenant string
}

// State records the most recent request instant per bucket. One State is
// shared by every fetch path in the process; all access goes through the
// mutex. Entries live for the process lifetime.
type State struct {
	mu   sync.Mutex
	last map[bucketKey]time.Time
}

// NewState returns an empty rate-limit state.
func NewState() *State {
	return &State{
		last: make(map[bucketKey]time.Time),
	}
}

// LastRequest returns the most recent request instant for the bucket.
// The second return is false when the bucket has never been used.
func (s *State) LastRequest(class EndpointClass, tenant string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.last[bucketKey{class: class, tenant: tenant}]
	return t, ok
}

// Record stores now as the last request instant for the bucket. Instants
// never move backwards: a stale now is ignored.
func (s *State) Record(class EndpointClass, tenant string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := bucketKey{class: class, tenant: tenant}
	if prev, ok := s.last[k]; ok && prev.After(now) {
		return
	}
	s.last[k] = now
}

// Len returns the number of buckets tracked so far.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.last)
}
