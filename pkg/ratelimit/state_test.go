package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestDefaultIntervals(t *testing.T) {
	intervals := DefaultIntervals()

	tests := []struct {
		class    EndpointClass
		expected time.Duration
	}{
		{ClassOrders, 12 * time.Second},
		{ClassCash, 3 * time.Second},
		{ClassLabor, 3 * time.Second},
		{ClassMenus, 60 * time.Second},
		{ClassConfig, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := intervals[tt.class]; got != tt.expected {
				t.Errorf("DefaultIntervals()[%s] = %v, want %v", tt.class, got, tt.expected)
			}
		})
	}

	if len(intervals) != 5 {
		t.Errorf("DefaultIntervals() has %d classes, want 5", len(intervals))
	}
}

func TestState_LastRequest(t *testing.T) {
	state := NewState()

	if _, ok := state.LastRequest(ClassOrders, "tenant-a"); ok {
		t.Error("LastRequest() on empty state should report no instant")
	}

	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	state.Record(ClassOrders, "tenant-a", now)

	got, ok := state.LastRequest(ClassOrders, "tenant-a")
	if !ok {
		t.Fatal("LastRequest() should report an instant after Record()")
	}
	if !got.Equal(now) {
		t.Errorf("LastRequest() = %v, want %v", got, now)
	}
}

func TestState_BucketsAreIndependent(t *testing.T) {
	state := NewState()
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	state.Record(ClassOrders, "tenant-a", now)

	if _, ok := state.LastRequest(ClassOrders, "tenant-b"); ok {
		t.Error("Different tenant should not share the orders bucket")
	}
	if _, ok := state.LastRequest(ClassCash, "tenant-a"); ok {
		t.Error("Different class should not share the tenant's bucket")
	}

	state.Record(ClassCash, "tenant-a", now.Add(time.Second))
	if state.Len() != 2 {
		t.Errorf("State.Len() = %d, want 2", state.Len())
	}
}

func TestState_RecordIsMonotonic(t *testing.T) {
	state := NewState()
	later := time.Date(2026, 2, 8, 12, 0, 10, 0, time.UTC)
	earlier := later.Add(-5 * time.Second)

	state.Record(ClassLabor, "tenant-a", later)
	state.Record(ClassLabor, "tenant-a", earlier)

	got, _ := state.LastRequest(ClassLabor, "tenant-a")
	if !got.Equal(later) {
		t.Errorf("Record() moved the instant backwards: got %v, want %v", got, later)
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	state := NewState()
	base := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tenant := fmt.Sprintf("tenant-%d", n%4)
			for j := 0; j < 200; j++ {
				state.Record(ClassOrders, tenant, base.Add(time.Duration(j)*time.Millisecond))
				state.LastRequest(ClassOrders, tenant)
			}
		}(i)
	}
	wg.Wait()

	if state.Len() != 4 {
		t.Errorf("State.Len() = %d after concurrent writes, want 4", state.Len())
	}

	// Every bucket must hold the highest instant written to it.
	want := base.Add(199 * time.Millisecond)
	for i := 0; i < 4; i++ {
		got, ok := state.LastRequest(ClassOrders, fmt.Sprintf("tenant-%d", i))
		if !ok || !got.Equal(want) {
			t.Errorf("tenant-%d instant = %v, want %v", i, got, want)
		}
	}
}
