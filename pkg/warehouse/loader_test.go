package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"
)

func newTestLoader(t *testing.T) (*Loader, *sql.DB) {
	t.Helper()

	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open in-memory warehouse: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewLoader(db), db
}

func cashEntryRow(i int) Row {
	return Row{
		"cash_entry_guid": fmt.Sprintf("entry-%04d", i),
		"restaurant_guid": "t1",
		"business_date":   "2026-02-08",
		"employee_guid":   fmt.Sprintf("emp-%d", i%3),
		"entry_type":      "CASH_IN",
		"amount":          float64(i) * 1.5,
		"entry_date":      "2026-02-08T04:26:03.864Z",
		"_loaded_at":      time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func stagingTables(t *testing.T, db *sql.DB) []string {
	t.Helper()

	rows, err := db.Query(
		"SELECT table_name FROM information_schema.tables WHERE table_name LIKE '%_stage_%'")
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func TestLoadIdempotence(t *testing.T) {
	loader, db := newTestLoader(t)
	ctx := context.Background()

	batch := make([]Row, 100)
	for i := range batch {
		batch[i] = cashEntryRow(i)
	}

	inserted, errs := loader.Load(ctx, batch, FactCashEntries)
	if len(errs) != 0 {
		t.Fatalf("First load returned errors: %v", errs)
	}
	if inserted != 100 {
		t.Errorf("First load: expected 100 inserted, got %d", inserted)
	}

	// Identical replay must insert nothing.
	inserted, errs = loader.Load(ctx, batch, FactCashEntries)
	if len(errs) != 0 {
		t.Fatalf("Replay returned errors: %v", errs)
	}
	if inserted != 0 {
		t.Errorf("Replay: expected 0 inserted, got %d", inserted)
	}

	if n := countRows(t, db, "fact_cash_entries"); n != 100 {
		t.Errorf("Expected 100 rows in target, got %d", n)
	}
}

func TestLoadPartialOverlap(t *testing.T) {
	loader, db := newTestLoader(t)
	ctx := context.Background()

	first := make([]Row, 10)
	for i := range first {
		first[i] = cashEntryRow(i)
	}
	if inserted, _ := loader.Load(ctx, first, FactCashEntries); inserted != 10 {
		t.Fatalf("Seed load: expected 10 inserted, got %d", inserted)
	}

	// 15 rows, 10 of which already exist.
	second := make([]Row, 15)
	for i := range second {
		second[i] = cashEntryRow(i)
	}
	inserted, errs := loader.Load(ctx, second, FactCashEntries)
	if len(errs) != 0 {
		t.Fatalf("Overlap load returned errors: %v", errs)
	}
	if inserted != 5 {
		t.Errorf("Expected 5 new rows inserted, got %d", inserted)
	}
	if n := countRows(t, db, "fact_cash_entries"); n != 15 {
		t.Errorf("Expected 15 rows in target, got %d", n)
	}
}

func TestLoadCompositeDedupKey(t *testing.T) {
	loader, db := newTestLoader(t)
	ctx := context.Background()

	row := func(selection, order string) Row {
		return Row{
			"selection_guid":  selection,
			"order_guid":      order,
			"check_guid":      "chk-1",
			"restaurant_guid": "t1",
			"business_date":   "2026-02-08",
			"item_quantity":   1.0,
			"_loaded_at":      time.Now().UTC().Format(time.RFC3339Nano),
		}
	}

	if inserted, _ := loader.Load(ctx, []Row{row("sel-1", "ord-1")}, FactOrderItems); inserted != 1 {
		t.Fatal("Seed insert failed")
	}

	// Same selection under a different order is a distinct tuple.
	inserted, errs := loader.Load(ctx, []Row{
		row("sel-1", "ord-1"),
		row("sel-1", "ord-2"),
	}, FactOrderItems)
	if len(errs) != 0 {
		t.Fatalf("Load returned errors: %v", errs)
	}
	if inserted != 1 {
		t.Errorf("Expected 1 inserted (only the new tuple), got %d", inserted)
	}
	if n := countRows(t, db, "fact_order_items"); n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}
}

func TestLoadEmptyBatch(t *testing.T) {
	loader, _ := newTestLoader(t)

	inserted, errs := loader.Load(context.Background(), nil, FactCashEntries)
	if inserted != 0 || errs != nil {
		t.Errorf("Empty batch: expected (0, nil), got (%d, %v)", inserted, errs)
	}
}

func TestLoadMissingColumnsBindNull(t *testing.T) {
	loader, db := newTestLoader(t)
	ctx := context.Background()

	rec := Row{
		"cash_entry_guid": "entry-sparse",
		"restaurant_guid": "t1",
		"business_date":   "2026-02-08",
		"_loaded_at":      time.Now().UTC().Format(time.RFC3339Nano),
	}
	inserted, errs := loader.Load(ctx, []Row{rec}, FactCashEntries)
	if len(errs) != 0 {
		t.Fatalf("Load returned errors: %v", errs)
	}
	if inserted != 1 {
		t.Fatalf("Expected 1 inserted, got %d", inserted)
	}

	var reason sql.NullString
	if err := db.QueryRow(
		"SELECT reason FROM fact_cash_entries WHERE cash_entry_guid = 'entry-sparse'").Scan(&reason); err != nil {
		t.Fatalf("Failed to read back row: %v", err)
	}
	if reason.Valid {
		t.Errorf("Absent column should load as NULL, got %q", reason.String)
	}
}

func TestLoadSoftErrorOnClosedDB(t *testing.T) {
	loader, db := newTestLoader(t)
	db.Close()

	inserted, errs := loader.Load(context.Background(), []Row{cashEntryRow(1)}, FactCashEntries)
	if inserted != 0 {
		t.Errorf("Failed load must report 0 inserted, got %d", inserted)
	}
	if len(errs) != 1 {
		t.Fatalf("Expected exactly 1 soft error, got %v", errs)
	}
	if !strings.Contains(errs[0], "fact_cash_entries") {
		t.Errorf("Soft error should name the table: %s", errs[0])
	}
}

func TestStagingDroppedAfterSuccess(t *testing.T) {
	loader, db := newTestLoader(t)

	if inserted, _ := loader.Load(context.Background(), []Row{cashEntryRow(1)}, FactCashEntries); inserted != 1 {
		t.Fatal("Load failed")
	}

	if leaked := stagingTables(t, db); len(leaked) != 0 {
		t.Errorf("Staging tables leaked after success: %v", leaked)
	}
}

func TestStagingDroppedAfterFailure(t *testing.T) {
	loader, db := newTestLoader(t)
	ctx := context.Background()

	// Pre-create the target with the hint columns but an otherwise
	// incomplete layout: the ensure and staging steps succeed, then the
	// anti-join merge fails against the missing columns.
	if _, err := db.Exec("CREATE TABLE fact_cash_entries (business_date DATE, restaurant_guid VARCHAR)"); err != nil {
		t.Fatalf("Failed to create conflicting table: %v", err)
	}

	inserted, errs := loader.Load(ctx, []Row{cashEntryRow(1)}, FactCashEntries)
	if inserted != 0 || len(errs) != 1 {
		t.Fatalf("Expected soft failure, got (%d, %v)", inserted, errs)
	}

	if leaked := stagingTables(t, db); len(leaked) != 0 {
		t.Errorf("Staging tables leaked after failure: %v", leaked)
	}
}

func TestRefreshDimensionReplacesContents(t *testing.T) {
	loader, db := newTestLoader(t)
	ctx := context.Background()

	employee := func(guid string) Row {
		return Row{
			"employee_guid":   guid,
			"restaurant_guid": "t1",
			"first_name":      "Sam",
			"is_deleted":      false,
			"_loaded_at":      time.Now().UTC().Format(time.RFC3339Nano),
		}
	}

	loaded, errs := loader.RefreshDimension(ctx, []Row{employee("e1"), employee("e2"), employee("e3")}, DimEmployees)
	if len(errs) != 0 || loaded != 3 {
		t.Fatalf("First refresh: expected (3, none), got (%d, %v)", loaded, errs)
	}

	// Second refresh replaces wholesale, no anti-join.
	loaded, errs = loader.RefreshDimension(ctx, []Row{employee("e1"), employee("e4")}, DimEmployees)
	if len(errs) != 0 || loaded != 2 {
		t.Fatalf("Second refresh: expected (2, none), got (%d, %v)", loaded, errs)
	}

	if n := countRows(t, db, "dim_employees"); n != 2 {
		t.Errorf("Expected dimension wholly replaced (2 rows), got %d", n)
	}
}

func TestRefreshDimensionEmptyBatchIsNoOp(t *testing.T) {
	loader, db := newTestLoader(t)
	ctx := context.Background()

	seed := []Row{{
		"job_guid":        "j1",
		"restaurant_guid": "t1",
		"job_title":       "Server",
		"_loaded_at":      time.Now().UTC().Format(time.RFC3339Nano),
	}}
	if loaded, _ := loader.RefreshDimension(ctx, seed, DimJobs); loaded != 1 {
		t.Fatal("Seed refresh failed")
	}

	loaded, errs := loader.RefreshDimension(ctx, nil, DimJobs)
	if loaded != 0 || errs != nil {
		t.Errorf("Empty refresh: expected (0, nil), got (%d, %v)", loaded, errs)
	}
	if n := countRows(t, db, "dim_jobs"); n != 1 {
		t.Errorf("Empty refresh must not truncate: expected 1 row, got %d", n)
	}
}

func TestStagingNameUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := stagingName("fact_order_items")
		if !strings.HasPrefix(name, "fact_order_items_stage_") {
			t.Fatalf("Unexpected staging name shape: %s", name)
		}
		if seen[name] {
			t.Fatalf("Staging name collided: %s", name)
		}
		seen[name] = true
	}
}
