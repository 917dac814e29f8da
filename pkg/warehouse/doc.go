// Package warehouse loads flattened Toast records into an embedded DuckDB
// analytical store.
//
// The loader implements insert-only deduplication with the following guarantees:
//
// - Target tables are created idempotently with their layout hints on every call
// - Each load batch stages into a uniquely named ephemeral table
// - One set-based anti-join insert is the only statement that mutates a target
// - Staging tables are dropped on every exit path, including failures
// - Load failures are soft: zero rows inserted, error string returned, no panic
// - Dimension tables are replaced wholesale inside one transaction
//
// # Basic Usage
//
//	db, err := warehouse.Open("./toast.duckdb")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	loader := warehouse.NewLoader(db)
//
//	// Idempotent fact load: replaying the same batch inserts nothing.
//	inserted, errs := loader.Load(ctx, rows, warehouse.FactOrderItems)
//
//	// Wholesale dimension refresh.
//	loaded, errs := loader.RefreshDimension(ctx, dimRows, warehouse.DimEmployees)
//
// # Concurrency
//
// The anti-join read and the insert are not atomic across two concurrent
// loaders targeting the same table: both can pass the not-exists check before
// either commits. Callers must serialize loads per target table; staging
// names are unique per invocation, so no cross-invocation locking is needed
// for the staging side.
package warehouse
