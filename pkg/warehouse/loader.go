package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for warehouse loads.
var (
	rowsStagedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_rows_staged_total",
		Help: "Total rows written to staging tables, by target table",
	}, []string{"table"})

	rowsInsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_rows_inserted_total",
		Help: "Total rows inserted into target tables",
	}, []string{"table"})

	duplicatesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_duplicates_skipped_total",
		Help: "Total staged rows skipped by the dedup merge",
	}, []string{"table"})

	loadErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_load_errors_total",
		Help: "Total load calls that failed softly",
	}, []string{"table"})

	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toast_load_duration_seconds",
		Help:    "Load duration by table",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"table"})
)

// Row is one flattened warehouse row, keyed by column name. Columns absent
// from a row load as NULL.
type Row = map[string]any

// Loader writes batches into the warehouse: idempotent anti-join merges
// for fact tables, wholesale refreshes for dimension tables. One Loader is
// safe for sequential use; concurrent loads against the same target table
// must be serialized by the caller.
type Loader struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewLoader creates a loader over an open warehouse database.
func NewLoader(db *sql.DB) *Loader {
	return &Loader{
		db:     db,
		logger: log.With().Str("component", "loader").Logger(),
	}
}

// Load stages records and inserts only the rows whose dedup-key tuple is
// absent from the target table. Returns the count of rows actually
// inserted; duplicates skipped = submitted − inserted. All failures are
// soft: zero inserted plus an error string, never a panic or propagated
// error. The staging table is dropped on every exit path.
func (l *Loader) Load(ctx context.Context, records []Row, table Table) (int, []string) {
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	staging := stagingName(table.Name)
	defer l.dropStaging(staging)

	inserted, err := l.loadBatch(ctx, records, table, staging)
	if err != nil {
		loadErrorsTotal.WithLabelValues(table.Name).Inc()
		l.logger.Error().
			Err(err).
			Str("table", table.Name).
			Int("rows", len(records)).
			Msg("Load failed")
		return 0, []string{fmt.Sprintf("load %s: %v", table.Name, err)}
	}

	skipped := len(records) - inserted
	rowsInsertedTotal.WithLabelValues(table.Name).Add(float64(inserted))
	duplicatesSkippedTotal.WithLabelValues(table.Name).Add(float64(skipped))
	loadDuration.WithLabelValues(table.Name).Observe(time.Since(start).Seconds())

	l.logger.Info().
		Str("table", table.Name).
		Int("submitted", len(records)).
		Int("inserted", inserted).
		Int("duplicates_skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("Load complete")

	return inserted, nil
}

// RefreshDimension replaces the table's entire contents with records
// inside one transaction. No dedup keys: dimension tables carry current
// state only. Same soft-error contract as Load. An empty batch is a no-op
// so a failed upstream fetch cannot wipe a dimension.
func (l *Loader) RefreshDimension(ctx context.Context, records []Row, table Table) (int, []string) {
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	if err := l.refreshBatch(ctx, records, table); err != nil {
		loadErrorsTotal.WithLabelValues(table.Name).Inc()
		l.logger.Error().
			Err(err).
			Str("table", table.Name).
			Int("rows", len(records)).
			Msg("Dimension refresh failed")
		return 0, []string{fmt.Sprintf("refresh %s: %v", table.Name, err)}
	}

	rowsInsertedTotal.WithLabelValues(table.Name).Add(float64(len(records)))
	loadDuration.WithLabelValues(table.Name).Observe(time.Since(start).Seconds())

	l.logger.Info().
		Str("table", table.Name).
		Int("rows", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Dimension refreshed")

	return len(records), nil
}

// loadBatch runs steps 1–4 of the load: ensure target, create staging,
// bulk-stage, anti-join merge. The caller owns staging cleanup.
func (l *Loader) loadBatch(ctx context.Context, records []Row, table Table, staging string) (int, error) {
	if err := l.ensureTable(ctx, table); err != nil {
		return 0, err
	}

	if _, err := l.db.ExecContext(ctx, table.createSQL(staging)); err != nil {
		return 0, fmt.Errorf("create staging %s: %w", staging, err)
	}

	if err := l.stage(ctx, records, table, staging); err != nil {
		return 0, err
	}
	rowsStagedTotal.WithLabelValues(table.Name).Add(float64(len(records)))

	return l.mergeNew(ctx, table, staging)
}

// ensureTable creates the target table and its layout-hint indexes; safe
// to invoke on every call.
func (l *Loader) ensureTable(ctx context.Context, table Table) error {
	if _, err := l.db.ExecContext(ctx, table.createSQL(table.Name)); err != nil {
		return fmt.Errorf("ensure table %s: %w", table.Name, err)
	}
	for _, stmt := range table.indexSQL() {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure index on %s: %w", table.Name, err)
		}
	}
	return nil
}

// stage bulk-inserts the records into the staging table inside one
// transaction. Missing row keys bind NULL.
func (l *Loader) stage(ctx context.Context, records []Row, table Table, staging string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL(staging, table.Columns))
	if err != nil {
		return fmt.Errorf("prepare staging insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, bindValues(rec, table.Columns)...); err != nil {
			return fmt.Errorf("stage row into %s: %w", staging, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staging tx: %w", err)
	}
	return nil
}

// mergeNew performs the anti-join insert: every staging row whose dedup
// tuple does not already exist in the target. This is the only statement
// that mutates the target table.
func (l *Loader) mergeNew(ctx context.Context, table Table, staging string) (int, error) {
	cols := table.ColumnNames()
	selects := make([]string, len(cols))
	for i, col := range cols {
		selects[i] = "s." + col
	}

	conds := make([]string, len(table.DedupKeys))
	for i, key := range table.DedupKeys {
		conds[i] = fmt.Sprintf("t.%s = s.%s", key, key)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s s WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE %s)",
		table.Name,
		strings.Join(cols, ", "),
		strings.Join(selects, ", "),
		staging,
		table.Name,
		strings.Join(conds, " AND "),
	)

	res, err := l.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("merge into %s: %w", table.Name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("merge row count for %s: %w", table.Name, err)
	}
	return int(affected), nil
}

// refreshBatch truncates and reloads the dimension table in one
// transaction, so readers never observe the table half-empty.
func (l *Loader) refreshBatch(ctx context.Context, records []Row, table Table) error {
	if err := l.ensureTable(ctx, table); err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin refresh tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table.Name); err != nil {
		return fmt.Errorf("truncate %s: %w", table.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table.Name, table.Columns))
	if err != nil {
		return fmt.Errorf("prepare refresh insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, bindValues(rec, table.Columns)...); err != nil {
			return fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit refresh tx: %w", err)
	}
	return nil
}

// dropStaging removes the staging table unconditionally. Runs outside the
// load's context so cancellation cannot leak the table; a drop failure is
// logged, not returned — the name is unique garbage either way.
func (l *Loader) dropStaging(staging string) {
	if _, err := l.db.Exec("DROP TABLE IF EXISTS " + staging); err != nil {
		l.logger.Warn().
			Err(err).
			Str("staging", staging).
			Msg("Failed to drop staging table")
	}
}

// stagingName builds a per-invocation unique staging table name so
// concurrent loads never collide.
func stagingName(table string) string {
	return fmt.Sprintf("%s_stage_%d_%s", table, time.Now().Unix(), uuid.NewString()[:8])
}

func insertSQL(name string, columns []Column) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = col.Name
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// bindValues extracts the row's values in column order; absent keys bind
// NULL.
func bindValues(rec Row, columns []Column) []any {
	values := make([]any, len(columns))
	for i, col := range columns {
		if v, ok := rec[col.Name]; ok {
			values[i] = v
		}
	}
	return values
}
