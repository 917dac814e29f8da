// Package flatten turns raw Toast API payloads into warehouse-shaped rows.
// Each function maps one API family onto one table's columns; rows missing
// their dedup key are dropped here so NULL keys never reach the loader.
package flatten

import (
	"time"

	"github.com/goforsam/toast-etl/pkg/normalize"
)

// Row is one warehouse row keyed by column name.
type Row = map[string]any

// object returns v as a record, or nil. Reading keys from a nil map is
// safe, so callers can chain lookups without nil checks.
func object(v any) normalize.Record {
	rec, _ := v.(map[string]any)
	return rec
}

// objects returns v's elements that are records.
func objects(v any) []normalize.Record {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	recs := make([]normalize.Record, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

// num returns v as a float64 measure, defaulting to 0 for absent, null or
// non-numeric values.
func num(v any) float64 {
	f, _ := v.(float64)
	return f
}

// numChain returns the first non-zero numeric value among the keys, else 0.
func numChain(rec normalize.Record, keys ...string) float64 {
	for _, key := range keys {
		if f := num(rec[key]); f != 0 {
			return f
		}
	}
	return 0
}

// stringChain returns the first non-empty string value among the keys,
// else nil (loads as NULL).
func stringChain(rec normalize.Record, keys ...string) any {
	for _, key := range keys {
		if s, ok := rec[key].(string); ok && s != "" {
			return s
		}
	}
	return nil
}

// subGUID extracts the guid of the first present sub-object among the keys.
func subGUID(rec normalize.Record, keys ...string) any {
	for _, key := range keys {
		if sub := object(rec[key]); sub != nil {
			if s, ok := sub["guid"].(string); ok && s != "" {
				return s
			}
		}
	}
	return nil
}

// timestampChain returns the first present timestamp value among the keys
// with its fixed offset rewritten to Z, else nil.
func timestampChain(rec normalize.Record, keys ...string) any {
	for _, key := range keys {
		if s, ok := rec[key].(string); ok && s != "" {
			return normalize.Timestamp(s)
		}
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolVal(v any) bool {
	b, _ := v.(bool)
	return b
}

func loadedAt() string {
	return normalize.LoadedAt(time.Now())
}
