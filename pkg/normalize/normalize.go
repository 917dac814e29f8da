// Package normalize rewrites raw Toast API records into warehouse-ready
// form: fixed-offset timestamps to UTC Z-suffix, compact dates to dashed
// ISO form, required-field validation, and ingestion metadata stamps.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Record is a decoded JSON object from the API.
type Record = map[string]any

// Metadata keys stamped onto every accepted record.
const (
	LoadedAtKey       = "_loaded_at"
	RestaurantGuidKey = "_restaurant_guid"
	DataSourceKey     = "_data_source"
)

// timestampFields carry fixed-offset timestamps in API payloads.
var timestampFields = []string{
	"openedDate",
	"closedDate",
	"modifiedDate",
	"paidDate",
	"voidDate",
	"deletedDate",
	"createdDate",
	"promisedDate",
	"estimatedFulfillmentDate",
}

// dateFields carry compact 8-digit dates in API payloads.
var dateFields = []string{
	"businessDate",
	"voidBusinessDate",
}

// requiredFields must be present and non-nil for a record to be loadable.
var requiredFields = []string{
	"guid",
	"restaurantGuid",
	"businessDate",
}

// Normalize rewrites timestamp and date fields in place and returns the
// record. Values are rewritten by substitution, never re-parsed: +0000 and
// -0000 suffixes become Z, 8-digit dates gain dashes. Missing fields and
// values that do not match the expected shapes pass through untouched.
func Normalize(rec Record) Record {
	for _, field := range timestampFields {
		if s, ok := rec[field].(string); ok {
			rec[field] = Timestamp(s)
		}
	}
	for _, field := range dateFields {
		if v, ok := rec[field]; ok {
			rec[field] = Date(v)
		}
	}
	return rec
}

// Timestamp converts a fixed-offset UTC marker to Z by substitution:
// "2026-02-08T04:26:03.864+0000" becomes "2026-02-08T04:26:03.864Z".
// The marker is replaced wherever it occurs, not just as a suffix.
func Timestamp(s string) string {
	if strings.Contains(s, "+0000") {
		return strings.ReplaceAll(s, "+0000", "Z")
	}
	if strings.Contains(s, "-0000") {
		return strings.ReplaceAll(s, "-0000", "Z")
	}
	return s
}

// Date converts the API's compact date form to dashed ISO form: 20260208
// (JSON number or string) becomes "2026-02-08". Anything else passes
// through unchanged.
func Date(v any) any {
	var s string
	switch value := v.(type) {
	case string:
		s = value
	case float64:
		// JSON numbers decode as float64; businessDate is a whole number.
		s = strconv.FormatInt(int64(value), 10)
	default:
		return v
	}

	if len(s) != 8 {
		return v
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return v
		}
	}
	return s[:4] + "-" + s[4:6] + "-" + s[6:8]
}

// Validate reports whether the record carries the keys the warehouse
// depends on: guid, restaurantGuid and businessDate, present and non-nil.
func Validate(rec Record) bool {
	for _, field := range requiredFields {
		v, ok := rec[field]
		if !ok || v == nil {
			return false
		}
	}
	return true
}

// Stamp attaches ingestion metadata: load instant, owning restaurant, and
// the API family that produced the record.
func Stamp(rec Record, tenant, source string) Record {
	rec[LoadedAtKey] = LoadedAt(time.Now())
	rec[RestaurantGuidKey] = tenant
	rec[DataSourceKey] = source
	return rec
}

// LoadedAt renders the ingestion timestamp format used across the pipeline.
func LoadedAt(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}
