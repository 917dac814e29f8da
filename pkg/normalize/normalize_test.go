package normalize

import (
	"testing"
	"time"
)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plus zero offset",
			input:    "2026-02-08T04:26:03.864+0000",
			expected: "2026-02-08T04:26:03.864Z",
		},
		{
			name:     "minus zero offset",
			input:    "2026-02-08T04:26:03.864-0000",
			expected: "2026-02-08T04:26:03.864Z",
		},
		{
			name:     "already zulu",
			input:    "2026-02-08T04:26:03.864Z",
			expected: "2026-02-08T04:26:03.864Z",
		},
		{
			name:     "non-utc offset untouched",
			input:    "2026-02-08T04:26:03.864+0500",
			expected: "2026-02-08T04:26:03.864+0500",
		},
		{
			name:     "marker mid-string rewritten",
			input:    "2026-02-08T04:26:03.864+0000[UTC]",
			expected: "2026-02-08T04:26:03.864Z[UTC]",
		},
		{
			name:     "minus marker mid-string rewritten",
			input:    "2026-02-08T04:26:03.864-0000[UTC]",
			expected: "2026-02-08T04:26:03.864Z[UTC]",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Timestamp(tt.input); got != tt.expected {
				t.Errorf("Timestamp(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{
			name:     "compact string date",
			input:    "20260208",
			expected: "2026-02-08",
		},
		{
			name:     "compact numeric date",
			input:    float64(20260208),
			expected: "2026-02-08",
		},
		{
			name:     "already dashed",
			input:    "2026-02-08",
			expected: "2026-02-08",
		},
		{
			name:     "eight letters",
			input:    "abcdefgh",
			expected: "abcdefgh",
		},
		{
			name:     "signed eight characters",
			input:    "-1234567",
			expected: "-1234567",
		},
		{
			name:     "trailing letter",
			input:    "2026020a",
			expected: "2026020a",
		},
		{
			name:     "short number",
			input:    float64(2026),
			expected: float64(2026),
		},
		{
			name:     "nil",
			input:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Date(tt.input); got != tt.expected {
				t.Errorf("Date(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	rec := Record{
		"guid":         "order-1",
		"openedDate":   "2026-02-08T04:26:03.864+0000",
		"closedDate":   "2026-02-08T05:00:00.000-0000",
		"businessDate": float64(20260208),
		"checks":       []any{},
	}

	Normalize(rec)

	if got := rec["openedDate"]; got != "2026-02-08T04:26:03.864Z" {
		t.Errorf("openedDate = %v, want 2026-02-08T04:26:03.864Z", got)
	}
	if got := rec["closedDate"]; got != "2026-02-08T05:00:00.000Z" {
		t.Errorf("closedDate = %v, want 2026-02-08T05:00:00.000Z", got)
	}
	if got := rec["businessDate"]; got != "2026-02-08" {
		t.Errorf("businessDate = %v, want 2026-02-08", got)
	}
}

func TestNormalize_MissingFieldsStayAbsent(t *testing.T) {
	rec := Record{"guid": "order-1"}

	Normalize(rec)

	for _, field := range []string{"openedDate", "closedDate", "voidDate", "businessDate"} {
		if _, ok := rec[field]; ok {
			t.Errorf("Normalize() introduced field %q", field)
		}
	}
}

func TestNormalize_NonStringTimestampUntouched(t *testing.T) {
	rec := Record{"openedDate": float64(1770500000)}

	Normalize(rec)

	if got := rec["openedDate"]; got != float64(1770500000) {
		t.Errorf("openedDate = %v, want the original number", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		rec      Record
		expected bool
	}{
		{
			name: "complete record",
			rec: Record{
				"guid":           "order-1",
				"restaurantGuid": "tenant-1",
				"businessDate":   "2026-02-08",
			},
			expected: true,
		},
		{
			name: "missing restaurant guid",
			rec: Record{
				"guid":         "order-1",
				"businessDate": "2026-02-08",
			},
			expected: false,
		},
		{
			name: "nil guid",
			rec: Record{
				"guid":           nil,
				"restaurantGuid": "tenant-1",
				"businessDate":   "2026-02-08",
			},
			expected: false,
		},
		{
			name: "missing business date",
			rec: Record{
				"guid":           "order-1",
				"restaurantGuid": "tenant-1",
			},
			expected: false,
		},
		{
			name:     "empty record",
			rec:      Record{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.rec); got != tt.expected {
				t.Errorf("Validate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStamp(t *testing.T) {
	rec := Record{"guid": "order-1"}

	Stamp(rec, "tenant-1", "toast_api")

	if got := rec[RestaurantGuidKey]; got != "tenant-1" {
		t.Errorf("%s = %v, want tenant-1", RestaurantGuidKey, got)
	}
	if got := rec[DataSourceKey]; got != "toast_api" {
		t.Errorf("%s = %v, want toast_api", DataSourceKey, got)
	}

	loadedAt, ok := rec[LoadedAtKey].(string)
	if !ok || loadedAt == "" {
		t.Fatalf("%s = %v, want a timestamp string", LoadedAtKey, rec[LoadedAtKey])
	}
	parsed, err := time.Parse(time.RFC3339Nano, loadedAt)
	if err != nil {
		t.Fatalf("Stamp wrote unparseable %s: %v", LoadedAtKey, err)
	}
	if parsed.Location() != time.UTC {
		t.Errorf("%s should be UTC, got %v", LoadedAtKey, parsed.Location())
	}
}

func TestLoadedAt(t *testing.T) {
	instant := time.Date(2026, 2, 8, 4, 26, 3, 864000000, time.FixedZone("EST", -5*3600))

	got := LoadedAt(instant)

	if got != "2026-02-08T09:26:03.864Z" {
		t.Errorf("LoadedAt() = %q, want %q", got, "2026-02-08T09:26:03.864Z")
	}
}
