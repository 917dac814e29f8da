package flatten

import (
	"testing"
)

func TestCashEntries(t *testing.T) {
	entries := decodeRecords(t, `[
		{
			"guid": "entry-1",
			"businessDate": 20260208,
			"type": "PAY_OUT",
			"amount": -45.20,
			"reason": "Produce run",
			"employee": {"guid": "emp-1"},
			"cashDrawer": {"guid": "drawer-1"},
			"date": "2026-02-08T04:26:03.864+0000"
		},
		{"businessDate": 20260208, "amount": 10}
	]`)

	rows := CashEntries(entries, "t1")
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row (GUID-less entry dropped), got %d", len(rows))
	}

	row := rows[0]
	if row["cash_entry_guid"] != "entry-1" {
		t.Errorf("Unexpected dedup key: %v", row["cash_entry_guid"])
	}
	if row["business_date"] != "2026-02-08" {
		t.Errorf("Expected dashed business date, got %v", row["business_date"])
	}
	if row["entry_date"] != "2026-02-08T04:26:03.864Z" {
		t.Errorf("Expected Z-suffix entry date, got %v", row["entry_date"])
	}
	if row["employee_guid"] != "emp-1" || row["cash_drawer_guid"] != "drawer-1" {
		t.Errorf("Unexpected sub-object GUIDs: %v / %v", row["employee_guid"], row["cash_drawer_guid"])
	}
	if row["amount"] != -45.2 {
		t.Errorf("Unexpected amount: %v", row["amount"])
	}
}

func TestCashEntriesEntryDateFallback(t *testing.T) {
	entries := decodeRecords(t, `[
		{"guid": "entry-1", "entryDate": "2026-02-08T10:00:00.000-0000"}
	]`)

	rows := CashEntries(entries, "t1")
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0]["entry_date"] != "2026-02-08T10:00:00.000Z" {
		t.Errorf("Expected entryDate fallback with Z rewrite, got %v", rows[0]["entry_date"])
	}
}

func TestCashDeposits(t *testing.T) {
	deposits := decodeRecords(t, `[
		{
			"guid": "dep-1",
			"businessDate": "20260208",
			"date": "2026-02-09T09:00:00.000+0000",
			"amount": 1200.0,
			"cashAmount": 1100.0,
			"checkAmount": 100.0
		},
		{"amount": 5}
	]`)

	rows := CashDeposits(deposits, "t1")
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row (GUID-less deposit dropped), got %d", len(rows))
	}

	row := rows[0]
	if row["deposit_guid"] != "dep-1" || row["restaurant_guid"] != "t1" {
		t.Errorf("Unexpected keys: %v / %v", row["deposit_guid"], row["restaurant_guid"])
	}
	if row["business_date"] != "2026-02-08" {
		t.Errorf("String business dates must also gain dashes, got %v", row["business_date"])
	}
	if row["deposit_date"] != "2026-02-09T09:00:00.000Z" {
		t.Errorf("Expected Z-suffix deposit date, got %v", row["deposit_date"])
	}
	if row["deposit_amount"] != 1200.0 || row["cash_amount"] != 1100.0 || row["check_amount"] != 100.0 {
		t.Errorf("Unexpected amounts: %v", row)
	}
}
