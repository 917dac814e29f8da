package flatten

import (
	"github.com/goforsam/toast-etl/pkg/normalize"
)

// CashEntries flattens cash drawer entries into fact_cash_entries rows.
// Rows without the cash entry GUID are dropped.
func CashEntries(entries []normalize.Record, tenant string) []Row {
	var rows []Row
	for _, entry := range entries {
		guid := str(entry["guid"])
		if guid == "" {
			continue
		}

		rows = append(rows, Row{
			"cash_entry_guid":  guid,
			"restaurant_guid":  tenant,
			"business_date":    normalize.Date(entry["businessDate"]),
			"employee_guid":    subGUID(entry, "employee"),
			"entry_type":       entry["type"],
			"amount":           num(entry["amount"]),
			"reason":           entry["reason"],
			"notes":            entry["notes"],
			"cash_drawer_guid": subGUID(entry, "cashDrawer"),
			"entry_date":       timestampChain(entry, "date", "entryDate"),
			"_loaded_at":       loadedAt(),
		})
	}
	return rows
}

// CashDeposits flattens bank deposits into fact_cash_deposits rows.
// Rows without the deposit GUID are dropped.
func CashDeposits(deposits []normalize.Record, tenant string) []Row {
	var rows []Row
	for _, deposit := range deposits {
		guid := str(deposit["guid"])
		if guid == "" {
			continue
		}

		rows = append(rows, Row{
			"deposit_guid":    guid,
			"restaurant_guid": tenant,
			"business_date":   normalize.Date(deposit["businessDate"]),
			"deposit_date":    timestampChain(deposit, "date"),
			"deposit_amount":  num(deposit["amount"]),
			"cash_amount":     num(deposit["cashAmount"]),
			"check_amount":    num(deposit["checkAmount"]),
			"_loaded_at":      loadedAt(),
		})
	}
	return rows
}
