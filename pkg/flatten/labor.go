package flatten

import (
	"github.com/goforsam/toast-etl/pkg/normalize"
)

// LaborShifts flattens labor time entries into fact_labor_shifts rows.
// The API answers with two generations of field names; the older export
// spells references and pay fields differently, so every lookup runs a
// fallback chain. Rows without the time entry GUID are dropped.
func LaborShifts(entries []normalize.Record, tenant string) []Row {
	var rows []Row
	for _, entry := range entries {
		guid := str(entry["guid"])
		if guid == "" {
			continue
		}

		businessDate := normalize.Date(entry["businessDate"])
		if businessDate == nil {
			// Derive the calendar date from the clock-in instant.
			if in := str(entry["inDate"]); len(in) >= 10 {
				businessDate = in[:10]
			}
		}

		employee := object(entry["employeeReference"])
		if employee == nil {
			employee = object(entry["employee"])
		}
		job := object(entry["jobReference"])
		if job == nil {
			job = object(entry["job"])
		}

		rows = append(rows, Row{
			"time_entry_guid": guid,
			"restaurant_guid": tenant,
			"business_date":   businessDate,
			"employee_guid":   employee["guid"],
			"job_guid":        job["guid"],
			"job_title":       stringChain(job, "title", "name"),
			"in_date":         timestampChain(entry, "inDate"),
			"out_date":        timestampChain(entry, "outDate"),
			"regular_hours":   num(entry["regularHours"]),
			"overtime_hours":  num(entry["overtimeHours"]),
			"hourly_wage":     numChain(entry, "wage", "hourlyWage"),
			"regular_pay":     numChain(entry, "regularPay", "nonOvertimeHourlyWages"),
			"overtime_pay":    numChain(entry, "overtimePay", "overtimeHourlyWages"),
			"total_pay":       numChain(entry, "totalPay", "totalWages"),
			"declared_tips":   numChain(entry, "declaredTips", "cashTips"),
			"is_deleted":      boolVal(entry["deleted"]),
			"_loaded_at":      loadedAt(),
		})
	}
	return rows
}
