package warehouse

import (
	"fmt"
	"strings"
)

// Column is one column of a warehouse table.
type Column struct {
	Name string
	Type string
}

// Table defines a warehouse table: its columns, the dedup key tuple for
// fact loads, and physical layout hints applied idempotently on every load.
type Table struct {
	Name    string
	Columns []Column

	// DedupKeys is the column tuple that uniquely identifies a fact row.
	// Empty for dimension tables.
	DedupKeys []string

	// PartitionColumn and ClusterColumn are layout hints; when set they get
	// an index so date-range and per-restaurant scans stay cheap.
	PartitionColumn string
	ClusterColumn   string
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// createSQL renders the idempotent CREATE TABLE statement for the table
// under the given name. The name parameter lets staging tables share the
// target's layout.
func (t Table) createSQL(name string) string {
	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = fmt.Sprintf("%s %s", col.Name, col.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
}

// indexSQL renders the idempotent index statements for the layout hints.
func (t Table) indexSQL() []string {
	var stmts []string
	for _, col := range []string{t.PartitionColumn, t.ClusterColumn} {
		if col == "" {
			continue
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", t.Name, col, t.Name, col))
	}
	return stmts
}

// FactOrderItems holds one row per menu item sold, flattened from
// orders -> checks -> selections.
var FactOrderItems = Table{
	Name: "fact_order_items",
	Columns: []Column{
		{Name: "selection_guid", Type: "VARCHAR"},
		{Name: "order_guid", Type: "VARCHAR"},
		{Name: "check_guid", Type: "VARCHAR"},
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "business_date", Type: "DATE"},
		{Name: "menu_item_guid", Type: "VARCHAR"},
		{Name: "server_guid", Type: "VARCHAR"},
		{Name: "menu_item_name", Type: "VARCHAR"},
		{Name: "sales_category_name", Type: "VARCHAR"},
		{Name: "item_quantity", Type: "DOUBLE"},
		{Name: "item_price", Type: "DOUBLE"},
		{Name: "pre_discount_price", Type: "DOUBLE"},
		{Name: "discount_amount", Type: "DOUBLE"},
		{Name: "tax_amount", Type: "DOUBLE"},
		{Name: "check_total", Type: "DOUBLE"},
		{Name: "check_tax", Type: "DOUBLE"},
		{Name: "check_tip", Type: "DOUBLE"},
		{Name: "payment_type", Type: "VARCHAR"},
		{Name: "is_voided", Type: "BOOLEAN"},
		{Name: "is_deleted", Type: "BOOLEAN"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
	DedupKeys:       []string{"selection_guid", "order_guid"},
	PartitionColumn: "business_date",
	ClusterColumn:   "restaurant_guid",
}

// FactCashEntries holds one row per cash drawer entry.
var FactCashEntries = Table{
	Name: "fact_cash_entries",
	Columns: []Column{
		{Name: "cash_entry_guid", Type: "VARCHAR"},
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "business_date", Type: "DATE"},
		{Name: "employee_guid", Type: "VARCHAR"},
		{Name: "entry_type", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "reason", Type: "VARCHAR"},
		{Name: "notes", Type: "VARCHAR"},
		{Name: "cash_drawer_guid", Type: "VARCHAR"},
		{Name: "entry_date", Type: "TIMESTAMP"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
	DedupKeys:       []string{"cash_entry_guid"},
	PartitionColumn: "business_date",
	ClusterColumn:   "restaurant_guid",
}

// FactCashDeposits holds one row per bank deposit.
var FactCashDeposits = Table{
	Name: "fact_cash_deposits",
	Columns: []Column{
		{Name: "deposit_guid", Type: "VARCHAR"},
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "business_date", Type: "DATE"},
		{Name: "deposit_date", Type: "TIMESTAMP"},
		{Name: "deposit_amount", Type: "DOUBLE"},
		{Name: "cash_amount", Type: "DOUBLE"},
		{Name: "check_amount", Type: "DOUBLE"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
	DedupKeys:       []string{"deposit_guid"},
	PartitionColumn: "business_date",
	ClusterColumn:   "restaurant_guid",
}

// FactLaborShifts holds one row per employee time entry (clock in/out).
var FactLaborShifts = Table{
	Name: "fact_labor_shifts",
	Columns: []Column{
		{Name: "time_entry_guid", Type: "VARCHAR"},
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "business_date", Type: "DATE"},
		{Name: "employee_guid", Type: "VARCHAR"},
		{Name: "job_guid", Type: "VARCHAR"},
		{Name: "job_title", Type: "VARCHAR"},
		{Name: "in_date", Type: "TIMESTAMP"},
		{Name: "out_date", Type: "TIMESTAMP"},
		{Name: "regular_hours", Type: "DOUBLE"},
		{Name: "overtime_hours", Type: "DOUBLE"},
		{Name: "hourly_wage", Type: "DOUBLE"},
		{Name: "regular_pay", Type: "DOUBLE"},
		{Name: "overtime_pay", Type: "DOUBLE"},
		{Name: "total_pay", Type: "DOUBLE"},
		{Name: "declared_tips", Type: "DOUBLE"},
		{Name: "is_deleted", Type: "BOOLEAN"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
	DedupKeys:       []string{"time_entry_guid"},
	PartitionColumn: "business_date",
	ClusterColumn:   "restaurant_guid",
}

// DimRestaurants holds one row per restaurant location, current state only.
var DimRestaurants = Table{
	Name: "dim_restaurants",
	Columns: []Column{
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "restaurant_name", Type: "VARCHAR"},
		{Name: "location_name", Type: "VARCHAR"},
		{Name: "address_line1", Type: "VARCHAR"},
		{Name: "address_line2", Type: "VARCHAR"},
		{Name: "city", Type: "VARCHAR"},
		{Name: "state", Type: "VARCHAR"},
		{Name: "zip_code", Type: "VARCHAR"},
		{Name: "timezone", Type: "VARCHAR"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
}

// DimEmployees holds one row per employee across all restaurants.
var DimEmployees = Table{
	Name: "dim_employees",
	Columns: []Column{
		{Name: "employee_guid", Type: "VARCHAR"},
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "first_name", Type: "VARCHAR"},
		{Name: "last_name", Type: "VARCHAR"},
		{Name: "email", Type: "VARCHAR"},
		{Name: "external_id", Type: "VARCHAR"},
		{Name: "is_deleted", Type: "BOOLEAN"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
}

// DimJobs holds one row per job definition.
var DimJobs = Table{
	Name: "dim_jobs",
	Columns: []Column{
		{Name: "job_guid", Type: "VARCHAR"},
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "job_title", Type: "VARCHAR"},
		{Name: "default_wage", Type: "DOUBLE"},
		{Name: "tipped", Type: "BOOLEAN"},
		{Name: "is_deleted", Type: "BOOLEAN"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
}

// DimMenuItems holds one row per sellable menu item.
var DimMenuItems = Table{
	Name: "dim_menu_items",
	Columns: []Column{
		{Name: "menu_item_guid", Type: "VARCHAR"},
		{Name: "restaurant_guid", Type: "VARCHAR"},
		{Name: "menu_name", Type: "VARCHAR"},
		{Name: "menu_group_name", Type: "VARCHAR"},
		{Name: "item_name", Type: "VARCHAR"},
		{Name: "price", Type: "DOUBLE"},
		{Name: "sales_category_name", Type: "VARCHAR"},
		{Name: "visibility", Type: "VARCHAR"},
		{Name: "is_deleted", Type: "BOOLEAN"},
		{Name: "_loaded_at", Type: "TIMESTAMP"},
	},
}

// Tables lists every warehouse table.
func Tables() []Table {
	return []Table{
		FactOrderItems,
		FactCashEntries,
		FactCashDeposits,
		FactLaborShifts,
		DimRestaurants,
		DimEmployees,
		DimJobs,
		DimMenuItems,
	}
}
