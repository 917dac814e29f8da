package flatten

import (
	"strings"

	"github.com/goforsam/toast-etl/pkg/normalize"
)

// Restaurant flattens a restaurant configuration payload into one
// dim_restaurants row. Returns nil for an empty payload.
func Restaurant(info normalize.Record, tenant string) Row {
	if len(info) == 0 {
		return nil
	}

	general := object(info["general"])
	location := object(info["location"])
	address := object(location["address"])

	locationName := stringChain(info, "locationName")
	if locationName == nil {
		locationName = stringChain(general, "locationName")
	}
	timezone := stringChain(general, "timeZone")
	if timezone == nil {
		timezone = stringChain(info, "timeZone")
	}

	return Row{
		"restaurant_guid": tenant,
		"restaurant_name": general["name"],
		"location_name":   locationName,
		"address_line1":   address["addressLine1"],
		"address_line2":   address["addressLine2"],
		"city":            address["city"],
		"state":           stringChain(address, "stateCode", "state"),
		"zip_code":        stringChain(address, "zipCode", "zip"),
		"timezone":        timezone,
		"_loaded_at":      loadedAt(),
	}
}

// Employees flattens employee payloads into dim_employees rows, dropping
// records without a GUID.
func Employees(employees []normalize.Record, tenant string) []Row {
	var rows []Row
	for _, emp := range employees {
		guid := str(emp["guid"])
		if guid == "" {
			continue
		}

		rows = append(rows, Row{
			"employee_guid":   guid,
			"restaurant_guid": tenant,
			"first_name":      emp["firstName"],
			"last_name":       emp["lastName"],
			"email":           emp["email"],
			"external_id":     stringChain(emp, "externalId", "externalEmployeeId"),
			"is_deleted":      boolVal(emp["deleted"]),
			"_loaded_at":      loadedAt(),
		})
	}
	return rows
}

// Jobs flattens job payloads into dim_jobs rows, dropping records without
// a GUID.
func Jobs(jobs []normalize.Record, tenant string) []Row {
	var rows []Row
	for _, job := range jobs {
		guid := str(job["guid"])
		if guid == "" {
			continue
		}

		rows = append(rows, Row{
			"job_guid":        guid,
			"restaurant_guid": tenant,
			"job_title":       stringChain(job, "title", "name"),
			"default_wage":    num(job["defaultWage"]),
			"tipped":          boolVal(job["tipped"]),
			"is_deleted":      boolVal(job["deleted"]),
			"_loaded_at":      loadedAt(),
		})
	}
	return rows
}

// MenuItems flattens the nested menu structure into dim_menu_items rows:
// menus -> groups -> items, recursing into subgroups. The export spells
// group and item keys two ways (menuGroups/groups, menuItems/items);
// both are accepted. Items without a GUID are skipped.
func MenuItems(menus []normalize.Record, tenant string) []Row {
	var rows []Row
	for _, menu := range menus {
		menuName := str(menu["name"])

		groups := objects(menu["menuGroups"])
		if groups == nil {
			groups = objects(menu["groups"])
		}
		for _, group := range groups {
			rows = append(rows, menuGroupItems(group, menuName, tenant)...)
		}
	}
	return rows
}

// menuGroupItems extracts the item rows of one group, then recurses into
// its subgroups.
func menuGroupItems(group normalize.Record, menuName, tenant string) []Row {
	var rows []Row
	groupName := group["name"]

	items := objects(group["menuItems"])
	if items == nil {
		items = objects(group["items"])
	}
	for _, item := range items {
		guid := str(item["guid"])
		if guid == "" {
			continue
		}

		rows = append(rows, Row{
			"menu_item_guid":      guid,
			"restaurant_guid":     tenant,
			"menu_name":           menuName,
			"menu_group_name":     groupName,
			"item_name":           item["name"],
			"price":               num(item["price"]),
			"sales_category_name": object(item["salesCategory"])["name"],
			"visibility":          visibilityString(item["visibility"]),
			"is_deleted":          boolVal(item["deleted"]),
			"_loaded_at":          loadedAt(),
		})
	}

	subgroups := objects(group["subgroups"])
	if subgroups == nil {
		subgroups = objects(group["menuGroups"])
	}
	for _, sub := range subgroups {
		rows = append(rows, menuGroupItems(sub, menuName, tenant)...)
	}
	return rows
}

// visibilityString joins a visibility list with commas; a bare string
// passes through; anything else loads as NULL.
func visibilityString(v any) any {
	switch value := v.(type) {
	case string:
		if value == "" {
			return nil
		}
		return value
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		return strings.Join(parts, ",")
	default:
		return nil
	}
}
