package flatten

import (
	"github.com/goforsam/toast-etl/pkg/normalize"
)

// OrderItems flattens nested orders -> checks -> selections into
// fact_order_items rows: one row per menu item sold. Voided selections are
// skipped; check-level totals, tax and summed payment tips are denormalized
// onto every item row; rows missing either dedup key are dropped.
func OrderItems(orders []normalize.Record, tenant string) []Row {
	var rows []Row
	for _, order := range orders {
		orderGUID := str(order["guid"])
		businessDate := normalize.Date(order["businessDate"])
		serverGUID := subGUID(order, "server")
		isVoided := boolVal(order["voided"])
		isDeleted := boolVal(order["deleted"])

		for _, check := range objects(order["checks"]) {
			checkTotal := num(check["totalAmount"])
			checkTax := num(check["taxAmount"])

			// Tips accumulate across all payments on the check; the payment
			// type records the first one seen.
			var checkTip float64
			var paymentType any
			for _, payment := range objects(check["payments"]) {
				checkTip += num(payment["tipAmount"])
				if paymentType == nil {
					if t, ok := payment["type"].(string); ok && t != "" {
						paymentType = t
					}
				}
			}

			for _, selection := range objects(check["selections"]) {
				if boolVal(selection["voided"]) {
					continue
				}

				selectionGUID := str(selection["guid"])
				if selectionGUID == "" || orderGUID == "" {
					continue
				}

				menuItemGUID := stringChain(selection, "itemGuid")
				if menuItemGUID == nil {
					menuItemGUID = subGUID(selection, "item")
				}

				rows = append(rows, Row{
					"selection_guid":      selectionGUID,
					"order_guid":          orderGUID,
					"check_guid":          check["guid"],
					"restaurant_guid":     tenant,
					"business_date":       businessDate,
					"menu_item_guid":      menuItemGUID,
					"server_guid":         serverGUID,
					"menu_item_name":      selection["displayName"],
					"sales_category_name": object(selection["salesCategory"])["name"],
					"item_quantity":       num(selection["quantity"]),
					"item_price":          num(selection["price"]),
					"pre_discount_price":  num(selection["preDiscountPrice"]),
					"discount_amount":     num(selection["appliedDiscountAmount"]),
					"tax_amount":          num(selection["tax"]),
					"check_total":         checkTotal,
					"check_tax":           checkTax,
					"check_tip":           checkTip,
					"payment_type":        paymentType,
					"is_voided":           isVoided,
					"is_deleted":          isDeleted,
					"_loaded_at":          loadedAt(),
				})
			}
		}
	}
	return rows
}
