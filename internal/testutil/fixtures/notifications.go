package fixtures

import (
	"encoding/json"
)

// NotificationJSON builds a decrypted bank notification body
func NotificationJSON(guid, invoiceNumber string) []byte {
	body := map[string]interface{}{
		"infoMsg": map[string]string{
			"guId":       guid,
			"channel":    "WEB",
			"subchannel": "01",
			"applId":     "BOTON",
			"personId":   "V12345678",
			"userId":     "u-1",
			"token":      "tkn",
			"action":     "notify",
		},
		"webhookNotificationIn": map[string]interface{}{
			"numeroFactura": invoiceNumber,
			"monto":         "4000.00",
			"referencia":    "000123",
		},
	}
	out, _ := json.Marshal(body)
	return out
}

// ShopifyOrderJSON builds an orders/create payload
func ShopifyOrderJSON(id, name, financialStatus, total string) []byte {
	body := map[string]interface{}{
		"id":               id,
		"name":             name,
		"order_number":     name[1:],
		"currency":         "USD",
		"financial_status": financialStatus,
		"created_at":       "2025-06-01T10:00:00-04:00",
		"email":            "ana@example.com",
		"total_price":      total,
		"customer": map[string]interface{}{
			"id":         "7001",
			"first_name": "Ana",
			"last_name":  "Pérez",
			"email":      "ana@example.com",
			"phone":      "+584141234567",
		},
		"line_items": []map[string]interface{}{
			{"sku": "REA-01", "title": "Reactivo", "price": total, "quantity": 1},
		},
		"shipping_lines":        []map[string]string{{"title": "Zoom"}},
		"payment_gateway_names": []string{"Pago Mercantil"},
	}
	out, _ := json.Marshal(body)
	return out
}
