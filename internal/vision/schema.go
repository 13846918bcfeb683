package vision

// BuildBillJSONSchema returns the JSON Schema used to validate model output
// before decoding. Every field except ocr_text tolerates string, number or
// null; real typing is enforced later by normalization.
func BuildBillJSONSchema() map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"s_no":       looseProp(),
			"item_name":  looseProp(),
			"quantity":   looseProp(),
			"unit_price": looseProp(),
			"item_total": looseProp(),
		},
	}

	props := map[string]any{
		"ocr_text":       map[string]any{"type": "string"},
		"invoice_number": looseProp(),
		"vendor_name":    looseProp(),
		"purchase_date":  looseProp(),
		"purchase_time":  looseProp(),
		"currency":       looseProp(),
		"items": map[string]any{
			"type":  "array",
			"items": item,
		},
		"subtotal":       looseProp(),
		"discount":       looseProp(),
		"tax_amount":     looseProp(),
		"total_amount":   looseProp(),
		"payment_method": looseProp(),
	}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"ocr_text"},
	}
}

func looseProp() map[string]any {
	return map[string]any{"type": []string{"string", "number", "null"}}
}
