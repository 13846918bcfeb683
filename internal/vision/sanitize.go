package vision

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
)

// SanitizeRawPayload repairs model output that failed strict validation.
// - Renames known synonyms (merchant_name -> vendor_name, total -> total_amount)
// - Guarantees ocr_text is a string, defaulting to ""
// - Rebuilds items keeping only object entries, with per-item renames
// - Drops values whose JSON type the schema can never accept
// - Removes unknown keys (strict additionalProperties = false friendliness)
// It returns the cleaned JSON plus a list of what was touched.
func SanitizeRawPayload(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the bill schema
	renamed("receipt_number", "invoice_number")
	renamed("invoice_no", "invoice_number")
	renamed("bill_number", "invoice_number")
	renamed("merchant_name", "vendor_name")
	renamed("store_name", "vendor_name")
	renamed("date", "purchase_date")
	renamed("time", "purchase_time")
	renamed("currency_code", "currency")
	renamed("line_items", "items")
	renamed("total", "total_amount")
	renamed("tax", "tax_amount")
	renamed("payment", "payment_method")
	renamed("raw_text", "ocr_text")

	// 2) ocr_text must be a string; the rest of the pipeline treats a
	// missing text layer as "", never as absent
	switch m["ocr_text"].(type) {
	case string:
	case nil:
		m["ocr_text"] = ""
		dropped = append(dropped, "ocr_text(null)")
	default:
		m["ocr_text"] = ""
		dropped = append(dropped, "ocr_text(type)")
	}

	// 3) scalar fields accept string, number or null; anything else goes
	scalars := []string{
		"invoice_number", "vendor_name", "purchase_date", "purchase_time",
		"currency", "subtotal", "discount", "tax_amount", "total_amount",
		"payment_method",
	}
	for _, k := range scalars {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch v.(type) {
		case string, float64, nil:
		default:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}

	// 4) items must be an array of objects
	if v, ok := m["items"]; ok {
		arr, isArr := v.([]any)
		if !isArr {
			delete(m, "items")
			dropped = append(dropped, "items(type)")
		} else {
			clean := make([]any, 0, len(arr))
			for i, el := range arr {
				it, isObj := el.(map[string]any)
				if !isObj {
					dropped = append(dropped, fmt.Sprintf("items[%d](type)", i))
					continue
				}
				clean = append(clean, sanitizeItem(it, &dropped))
			}
			m["items"] = clean
		}
	}

	// 5) remove unknown keys (everything not in the schema set below)
	allowed := map[string]struct{}{
		"ocr_text": {}, "invoice_number": {}, "vendor_name": {},
		"purchase_date": {}, "purchase_time": {}, "currency": {},
		"items": {}, "subtotal": {}, "discount": {}, "tax_amount": {},
		"total_amount": {}, "payment_method": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("vision.extract.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func sanitizeItem(it map[string]any, dropped *[]string) map[string]any {
	rename := func(from, to string) {
		if v, ok := it[from]; ok {
			if _, exists := it[to]; !exists {
				it[to] = v
			}
			delete(it, from)
			*dropped = append(*dropped, "item."+from+"->"+to)
		}
	}
	rename("name", "item_name")
	rename("description", "item_name")
	rename("qty", "quantity")
	rename("price", "unit_price")
	rename("rate", "unit_price")
	rename("amount", "item_total")
	rename("total", "item_total")
	rename("sno", "s_no")
	rename("serial_no", "s_no")

	allowed := map[string]struct{}{
		"s_no": {}, "item_name": {}, "quantity": {}, "unit_price": {}, "item_total": {},
	}
	for k, v := range maps.Clone(it) {
		if _, ok := allowed[k]; !ok {
			delete(it, k)
			*dropped = append(*dropped, "item."+k+"(unknown)")
			continue
		}
		switch v.(type) {
		case string, float64, nil:
		default:
			delete(it, k)
			*dropped = append(*dropped, "item."+k+"(type)")
		}
	}
	return it
}
