package requests

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Direct amount fields in priority order.
var amountKeys = []string{"amount", "total_amount"}

var (
	quantityKeys  = []string{"quantity", "qty"}
	unitPriceKeys = []string{"unit_price", "price", "unitPrice"}
)

// ParseAmount converts a loosely typed monetary value into a finite number.
// Thousands separators are stripped before conversion. The boolean is false
// when the value is absent or not a finite number.
func ParseAmount(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		return parseNumeric(val.String())
	case string:
		return parseNumeric(val)
	default:
		return 0, false
	}
}

func parseNumeric(s string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finite(n)
}

func finite(n float64) (float64, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// ComputeAmount derives the monetary total of a raw request or approval entry.
// The boolean is false when the amount is unknown, which is distinct from zero.
func ComputeAmount(rec Record) (float64, bool) {
	return amountFrom(sourcesOf(rec))
}

func amountFrom(sources []Record) (float64, bool) {
	for _, src := range sources {
		for _, key := range amountKeys {
			if n, ok := ParseAmount(src[key]); ok {
				return n, true
			}
		}
	}
	items, ok := itemsIn(sources)
	if !ok || len(items) == 0 {
		return 0, false
	}
	var total float64
	for _, raw := range items {
		item, ok := AsRecord(raw)
		if !ok {
			continue
		}
		total += factor(item, quantityKeys) * factor(item, unitPriceKeys)
	}
	return total, true
}

// factor reads a line item factor, defaulting to zero when unparsable.
func factor(item Record, keys []string) float64 {
	v, ok := item.Lookup(keys...)
	if !ok {
		return 0
	}
	n, ok := ParseAmount(v)
	if !ok {
		return 0
	}
	return n
}

func itemsIn(sources []Record) ([]any, bool) {
	for _, src := range sources {
		if items, ok := src["items"].([]any); ok {
			return items, true
		}
	}
	return nil, false
}
