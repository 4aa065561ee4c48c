package requests

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Nested keys that wrap the request inside an approval entry, in priority order.
var nestedKeys = []string{"purchase_request", "request"}

// AsRecord converts a decoded JSON value into a Record.
func AsRecord(v any) (Record, bool) {
	switch val := v.(type) {
	case Record:
		return val, val != nil
	case map[string]any:
		return Record(val), val != nil
	default:
		return nil, false
	}
}

// sourcesOf returns the records request-shaped fields are read from, most
// specific first.
func sourcesOf(rec Record) []Record {
	for _, key := range nestedKeys {
		if nested, ok := AsRecord(rec[key]); ok {
			return []Record{nested, rec}
		}
	}
	return []Record{rec}
}

func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case json.Number:
		return val != ""
	default:
		return true
	}
}

// Lookup returns the first present value among keys.
func (r Record) Lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := r[key]; ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

func stringIn(sources []Record, keys ...string) string {
	for _, src := range sources {
		for _, key := range keys {
			if s, ok := scalarString(src[key]); ok {
				return s
			}
		}
	}
	return ""
}

func numberIn(sources []Record, keys ...string) (float64, bool) {
	for _, src := range sources {
		for _, key := range keys {
			if !present(src[key]) {
				continue
			}
			return ParseAmount(src[key])
		}
	}
	return 0, false
}

func intIn(sources []Record, keys ...string) *int {
	n, ok := numberIn(sources, keys...)
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

// Text renders a JSON scalar as a string. Empty strings, objects and arrays
// report false.
func Text(v any) (string, bool) {
	return scalarString(v)
}

// scalarString renders a JSON scalar as text. Objects and arrays are rejected.
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case json.Number:
		return val.String(), val != ""
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", false
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return scalarString(float64(val))
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

func joinName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
