package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical serializes a decoded JSON value into canonical JSON
// text: object keys sorted, strings NFC normalized, no HTML escaping,
// numbers rendered verbatim where possible. Structured (array/object)
// property values are stored into TEXT columns through this function so
// that re-importing an unchanged document writes byte-identical cells.
func MarshalCanonical(v any) (string, error) {
	var b strings.Builder
	if err := marshalCanonical(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func marshalCanonical(b *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(val.String())
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case string:
		return marshalCanonicalString(b, val)
	case []any:
		b.WriteString("[")
		for i, member := range val {
			if i > 0 {
				b.WriteString(",")
			}
			if err := marshalCanonical(b, member); err != nil {
				return err
			}
		}
		b.WriteString("]")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(",")
			}
			if err := marshalCanonicalString(b, k); err != nil {
				return err
			}
			b.WriteString(":")
			if err := marshalCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteString("}")
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// marshalCanonicalString NFC-normalizes then JSON-encodes a string
// without HTML escaping.
func marshalCanonicalString(b *strings.Builder, s string) error {
	normalized := norm.NFC.String(s)

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	// Encode appends a trailing newline
	b.WriteString(strings.TrimSuffix(buf.String(), "\n"))
	return nil
}
