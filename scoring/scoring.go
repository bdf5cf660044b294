// Package scoring computes the completeness score of extracted
// contract data. It is pure: no I/O, no clock, no randomness.
package scoring

import (
	"fmt"
	"reflect"
)

// Extracted holds the data groups the scorer inspects. Nil maps are
// treated as empty, never as an error.
type Extracted struct {
	Parties          map[string]any
	AccountInfo      map[string]any
	FinancialDetails map[string]any
	PaymentStructure map[string]any
	SLA              map[string]any
}

type category struct {
	name   string
	weight int
	fields []string
	group  func(Extracted) map[string]any
}

// Total score of 100 points split across five fixed categories.
// Category order and per-category field order are fixed; they define
// the order of the emitted gaps.
var categories = []category{
	{
		name:   "financial_details",
		weight: 30,
		fields: []string{"line_items", "total_value", "currency", "taxes"},
		group:  func(e Extracted) map[string]any { return e.FinancialDetails },
	},
	{
		name:   "parties",
		weight: 25,
		fields: []string{"customer", "vendor", "signatories"},
		group:  func(e Extracted) map[string]any { return e.Parties },
	},
	{
		name:   "payment_structure",
		weight: 20,
		fields: []string{"terms", "schedule", "method", "banking"},
		group:  func(e Extracted) map[string]any { return e.PaymentStructure },
	},
	{
		name:   "sla",
		weight: 15,
		fields: []string{"metrics", "penalties", "support"},
		group:  func(e Extracted) map[string]any { return e.SLA },
	},
	{
		name:   "account_info",
		weight: 10,
		fields: []string{"billing_contact", "technical_contact"},
		group:  func(e Extracted) map[string]any { return e.AccountInfo },
	},
}

// Evaluate scores the extracted data and enumerates its gaps.
//
// Each category contributes floor(weight * present / total) points,
// where a field is present iff its value is non-nil, non-false,
// non-zero for numbers, and non-empty for strings, slices and maps.
// Every absent field yields one gap of the form
// "Missing <category>.<field>", in category then field order.
func Evaluate(ex Extracted) (int, []string) {
	score := 0
	gaps := []string{}

	for _, cat := range categories {
		group := cat.group(ex)
		have := 0
		for _, field := range cat.fields {
			if Present(group[field]) {
				have++
			} else {
				gaps = append(gaps, fmt.Sprintf("Missing %s.%s", cat.name, field))
			}
		}
		score += cat.weight * have / len(cat.fields)
	}

	return score, gaps
}

// Present reports whether a field value counts toward the score.
// Numeric zero counts as absent, the same as a missing key.
func Present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int32:
		return val != 0
	case int64:
		return val != 0
	case float32:
		return val != 0
	case float64:
		return val != 0
	case uint:
		return val != 0
	case uint64:
		return val != 0
	}

	// Sequences and mappings of any element type, e.g. decoded JSON.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Present(rv.Elem().Interface())
	}
	return true
}
