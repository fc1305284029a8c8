package calc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// displayOrder is the canonical ordering of known stat keys in a result
// display. Keys the backend returns beyond these are appended sorted.
var displayOrder = []string{
	"WAR", "oWAR", "dWAR", "RAR",
	"BatR", "BsR", "FldR", "PosR", "RepR",
	"FIP", "RA9",
}

// statLabels maps backend stat keys to their display names.
var statLabels = map[string]string{
	"WAR":  "WAR (総合)",
	"oWAR": "oWAR (攻撃)",
	"dWAR": "dWAR (守備)",
	"RAR":  "RAR",
	"BatR": "打撃",
	"BsR":  "走塁",
	"FldR": "守備",
	"PosR": "守備位置",
	"RepR": "代替補償",
	"FIP":  "FIP",
	"RA9":  "RA/9",
}

// Label returns the display name for a stat key, falling back to the key.
func Label(key string) string {
	if l, ok := statLabels[key]; ok {
		return l
	}
	return key
}

// Result is a structured calculation response: a set of named stat values.
type Result struct {
	values map[string]json.RawMessage
}

// Keys returns the stat keys in display order: canonical keys first, then
// any remaining keys sorted.
func (r *Result) Keys() []string {
	seen := make(map[string]bool, len(r.values))
	keys := make([]string, 0, len(r.values))
	for _, k := range displayOrder {
		if _, ok := r.values[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}

	var rest []string
	for k := range r.values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Value formats the stat value for display: numbers with three decimals,
// anything else verbatim.
func (r *Result) Value(key string) string {
	raw, ok := r.values[key]
	if !ok {
		return ""
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return strconv.FormatFloat(num, 'f', 3, 64)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Len returns the number of stats in the result.
func (r *Result) Len() int { return len(r.values) }

// NewResult builds a result from numeric stat values.
func NewResult(values map[string]float64) *Result {
	r := &Result{values: make(map[string]json.RawMessage, len(values))}
	for k, v := range values {
		raw, _ := json.Marshal(v)
		r.values[k] = raw
	}
	return r
}

func parseResult(body []byte) (*Result, error) {
	values := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("decoding result object: %w", err)
	}
	return &Result{values: values}, nil
}
