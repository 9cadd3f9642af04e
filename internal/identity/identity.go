// Package identity derives stable event identifiers. Stability across runs is
// what lets the reconciler match old records to new ones instead of treating
// every run as a full rewrite.
package identity

import (
	"fmt"
	"regexp"
)

// Integer identifier, optionally with a float export artifact ("66.0").
var reExplicit = regexp.MustCompile(`^\s*(\d+)(?:\.0+)?\s*$`)

// NormalizeExplicit returns the canonical integer form of an explicit row
// identifier. Spreadsheet exports render numeric cells as floats, so "66.0"
// normalizes to "66". The second return value is false when the value is not
// integer-like; the caller drops such rows.
func NormalizeExplicit(raw string) (string, bool) {
	m := reExplicit.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Derive computes a deterministic identifier for a row without an explicit
// one, hashing date, title and location with DJB2 and rendering the low 31
// bits as 8 hex digits. Identical inputs always produce the same identifier
// across runs and processes.
func Derive(date, title, location string) string {
	source := date + "|" + title + "|" + location
	var h uint32 = 5381
	for _, r := range source {
		h = h<<5 + h + uint32(r)
	}
	return fmt.Sprintf("e%08x", h&0x7FFFFFFF)
}

// ForDate returns the final identifier of one expanded occurrence. A row that
// expands into several dates gets dotted 1-based sub-indices; a single-date
// row keeps the base identity unchanged.
func ForDate(base string, index, total int) string {
	if total <= 1 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, index)
}
