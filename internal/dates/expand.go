// Package dates expands free-text date expressions from the spreadsheet into
// individual DD.MM dates.
//
// Supported forms:
//   - single date:       "15.01"
//   - same-month range:  "15.01-17.01" or "15-17.01"
//   - comma/space lists: "15.01, 17.01" / "15.01; 17.01"
//   - any mix of the above
//
// Cross-month ranges are not supported and are dropped with a warning.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode"

	appLog "afisha/internal/log"
)

var (
	reRangeFull = regexp.MustCompile(`^(\d{1,2})\.(\d{2})-(\d{1,2})\.(\d{2})$`)
	reRangeDays = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})\.(\d{2})$`)
	reSingle    = regexp.MustCompile(`^(\d{1,2})\.(\d{2})$`)
	reEmbedded  = regexp.MustCompile(`\d{1,2}\.\d{2}`)
)

// Expand parses a date expression into a deduplicated ordered list of DD.MM
// dates. Unparseable segments are dropped with a warning; an empty or fully
// unparseable input yields an empty list and the caller must drop the row.
func Expand(text string) []string {
	var result []string

	for _, part := range splitSegments(text) {
		if m := reRangeFull.FindStringSubmatch(part); m != nil {
			startDay, _ := strconv.Atoi(m[1])
			startMonth, _ := strconv.Atoi(m[2])
			endDay, _ := strconv.Atoi(m[3])
			endMonth, _ := strconv.Atoi(m[4])

			if startMonth != endMonth {
				appLog.Warn("date range across months is not supported", "segment", part)
				continue
			}
			result = appendRange(result, part, startDay, endDay, startMonth)
			continue
		}

		if m := reRangeDays.FindStringSubmatch(part); m != nil {
			startDay, _ := strconv.Atoi(m[1])
			endDay, _ := strconv.Atoi(m[2])
			month, _ := strconv.Atoi(m[3])
			result = appendRange(result, part, startDay, endDay, month)
			continue
		}

		if reSingle.MatchString(part) {
			result = append(result, normalizeSingle(part))
			continue
		}

		// Last resort: pull any DD.MM-shaped substrings out of the segment.
		if sub := reEmbedded.FindAllString(part, -1); len(sub) > 0 {
			for _, s := range sub {
				result = append(result, normalizeSingle(s))
			}
			continue
		}

		appLog.Warn("unparseable date segment", "segment", part)
	}

	// Deduplicate, preserving first-seen order.
	seen := make(map[string]struct{}, len(result))
	unique := result[:0]
	for _, d := range result {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		unique = append(unique, d)
	}
	return unique
}

// appendRange expands an inclusive day range within one month. A reversed
// range (start after end) is rejected rather than silently expanding to
// nothing, so the operator sees why the row disappeared.
func appendRange(dst []string, segment string, startDay, endDay, month int) []string {
	if startDay > endDay {
		appLog.Warn("date range start is after end", "segment", segment)
		return dst
	}
	for day := startDay; day <= endDay; day++ {
		dst = append(dst, fmt.Sprintf("%02d.%02d", day, month))
	}
	return dst
}

// normalizeSingle renders a DD.MM candidate with a zero-padded day
// ("5.01" -> "05.01").
func normalizeSingle(s string) string {
	m := reSingle.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%02d.%02d", day, month)
}

// splitSegments splits the expression on commas, semicolons and whitespace.
// A hyphen is an entry separator only when neither neighbor is a digit:
// "15-17.01" stays one segment while "пт - сб" splits.
func splitSegments(s string) []string {
	rs := []rune(s)
	var segs []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			segs = append(segs, string(cur))
			cur = cur[:0]
		}
	}

	for i, r := range rs {
		switch {
		case r == ',' || r == ';' || unicode.IsSpace(r):
			flush()
		case r == '-':
			prevDigit := i > 0 && isDigit(rs[i-1])
			nextDigit := i+1 < len(rs) && isDigit(rs[i+1])
			if prevDigit || nextDigit {
				cur = append(cur, r)
			} else {
				flush()
			}
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return segs
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
