package analyzer

import (
	"strings"

	"github.com/numdox/numdox/internal/report"
)

// Annotate marks each hit in the report whose title or snippet contains the
// scanned number verbatim. Search engines return plenty of pages that merely
// rank for part of a digit sequence; a verbatim match separates "the number
// actually appears here" from "the engine thought this was relevant".
//
// Matching ignores spacing and common punctuation between digits, so
// "+34 911 23 45 67" in a snippet matches the target +34911234567.
func Annotate(nr *report.NumberReport) {
	variants := numberVariants(nr)
	if len(variants) == 0 {
		return
	}

	for i := range nr.Hits {
		text := normalizeDigits(nr.Hits[i].Title) + "\x00" + normalizeDigits(nr.Hits[i].Snippet)

		// Variants overlap (the national form is a suffix of the E.164
		// form), so the count is the best single variant, not the sum.
		count := 0
		for _, v := range variants {
			if c := strings.Count(text, v); c > count {
				count = c
			}
		}

		nr.Hits[i].MatchCount = count
		nr.Hits[i].Confirmed = count > 0
	}
}

// numberVariants returns the distinct normalized renderings of the number
// worth matching against page text.
func numberVariants(nr *report.NumberReport) []string {
	raw := []string{nr.E164, nr.International, nr.Raw}

	uniq := make(map[string]struct{})
	var out []string
	for _, r := range raw {
		n := normalizeDigits(r)
		if len(strings.TrimPrefix(n, "+")) < 6 {
			// Too short to be a meaningful number match.
			continue
		}
		if _, dup := uniq[n]; dup {
			continue
		}
		uniq[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// normalizeDigits strips spacing and punctuation that commonly separates
// digit groups, so differently formatted renderings compare equal. All
// other characters pass through lowercased.
func normalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '-', '.', '(', ')', '/':
			// separators between digit groups, skip
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
