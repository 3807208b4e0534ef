// Package noteid generates and validates note identifiers.
//
// A note id is an opaque string. Timestamp ids ("1700000000000") are the
// default, but dates ("2024-01-05"), ISO weeks ("2024-W01") and arbitrary
// slugs are valid too. The pipe and square brackets are never valid because
// they delimit wikilink syntax.
package noteid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/lumen/internal/apperr"
)

// allowedPunct lists the non-alphanumeric characters a note id may contain.
const allowedPunct = "_.~!$&'()*+,;@{} /-"

var (
	numericRe = regexp.MustCompile(`^\d+$`)
	dateRe    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	weekRe    = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)
)

// Generate returns a new timestamp id (milliseconds since the Unix epoch).
func Generate(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// IsValid reports whether id is a non-empty string of allowed characters.
func IsValid(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !allowed(r) {
			return false
		}
	}
	return true
}

// InvalidCharacters returns each disallowed character in id once, in order
// of first appearance.
func InvalidCharacters(id string) []string {
	var out []string
	seen := make(map[rune]struct{})
	for _, r := range id {
		if allowed(r) {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, string(r))
	}
	return out
}

// Validate returns apperr.ErrInvalidID wrapped with a description of the
// offending characters when id is not valid.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is empty", apperr.ErrInvalidID)
	}
	if bad := InvalidCharacters(id); len(bad) > 0 {
		return fmt.Errorf("%w: %q contains %s", apperr.ErrInvalidID, id, strings.Join(bad, " "))
	}
	return nil
}

// IsNumeric reports whether id consists only of ASCII digits (timestamp ids).
func IsNumeric(id string) bool {
	return numericRe.MatchString(id)
}

// IsDate reports whether s is a real calendar date in YYYY-MM-DD form.
func IsDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// IsWeek reports whether s is an ISO week (YYYY-Www) that exists in its year.
func IsWeek(s string) bool {
	m := weekRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])
	return week >= 1 && week <= weeksInYear(year)
}

// weeksInYear returns 52 or 53. December 28th always falls in the last ISO
// week of its year.
func weeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(allowedPunct, r)
}
