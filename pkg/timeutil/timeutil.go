// Package timeutil provides academic calendar helpers.
// An academic year starts in September and is labelled "YYYY-YYYY".
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AcademicYearStart is the first month of an academic year.
const AcademicYearStart = time.September

// Clock lets callers substitute time in tests.
type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// AcademicYearOf returns the label of the academic year containing t,
// e.g. 2025-10-01 -> "2025-2026", 2026-03-01 -> "2025-2026".
func AcademicYearOf(t time.Time) string {
	start := t.Year()
	if t.Month() < AcademicYearStart {
		start--
	}
	return fmt.Sprintf("%d-%d", start, start+1)
}

// ParseAcademicYear returns the starting calendar year of a "YYYY-YYYY" label.
func ParseAcademicYear(label string) (int, error) {
	parts := strings.Split(strings.TrimSpace(label), "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("academic year %q: expected YYYY-YYYY", label)
	}
	from, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("academic year %q: %w", label, err)
	}
	to, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("academic year %q: %w", label, err)
	}
	if to != from+1 {
		return 0, fmt.Errorf("academic year %q: years must be consecutive", label)
	}
	return from, nil
}

// LatestAcademicYear picks the most recent well-formed label. Malformed
// labels are ignored; ok is false when none qualify.
func LatestAcademicYear(labels []string) (latest string, ok bool) {
	best := -1
	for _, l := range labels {
		y, err := ParseAcademicYear(l)
		if err != nil {
			continue
		}
		if y > best {
			best, latest = y, l
		}
	}
	return latest, best >= 0
}
