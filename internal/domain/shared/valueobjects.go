package shared

import (
	"math"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE
// ══════════════════════════════════════════════════════════════════════════════

// Grading scale bounds.
const (
	MinScore = 0.0
	MaxScore = 20.0
	PassMark = 10.0
)

// Score is a value on the 0..20 grading scale.
type Score float64

// IsValid reports whether the score lies on the scale. NaN is never valid.
func (s Score) IsValid() bool {
	v := float64(s)
	return !math.IsNaN(v) && v >= MinScore && v <= MaxScore
}

// Float64 returns the raw value.
func (s Score) Float64() float64 {
	return float64(s)
}

// Clamp forces the score onto the scale.
func (s Score) Clamp() Score {
	switch {
	case float64(s) < MinScore:
		return MinScore
	case float64(s) > MaxScore:
		return MaxScore
	}
	return s
}

// NewScore validates a raw value.
func NewScore(v float64) (Score, error) {
	s := Score(v)
	if !s.IsValid() {
		return 0, ErrInvalidScore
	}
	return s, nil
}

// Round2 rounds half away from zero to two decimals.
// Only result records are rounded; intermediate sums keep full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ══════════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ══════════════════════════════════════════════════════════════════════════════

// StudentID is the student's registration number (matricule).
type StudentID string

func (s StudentID) String() string { return string(s) }

// IsValid checks that the identifier is non-blank.
func (s StudentID) IsValid() bool {
	return strings.TrimSpace(string(s)) != ""
}

// NewStudentID trims and validates a registration number.
func NewStudentID(id string) (StudentID, error) {
	s := StudentID(strings.TrimSpace(id))
	if !s.IsValid() {
		return "", NewDomainError("curriculum", "Validate", ErrInvalidID, "student id is empty")
	}
	return s, nil
}

// EnrollmentID identifies an enrollment record.
type EnrollmentID string

func (e EnrollmentID) String() string { return string(e) }

// IsValid checks that the identifier is non-blank.
func (e EnrollmentID) IsValid() bool {
	return strings.TrimSpace(string(e)) != ""
}

// NewEnrollmentID trims and validates an enrollment identifier.
func NewEnrollmentID(id string) (EnrollmentID, error) {
	e := EnrollmentID(strings.TrimSpace(id))
	if !e.IsValid() {
		return "", NewDomainError("curriculum", "Validate", ErrInvalidID, "enrollment id is empty")
	}
	return e, nil
}
