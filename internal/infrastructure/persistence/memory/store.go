// Package memory implements curriculum.Repository on top of in-process maps.
// It backs the demo driver and the application tests.
package memory

import (
	"context"
	"sync"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
	"github.com/campus-hub/grade-engine/pkg/timeutil"
)

// Store is a map-backed curriculum store. Seeded snapshots are shared
// with callers and must not be mutated after seeding.
type Store struct {
	mu          sync.RWMutex
	enrollments map[string]*curriculum.Enrollment
	byStudent   map[string][]string
	students    map[string]*curriculum.Student
	currentYear string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		enrollments: make(map[string]*curriculum.Enrollment),
		byStudent:   make(map[string][]string),
		students:    make(map[string]*curriculum.Student),
	}
}

// Compile-time check.
var _ curriculum.Repository = (*Store)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Seeding
// ─────────────────────────────────────────────────────────────────────────────

// SeedEnrollment stores or replaces an enrollment snapshot.
func (s *Store) SeedEnrollment(e *curriculum.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.enrollments[e.ID]; !exists {
		s.byStudent[e.StudentID] = append(s.byStudent[e.StudentID], e.ID)
	}
	s.enrollments[e.ID] = e
}

// SeedStudent stores or replaces a student profile.
func (s *Store) SeedStudent(st *curriculum.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// SetCurrentYear flags the academic year treated as current.
func (s *Store) SetCurrentYear(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentYear = label
}

// ─────────────────────────────────────────────────────────────────────────────
// curriculum.Repository
// ─────────────────────────────────────────────────────────────────────────────

// GetEnrollment returns an enrollment snapshot.
func (s *Store) GetEnrollment(_ context.Context, enrollmentID string) (*curriculum.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.enrollments[enrollmentID]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return e, nil
}

// GetStudent returns a student profile.
func (s *Store) GetStudent(_ context.Context, studentID string) (*curriculum.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.students[studentID]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return st, nil
}

// GetActiveEnrollment returns the enrollment of the current year, or the
// most recent one when the student is not enrolled this year.
func (s *Store) GetActiveEnrollment(_ context.Context, studentID string) (*curriculum.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byStudent[studentID]
	if len(ids) == 0 {
		return nil, shared.ErrNoEnrollment
	}

	years := make([]string, 0, len(ids))
	byYear := make(map[string]*curriculum.Enrollment, len(ids))
	for _, id := range ids {
		e := s.enrollments[id]
		if e.AcademicYear == s.currentYear && s.currentYear != "" {
			return e, nil
		}
		if _, seen := byYear[e.AcademicYear]; !seen {
			byYear[e.AcademicYear] = e
			years = append(years, e.AcademicYear)
		}
	}

	if latest, ok := timeutil.LatestAcademicYear(years); ok {
		return byYear[latest], nil
	}
	// No parseable year label: fall back to the last seeded enrollment.
	return s.enrollments[ids[len(ids)-1]], nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}
