package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-hub/grade-engine/internal/domain/grading"
	"github.com/campus-hub/grade-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ReportCache stores computed bulletins and diagnostics.
//
// Every call goes through a circuit breaker. While Redis is down the
// breaker is open and calls fail fast with circuitbreaker.ErrCircuitOpen,
// so the caller falls back to computing the report.
type ReportCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
}

// Compile-time check.
var _ grading.ReportCache = (*ReportCache)(nil)

// NewReportCache creates a report cache. A non-positive ttl means TTLReport.
func NewReportCache(cache *Cache, breaker *circuitbreaker.CircuitBreaker, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = TTLReport
	}
	if breaker == nil {
		breaker = circuitbreaker.ReportCacheBreaker(nil)
	}
	return &ReportCache{cache: cache, breaker: breaker, ttl: ttl}
}

// Breaker exposes the breaker state for readiness checks.
func (r *ReportCache) Breaker() *circuitbreaker.CircuitBreaker {
	return r.breaker
}

// Ping checks Redis directly, bypassing the breaker, and reports an open
// breaker as unhealthy.
func (r *ReportCache) Ping(ctx context.Context) error {
	if err := r.cache.Ping(ctx); err != nil {
		return err
	}
	if st := r.breaker.State(); st == circuitbreaker.StateOpen {
		return fmt.Errorf("report cache: breaker %s is %s", r.breaker.Name(), st)
	}
	return nil
}

// GetBulletin returns a cached bulletin. ok is false on a miss.
func (r *ReportCache) GetBulletin(ctx context.Context, enrollmentID string) (grading.Bulletin, bool, error) {
	var b grading.Bulletin
	ok, err := r.get(ctx, BulletinKey(enrollmentID), &b)
	return b, ok, err
}

// SetBulletin caches a bulletin and records it under its student so
// InvalidateStudent can find it.
func (r *ReportCache) SetBulletin(ctx context.Context, b grading.Bulletin) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		if err := r.cache.Set(ctx, BulletinKey(b.EnrollmentID), b, r.ttl); err != nil {
			return err
		}
		if b.StudentID == "" {
			return nil
		}
		return r.cache.SAddWithTTL(ctx, StudentEnrollmentsKey(b.StudentID), r.ttl, b.EnrollmentID)
	})
}

// GetDiagnostic returns a cached diagnostic. ok is false on a miss.
func (r *ReportCache) GetDiagnostic(ctx context.Context, studentID string) (grading.Diagnostic, bool, error) {
	var d grading.Diagnostic
	ok, err := r.get(ctx, DiagnosticKey(studentID), &d)
	return d, ok, err
}

// SetDiagnostic caches a diagnostic.
func (r *ReportCache) SetDiagnostic(ctx context.Context, d grading.Diagnostic) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.cache.Set(ctx, DiagnosticKey(d.StudentID), d, r.ttl)
	})
}

// Invalidate drops the bulletin of one enrollment.
func (r *ReportCache) Invalidate(ctx context.Context, enrollmentID string) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.cache.Delete(ctx, BulletinKey(enrollmentID))
	})
}

// InvalidateStudent drops the diagnostic and every cached bulletin of a student.
func (r *ReportCache) InvalidateStudent(ctx context.Context, studentID string) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		setKey := StudentEnrollmentsKey(studentID)
		enrollments, err := r.cache.SMembers(ctx, setKey)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(enrollments)+2)
		for _, id := range enrollments {
			keys = append(keys, BulletinKey(id))
		}
		keys = append(keys, DiagnosticKey(studentID), setKey)
		return r.cache.Delete(ctx, keys...)
	})
}

// get reads key into dest. A miss is not a failure for the breaker.
func (r *ReportCache) get(ctx context.Context, key string, dest any) (bool, error) {
	found := false
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		err := r.cache.Get(ctx, key, dest)
		switch {
		case err == nil:
			found = true
			return nil
		case errors.Is(err, ErrCacheMiss):
			return nil
		case errors.Is(err, ErrCacheSerialization):
			// Stale layout from an older release; treat as a miss and drop it.
			_ = r.cache.Delete(ctx, key)
			return nil
		}
		return err
	})
	return found, err
}
