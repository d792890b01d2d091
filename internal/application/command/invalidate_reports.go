// Package command contains write operations (CQRS - Commands).
// The engine itself is read-only; commands here only touch derived state
// such as the report cache.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/grading"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
	"github.com/campus-hub/grade-engine/pkg/logger"
	"github.com/campus-hub/grade-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// INVALIDATE REPORTS COMMAND
// Drops cached bulletins and diagnostics after grades change upstream.
// Called by the grade entry system through the invalidation webhooks.
// ══════════════════════════════════════════════════════════════════════════════

// InvalidateReportsCommand names what to evict.
type InvalidateReportsCommand struct {
	// EnrollmentID evicts the bulletin of a single enrollment. When StudentID
	// is empty the owner is looked up and their reports are evicted as well.
	EnrollmentID string

	// StudentID evicts the diagnostic and every cached bulletin of the student.
	StudentID string

	// Reason is logged, e.g. "grade_recorded".
	Reason string
}

// Validate validates the command.
func (c InvalidateReportsCommand) Validate() error {
	if strings.TrimSpace(c.EnrollmentID) == "" && strings.TrimSpace(c.StudentID) == "" {
		return shared.NewDomainError("command", "InvalidateReports", shared.ErrInvalidInput,
			"either enrollment_id or student_id must be provided")
	}
	return nil
}

// InvalidateReportsResult describes what was evicted.
type InvalidateReportsResult struct {
	EnrollmentID  string    `json:"enrollment_id,omitempty"`
	StudentID     string    `json:"student_id,omitempty"`
	CacheEnabled  bool      `json:"cache_enabled"`
	InvalidatedAt time.Time `json:"invalidated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// InvalidateReportsHandler handles the InvalidateReportsCommand.
type InvalidateReportsHandler struct {
	cache grading.ReportCache
	repo  curriculum.Repository
	log   *logger.Logger
	now   timeutil.Clock
}

// NewInvalidateReportsHandler creates a new InvalidateReportsHandler.
// A nil cache turns every command into a no-op. repo resolves the owner of
// an enrollment; with a nil repo only the bulletin is evicted.
func NewInvalidateReportsHandler(cache grading.ReportCache, repo curriculum.Repository, log *logger.Logger) *InvalidateReportsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &InvalidateReportsHandler{
		cache: cache,
		repo:  repo,
		log:   log.Named("invalidate"),
		now:   timeutil.SystemClock,
	}
}

// Handle executes the invalidate command.
func (h *InvalidateReportsHandler) Handle(ctx context.Context, cmd InvalidateReportsCommand) (*InvalidateReportsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &InvalidateReportsResult{
		EnrollmentID: strings.TrimSpace(cmd.EnrollmentID),
		StudentID:    strings.TrimSpace(cmd.StudentID),
		CacheEnabled: h.cache != nil,
	}

	if h.cache != nil {
		var errs []error
		if result.StudentID == "" {
			// Diagnostics are keyed by student and built from the same grades.
			owner, err := h.resolveOwner(ctx, result.EnrollmentID)
			if err != nil {
				errs = append(errs, err)
			}
			result.StudentID = owner
		}
		if result.EnrollmentID != "" {
			if err := h.cache.Invalidate(ctx, result.EnrollmentID); err != nil {
				errs = append(errs, err)
			}
		}
		if result.StudentID != "" {
			if err := h.cache.InvalidateStudent(ctx, result.StudentID); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			h.log.Error("report invalidation failed",
				logger.EnrollmentID(result.EnrollmentID),
				logger.StudentID(result.StudentID),
				logger.Err(err),
			)
			return nil, shared.WrapError("command", "InvalidateReports", shared.ErrServiceUnavailable,
				"report invalidation incomplete", err)
		}
	}

	result.InvalidatedAt = h.now()

	h.log.Info("reports invalidated",
		logger.EnrollmentID(result.EnrollmentID),
		logger.StudentID(result.StudentID),
		logger.String("reason", cmd.Reason),
		logger.Bool("cache_enabled", result.CacheEnabled),
	)

	return result, nil
}

// resolveOwner returns the student of an enrollment. An unknown enrollment
// has no cached diagnostic to evict and resolves to "".
func (h *InvalidateReportsHandler) resolveOwner(ctx context.Context, enrollmentID string) (string, error) {
	if h.repo == nil {
		return "", nil
	}
	e, err := h.repo.GetEnrollment(ctx, enrollmentID)
	switch {
	case err == nil:
		return e.StudentID, nil
	case shared.IsNotFound(err):
		h.log.Debug("enrollment owner not found", logger.EnrollmentID(enrollmentID))
		return "", nil
	}
	return "", fmt.Errorf("resolve owner of %s: %w", enrollmentID, err)
}
