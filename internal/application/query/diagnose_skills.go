package query

import (
	"context"
	"time"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/grading"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
	"github.com/campus-hub/grade-engine/pkg/logger"
	"github.com/campus-hub/grade-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIAGNOSE SKILLS QUERY
// Покрытие навыков выбранного карьерного направления.
// ══════════════════════════════════════════════════════════════════════════════

// DiagnoseSkillsQuery - запрос диагностики по студенту.
type DiagnoseSkillsQuery struct {
	StudentID string
}

// DiagnosticResult - диагностика и признак попадания в кеш.
type DiagnosticResult struct {
	Diagnostic  grading.Diagnostic `json:"diagnostic"`
	FromCache   bool               `json:"from_cache"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// DiagnoseSkillsHandler строит диагностику навыков.
type DiagnoseSkillsHandler struct {
	repo  curriculum.Repository
	cache grading.ReportCache
	log   *logger.Logger
	now   timeutil.Clock
}

// NewDiagnoseSkillsHandler создаёт обработчик. cache может быть nil.
func NewDiagnoseSkillsHandler(repo curriculum.Repository, cache grading.ReportCache, log *logger.Logger) *DiagnoseSkillsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &DiagnoseSkillsHandler{
		repo:  repo,
		cache: cache,
		log:   log.Named("diagnostic"),
		now:   timeutil.SystemClock,
	}
}

// Handle возвращает диагностику. Без выбранного направления возвращает
// ошибку незаполненного профиля, даже если у студента нет зачисления.
func (h *DiagnoseSkillsHandler) Handle(ctx context.Context, q DiagnoseSkillsQuery) (*DiagnosticResult, error) {
	id, err := shared.NewStudentID(q.StudentID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		d, ok, err := h.cache.GetDiagnostic(ctx, id.String())
		switch {
		case err != nil:
			h.log.Warn("report cache unavailable", logger.StudentID(id.String()), logger.Err(err))
		case ok:
			return &DiagnosticResult{Diagnostic: d, FromCache: true, GeneratedAt: h.now()}, nil
		}
	}

	student, err := h.repo.GetStudent(ctx, id.String())
	if err != nil {
		return nil, storeError("DiagnoseSkills", err)
	}
	if !student.HasDomain() {
		return nil, shared.ErrMissingTargetDomain
	}

	enrollment, err := h.repo.GetActiveEnrollment(ctx, id.String())
	if err != nil {
		return nil, storeError("DiagnoseSkills", err)
	}

	d, err := grading.DiagnoseSkills(student, enrollment)
	if err != nil {
		return nil, err
	}

	h.log.Debug("skills diagnosed",
		logger.StudentID(d.StudentID),
		logger.EnrollmentID(d.EnrollmentID),
		logger.Int("skills", len(d.Skills)),
	)

	if h.cache != nil {
		if err := h.cache.SetDiagnostic(ctx, d); err != nil {
			h.log.Warn("failed to cache diagnostic", logger.StudentID(d.StudentID), logger.Err(err))
		}
	}

	return &DiagnosticResult{Diagnostic: d, GeneratedAt: h.now()}, nil
}
