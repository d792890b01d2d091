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
// GET BULLETIN QUERY
// Бюллетень зачисления: средние по курсам, UE и итоговая, кредиты.
// ══════════════════════════════════════════════════════════════════════════════

// GetBulletinQuery - запрос бюллетеня по зачислению.
type GetBulletinQuery struct {
	EnrollmentID string
}

// GetStudentBulletinQuery - запрос бюллетеня по активному зачислению студента.
type GetStudentBulletinQuery struct {
	StudentID string
}

// BulletinResult - бюллетень и признак того, что он взят из кеша.
type BulletinResult struct {
	Bulletin    grading.Bulletin `json:"bulletin"`
	FromCache   bool             `json:"from_cache"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// GetBulletinHandler считает бюллетени.
type GetBulletinHandler struct {
	repo  curriculum.Repository
	cache grading.ReportCache
	log   *logger.Logger
	now   timeutil.Clock
}

// NewGetBulletinHandler создаёт обработчик. cache может быть nil.
func NewGetBulletinHandler(repo curriculum.Repository, cache grading.ReportCache, log *logger.Logger) *GetBulletinHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GetBulletinHandler{
		repo:  repo,
		cache: cache,
		log:   log.Named("bulletin"),
		now:   timeutil.SystemClock,
	}
}

// Handle возвращает бюллетень зачисления.
func (h *GetBulletinHandler) Handle(ctx context.Context, q GetBulletinQuery) (*BulletinResult, error) {
	id, err := shared.NewEnrollmentID(q.EnrollmentID)
	if err != nil {
		return nil, err
	}

	if b, ok := h.cached(ctx, id.String()); ok {
		return &BulletinResult{Bulletin: b, FromCache: true, GeneratedAt: h.now()}, nil
	}

	e, err := h.repo.GetEnrollment(ctx, id.String())
	if err != nil {
		return nil, storeError("GetBulletin", err)
	}
	return h.compute(ctx, e), nil
}

// GetStudentBulletinHandler отдаёт бюллетень активного зачисления студента.
type GetStudentBulletinHandler struct {
	*GetBulletinHandler
}

// NewGetStudentBulletinHandler переиспользует кеш и логгер обработчика бюллетеней.
func NewGetStudentBulletinHandler(bulletins *GetBulletinHandler) *GetStudentBulletinHandler {
	return &GetStudentBulletinHandler{GetBulletinHandler: bulletins}
}

// Handle разрешает активное зачисление и возвращает его бюллетень.
func (h *GetStudentBulletinHandler) Handle(ctx context.Context, q GetStudentBulletinQuery) (*BulletinResult, error) {
	id, err := shared.NewStudentID(q.StudentID)
	if err != nil {
		return nil, err
	}

	// Активное зачисление зависит от текущего года, поэтому его
	// разрешаем всегда и только потом смотрим в кеш.
	e, err := h.repo.GetActiveEnrollment(ctx, id.String())
	if err != nil {
		return nil, storeError("GetStudentBulletin", err)
	}

	if b, ok := h.cached(ctx, e.ID); ok {
		return &BulletinResult{Bulletin: b, FromCache: true, GeneratedAt: h.now()}, nil
	}
	return h.compute(ctx, e), nil
}

func (h *GetBulletinHandler) compute(ctx context.Context, e *curriculum.Enrollment) *BulletinResult {
	b := grading.ComputeBulletin(e)

	h.log.Debug("bulletin computed",
		logger.EnrollmentID(b.EnrollmentID),
		logger.StudentID(b.StudentID),
		logger.Float64("overall_average", b.OverallAverage),
	)

	if h.cache != nil {
		if err := h.cache.SetBulletin(ctx, b); err != nil {
			h.log.Warn("failed to cache bulletin", logger.EnrollmentID(b.EnrollmentID), logger.Err(err))
		}
	}

	return &BulletinResult{Bulletin: b, GeneratedAt: h.now()}
}

func (h *GetBulletinHandler) cached(ctx context.Context, enrollmentID string) (grading.Bulletin, bool) {
	if h.cache == nil {
		return grading.Bulletin{}, false
	}
	b, ok, err := h.cache.GetBulletin(ctx, enrollmentID)
	if err != nil {
		h.log.Warn("report cache unavailable", logger.EnrollmentID(enrollmentID), logger.Err(err))
		return grading.Bulletin{}, false
	}
	return b, ok
}
