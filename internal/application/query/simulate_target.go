package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/grading"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
	"github.com/campus-hub/grade-engine/pkg/logger"
	"github.com/campus-hub/grade-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SIMULATE TARGET QUERY
// Какие оценки нужны на оставшихся экзаменах, чтобы выйти на целевую среднюю.
// ══════════════════════════════════════════════════════════════════════════════

// SimulateTargetQuery - запрос симуляции. TargetAverage == nil означает цель
// по умолчанию; явный 0 - обычная цель.
type SimulateTargetQuery struct {
	StudentID     string
	TargetAverage *float64
}

// SimulationResult - план с идентификатором для ссылок из клиентов.
// План не сохраняется и не кешируется: он дешёвый и зависит от цели.
type SimulationResult struct {
	PlanID      string                 `json:"plan_id"`
	Plan        grading.SimulationPlan `json:"plan"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// SimulateTargetHandler решает обратную задачу для активного зачисления.
type SimulateTargetHandler struct {
	repo          curriculum.Repository
	defaultTarget float64
	log           *logger.Logger
	now           timeutil.Clock
}

// NewSimulateTargetHandler создаёт обработчик. Некорректная цель по
// умолчанию заменяется на grading.DefaultTargetAverage.
func NewSimulateTargetHandler(repo curriculum.Repository, defaultTarget float64, log *logger.Logger) *SimulateTargetHandler {
	if log == nil {
		log = logger.Nop()
	}
	if defaultTarget == 0 || grading.ValidateTarget(defaultTarget) != nil {
		defaultTarget = grading.DefaultTargetAverage
	}
	return &SimulateTargetHandler{
		repo:          repo,
		defaultTarget: defaultTarget,
		log:           log.Named("simulation"),
		now:           timeutil.SystemClock,
	}
}

// Handle валидирует цель до любых обращений к хранилищу.
func (h *SimulateTargetHandler) Handle(ctx context.Context, q SimulateTargetQuery) (*SimulationResult, error) {
	target := h.defaultTarget
	if q.TargetAverage != nil {
		target = *q.TargetAverage
	}
	if err := grading.ValidateTarget(target); err != nil {
		return nil, err
	}

	id, err := shared.NewStudentID(q.StudentID)
	if err != nil {
		return nil, err
	}

	student, err := h.repo.GetStudent(ctx, id.String())
	if err != nil {
		return nil, storeError("SimulateTarget", err)
	}
	enrollment, err := h.repo.GetActiveEnrollment(ctx, id.String())
	if err != nil {
		return nil, storeError("SimulateTarget", err)
	}

	plan, err := grading.SimulateTarget(student, enrollment, target)
	if err != nil {
		return nil, err
	}

	h.log.Info("target simulated",
		logger.StudentID(plan.StudentID),
		logger.Target(target),
		logger.String("status", string(plan.Status)),
		logger.Int("open_courses", len(plan.Entries)),
	)

	return &SimulationResult{
		PlanID:      uuid.NewString(),
		Plan:        plan,
		GeneratedAt: h.now(),
	}, nil
}
