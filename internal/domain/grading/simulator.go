package grading

import (
	"math"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
)

// DefaultTargetAverage используется, когда цель не задана.
const DefaultTargetAverage = 15.0

// PlanStatus - итог симуляции.
type PlanStatus string

const (
	// PlanSuccess - цель уже достигнута, план не нужен.
	PlanSuccess PlanStatus = "SUCCESS"
	// PlanImpossible - открытых экзаменов нет или они ничего не весят.
	PlanImpossible PlanStatus = "IMPOSSIBLE"
	// PlanPossible - все целевые оценки в пределах шкалы.
	PlanPossible PlanStatus = "POSSIBLE"
	// PlanDifficult - хотя бы одна цель была обрезана до 20.
	PlanDifficult PlanStatus = "DIFFICULT"
)

// PlanEntry - цель по одному открытому курсу.
// Порядок полей: категория, целевая оценка, прогноз средней.
type PlanEntry struct {
	CourseID    string  `json:"course_id"`
	CourseCode  string  `json:"course_code"`
	CourseName  string  `json:"course_name"`
	Coefficient float64 `json:"coefficient"`
	ExamWeight  float64 `json:"exam_weight"`

	Category         Category `json:"category"`
	PriorityFactor   float64  `json:"priority_factor"`
	TargetExamScore  float64  `json:"target_exam_score"`
	Clamped          bool     `json:"clamped"`
	SecuredComponent float64  `json:"secured_component"`
	ProjectedAverage float64  `json:"projected_average"`
}

// SimulationPlan - результат обратной задачи.
// Entries пуст для SUCCESS и IMPOSSIBLE.
type SimulationPlan struct {
	StudentID         string      `json:"student_id"`
	EnrollmentID      string      `json:"enrollment_id"`
	TargetAverage     float64     `json:"target_average"`
	Status            PlanStatus  `json:"status"`
	TotalCoefficients float64     `json:"total_coefficients"`
	PointsSecured     float64     `json:"points_secured"`
	MissingPoints     float64     `json:"missing_points"`
	EffortUnits       float64     `json:"effort_units"`
	BaseEffort        float64     `json:"base_effort"`
	Entries           []PlanEntry `json:"entries"`
}

// ValidateTarget проверяет, что цель лежит на шкале 0..20.
func ValidateTarget(target float64) error {
	if !shared.Score(target).IsValid() {
		return shared.ErrInvalidTarget
	}
	return nil
}

type openCourse struct {
	course   curriculum.Course
	category Category
	secured  float64 // сумма (среднее × доля) по не-экзаменационным типам
}

// SimulateTarget распределяет недостающие баллы по открытым экзаменам.
//
// Курс открыт, пока по нему нет ни одной экзаменационной оценки. Недостаток
// делится пропорционально coef × exam_weight × множитель категории. Цели
// выше 20 обрезаются, и тогда весь план помечается DIFFICULT; перераспределения
// на другие курсы не делается.
func SimulateTarget(student *curriculum.Student, enrollment *curriculum.Enrollment, target float64) (SimulationPlan, error) {
	if err := ValidateTarget(target); err != nil {
		return SimulationPlan{}, err
	}
	if enrollment == nil {
		return SimulationPlan{}, shared.ErrNoEnrollment
	}

	plan := SimulationPlan{
		EnrollmentID:  enrollment.ID,
		StudentID:     enrollment.StudentID,
		TargetAverage: target,
		Entries:       []PlanEntry{},
	}
	if student != nil {
		plan.StudentID = student.ID
	}

	var domain *curriculum.TargetDomain
	if student != nil {
		domain = student.Domain
	}
	passion := domain.PassionCourseIDs()

	courses := enrollment.Structure.Courses()
	grades := enrollment.GradeIndex()

	var totalCoef float64
	for _, c := range courses {
		totalCoef += c.Coefficient
	}
	var avgCoef float64
	if len(courses) > 0 {
		avgCoef = totalCoef / float64(len(courses))
	}

	var secured float64
	var open []openCourse
	for _, c := range courses {
		means := KindMeans(c, grades)

		var nonExam float64
		for _, kind := range curriculum.AllEvalKinds() {
			if kind == curriculum.KindExam {
				continue
			}
			if m := means[kind]; m.Graded() {
				nonExam += m.Mean * c.Weights.Of(kind)
			}
		}
		secured += nonExam * c.Coefficient

		if exam := means[curriculum.KindExam]; exam.Graded() {
			secured += exam.Mean * c.Weights.Exam * c.Coefficient
			continue
		}

		_, isPassion := passion[c.ID]
		open = append(open, openCourse{
			course:   c,
			category: Classify(isPassion, c.Coefficient >= avgCoef),
			secured:  nonExam,
		})
	}

	missing := target*totalCoef - secured

	plan.TotalCoefficients = shared.Round2(totalCoef)
	plan.PointsSecured = shared.Round2(secured)
	plan.MissingPoints = shared.Round2(missing)

	if missing <= 0 {
		plan.Status = PlanSuccess
		return plan, nil
	}
	if len(open) == 0 {
		plan.Status = PlanImpossible
		return plan, nil
	}

	allocate(&plan, open, missing)
	return plan, nil
}

// allocate заполняет план для missing > 0 и непустого open.
func allocate(plan *SimulationPlan, open []openCourse, missing float64) {
	var effort float64
	for _, oc := range open {
		effort += oc.course.Coefficient * oc.course.Weights.Exam * oc.category.Multiplier()
	}
	plan.EffortUnits = shared.Round2(effort)
	if effort == 0 {
		plan.Status = PlanImpossible
		return
	}

	base := missing / effort
	plan.BaseEffort = shared.Round2(base)
	plan.Status = PlanPossible

	for _, oc := range open {
		raw := base * oc.category.Multiplier()
		score := shared.Score(raw).Clamp().Float64()
		clamped := raw > shared.MaxScore
		if clamped {
			plan.Status = PlanDifficult
		}

		projected := oc.secured + score*oc.course.Weights.Exam
		plan.Entries = append(plan.Entries, PlanEntry{
			CourseID:         oc.course.ID,
			CourseCode:       oc.course.Code,
			CourseName:       oc.course.Name,
			Coefficient:      oc.course.Coefficient,
			ExamWeight:       oc.course.Weights.Exam,
			Category:         oc.category,
			PriorityFactor:   oc.category.Multiplier(),
			TargetExamScore:  shared.Round2(score),
			Clamped:          clamped,
			SecuredComponent: shared.Round2(oc.secured),
			ProjectedAverage: shared.Round2(math.Min(projected, shared.MaxScore)),
		})
	}
}
