package curriculum

import (
	"math"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// EvalKind - тип контроля: домашняя работа, практикум, экзамен или проект.
type EvalKind string

const (
	KindAssignment EvalKind = "assignment"
	KindLab        EvalKind = "lab"
	KindExam       EvalKind = "exam"
	KindProject    EvalKind = "project"
)

// AllEvalKinds возвращает все типы контроля в каноническом порядке.
func AllEvalKinds() []EvalKind {
	return []EvalKind{KindAssignment, KindLab, KindExam, KindProject}
}

// IsValid проверяет, что тип контроля известен.
func (k EvalKind) IsValid() bool {
	switch k {
	case KindAssignment, KindLab, KindExam, KindProject:
		return true
	}
	return false
}

func (k EvalKind) String() string {
	return string(k)
}

// ParseEvalKind принимает как канонические имена, так и старые метки
// учебной части (DEVOIR, TP, EXAMEN, PROJET).
func ParseEvalKind(s string) (EvalKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASSIGNMENT", "DEVOIR":
		return KindAssignment, true
	case "LAB", "TP":
		return KindLab, true
	case "EXAM", "EXAMEN":
		return KindExam, true
	case "PROJECT", "PROJET":
		return KindProject, true
	}
	return "", false
}

// KindWeights - доли каждого типа контроля в средней по курсу.
// Сумма должна быть 1.0 ± 0.01, но это проверяется при создании курса,
// а движок корректно работает и с неполными долями.
type KindWeights struct {
	Assignment float64 `json:"assignment"`
	Lab        float64 `json:"lab"`
	Exam       float64 `json:"exam"`
	Project    float64 `json:"project"`
}

// Of возвращает долю для указанного типа контроля.
func (w KindWeights) Of(kind EvalKind) float64 {
	switch kind {
	case KindAssignment:
		return w.Assignment
	case KindLab:
		return w.Lab
	case KindExam:
		return w.Exam
	case KindProject:
		return w.Project
	}
	return 0
}

// Sum возвращает сумму долей.
func (w KindWeights) Sum() float64 {
	return w.Assignment + w.Lab + w.Exam + w.Project
}

// WeightTolerance - допустимое отклонение суммы долей от единицы.
const WeightTolerance = 0.01

// IsNormalized проверяет, что доли неотрицательны и в сумме дают 1.
func (w KindWeights) IsNormalized() bool {
	if w.Assignment < 0 || w.Lab < 0 || w.Exam < 0 || w.Project < 0 {
		return false
	}
	return math.Abs(w.Sum()-1.0) <= WeightTolerance
}

// ══════════════════════════════════════════════════════════════════════════════
// PEDAGOGICAL HIERARCHY
// ══════════════════════════════════════════════════════════════════════════════

// Evaluation - отдельный контроль внутри курса.
type Evaluation struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Kind EvalKind `json:"kind"`
}

// Course (ECUE) - наименьшая оцениваемая единица, входит ровно в один UE.
type Course struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Coefficient float64      `json:"coefficient"`
	Weights     KindWeights  `json:"weights"`
	Evaluations []Evaluation `json:"evaluations"`
}

// ProgramUnit (UE) - блок с кредитами и упорядоченным списком курсов.
type ProgramUnit struct {
	ID      string   `json:"id"`
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Credits float64  `json:"credits"`
	Courses []Course `json:"courses"`
}

// ProgramStructure - учебный план конкретного класса (уровня).
type ProgramStructure struct {
	ID    string        `json:"id"`
	Code  string        `json:"code"`
	Name  string        `json:"name"`
	Level string        `json:"level,omitempty"`
	Units []ProgramUnit `json:"units"`
}

// Courses возвращает все курсы плана в порядке следования UE.
func (p *ProgramStructure) Courses() []Course {
	if p == nil {
		return nil
	}
	var out []Course
	for _, u := range p.Units {
		out = append(out, u.Courses...)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT & GRADES
// ══════════════════════════════════════════════════════════════════════════════

// Grade - оценка за один контроль в рамках одного зачисления.
type Grade struct {
	EvaluationID string  `json:"evaluation_id"`
	Value        float64 `json:"value"`
}

// Enrollment - зачисление студента в класс на учебный год.
// Structure может быть nil, если учебный план ещё не назначен.
type Enrollment struct {
	ID           string            `json:"id"`
	StudentID    string            `json:"student_id"`
	StudentName  string            `json:"student_name"`
	AcademicYear string            `json:"academic_year"`
	Structure    *ProgramStructure `json:"structure,omitempty"`
	Grades       []Grade           `json:"grades"`
}

// GradeIndex возвращает отображение evaluationID -> оценка.
// При дублях (их не должно быть) побеждает первая запись.
func (e *Enrollment) GradeIndex() map[string]float64 {
	idx := make(map[string]float64, len(e.Grades))
	for _, g := range e.Grades {
		if _, dup := idx[g.EvaluationID]; dup {
			continue
		}
		idx[g.EvaluationID] = g.Value
	}
	return idx
}

// ══════════════════════════════════════════════════════════════════════════════
// CAREER GOALS
// ══════════════════════════════════════════════════════════════════════════════

// Skill - компетенция и курсы, которые её преподают.
// Курсы могут не входить в учебный план студента.
type Skill struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Courses []Course `json:"courses"`
}

// TargetDomain - выбранное студентом направление карьеры.
type TargetDomain struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	RequiredSkills []Skill `json:"required_skills"`
}

// PassionCourseIDs возвращает множество курсов, преподающих требуемые навыки.
func (d *TargetDomain) PassionCourseIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	if d == nil {
		return ids
	}
	for _, s := range d.RequiredSkills {
		for _, c := range s.Courses {
			ids[c.ID] = struct{}{}
		}
	}
	return ids
}

// Student - профиль студента. Domain == nil означает незаполненный профиль.
type Student struct {
	ID       string        `json:"id"`
	FullName string        `json:"full_name"`
	Domain   *TargetDomain `json:"domain,omitempty"`
}

// HasDomain проверяет, выбрано ли направление.
func (s *Student) HasDomain() bool {
	return s != nil && s.Domain != nil
}
