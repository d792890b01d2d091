package grading

import (
	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
)

// SkillStatus - состояние освоения навыка.
type SkillStatus string

const (
	SkillAcquired     SkillStatus = "ACQUIRED"
	SkillAtRisk       SkillStatus = "AT_RISK"
	SkillFailing      SkillStatus = "FAILING"
	SkillNotYetGraded SkillStatus = "NOT_YET_GRADED"
	SkillNotTaught    SkillStatus = "NOT_TAUGHT"
)

// AtRiskFloor - нижняя граница зоны риска.
const AtRiskFloor = 8.0

// ClassifySkill переводит среднюю по навыку в статус.
func ClassifySkill(avg float64, graded bool) SkillStatus {
	switch {
	case !graded:
		return SkillNotYetGraded
	case avg >= shared.PassMark:
		return SkillAcquired
	case avg >= AtRiskFloor:
		return SkillAtRisk
	default:
		return SkillFailing
	}
}

// SkillReport - результат по одному требуемому навыку.
// Average == nil, если оценок по навыку нет.
type SkillReport struct {
	SkillID         string      `json:"skill_id"`
	SkillName       string      `json:"skill_name"`
	Status          SkillStatus `json:"status"`
	Average         *float64    `json:"average"`
	CoursesTeaching int         `json:"courses_teaching"`
	CoursesGraded   int         `json:"courses_graded"`
}

// Diagnostic - покрытие навыков выбранного направления.
type Diagnostic struct {
	StudentID    string        `json:"student_id"`
	StudentName  string        `json:"student_name"`
	DomainID     string        `json:"domain_id"`
	DomainName   string        `json:"domain_name"`
	EnrollmentID string        `json:"enrollment_id"`
	Skills       []SkillReport `json:"skills"`
}

// DiagnoseSkills оценивает каждый требуемый навык направления студента.
//
// Для каждого курса навыка берётся плоское среднее всех оценок курса,
// без долей типов контроля. Курсы без оценок в среднюю навыка не входят.
func DiagnoseSkills(student *curriculum.Student, enrollment *curriculum.Enrollment) (Diagnostic, error) {
	if !student.HasDomain() {
		return Diagnostic{}, shared.ErrMissingTargetDomain
	}
	if enrollment == nil {
		return Diagnostic{}, shared.ErrNoEnrollment
	}

	grades := enrollment.GradeIndex()
	d := Diagnostic{
		StudentID:    student.ID,
		StudentName:  student.FullName,
		DomainID:     student.Domain.ID,
		DomainName:   student.Domain.Name,
		EnrollmentID: enrollment.ID,
		Skills:       make([]SkillReport, 0, len(student.Domain.RequiredSkills)),
	}

	for _, skill := range student.Domain.RequiredSkills {
		d.Skills = append(d.Skills, diagnoseSkill(skill, grades))
	}
	return d, nil
}

func diagnoseSkill(skill curriculum.Skill, grades map[string]float64) SkillReport {
	r := SkillReport{
		SkillID:         skill.ID,
		SkillName:       skill.Name,
		CoursesTeaching: len(skill.Courses),
	}
	if len(skill.Courses) == 0 {
		r.Status = SkillNotTaught
		return r
	}

	var courseMeans []float64
	for _, c := range skill.Courses {
		vals := courseGrades(c, grades)
		if len(vals) == 0 {
			continue
		}
		courseMeans = append(courseMeans, Mean(vals))
	}
	r.CoursesGraded = len(courseMeans)

	if len(courseMeans) == 0 {
		r.Status = SkillNotYetGraded
		return r
	}

	avg := Mean(courseMeans)
	rounded := shared.Round2(avg)
	r.Average = &rounded
	r.Status = ClassifySkill(avg, true)
	return r
}
