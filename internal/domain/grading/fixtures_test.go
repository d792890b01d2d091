package grading

import (
	"fmt"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
)

// courseBuilder собирает курс с одним контролем на каждую переданную оценку.
type courseBuilder struct {
	course curriculum.Course
	grades []curriculum.Grade
}

func newCourse(id string, coef float64, w curriculum.KindWeights) *courseBuilder {
	return &courseBuilder{course: curriculum.Course{
		ID:          id,
		Code:        id,
		Name:        "Course " + id,
		Coefficient: coef,
		Weights:     w,
	}}
}

// graded добавляет оценённый контроль.
func (b *courseBuilder) graded(kind curriculum.EvalKind, values ...float64) *courseBuilder {
	for _, v := range values {
		evID := fmt.Sprintf("%s-%s-%d", b.course.ID, kind, len(b.course.Evaluations))
		b.course.Evaluations = append(b.course.Evaluations, curriculum.Evaluation{ID: evID, Name: evID, Kind: kind})
		b.grades = append(b.grades, curriculum.Grade{EvaluationID: evID, Value: v})
	}
	return b
}

// open добавляет контроль без оценки.
func (b *courseBuilder) open(kind curriculum.EvalKind) *courseBuilder {
	evID := fmt.Sprintf("%s-%s-%d", b.course.ID, kind, len(b.course.Evaluations))
	b.course.Evaluations = append(b.course.Evaluations, curriculum.Evaluation{ID: evID, Name: evID, Kind: kind})
	return b
}

type unitFixture struct {
	id      string
	credits float64
	courses []*courseBuilder
}

func unit(id string, credits float64, courses ...*courseBuilder) unitFixture {
	return unitFixture{id: id, credits: credits, courses: courses}
}

func enrollmentOf(units ...unitFixture) *curriculum.Enrollment {
	e := &curriculum.Enrollment{
		ID:           "enr-1",
		StudentID:    "MAT-001",
		StudentName:  "Awa Diallo",
		AcademicYear: "2025-2026",
		Structure:    &curriculum.ProgramStructure{ID: "cls-1", Code: "L1-INFO", Name: "Licence 1 Informatique"},
	}
	for _, u := range units {
		pu := curriculum.ProgramUnit{ID: u.id, Code: u.id, Name: "Unit " + u.id, Credits: u.credits}
		for _, c := range u.courses {
			pu.Courses = append(pu.Courses, c.course)
			e.Grades = append(e.Grades, c.grades...)
		}
		e.Structure.Units = append(e.Structure.Units, pu)
	}
	return e
}

func studentWithSkills(skills ...curriculum.Skill) *curriculum.Student {
	return &curriculum.Student{
		ID:       "MAT-001",
		FullName: "Awa Diallo",
		Domain: &curriculum.TargetDomain{
			ID:             "dom-data",
			Name:           "Data Engineering",
			RequiredSkills: skills,
		},
	}
}

func examOnly() curriculum.KindWeights {
	return curriculum.KindWeights{Exam: 1.0}
}

func split(assignment, lab, exam, project float64) curriculum.KindWeights {
	return curriculum.KindWeights{Assignment: assignment, Lab: lab, Exam: exam, Project: project}
}
