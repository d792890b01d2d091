package memory

import "github.com/campus-hub/grade-engine/internal/domain/curriculum"

// Demo identifiers, useful for smoke-testing the API with DB_DRIVER=memory.
const (
	DemoStudentID    = "MAT-2024-001"
	DemoEnrollmentID = "enr-2024-001"
	DemoAcademicYear = "2024-2025"
)

// SeedDemo loads a small third-year statistics class with one student
// aiming at a data science career.
func SeedDemo(s *Store) {
	python := curriculum.Course{
		ID: "ecue-inf301", Code: "INF301", Name: "Programmation Python",
		Coefficient: 2,
		Weights:     curriculum.KindWeights{Lab: 0.4, Exam: 0.6},
		Evaluations: []curriculum.Evaluation{
			{ID: "ev-inf301-tp", Name: "TP Python", Kind: curriculum.KindLab},
			{ID: "ev-inf301-ex", Name: "Examen Python", Kind: curriculum.KindExam},
		},
	}
	databases := curriculum.Course{
		ID: "ecue-inf302", Code: "INF302", Name: "Bases de données",
		Coefficient: 1,
		Weights:     curriculum.KindWeights{Project: 0.5, Exam: 0.5},
		Evaluations: []curriculum.Evaluation{
			{ID: "ev-inf302-pr", Name: "Projet SQL", Kind: curriculum.KindProject},
			{ID: "ev-inf302-ex", Name: "Examen BDD", Kind: curriculum.KindExam},
		},
	}
	inference := curriculum.Course{
		ID: "ecue-stat305", Code: "STAT305", Name: "Statistique inférentielle",
		Coefficient: 3,
		Weights:     curriculum.KindWeights{Assignment: 0.3, Exam: 0.7},
		Evaluations: []curriculum.Evaluation{
			{ID: "ev-stat305-dv", Name: "Devoir 1", Kind: curriculum.KindAssignment},
			{ID: "ev-stat305-ex", Name: "Examen final", Kind: curriculum.KindExam},
		},
	}
	algebra := curriculum.Course{
		ID: "ecue-math310", Code: "MATH310", Name: "Algèbre linéaire",
		Coefficient: 2,
		Weights:     curriculum.KindWeights{Exam: 1},
		Evaluations: []curriculum.Evaluation{
			{ID: "ev-math310-ex", Name: "Examen final", Kind: curriculum.KindExam},
		},
	}

	structure := &curriculum.ProgramStructure{
		ID: "cls-l3-stat", Code: "L3-STAT", Name: "Licence 3 Statistique", Level: "L3",
		Units: []curriculum.ProgramUnit{
			{ID: "ue-info", Code: "UE-INFO", Name: "Informatique", Credits: 4, Courses: []curriculum.Course{python, databases}},
			{ID: "ue-math", Code: "UE-MATH", Name: "Mathématiques", Credits: 6, Courses: []curriculum.Course{inference, algebra}},
		},
	}

	s.SetCurrentYear(DemoAcademicYear)
	s.SeedStudent(&curriculum.Student{
		ID:       DemoStudentID,
		FullName: "Manfoya Tchokpon",
		Domain: &curriculum.TargetDomain{
			ID: "dom-ds", Name: "Data Scientist", Description: "Analyse et modélisation de données",
			RequiredSkills: []curriculum.Skill{
				{ID: "sk-python", Name: "Python", Courses: []curriculum.Course{python}},
				{ID: "sk-stats", Name: "Statistiques avancées", Courses: []curriculum.Course{inference}},
				{ID: "sk-sql", Name: "SQL", Courses: []curriculum.Course{databases}},
				{ID: "sk-ml", Name: "Machine learning"},
			},
		},
	})
	s.SeedEnrollment(&curriculum.Enrollment{
		ID:           DemoEnrollmentID,
		StudentID:    DemoStudentID,
		StudentName:  "Manfoya Tchokpon",
		AcademicYear: DemoAcademicYear,
		Structure:    structure,
		Grades: []curriculum.Grade{
			{EvaluationID: "ev-inf301-tp", Value: 15},
			{EvaluationID: "ev-inf301-ex", Value: 14},
			{EvaluationID: "ev-inf302-pr", Value: 9},
			{EvaluationID: "ev-stat305-dv", Value: 11.5},
		},
	})
}
