package curriculum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEvalKind(t *testing.T) {
	cases := map[string]EvalKind{
		"assignment": KindAssignment,
		"DEVOIR":     KindAssignment,
		"tp":         KindLab,
		"Lab":        KindLab,
		"EXAMEN":     KindExam,
		" exam ":     KindExam,
		"PROJET":     KindProject,
		"project":    KindProject,
	}
	for in, want := range cases {
		got, ok := ParseEvalKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseEvalKind("quiz")
	assert.False(t, ok)
}

func TestKindWeights(t *testing.T) {
	w := KindWeights{Assignment: 0.3, Lab: 0.2, Exam: 0.5}
	assert.Equal(t, 0.3, w.Of(KindAssignment))
	assert.Equal(t, 0.5, w.Of(KindExam))
	assert.Equal(t, 0.0, w.Of(KindProject))
	assert.Equal(t, 0.0, w.Of(EvalKind("quiz")))
	assert.True(t, w.IsNormalized())

	assert.True(t, KindWeights{Exam: 0.995}.IsNormalized())
	assert.False(t, KindWeights{Exam: 0.5}.IsNormalized())
	assert.False(t, KindWeights{Exam: 1.5, Lab: -0.5}.IsNormalized())
}

func TestEnrollment_GradeIndexFirstWins(t *testing.T) {
	e := &Enrollment{Grades: []Grade{
		{EvaluationID: "e1", Value: 12},
		{EvaluationID: "e2", Value: 8},
		{EvaluationID: "e1", Value: 3},
	}}
	idx := e.GradeIndex()
	assert.Len(t, idx, 2)
	assert.Equal(t, 12.0, idx["e1"])
}

func TestProgramStructure_CoursesKeepsOrder(t *testing.T) {
	p := &ProgramStructure{Units: []ProgramUnit{
		{Code: "UE1", Courses: []Course{{ID: "a"}, {ID: "b"}}},
		{Code: "UE2"},
		{Code: "UE3", Courses: []Course{{ID: "c"}}},
	}}
	var ids []string
	for _, c := range p.Courses() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	var nilPlan *ProgramStructure
	assert.Empty(t, nilPlan.Courses())
}

func TestTargetDomain_PassionCourseIDs(t *testing.T) {
	d := &TargetDomain{RequiredSkills: []Skill{
		{ID: "s1", Courses: []Course{{ID: "algo"}, {ID: "db"}}},
		{ID: "s2", Courses: []Course{{ID: "db"}}},
		{ID: "s3"},
	}}
	ids := d.PassionCourseIDs()
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "algo")
	assert.Contains(t, ids, "db")

	var none *TargetDomain
	assert.Empty(t, none.PassionCourseIDs())
}
