package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
)

func TestClassifySkill(t *testing.T) {
	cases := []struct {
		avg    float64
		graded bool
		want   SkillStatus
	}{
		{0, false, SkillNotYetGraded},
		{15, true, SkillAcquired},
		{10, true, SkillAcquired},
		{9.99, true, SkillAtRisk},
		{8, true, SkillAtRisk},
		{7.99, true, SkillFailing},
		{0, true, SkillFailing},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifySkill(c.avg, c.graded), "avg=%v graded=%v", c.avg, c.graded)
	}
}

func TestDiagnoseSkills_Statuses(t *testing.T) {
	// Веса не влияют на диагностику: берётся плоское среднее оценок курса.
	sql := newCourse("sql", 2, examOnly()).graded(curriculum.KindAssignment, 12).graded(curriculum.KindExam, 14)
	python := newCourse("python", 1, split(0.5, 0, 0.5, 0)).graded(curriculum.KindLab, 9)
	stats := newCourse("stats", 1, examOnly()).graded(curriculum.KindExam, 4, 6)
	spark := newCourse("spark", 1, examOnly()).open(curriculum.KindExam)

	e := enrollmentOf(unit("u1", 6, sql, python, stats, spark))
	student := studentWithSkills(
		curriculum.Skill{ID: "s-sql", Name: "SQL", Courses: []curriculum.Course{sql.course}},
		curriculum.Skill{ID: "s-py", Name: "Python", Courses: []curriculum.Course{python.course}},
		curriculum.Skill{ID: "s-stats", Name: "Statistics", Courses: []curriculum.Course{stats.course}},
		curriculum.Skill{ID: "s-spark", Name: "Spark", Courses: []curriculum.Course{spark.course}},
		curriculum.Skill{ID: "s-k8s", Name: "Kubernetes"},
	)

	d, err := DiagnoseSkills(student, e)
	require.NoError(t, err)
	require.Len(t, d.Skills, 5)

	assert.Equal(t, "Data Engineering", d.DomainName)
	assert.Equal(t, "enr-1", d.EnrollmentID)

	want := []SkillStatus{SkillAcquired, SkillAtRisk, SkillFailing, SkillNotYetGraded, SkillNotTaught}
	for i, s := range d.Skills {
		assert.Equal(t, want[i], s.Status, s.SkillName)
	}

	require.NotNil(t, d.Skills[0].Average)
	assert.Equal(t, 13.0, *d.Skills[0].Average)
	assert.Equal(t, 9.0, *d.Skills[1].Average)
	assert.Equal(t, 5.0, *d.Skills[2].Average)
	assert.Nil(t, d.Skills[3].Average)
	assert.Nil(t, d.Skills[4].Average)
	assert.Equal(t, 0, d.Skills[4].CoursesTeaching)
}

func TestDiagnoseSkills_AveragesOnlyGradedCourses(t *testing.T) {
	graded := newCourse("a", 1, examOnly()).graded(curriculum.KindExam, 11)
	ungraded := newCourse("b", 1, examOnly()).open(curriculum.KindExam)
	e := enrollmentOf(unit("u", 3, graded, ungraded))

	student := studentWithSkills(curriculum.Skill{
		ID: "s", Name: "Algorithms",
		Courses: []curriculum.Course{graded.course, ungraded.course},
	})

	d, err := DiagnoseSkills(student, e)
	require.NoError(t, err)
	s := d.Skills[0]
	assert.Equal(t, SkillAcquired, s.Status)
	assert.Equal(t, 11.0, *s.Average)
	assert.Equal(t, 2, s.CoursesTeaching)
	assert.Equal(t, 1, s.CoursesGraded)
}

func TestDiagnoseSkills_CourseOutsideStructure(t *testing.T) {
	// Навык преподаётся курсом, которого нет в плане: оценок нет.
	e := enrollmentOf(unit("u", 3, newCourse("a", 1, examOnly()).graded(curriculum.KindExam, 11)))
	elective := newCourse("elective", 1, examOnly()).open(curriculum.KindExam)
	student := studentWithSkills(curriculum.Skill{ID: "s", Name: "Cloud", Courses: []curriculum.Course{elective.course}})

	d, err := DiagnoseSkills(student, e)
	require.NoError(t, err)
	assert.Equal(t, SkillNotYetGraded, d.Skills[0].Status)
}

func TestDiagnoseSkills_Errors(t *testing.T) {
	e := enrollmentOf()

	_, err := DiagnoseSkills(&curriculum.Student{ID: "MAT-1"}, e)
	assert.ErrorIs(t, err, shared.ErrIncompleteProfile)

	_, err = DiagnoseSkills(nil, e)
	assert.ErrorIs(t, err, shared.ErrIncompleteProfile)

	_, err = DiagnoseSkills(studentWithSkills(), nil)
	assert.ErrorIs(t, err, shared.ErrNoActiveEnrollment)
}

func TestDiagnoseSkills_EmptyDomain(t *testing.T) {
	d, err := DiagnoseSkills(studentWithSkills(), enrollmentOf())
	require.NoError(t, err)
	assert.NotNil(t, d.Skills)
	assert.Empty(t, d.Skills)
}
