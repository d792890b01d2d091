package grading

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 12.0, Mean([]float64{12}))
	assert.InDelta(t, 11.0, Mean([]float64{10, 12}), 1e-12)
}

func TestCourseAverage_UngradedKindDragsDown(t *testing.T) {
	// Экзамен весит 60%, но оценки нет: курс получает только 0.4 × 15.
	c := newCourse("c1", 1, split(0.4, 0, 0.6, 0)).graded(curriculum.KindAssignment, 14, 16).open(curriculum.KindExam)
	e := enrollmentOf(unit("u1", 3, c))

	avg := CourseAverage(c.course, e.GradeIndex())
	assert.InDelta(t, 6.0, avg, 1e-9)
}

func TestCourseAverage_PartialWeights(t *testing.T) {
	c := newCourse("c1", 1, curriculum.KindWeights{Exam: 0.5}).graded(curriculum.KindExam, 18)
	e := enrollmentOf(unit("u1", 3, c))
	assert.InDelta(t, 9.0, CourseAverage(c.course, e.GradeIndex()), 1e-9)
}

func TestComputeBulletin_FullHierarchy(t *testing.T) {
	algo := newCourse("algo", 2, split(0.3, 0.2, 0.5, 0)).
		graded(curriculum.KindAssignment, 12, 14).
		graded(curriculum.KindLab, 15).
		graded(curriculum.KindExam, 10)
	web := newCourse("web", 1, split(0, 0, 0.6, 0.4)).
		graded(curriculum.KindExam, 8).
		graded(curriculum.KindProject, 16)
	maths := newCourse("maths", 3, examOnly()).graded(curriculum.KindExam, 7)

	e := enrollmentOf(
		unit("UE1", 6, algo, web),
		unit("UE2", 4, maths),
	)

	b := ComputeBulletin(e)

	// algo = 13*0.3 + 15*0.2 + 10*0.5 = 11.9; web = 8*0.6 + 16*0.4 = 11.2
	// UE1 = (11.9*2 + 11.2*1) / 3 = 11.666..., UE2 = 7
	// overall = (11.666...*6 + 7*4) / 10 = 9.8
	require.Len(t, b.Units, 2)
	assert.Equal(t, 11.9, b.Units[0].Courses[0].Average)
	assert.Equal(t, 11.2, b.Units[0].Courses[1].Average)
	assert.Equal(t, 11.67, b.Units[0].Average)
	assert.True(t, b.Units[0].Validated)
	assert.Equal(t, 7.0, b.Units[1].Average)
	assert.False(t, b.Units[1].Validated)

	assert.Equal(t, 9.8, b.OverallAverage)
	assert.Equal(t, 10.0, b.CreditsAttempted)
	assert.Equal(t, 6.0, b.CreditsValidated)

	assert.Equal(t, "enr-1", b.EnrollmentID)
	assert.Equal(t, "Awa Diallo", b.StudentName)
	assert.Equal(t, "L1-INFO", b.StructureCode)
	assert.Equal(t, "2025-2026", b.AcademicYear)
}

func TestComputeBulletin_ValidationUsesFullPrecision(t *testing.T) {
	// Средняя 9.995 при округлении дала бы 10.00, но UE не засчитывается.
	c := newCourse("c", 1, examOnly()).graded(curriculum.KindExam, 9.99, 10.0)
	e := enrollmentOf(unit("u1", 6, c))

	assert.InDelta(t, 9.995, UnitAverage(e.Structure.Units[0], e.GradeIndex()), 1e-9)

	b := ComputeBulletin(e)
	assert.False(t, b.Units[0].Validated)
	assert.Zero(t, b.CreditsValidated)
}

func TestComputeBulletin_Degenerate(t *testing.T) {
	t.Run("no structure", func(t *testing.T) {
		e := &curriculum.Enrollment{ID: "enr-x", StudentID: "MAT-9"}
		b := ComputeBulletin(e)
		assert.Empty(t, b.Units)
		assert.Zero(t, b.OverallAverage)
		assert.Zero(t, b.CreditsAttempted)
		assert.Zero(t, b.CreditsValidated)
	})

	t.Run("unit without courses", func(t *testing.T) {
		e := enrollmentOf(unit("empty", 5))
		b := ComputeBulletin(e)
		require.Len(t, b.Units, 1)
		assert.Zero(t, b.Units[0].Average)
		assert.False(t, b.Units[0].Validated)
		assert.Equal(t, 5.0, b.CreditsAttempted)
	})

	t.Run("zero coefficients", func(t *testing.T) {
		e := enrollmentOf(unit("u", 3, newCourse("c", 0, examOnly()).graded(curriculum.KindExam, 18)))
		assert.Zero(t, ComputeBulletin(e).Units[0].Average)
	})

	t.Run("zero credits", func(t *testing.T) {
		e := enrollmentOf(unit("u", 0, newCourse("c", 1, examOnly()).graded(curriculum.KindExam, 18)))
		b := ComputeBulletin(e)
		assert.Zero(t, b.OverallAverage)
		assert.True(t, b.Units[0].Validated)
		assert.Zero(t, b.CreditsValidated)
	})
}

func TestComputeBulletin_SingleCourseUnitEqualsCourse(t *testing.T) {
	for _, coef := range []float64{0.5, 1, 2, 7} {
		c := newCourse("c", coef, split(0.25, 0.25, 0.5, 0)).
			graded(curriculum.KindAssignment, 9).
			graded(curriculum.KindLab, 13).
			graded(curriculum.KindExam, 11.5)
		e := enrollmentOf(unit("u", 4, c))
		grades := e.GradeIndex()
		assert.InDelta(t, CourseAverage(c.course, grades), UnitAverage(e.Structure.Units[0], grades), 1e-12)
	}
}

func TestComputeBulletin_Idempotent(t *testing.T) {
	c1 := newCourse("c1", 2, split(0.3, 0.2, 0.5, 0)).graded(curriculum.KindAssignment, 11.33, 7.1).graded(curriculum.KindExam, 13.7)
	c2 := newCourse("c2", 1, examOnly()).open(curriculum.KindExam)
	e := enrollmentOf(unit("u1", 5, c1), unit("u2", 2, c2))

	first := ComputeBulletin(e)
	second := ComputeBulletin(e)
	assert.Equal(t, first, second)
}

func randomWeights(r *rand.Rand) curriculum.KindWeights {
	w := curriculum.KindWeights{Assignment: r.Float64(), Lab: r.Float64(), Exam: r.Float64(), Project: r.Float64()}
	if r.IntN(2) == 0 {
		s := w.Sum()
		w = curriculum.KindWeights{Assignment: w.Assignment / s, Lab: w.Lab / s, Exam: w.Exam / s, Project: w.Project / s}
	}
	return w
}

func randomCourse(r *rand.Rand, id string, w curriculum.KindWeights, allKinds bool) *courseBuilder {
	c := newCourse(id, 0.5+r.Float64()*4, w)
	for _, kind := range curriculum.AllEvalKinds() {
		if !allKinds && r.IntN(3) == 0 {
			continue
		}
		n := 1 + r.IntN(3)
		for i := 0; i < n; i++ {
			c.graded(kind, r.Float64()*20)
		}
	}
	return c
}

func TestProperty_CourseAverageInRange(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		// Неполные или нормированные доли в пределах [0,1].
		c := randomCourse(r, "c", randomWeights(r), false)
		e := enrollmentOf(unit("u", 1, c))
		avg := CourseAverage(c.course, e.GradeIndex())
		assert.GreaterOrEqual(t, avg, 0.0)
		assert.LessOrEqual(t, avg, 20.0+1e-9)
	}
}

func TestProperty_ConvexCombination(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 500; i++ {
		w := randomWeights(r)
		s := w.Sum()
		w = curriculum.KindWeights{Assignment: w.Assignment / s, Lab: w.Lab / s, Exam: w.Exam / s, Project: w.Project / s}

		c := randomCourse(r, "c", w, true)
		e := enrollmentOf(unit("u", 1, c))
		grades := e.GradeIndex()

		lo, hi := 20.0, 0.0
		for _, m := range KindMeans(c.course, grades) {
			lo = min(lo, m.Mean)
			hi = max(hi, m.Mean)
		}
		avg := CourseAverage(c.course, grades)
		assert.GreaterOrEqual(t, avg, lo-1e-9)
		assert.LessOrEqual(t, avg, hi+1e-9)
	}
}

func TestProperty_Monotonicity(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 200; i++ {
		c1 := randomCourse(r, "c1", randomWeights(r), false)
		c2 := randomCourse(r, "c2", randomWeights(r), false)
		c3 := randomCourse(r, "c3", randomWeights(r), false)
		e := enrollmentOf(unit("u1", 1+r.Float64()*5, c1, c2), unit("u2", 1+r.Float64()*5, c3))
		if len(e.Grades) == 0 {
			continue
		}

		before := ComputeBulletin(e)
		gradesBefore := e.GradeIndex()

		k := r.IntN(len(e.Grades))
		raised := *e
		raised.Grades = append([]curriculum.Grade(nil), e.Grades...)
		raised.Grades[k].Value = min(20, raised.Grades[k].Value+r.Float64()*5)

		after := ComputeBulletin(&raised)
		gradesAfter := raised.GradeIndex()

		assert.GreaterOrEqual(t, after.OverallAverage, before.OverallAverage)
		for ui, u := range e.Structure.Units {
			assert.GreaterOrEqual(t, UnitAverage(u, gradesAfter), UnitAverage(u, gradesBefore)-1e-12)
			assert.GreaterOrEqual(t, after.Units[ui].Average, before.Units[ui].Average)
			for _, c := range u.Courses {
				assert.GreaterOrEqual(t, CourseAverage(c, gradesAfter), CourseAverage(c, gradesBefore)-1e-12)
			}
		}
	}
}
