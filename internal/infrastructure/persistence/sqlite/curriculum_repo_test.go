package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/grading"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
)

const fixtureSQL = `
INSERT INTO academic_years (label, is_current) VALUES ('2023-2024', 0), ('2024-2025', 1);

INSERT INTO program_structures (id, code, name, level) VALUES
    ('cls-l2', 'L2-INFO', 'Licence 2 Informatique', 'L2'),
    ('cls-l3', 'L3-INFO', 'Licence 3 Informatique', NULL);

INSERT INTO program_units (id, structure_id, code, name, credits, position) VALUES
    ('ue-math', 'cls-l3', 'UE-MATH', 'Mathématiques', 4, 2),
    ('ue-info', 'cls-l3', 'UE-INFO', 'Informatique', 6, 1),
    ('ue-old',  'cls-l2', 'UE-OLD',  'Ancien', 5, 1);

INSERT INTO courses (id, unit_id, code, name, coefficient, weight_assignment, weight_lab, weight_exam, weight_project, position) VALUES
    ('c-algo', 'ue-info', 'ALGO', 'Algorithmique', 2, 0.3, 0.2, 0.5, 0, 1),
    ('c-web',  'ue-info', 'WEB',  'Web',           1, 0,   0,   0.6, 0.4, 2),
    ('c-math', 'ue-math', 'MATH', 'Analyse',       3, 0,   0,   1,   0, 1),
    ('c-old',  'ue-old',  'OLD',  'Ancien cours',  1, 0,   0,   1,   0, 1);

INSERT INTO evaluations (id, course_id, name, kind, position) VALUES
    ('ev-algo-d1', 'c-algo', 'Devoir 1', 'DEVOIR', 1),
    ('ev-algo-d2', 'c-algo', 'Devoir 2', 'assignment', 2),
    ('ev-algo-tp', 'c-algo', 'TP', 'TP', 3),
    ('ev-algo-ex', 'c-algo', 'Examen', 'EXAMEN', 4),
    ('ev-web-ex',  'c-web',  'Examen', 'exam', 1),
    ('ev-web-pr',  'c-web',  'Projet', 'PROJET', 2),
    ('ev-math-ex', 'c-math', 'Examen', 'exam', 1),
    ('ev-old-ex',  'c-old',  'Examen', 'exam', 1);

INSERT INTO target_domains (id, name, description) VALUES ('dom-se', 'Software Engineer', NULL);
INSERT INTO skills (id, name) VALUES ('sk-algo', 'Algorithms'), ('sk-web', 'Web'), ('sk-k8s', 'Kubernetes');
INSERT INTO domain_skills (domain_id, skill_id, position) VALUES ('dom-se', 'sk-algo', 1), ('dom-se', 'sk-web', 2), ('dom-se', 'sk-k8s', 3);
INSERT INTO skill_courses (skill_id, course_id) VALUES ('sk-algo', 'c-algo'), ('sk-algo', 'c-math'), ('sk-web', 'c-web');

INSERT INTO students (id, full_name, target_domain_id) VALUES
    ('MAT-1', 'Awa Diallo', 'dom-se'),
    ('MAT-2', 'Koffi Mensah', NULL);

INSERT INTO enrollments (id, student_id, structure_id, academic_year) VALUES
    ('enr-old', 'MAT-1', 'cls-l2', '2023-2024'),
    ('enr-cur', 'MAT-1', 'cls-l3', '2024-2025'),
    ('enr-k',   'MAT-2', NULL,     '2023-2024');

INSERT INTO grades (enrollment_id, evaluation_id, value) VALUES
    ('enr-cur', 'ev-algo-d1', 12),
    ('enr-cur', 'ev-algo-d2', 14),
    ('enr-cur', 'ev-algo-tp', 15),
    ('enr-cur', 'ev-algo-ex', 10),
    ('enr-cur', 'ev-web-ex', 8),
    ('enr-cur', 'ev-web-pr', 16),
    ('enr-cur', 'ev-math-ex', 7),
    ('enr-old', 'ev-old-ex', 13);
`

func newTestRepo(t *testing.T) (*CurriculumRepository, *Store) {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))
	_, err = store.DB().ExecContext(ctx, fixtureSQL)
	require.NoError(t, err)

	return NewCurriculumRepository(store), store
}

func TestMigrate_Idempotent(t *testing.T) {
	_, store := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))
	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestGetEnrollment_LoadsFullSnapshot(t *testing.T) {
	repo, _ := newTestRepo(t)

	e, err := repo.GetEnrollment(context.Background(), "enr-cur")
	require.NoError(t, err)

	assert.Equal(t, "MAT-1", e.StudentID)
	assert.Equal(t, "Awa Diallo", e.StudentName)
	assert.Equal(t, "2024-2025", e.AcademicYear)
	require.NotNil(t, e.Structure)
	assert.Equal(t, "L3-INFO", e.Structure.Code)
	assert.Empty(t, e.Structure.Level)

	// Units follow position, not insertion order.
	require.Len(t, e.Structure.Units, 2)
	assert.Equal(t, "UE-INFO", e.Structure.Units[0].Code)
	assert.Equal(t, "UE-MATH", e.Structure.Units[1].Code)

	algo := e.Structure.Units[0].Courses[0]
	assert.Equal(t, "ALGO", algo.Code)
	assert.Equal(t, curriculum.KindWeights{Assignment: 0.3, Lab: 0.2, Exam: 0.5}, algo.Weights)
	require.Len(t, algo.Evaluations, 4)
	assert.Equal(t, curriculum.KindAssignment, algo.Evaluations[0].Kind)
	assert.Equal(t, curriculum.KindLab, algo.Evaluations[2].Kind)
	assert.Equal(t, curriculum.KindExam, algo.Evaluations[3].Kind)

	assert.Len(t, e.Grades, 7)

	b := grading.ComputeBulletin(e)
	assert.Equal(t, 11.9, b.Units[0].Courses[0].Average)
	assert.Equal(t, 11.2, b.Units[0].Courses[1].Average)
	assert.Equal(t, 11.67, b.Units[0].Average)
	assert.Equal(t, 7.0, b.Units[1].Average)
	assert.Equal(t, 9.8, b.OverallAverage)
	assert.Equal(t, 6.0, b.CreditsValidated)
}

func TestGetEnrollment_WithoutStructure(t *testing.T) {
	repo, _ := newTestRepo(t)

	e, err := repo.GetEnrollment(context.Background(), "enr-k")
	require.NoError(t, err)
	assert.Nil(t, e.Structure)
	assert.Empty(t, e.Grades)
}

func TestGetEnrollment_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetEnrollment(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetActiveEnrollment(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	e, err := repo.GetActiveEnrollment(ctx, "MAT-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-cur", e.ID)

	// MAT-2 is not enrolled this year: the latest enrollment wins.
	e, err = repo.GetActiveEnrollment(ctx, "MAT-2")
	require.NoError(t, err)
	assert.Equal(t, "enr-k", e.ID)

	_, err = repo.GetActiveEnrollment(ctx, "MAT-404")
	assert.ErrorIs(t, err, shared.ErrNoActiveEnrollment)

	// Without a current year the most recent label is picked.
	_, err = store.DB().ExecContext(ctx, `UPDATE academic_years SET is_current = 0`)
	require.NoError(t, err)
	_, err = store.DB().ExecContext(ctx, `
		INSERT INTO academic_years (label) VALUES ('2025-2026');
		INSERT INTO enrollments (id, student_id, structure_id, academic_year) VALUES ('enr-next', 'MAT-1', 'cls-l3', '2025-2026');
	`)
	require.NoError(t, err)

	e, err = repo.GetActiveEnrollment(ctx, "MAT-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-next", e.ID)
	assert.Empty(t, e.Grades)
}

func TestGetStudent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	s, err := repo.GetStudent(ctx, "MAT-1")
	require.NoError(t, err)
	require.True(t, s.HasDomain())
	assert.Equal(t, "Software Engineer", s.Domain.Name)
	assert.Empty(t, s.Domain.Description)

	skills := s.Domain.RequiredSkills
	require.Len(t, skills, 3)
	assert.Equal(t, "Algorithms", skills[0].Name)
	require.Len(t, skills[0].Courses, 2)
	assert.Equal(t, "ALGO", skills[0].Courses[0].Code)
	assert.Len(t, skills[0].Courses[0].Evaluations, 4)
	assert.Empty(t, skills[2].Courses)

	passion := s.Domain.PassionCourseIDs()
	assert.Len(t, passion, 3)

	s, err = repo.GetStudent(ctx, "MAT-2")
	require.NoError(t, err)
	assert.False(t, s.HasDomain())

	_, err = repo.GetStudent(ctx, "MAT-404")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRepository_FeedsDiagnosticAndSimulation(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	// Reopen the maths exam.
	_, err := store.DB().ExecContext(ctx, `DELETE FROM grades WHERE evaluation_id = 'ev-math-ex'`)
	require.NoError(t, err)

	s, err := repo.GetStudent(ctx, "MAT-1")
	require.NoError(t, err)
	e, err := repo.GetActiveEnrollment(ctx, "MAT-1")
	require.NoError(t, err)

	d, err := grading.DiagnoseSkills(s, e)
	require.NoError(t, err)
	require.Len(t, d.Skills, 3)
	assert.Equal(t, grading.SkillAcquired, d.Skills[0].Status)
	assert.Equal(t, 1, d.Skills[0].CoursesGraded)
	assert.Equal(t, grading.SkillNotTaught, d.Skills[2].Status)

	plan, err := grading.SimulateTarget(s, e, 12)
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "MATH", plan.Entries[0].CourseCode)
	assert.Equal(t, grading.CategoryCritical, plan.Entries[0].Category)
}

func TestGradeOutOfRangeIsRejected(t *testing.T) {
	_, store := newTestRepo(t)

	_, err := store.DB().ExecContext(context.Background(),
		`UPDATE grades SET value = 25 WHERE evaluation_id = 'ev-web-ex'`)
	require.Error(t, err)
	assert.True(t, IsConstraint(err))
	assert.False(t, IsBusy(err))
}

func TestGetEnrollment_UnknownEvaluationKind(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	_, err := store.DB().ExecContext(ctx, `UPDATE evaluations SET kind = 'QCM' WHERE id = 'ev-web-ex'`)
	require.NoError(t, err)

	_, err = repo.GetEnrollment(ctx, "enr-cur")
	require.Error(t, err)
	assert.True(t, shared.IsCorruptData(err))
	assert.False(t, shared.IsValidation(err))
}
