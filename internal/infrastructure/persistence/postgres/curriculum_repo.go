package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
	"github.com/campus-hub/grade-engine/internal/infrastructure/persistence/snapshot"
	"github.com/campus-hub/grade-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CurriculumRepository implements curriculum.Repository for PostgreSQL.
// Each call reads inside one repeatable-read transaction so the engine
// never sees half of a grade import.
type CurriculumRepository struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewCurriculumRepository creates a new CurriculumRepository.
func NewCurriculumRepository(conn *Connection) *CurriculumRepository {
	return &CurriculumRepository{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// Compile-time check.
var _ curriculum.Repository = (*CurriculumRepository)(nil)

// Ping checks the pool.
func (r *CurriculumRepository) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

// GetEnrollment returns an enrollment with its structure and grades.
func (r *CurriculumRepository) GetEnrollment(ctx context.Context, enrollmentID string) (*curriculum.Enrollment, error) {
	return readTx(ctx, r, func(tx pgx.Tx) (*curriculum.Enrollment, error) {
		return loadEnrollment(ctx, tx, enrollmentID)
	})
}

// GetActiveEnrollment returns the enrollment of the current academic year,
// or the latest one when none is flagged current.
func (r *CurriculumRepository) GetActiveEnrollment(ctx context.Context, studentID string) (*curriculum.Enrollment, error) {
	return readTx(ctx, r, func(tx pgx.Tx) (*curriculum.Enrollment, error) {
		var enrollmentID string
		err := tx.QueryRow(ctx, `
			SELECT e.id
			FROM enrollments e
			LEFT JOIN academic_years ay ON ay.label = e.academic_year
			WHERE e.student_id = $1
			ORDER BY COALESCE(ay.is_current, FALSE) DESC, e.academic_year DESC
			LIMIT 1
		`, studentID).Scan(&enrollmentID)
		if err != nil {
			if IsNoRows(err) {
				return nil, shared.ErrNoEnrollment
			}
			return nil, fmt.Errorf("failed to resolve active enrollment: %w", err)
		}
		return loadEnrollment(ctx, tx, enrollmentID)
	})
}

// GetStudent returns a student with the target domain and its skills.
func (r *CurriculumRepository) GetStudent(ctx context.Context, studentID string) (*curriculum.Student, error) {
	return readTx(ctx, r, func(tx pgx.Tx) (*curriculum.Student, error) {
		return loadStudent(ctx, tx, studentID)
	})
}

// readTx runs fn in a snapshot transaction, retrying transient failures.
func readTx[T any](ctx context.Context, r *CurriculumRepository, fn func(pgx.Tx) (T, error)) (T, error) {
	return retry.DoWithData(ctx, r.retrier, func(ctx context.Context) (T, error) {
		var out T
		err := r.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
			var err error
			out, err = fn(tx)
			return err
		})
		if IsTransient(err) {
			return out, retry.Retryable(err)
		}
		return out, err
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Loaders
// ─────────────────────────────────────────────────────────────────────────────

func loadEnrollment(ctx context.Context, q Querier, enrollmentID string) (*curriculum.Enrollment, error) {
	e := &curriculum.Enrollment{Grades: []curriculum.Grade{}}
	var structureID *string

	err := q.QueryRow(ctx, `
		SELECT e.id, e.student_id, s.full_name, e.academic_year, e.structure_id
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		WHERE e.id = $1
	`, enrollmentID).Scan(&e.ID, &e.StudentID, &e.StudentName, &e.AcademicYear, &structureID)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if structureID != nil {
		e.Structure, err = loadStructure(ctx, q, *structureID)
		if err != nil {
			return nil, err
		}
	}

	rows, err := q.Query(ctx, `
		SELECT evaluation_id, value
		FROM grades
		WHERE enrollment_id = $1
		ORDER BY evaluation_id
	`, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g curriculum.Grade
		if err := rows.Scan(&g.EvaluationID, &g.Value); err != nil {
			return nil, fmt.Errorf("failed to scan grade: %w", err)
		}
		e.Grades = append(e.Grades, g)
	}

	return e, rows.Err()
}

func loadStructure(ctx context.Context, q Querier, structureID string) (*curriculum.ProgramStructure, error) {
	var code, name, level string
	err := q.QueryRow(ctx, `
		SELECT code, name, COALESCE(level, '')
		FROM program_structures
		WHERE id = $1
	`, structureID).Scan(&code, &name, &level)
	if err != nil {
		return nil, fmt.Errorf("failed to get program structure %s: %w", structureID, err)
	}
	b := snapshot.NewStructureBuilder(structureID, code, name, level)

	units, err := q.Query(ctx, `
		SELECT id, code, name, credits
		FROM program_units
		WHERE structure_id = $1
		ORDER BY position, code
	`, structureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer units.Close()
	for units.Next() {
		var u snapshot.UnitRow
		if err := units.Scan(&u.ID, &u.Code, &u.Name, &u.Credits); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		b.AddUnit(u)
	}
	if err := units.Err(); err != nil {
		return nil, err
	}

	courses, err := q.Query(ctx, `
		SELECT c.id, c.unit_id, c.code, c.name, c.coefficient,
		       c.weight_assignment, c.weight_lab, c.weight_exam, c.weight_project
		FROM courses c
		JOIN program_units u ON u.id = c.unit_id
		WHERE u.structure_id = $1
		ORDER BY u.position, u.code, c.position, c.code
	`, structureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer courses.Close()
	for courses.Next() {
		c, err := scanCourse(courses)
		if err != nil {
			return nil, err
		}
		if err := b.AddCourse(c); err != nil {
			return nil, err
		}
	}
	if err := courses.Err(); err != nil {
		return nil, err
	}

	evals, err := q.Query(ctx, `
		SELECT ev.id, ev.course_id, ev.name, ev.kind
		FROM evaluations ev
		JOIN courses c ON c.id = ev.course_id
		JOIN program_units u ON u.id = c.unit_id
		WHERE u.structure_id = $1
		ORDER BY ev.position, ev.id
	`, structureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer evals.Close()
	for evals.Next() {
		var ev snapshot.EvaluationRow
		if err := evals.Scan(&ev.ID, &ev.CourseID, &ev.Name, &ev.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		if err := b.AddEvaluation(ev); err != nil {
			return nil, err
		}
	}
	if err := evals.Err(); err != nil {
		return nil, err
	}

	return b.Build(), nil
}

func loadStudent(ctx context.Context, q Querier, studentID string) (*curriculum.Student, error) {
	s := &curriculum.Student{}
	var domainID, domainName, domainDesc *string

	err := q.QueryRow(ctx, `
		SELECT s.id, s.full_name, d.id, d.name, d.description
		FROM students s
		LEFT JOIN target_domains d ON d.id = s.target_domain_id
		WHERE s.id = $1
	`, studentID).Scan(&s.ID, &s.FullName, &domainID, &domainName, &domainDesc)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if domainID == nil {
		return s, nil
	}

	b := snapshot.NewDomainBuilder(*domainID, deref(domainName), deref(domainDesc))

	skills, err := q.Query(ctx, `
		SELECT sk.id, sk.name
		FROM domain_skills ds
		JOIN skills sk ON sk.id = ds.skill_id
		WHERE ds.domain_id = $1
		ORDER BY ds.position, sk.name
	`, *domainID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}
	defer skills.Close()
	for skills.Next() {
		var sk snapshot.SkillRow
		if err := skills.Scan(&sk.ID, &sk.Name); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		b.AddSkill(sk)
	}
	if err := skills.Err(); err != nil {
		return nil, err
	}

	courses, err := q.Query(ctx, `
		SELECT sc.skill_id, c.id, c.code, c.name, c.coefficient,
		       c.weight_assignment, c.weight_lab, c.weight_exam, c.weight_project
		FROM skill_courses sc
		JOIN domain_skills ds ON ds.skill_id = sc.skill_id
		JOIN courses c ON c.id = sc.course_id
		WHERE ds.domain_id = $1
		ORDER BY c.code
	`, *domainID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skill courses: %w", err)
	}
	defer courses.Close()
	for courses.Next() {
		var skillID string
		var c snapshot.CourseRow
		if err := courses.Scan(&skillID, &c.ID, &c.Code, &c.Name, &c.Coefficient,
			&c.Weights.Assignment, &c.Weights.Lab, &c.Weights.Exam, &c.Weights.Project); err != nil {
			return nil, fmt.Errorf("failed to scan skill course: %w", err)
		}
		if err := b.AddSkillCourse(skillID, c); err != nil {
			return nil, err
		}
	}
	if err := courses.Err(); err != nil {
		return nil, err
	}

	evals, err := q.Query(ctx, `
		SELECT ev.id, ev.course_id, ev.name, ev.kind
		FROM evaluations ev
		WHERE ev.course_id IN (
			SELECT sc.course_id
			FROM skill_courses sc
			JOIN domain_skills ds ON ds.skill_id = sc.skill_id
			WHERE ds.domain_id = $1
		)
		ORDER BY ev.position, ev.id
	`, *domainID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skill evaluations: %w", err)
	}
	defer evals.Close()
	for evals.Next() {
		var ev snapshot.EvaluationRow
		if err := evals.Scan(&ev.ID, &ev.CourseID, &ev.Name, &ev.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan skill evaluation: %w", err)
		}
		if err := b.AddEvaluation(ev); err != nil {
			return nil, err
		}
	}
	if err := evals.Err(); err != nil {
		return nil, err
	}

	s.Domain = b.Build()
	return s, nil
}

func scanCourse(row pgx.Row) (snapshot.CourseRow, error) {
	var c snapshot.CourseRow
	if err := row.Scan(&c.ID, &c.UnitID, &c.Code, &c.Name, &c.Coefficient,
		&c.Weights.Assignment, &c.Weights.Lab, &c.Weights.Exam, &c.Weights.Project); err != nil {
		return c, fmt.Errorf("failed to scan course: %w", err)
	}
	return c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
