package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campus-hub/grade-engine/internal/domain/curriculum"
	"github.com/campus-hub/grade-engine/internal/domain/shared"
	"github.com/campus-hub/grade-engine/internal/infrastructure/persistence/snapshot"
	"github.com/campus-hub/grade-engine/pkg/retry"
)

// CurriculumRepository implements curriculum.Repository for SQLite.
type CurriculumRepository struct {
	store   *Store
	retrier *retry.Retrier
}

// NewCurriculumRepository creates a new CurriculumRepository.
func NewCurriculumRepository(store *Store) *CurriculumRepository {
	return &CurriculumRepository{
		store:   store,
		retrier: retry.DatabaseRetrier(),
	}
}

// Compile-time check.
var _ curriculum.Repository = (*CurriculumRepository)(nil)

// Ping checks the database handle.
func (r *CurriculumRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// GetEnrollment returns an enrollment with its structure and grades.
func (r *CurriculumRepository) GetEnrollment(ctx context.Context, enrollmentID string) (*curriculum.Enrollment, error) {
	return readTx(ctx, r, func(tx *sql.Tx) (*curriculum.Enrollment, error) {
		return loadEnrollment(ctx, tx, enrollmentID)
	})
}

// GetActiveEnrollment returns the enrollment of the current academic year,
// or the latest one when none is flagged current.
func (r *CurriculumRepository) GetActiveEnrollment(ctx context.Context, studentID string) (*curriculum.Enrollment, error) {
	return readTx(ctx, r, func(tx *sql.Tx) (*curriculum.Enrollment, error) {
		var enrollmentID string
		err := tx.QueryRowContext(ctx, `
			SELECT e.id
			FROM enrollments e
			LEFT JOIN academic_years ay ON ay.label = e.academic_year
			WHERE e.student_id = ?
			ORDER BY COALESCE(ay.is_current, 0) DESC, e.academic_year DESC
			LIMIT 1
		`, studentID).Scan(&enrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, shared.ErrNoEnrollment
			}
			return nil, fmt.Errorf("failed to resolve active enrollment: %w", err)
		}
		return loadEnrollment(ctx, tx, enrollmentID)
	})
}

// GetStudent returns a student with the target domain and its skills.
func (r *CurriculumRepository) GetStudent(ctx context.Context, studentID string) (*curriculum.Student, error) {
	return readTx(ctx, r, func(tx *sql.Tx) (*curriculum.Student, error) {
		return loadStudent(ctx, tx, studentID)
	})
}

// readTx runs fn in a read-only transaction and retries on SQLITE_BUSY.
func readTx[T any](ctx context.Context, r *CurriculumRepository, fn func(*sql.Tx) (T, error)) (T, error) {
	return retry.DoWithData(ctx, r.retrier, func(ctx context.Context) (T, error) {
		var zero T
		tx, err := r.store.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return zero, classify(err)
		}
		defer func() { _ = tx.Rollback() }()

		out, err := fn(tx)
		if err != nil {
			return zero, classify(err)
		}
		return out, nil
	})
}

func classify(err error) error {
	if IsBusy(err) {
		return retry.Retryable(err)
	}
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Loaders
// ─────────────────────────────────────────────────────────────────────────────

func loadEnrollment(ctx context.Context, tx *sql.Tx, enrollmentID string) (*curriculum.Enrollment, error) {
	e := &curriculum.Enrollment{Grades: []curriculum.Grade{}}
	var structureID sql.NullString

	err := tx.QueryRowContext(ctx, `
		SELECT e.id, e.student_id, s.full_name, e.academic_year, e.structure_id
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		WHERE e.id = ?
	`, enrollmentID).Scan(&e.ID, &e.StudentID, &e.StudentName, &e.AcademicYear, &structureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if structureID.Valid {
		e.Structure, err = loadStructure(ctx, tx, structureID.String)
		if err != nil {
			return nil, err
		}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT evaluation_id, value
		FROM grades
		WHERE enrollment_id = ?
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

func loadStructure(ctx context.Context, tx *sql.Tx, structureID string) (*curriculum.ProgramStructure, error) {
	var code, name string
	var level sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT code, name, level FROM program_structures WHERE id = ?
	`, structureID).Scan(&code, &name, &level)
	if err != nil {
		return nil, fmt.Errorf("failed to get program structure %s: %w", structureID, err)
	}
	b := snapshot.NewStructureBuilder(structureID, code, name, level.String)

	err = each(ctx, tx, `
		SELECT id, code, name, credits
		FROM program_units
		WHERE structure_id = ?
		ORDER BY position, code
	`, structureID, func(rows *sql.Rows) error {
		var u snapshot.UnitRow
		if err := rows.Scan(&u.ID, &u.Code, &u.Name, &u.Credits); err != nil {
			return fmt.Errorf("failed to scan unit: %w", err)
		}
		b.AddUnit(u)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = each(ctx, tx, `
		SELECT c.id, c.unit_id, c.code, c.name, c.coefficient,
		       c.weight_assignment, c.weight_lab, c.weight_exam, c.weight_project
		FROM courses c
		JOIN program_units u ON u.id = c.unit_id
		WHERE u.structure_id = ?
		ORDER BY u.position, u.code, c.position, c.code
	`, structureID, func(rows *sql.Rows) error {
		var c snapshot.CourseRow
		if err := rows.Scan(&c.ID, &c.UnitID, &c.Code, &c.Name, &c.Coefficient,
			&c.Weights.Assignment, &c.Weights.Lab, &c.Weights.Exam, &c.Weights.Project); err != nil {
			return fmt.Errorf("failed to scan course: %w", err)
		}
		return b.AddCourse(c)
	})
	if err != nil {
		return nil, err
	}

	err = each(ctx, tx, `
		SELECT ev.id, ev.course_id, ev.name, ev.kind
		FROM evaluations ev
		JOIN courses c ON c.id = ev.course_id
		JOIN program_units u ON u.id = c.unit_id
		WHERE u.structure_id = ?
		ORDER BY ev.position, ev.id
	`, structureID, func(rows *sql.Rows) error {
		var ev snapshot.EvaluationRow
		if err := rows.Scan(&ev.ID, &ev.CourseID, &ev.Name, &ev.Kind); err != nil {
			return fmt.Errorf("failed to scan evaluation: %w", err)
		}
		return b.AddEvaluation(ev)
	})
	if err != nil {
		return nil, err
	}

	return b.Build(), nil
}

func loadStudent(ctx context.Context, tx *sql.Tx, studentID string) (*curriculum.Student, error) {
	s := &curriculum.Student{}
	var domainID, domainName, domainDesc sql.NullString

	err := tx.QueryRowContext(ctx, `
		SELECT s.id, s.full_name, d.id, d.name, d.description
		FROM students s
		LEFT JOIN target_domains d ON d.id = s.target_domain_id
		WHERE s.id = ?
	`, studentID).Scan(&s.ID, &s.FullName, &domainID, &domainName, &domainDesc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if !domainID.Valid {
		return s, nil
	}

	b := snapshot.NewDomainBuilder(domainID.String, domainName.String, domainDesc.String)

	err = each(ctx, tx, `
		SELECT sk.id, sk.name
		FROM domain_skills ds
		JOIN skills sk ON sk.id = ds.skill_id
		WHERE ds.domain_id = ?
		ORDER BY ds.position, sk.name
	`, domainID.String, func(rows *sql.Rows) error {
		var sk snapshot.SkillRow
		if err := rows.Scan(&sk.ID, &sk.Name); err != nil {
			return fmt.Errorf("failed to scan skill: %w", err)
		}
		b.AddSkill(sk)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = each(ctx, tx, `
		SELECT sc.skill_id, c.id, c.code, c.name, c.coefficient,
		       c.weight_assignment, c.weight_lab, c.weight_exam, c.weight_project
		FROM skill_courses sc
		JOIN domain_skills ds ON ds.skill_id = sc.skill_id
		JOIN courses c ON c.id = sc.course_id
		WHERE ds.domain_id = ?
		ORDER BY c.code
	`, domainID.String, func(rows *sql.Rows) error {
		var skillID string
		var c snapshot.CourseRow
		if err := rows.Scan(&skillID, &c.ID, &c.Code, &c.Name, &c.Coefficient,
			&c.Weights.Assignment, &c.Weights.Lab, &c.Weights.Exam, &c.Weights.Project); err != nil {
			return fmt.Errorf("failed to scan skill course: %w", err)
		}
		return b.AddSkillCourse(skillID, c)
	})
	if err != nil {
		return nil, err
	}

	err = each(ctx, tx, `
		SELECT ev.id, ev.course_id, ev.name, ev.kind
		FROM evaluations ev
		WHERE ev.course_id IN (
			SELECT sc.course_id
			FROM skill_courses sc
			JOIN domain_skills ds ON ds.skill_id = sc.skill_id
			WHERE ds.domain_id = ?
		)
		ORDER BY ev.position, ev.id
	`, domainID.String, func(rows *sql.Rows) error {
		var ev snapshot.EvaluationRow
		if err := rows.Scan(&ev.ID, &ev.CourseID, &ev.Name, &ev.Kind); err != nil {
			return fmt.Errorf("failed to scan skill evaluation: %w", err)
		}
		return b.AddEvaluation(ev)
	})
	if err != nil {
		return nil, err
	}

	s.Domain = b.Build()
	return s, nil
}

// each runs query and calls fn for every row.
func each(ctx context.Context, tx *sql.Tx, query string, arg any, fn func(*sql.Rows) error) error {
	rows, err := tx.QueryContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
