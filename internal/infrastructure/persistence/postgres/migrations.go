package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insert := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insert, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var last int
	for v := range applied {
		last = max(last, v)
	}
	if last == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		del := fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName)
		_, err := tx.Exec(ctx, del, last)
		return err
	})
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}

	return result, nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_curriculum", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_enrollments", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_career_goals", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CURRICULUM
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS academic_years (
    label VARCHAR(9) PRIMARY KEY,
    is_current BOOLEAN NOT NULL DEFAULT FALSE,
    CONSTRAINT valid_label CHECK (label ~ '^[0-9]{4}-[0-9]{4}$')
);

-- At most one current year
CREATE UNIQUE INDEX IF NOT EXISTS idx_academic_years_current
    ON academic_years(is_current) WHERE is_current;

CREATE TABLE IF NOT EXISTS program_structures (
    id TEXT PRIMARY KEY,
    code VARCHAR(30) NOT NULL UNIQUE,
    name VARCHAR(200) NOT NULL,
    level VARCHAR(20)
);

CREATE TABLE IF NOT EXISTS program_units (
    id TEXT PRIMARY KEY,
    structure_id TEXT NOT NULL REFERENCES program_structures(id) ON DELETE CASCADE,
    code VARCHAR(30) NOT NULL,
    name VARCHAR(200) NOT NULL,
    credits DOUBLE PRECISION NOT NULL DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0,
    CONSTRAINT valid_credits CHECK (credits >= 0)
);

CREATE INDEX IF NOT EXISTS idx_program_units_structure ON program_units(structure_id, position);

CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL REFERENCES program_units(id) ON DELETE CASCADE,
    code VARCHAR(30) NOT NULL,
    name VARCHAR(200) NOT NULL,
    coefficient DOUBLE PRECISION NOT NULL DEFAULT 1,
    weight_assignment DOUBLE PRECISION NOT NULL DEFAULT 0,
    weight_lab DOUBLE PRECISION NOT NULL DEFAULT 0,
    weight_exam DOUBLE PRECISION NOT NULL DEFAULT 1,
    weight_project DOUBLE PRECISION NOT NULL DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0,
    CONSTRAINT valid_coefficient CHECK (coefficient >= 0),
    CONSTRAINT valid_weights CHECK (
        weight_assignment >= 0 AND weight_lab >= 0 AND weight_exam >= 0 AND weight_project >= 0
    )
);

CREATE INDEX IF NOT EXISTS idx_courses_unit ON courses(unit_id, position);

CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    name VARCHAR(200) NOT NULL,
    kind VARCHAR(20) NOT NULL,
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_evaluations_course ON evaluations(course_id, position);
`

const migration001Down = `
DROP TABLE IF EXISTS evaluations;
DROP TABLE IF EXISTS courses;
DROP TABLE IF EXISTS program_units;
DROP TABLE IF EXISTS program_structures;
DROP TABLE IF EXISTS academic_years;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: STUDENTS, ENROLLMENTS, GRADES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    full_name VARCHAR(200) NOT NULL,
    target_domain_id TEXT
);

CREATE TABLE IF NOT EXISTS enrollments (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    structure_id TEXT REFERENCES program_structures(id) ON DELETE SET NULL,
    academic_year VARCHAR(9) NOT NULL REFERENCES academic_years(label),
    CONSTRAINT one_enrollment_per_year UNIQUE (student_id, academic_year)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id, academic_year DESC);

CREATE TABLE IF NOT EXISTS grades (
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    evaluation_id TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    value DOUBLE PRECISION NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (enrollment_id, evaluation_id),
    CONSTRAINT valid_grade CHECK (value >= 0 AND value <= 20)
);
`

const migration002Down = `
DROP TABLE IF EXISTS grades;
DROP TABLE IF EXISTS enrollments;
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CAREER GOALS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS target_domains (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL UNIQUE,
    description TEXT
);

CREATE TABLE IF NOT EXISTS skills (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS domain_skills (
    domain_id TEXT NOT NULL REFERENCES target_domains(id) ON DELETE CASCADE,
    skill_id TEXT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (domain_id, skill_id)
);

CREATE TABLE IF NOT EXISTS skill_courses (
    skill_id TEXT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    PRIMARY KEY (skill_id, course_id)
);

ALTER TABLE students
    ADD CONSTRAINT fk_students_target_domain
    FOREIGN KEY (target_domain_id) REFERENCES target_domains(id) ON DELETE SET NULL;
`

const migration003Down = `
ALTER TABLE students DROP CONSTRAINT IF EXISTS fk_students_target_domain;
DROP TABLE IF EXISTS skill_courses;
DROP TABLE IF EXISTS domain_skills;
DROP TABLE IF EXISTS skills;
DROP TABLE IF EXISTS target_domains;
`
