// Package sqlite implements the embedded curriculum store on mattn/go-sqlite3.
// It reads the same layout as the PostgreSQL store and is meant for local
// runs, offline exports of the registrar database and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrMigrationFailed indicates a migration failure.
var ErrMigrationFailed = errors.New("sqlite: migration failed")

// Store wraps a database/sql handle on a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path with foreign keys enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies pending schema versions. The applied version is kept
// in PRAGMA user_version.
func (s *Store) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("%w: read user_version: %w", ErrMigrationFailed, err)
	}

	for i, stmt := range migrations {
		version := i + 1
		if version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, version, err)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, version, err)
		}
		// PRAGMA does not accept bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, version, err)
		}
	}

	return nil
}

// SchemaVersion returns the number of applied migrations.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

// IsBusy reports lock contention that is worth retrying.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// IsConstraint reports a constraint violation (CHECK, UNIQUE, FOREIGN KEY).
func IsConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

var migrations = []string{
	// 1: curriculum
	`
CREATE TABLE IF NOT EXISTS academic_years (
    label TEXT PRIMARY KEY
        CHECK (label GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9][0-9][0-9]'),
    is_current INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_academic_years_current
    ON academic_years(is_current) WHERE is_current = 1;

CREATE TABLE IF NOT EXISTS program_structures (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    level TEXT
);

CREATE TABLE IF NOT EXISTS program_units (
    id TEXT PRIMARY KEY,
    structure_id TEXT NOT NULL REFERENCES program_structures(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    credits REAL NOT NULL DEFAULT 0 CHECK (credits >= 0),
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_program_units_structure ON program_units(structure_id, position);

CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL REFERENCES program_units(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    coefficient REAL NOT NULL DEFAULT 1 CHECK (coefficient >= 0),
    weight_assignment REAL NOT NULL DEFAULT 0 CHECK (weight_assignment >= 0),
    weight_lab REAL NOT NULL DEFAULT 0 CHECK (weight_lab >= 0),
    weight_exam REAL NOT NULL DEFAULT 1 CHECK (weight_exam >= 0),
    weight_project REAL NOT NULL DEFAULT 0 CHECK (weight_project >= 0),
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_courses_unit ON courses(unit_id, position);

CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_evaluations_course ON evaluations(course_id, position);
`,
	// 2: students, enrollments, grades
	`
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    target_domain_id TEXT
);

CREATE TABLE IF NOT EXISTS enrollments (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    structure_id TEXT REFERENCES program_structures(id) ON DELETE SET NULL,
    academic_year TEXT NOT NULL REFERENCES academic_years(label),
    UNIQUE (student_id, academic_year)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_student ON enrollments(student_id, academic_year);

CREATE TABLE IF NOT EXISTS grades (
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    evaluation_id TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
    value REAL NOT NULL CHECK (value >= 0 AND value <= 20),
    recorded_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (enrollment_id, evaluation_id)
);
`,
	// 3: career goals
	`
CREATE TABLE IF NOT EXISTS target_domains (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT
);

CREATE TABLE IF NOT EXISTS skills (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
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
`,
}
