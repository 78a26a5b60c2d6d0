package store

import (
	"context"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent so the server can
// run them on every boot.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS academic_periods (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS time_slots (
			id UUID PRIMARY KEY,
			teacher_id TEXT NOT NULL,
			class_id TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			period_id UUID NOT NULL REFERENCES academic_periods(id),
			day_of_week SMALLINT NOT NULL CHECK (day_of_week BETWEEN 1 AND 7),
			start_time TIME NOT NULL,
			end_time TIME NOT NULL,
			room TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (end_time > start_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_time_slots_scan
			ON time_slots (period_id, day_of_week) WHERE active`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			class_id TEXT NOT NULL,
			student_id TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (class_id, student_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			slot_id UUID NOT NULL REFERENCES time_slots(id),
			session_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'ongoing',
			note TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ,
			UNIQUE (slot_id, session_date)
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_records (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id),
			student_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'absent',
			check_in_time TIMESTAMPTZ,
			method TEXT,
			confidence DOUBLE PRECISION,
			marked_by TEXT,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (session_id, student_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_student
			ON attendance_records (student_id)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
