package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classtrack/internal/model"
)

// SessionRepository persists sessions and their provisioned attendance
// rows. Create is atomic: the duplicate check, the session insert and the
// row inserts either all commit or none do.
type SessionRepository interface {
	Create(ctx context.Context, sess model.Session, records []model.AttendanceRecord) error
	Get(ctx context.Context, id string) (*model.Session, error)
	SetStatus(ctx context.Context, id string, status model.SessionStatus, completedAt time.Time) error
	ListBySlot(ctx context.Context, slotID string) ([]model.Session, error)
}

const sessionColumns = `id, slot_id, session_date, status, note, created_by, created_at, completed_at`

// Repository is the Postgres-backed SessionRepository.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the session and its attendance rows in one transaction.
// An advisory lock on the slot id serializes concurrent creations so two
// callers cannot both pass the duplicate-date check; the UNIQUE
// (slot_id, session_date) constraint backstops the lock.
func (r *Repository) Create(ctx context.Context, sess model.Session, records []model.AttendanceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "sessions:"+sess.SlotID); err != nil {
		return err
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sessions WHERE slot_id = $1 AND session_date = $2)
	`, sess.SlotID, sess.Date).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return model.Conflict("session already exists for this slot on %s", sess.Date.Format("2006-01-02"))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sess.ID, sess.SlotID, sess.Date, sess.Status, sess.Note, sess.CreatedBy, sess.CreatedAt, sess.CompletedAt); err != nil {
		if model.IsUniqueViolation(err) {
			return model.Conflict("session already exists for this slot on %s", sess.Date.Format("2006-01-02"))
		}
		return err
	}

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (id, session_id, student_id, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, rec.ID, rec.SessionID, rec.StudentID, rec.Status, rec.CreatedAt, rec.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get returns a session by id, or nil when missing.
func (r *Repository) Get(ctx context.Context, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	var s model.Session
	if err := row.Scan(&s.ID, &s.SlotID, &s.Date, &s.Status, &s.Note, &s.CreatedBy, &s.CreatedAt, &s.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SetStatus stamps the transition target and completion time.
func (r *Repository) SetStatus(ctx context.Context, id string, status model.SessionStatus, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = $2, completed_at = $3 WHERE id = $1
	`, id, status, completedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("session %s not found", id)
	}
	return nil
}

// ListBySlot returns the sessions instantiated from one slot, newest first.
func (r *Repository) ListBySlot(ctx context.Context, slotID string) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE slot_id = $1 ORDER BY session_date DESC
	`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.SlotID, &s.Date, &s.Status, &s.Note, &s.CreatedBy, &s.CreatedAt, &s.CompletedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
