package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classtrack/internal/model"
)

// SlotRepository persists time slots. Create and Update run the conflict
// re-check inside a transaction so concurrent callers cannot both pass the
// pre-check and both insert.
type SlotRepository interface {
	SlotSource
	Get(ctx context.Context, id string) (*model.TimeSlot, error)
	Create(ctx context.Context, slot model.TimeSlot) error
	CreateChecked(ctx context.Context, slot model.TimeSlot) error
	UpdateChecked(ctx context.Context, slot model.TimeSlot) error
	SetActive(ctx context.Context, id string, active bool) error
	ListByTeacher(ctx context.Context, teacherID string) ([]model.TimeSlot, error)
}

const slotColumns = `id, teacher_id, class_id, subject_id, period_id, day_of_week, start_time, end_time, room, active, created_at, updated_at`

// Repository is the Postgres-backed SlotRepository.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanSlot(row interface{ Scan(...any) error }) (model.TimeSlot, error) {
	var s model.TimeSlot
	err := row.Scan(&s.ID, &s.TeacherID, &s.ClassID, &s.SubjectID, &s.PeriodID,
		&s.DayOfWeek, &s.StartTime, &s.EndTime, &s.Room, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ActiveSlots returns the active slots sharing a day of week and academic
// period, the scope of every conflict scan.
func (r *Repository) ActiveSlots(ctx context.Context, dayOfWeek int, periodID string) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE active AND day_of_week = $1 AND period_id = $2
		ORDER BY start_time, id
	`, dayOfWeek, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Get returns a slot by id, or nil when missing.
func (r *Repository) Get(ctx context.Context, id string) (*model.TimeSlot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = $1`, id)
	s, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a slot without the transactional conflict guard. The bulk
// creation path uses it after its batch-wide pre-check.
func (r *Repository) Create(ctx context.Context, slot model.TimeSlot) error {
	return insertSlot(ctx, r.db, slot)
}

// CreateChecked inserts a slot under an advisory lock scoped to the slot's
// day and period, re-running the conflict scan inside the transaction.
func (r *Repository) CreateChecked(ctx context.Context, slot model.TimeSlot) error {
	return r.guarded(ctx, slot, "", func(tx *sql.Tx) error {
		return insertSlot(ctx, tx, slot)
	})
}

// UpdateChecked rewrites a slot's fields under the same guard, excluding
// the slot itself from the scan.
func (r *Repository) UpdateChecked(ctx context.Context, slot model.TimeSlot) error {
	return r.guarded(ctx, slot, slot.ID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE time_slots
			SET teacher_id = $2, class_id = $3, subject_id = $4, period_id = $5,
			    day_of_week = $6, start_time = $7, end_time = $8, room = $9,
			    active = $10, updated_at = $11
			WHERE id = $1
		`, slot.ID, slot.TeacherID, slot.ClassID, slot.SubjectID, slot.PeriodID,
			slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Room, slot.Active, slot.UpdatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.NotFound("time slot %s not found", slot.ID)
		}
		return nil
	})
}

// guarded serializes writers on the (day, period) scan scope, repeats the
// overlap scan against committed state and then applies fn.
func (r *Repository) guarded(ctx context.Context, slot model.TimeSlot, excludeID string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	lockKey := fmt.Sprintf("time_slots:%s:%d", slot.PeriodID, slot.DayOfWeek)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE active AND day_of_week = $1 AND period_id = $2
		ORDER BY start_time, id
	`, slot.DayOfWeek, slot.PeriodID)
	if err != nil {
		return err
	}
	var existing []model.TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	cand := Candidate{
		TeacherID: slot.TeacherID, ClassID: slot.ClassID,
		PeriodID: slot.PeriodID, DayOfWeek: slot.DayOfWeek,
		Start: slot.StartTime, End: slot.EndTime,
	}
	if hit := FindConflict(existing, cand, excludeID); hit != nil {
		return model.Conflict("%s", hit.Reason)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSlot(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, slot model.TimeSlot) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO time_slots (`+slotColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, slot.ID, slot.TeacherID, slot.ClassID, slot.SubjectID, slot.PeriodID,
		slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Room, slot.Active,
		slot.CreatedAt, slot.UpdatedAt)
	return err
}

// SetActive flips the active flag; deactivation removes the slot from
// every future conflict scan.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE time_slots SET active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("time slot %s not found", id)
	}
	return nil
}

// ListByTeacher returns all slots assigned to a teacher.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE teacher_id = $1
		ORDER BY day_of_week, start_time
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
