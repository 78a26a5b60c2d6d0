package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classtrack/internal/model"
)

// Repository is the storage surface the marking engine needs. ApplyMarks
// is atomic across its row set; CheckIn is conditional on the row still
// being absent so a check-in stays one-shot under concurrent callers.
type Repository interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	GetRecord(ctx context.Context, id string) (*model.AttendanceRecord, error)
	GetRecordForStudent(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error)
	RecordsBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	ApplyMarks(ctx context.Context, sessionID string, recs []model.AttendanceRecord) error
	CheckIn(ctx context.Context, rec model.AttendanceRecord) error
}

const recordColumns = `id, session_id, student_id, status, check_in_time, method, confidence, marked_by, note, created_at, updated_at`

// PostgresRepository implements Repository over Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRecord(row interface{ Scan(...any) error }) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	var method sql.NullString
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Status, &rec.CheckInTime,
		&method, &rec.Confidence, &rec.MarkedBy, &rec.Note, &rec.CreatedAt, &rec.UpdatedAt)
	if method.Valid {
		rec.Method = model.MarkMethod(method.String)
	}
	return rec, err
}

// GetSession returns a session by id, or nil when missing.
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slot_id, session_date, status, note, created_by, created_at, completed_at
		FROM sessions WHERE id = $1
	`, id)
	var s model.Session
	if err := row.Scan(&s.ID, &s.SlotID, &s.Date, &s.Status, &s.Note, &s.CreatedBy, &s.CreatedAt, &s.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// GetRecord returns an attendance row by id, or nil when missing.
func (r *PostgresRepository) GetRecord(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// GetRecordForStudent returns the student's row in a session, or nil.
func (r *PostgresRepository) GetRecordForStudent(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// RecordsBySession returns all rows of a session.
func (r *PostgresRepository) RecordsBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE session_id = $1 ORDER BY student_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ApplyMarks writes a batch of rows in one transaction. The owning
// session row is locked and its status re-read first, so a session ended
// by a concurrent caller cannot receive marks.
func (r *PostgresRepository) ApplyMarks(ctx context.Context, sessionID string, recs []model.AttendanceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status model.SessionStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NotFound("session %s not found", sessionID)
		}
		return err
	}
	if status.Terminal() {
		return model.InvalidTransition("session is already %s", status)
	}

	for _, rec := range recs {
		res, err := tx.ExecContext(ctx, `
			UPDATE attendance_records
			SET status = $3, check_in_time = $4, method = $5, confidence = $6,
			    marked_by = $7, note = $8, updated_at = $9
			WHERE id = $1 AND session_id = $2
		`, rec.ID, sessionID, rec.Status, rec.CheckInTime, rec.Method, rec.Confidence,
			rec.MarkedBy, rec.Note, rec.UpdatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.NotFound("attendance record %s not found in session %s", rec.ID, sessionID)
		}
	}
	return tx.Commit()
}

// CheckIn writes a self-service check-in. The update is conditional on
// the row still being absent and the session still ongoing.
func (r *PostgresRepository) CheckIn(ctx context.Context, rec model.AttendanceRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records ar
		SET status = $3, check_in_time = $4, method = $5, confidence = $6,
		    marked_by = NULL, updated_at = $7
		FROM sessions s
		WHERE ar.id = $1 AND ar.session_id = $2
		  AND ar.session_id = s.id AND s.status = 'ongoing'
		  AND ar.status = 'absent'
	`, rec.ID, rec.SessionID, rec.Status, rec.CheckInTime, rec.Method, rec.Confidence, rec.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.Conflict("already checked in")
	}
	return nil
}

// StudentHistory returns a student's rows across non-cancelled sessions
// in a date range, oldest first. Used by reporting.
func (r *PostgresRepository) StudentHistory(ctx context.Context, studentID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedRecordColumns("ar")+`
		FROM attendance_records ar
		JOIN sessions s ON s.id = ar.session_id
		WHERE ar.student_id = $1
		  AND s.status <> 'cancelled'
		  AND s.session_date >= $2 AND s.session_date <= $3
		ORDER BY s.session_date ASC, s.created_at ASC
	`, studentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ClassStudents returns the distinct students holding attendance rows for
// a class in a date range.
func (r *PostgresRepository) ClassStudents(ctx context.Context, classID string, from, to time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ar.student_id
		FROM attendance_records ar
		JOIN sessions s ON s.id = ar.session_id
		JOIN time_slots ts ON ts.id = s.slot_id
		WHERE ts.class_id = $1
		  AND s.session_date >= $2 AND s.session_date <= $3
		ORDER BY ar.student_id
	`, classID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func prefixedRecordColumns(alias string) string {
	return alias + ".id, " + alias + ".session_id, " + alias + ".student_id, " + alias + ".status, " +
		alias + ".check_in_time, " + alias + ".method, " + alias + ".confidence, " +
		alias + ".marked_by, " + alias + ".note, " + alias + ".created_at, " + alias + ".updated_at"
}
