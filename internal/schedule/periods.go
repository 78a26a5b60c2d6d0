package schedule

import (
	"context"
	"database/sql"

	"classtrack/internal/model"
)

// PeriodRepository persists academic periods, the containers that scope
// conflict checks.
type PeriodRepository struct {
	db *sql.DB
}

// NewPeriodRepository creates a repo.
func NewPeriodRepository(db *sql.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Create inserts a period.
func (r *PeriodRepository) Create(ctx context.Context, p model.AcademicPeriod) error {
	if !p.EndDate.After(p.StartDate) {
		return model.Invalid("period end date must be after start date")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO academic_periods (id, name, start_date, end_date, active)
		VALUES ($1,$2,$3,$4,$5)
	`, p.ID, p.Name, p.StartDate, p.EndDate, p.Active)
	return err
}

// List returns all periods, optionally only active ones.
func (r *PeriodRepository) List(ctx context.Context, activeOnly bool) ([]model.AcademicPeriod, error) {
	query := `SELECT id, name, start_date, end_date, active FROM academic_periods`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY start_date DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AcademicPeriod
	for rows.Next() {
		var p model.AcademicPeriod
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Active); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
