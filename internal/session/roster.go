package session

import (
	"context"
	"database/sql"
)

// PostgresRoster reads current enrollment from the enrollments table.
type PostgresRoster struct {
	db *sql.DB
}

// NewPostgresRoster creates a roster provider.
func NewPostgresRoster(db *sql.DB) *PostgresRoster {
	return &PostgresRoster{db: db}
}

// EnrolledStudents returns the ids of students actively enrolled in a
// class right now.
func (r *PostgresRoster) EnrolledStudents(ctx context.Context, classID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM enrollments WHERE class_id = $1 AND active ORDER BY student_id
	`, classID)
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
