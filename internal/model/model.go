package model

import (
	"time"
)

// TimeSlot is a recurring weekly teaching assignment owned by the
// administrative domain. DayOfWeek follows ISO numbering (1 = Monday .. 7 = Sunday).
type TimeSlot struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	ClassID   string    `json:"class_id"`
	SubjectID string    `json:"subject_id"`
	PeriodID  string    `json:"period_id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Room      string    `json:"room"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is one dated occurrence of a TimeSlot. It is created by the
// owning teacher and mutated only through status transitions.
type Session struct {
	ID          string        `json:"id"`
	SlotID      string        `json:"slot_id"`
	Date        time.Time     `json:"date"`
	Status      SessionStatus `json:"status"`
	Note        string        `json:"note,omitempty"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// AttendanceRecord is one student's attendance outcome for one session.
// Rows are provisioned from the roster snapshot at session creation and
// never added or removed afterwards.
type AttendanceRecord struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"session_id"`
	StudentID   string           `json:"student_id"`
	Status      AttendanceStatus `json:"status"`
	CheckInTime *time.Time       `json:"check_in_time,omitempty"`
	Method      MarkMethod       `json:"method,omitempty"`
	Confidence  *float64         `json:"confidence,omitempty"`
	MarkedBy    *string          `json:"marked_by,omitempty"`
	Note        string           `json:"note,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// AcademicPeriod is a date-bounded container scoping which TimeSlots may
// conflict with one another.
type AcademicPeriod struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Active    bool      `json:"active"`
}
