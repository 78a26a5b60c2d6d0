package model

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionOngoing, SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// CanTransition is the explicit transition table. The only legal moves are
// ongoing -> completed and ongoing -> cancelled; terminal states admit
// nothing, including a transition to the same value.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionOngoing:
		return next == SessionCompleted || next == SessionCancelled
	default:
		return false
	}
}

// AttendanceStatus is the outcome recorded for one student in one session.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
	StatusExcused AttendanceStatus = "excused"
)

// Valid reports whether the status is one of the four supported values.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts toward the attendance rate.
func (s AttendanceStatus) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// MarkMethod distinguishes teacher marking from student self-service check-in.
type MarkMethod string

const (
	MethodManual      MarkMethod = "manual"
	MethodSelfService MarkMethod = "self_service"
)

// Valid reports whether the method is a known value. The empty string is
// accepted on check-in and defaulted to self_service.
func (m MarkMethod) Valid() bool {
	return m == MethodManual || m == MethodSelfService
}
