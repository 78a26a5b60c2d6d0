package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/clock"
	"classtrack/internal/metrics"
	"classtrack/internal/model"
)

// Roster resolves the students enrolled in a class at the instant of
// session creation. The snapshot is never recomputed afterwards.
type Roster interface {
	EnrolledStudents(ctx context.Context, classID string) ([]string, error)
}

// SlotGetter narrows the schedule repository to the single read this
// package needs.
type SlotGetter interface {
	Get(ctx context.Context, id string) (*model.TimeSlot, error)
}

// Service owns the session lifecycle: creation with roster snapshot and
// the ongoing -> completed|cancelled transitions.
type Service struct {
	repo   SessionRepository
	slots  SlotGetter
	roster Roster
	clock  clock.Clock
}

// NewService creates a service.
func NewService(repo SessionRepository, slots SlotGetter, roster Roster, clk clock.Clock) *Service {
	return &Service{repo: repo, slots: slots, roster: roster, clock: clk}
}

// CreateSession instantiates a dated session from a slot the teacher owns
// and provisions one absent attendance row per enrolled student. The
// duplicate-date check and the inserts run in one guarded transaction.
func (s *Service) CreateSession(ctx context.Context, slotID string, date time.Time, teacherID, note string) (model.Session, []model.AttendanceRecord, error) {
	slot, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return model.Session{}, nil, err
	}
	if slot == nil || !slot.Active || slot.TeacherID != teacherID {
		return model.Session{}, nil, model.NotFound("no active time slot %s for this teacher", slotID)
	}

	students, err := s.roster.EnrolledStudents(ctx, slot.ClassID)
	if err != nil {
		return model.Session{}, nil, err
	}

	now := s.clock.Now()
	sess := model.Session{
		ID:        uuid.NewString(),
		SlotID:    slotID,
		Date:      truncateToDate(date),
		Status:    model.SessionOngoing,
		Note:      note,
		CreatedBy: teacherID,
		CreatedAt: now,
	}
	records := make([]model.AttendanceRecord, 0, len(students))
	for _, studentID := range students {
		records = append(records, model.AttendanceRecord{
			ID:        uuid.NewString(),
			SessionID: sess.ID,
			StudentID: studentID,
			Status:    model.StatusAbsent,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := s.repo.Create(ctx, sess, records); err != nil {
		return model.Session{}, nil, err
	}
	metrics.SessionsCreated.Inc()
	return sess, records, nil
}

// UpdateStatus applies one lifecycle transition on behalf of the session's
// creator.
func (s *Service) UpdateStatus(ctx context.Context, sessionID string, next model.SessionStatus, teacherID string) (model.Session, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if sess == nil {
		return model.Session{}, model.NotFound("session %s not found", sessionID)
	}
	if sess.CreatedBy != teacherID {
		return model.Session{}, model.Forbidden("session belongs to another teacher")
	}
	if sess.Status.Terminal() {
		return model.Session{}, model.InvalidTransition("session is already %s", sess.Status)
	}
	if !next.Valid() || next == model.SessionOngoing {
		return model.Session{}, model.Invalid("cannot transition to %q", next)
	}
	if !sess.Status.CanTransition(next) {
		return model.Session{}, model.InvalidTransition("cannot move from %s to %s", sess.Status, next)
	}
	completedAt := s.clock.Now()
	if err := s.repo.SetStatus(ctx, sessionID, next, completedAt); err != nil {
		return model.Session{}, err
	}
	sess.Status = next
	sess.CompletedAt = &completedAt
	metrics.SessionTransitions.WithLabelValues(string(next)).Inc()
	return *sess, nil
}

// End marks a session completed.
func (s *Service) End(ctx context.Context, sessionID, teacherID string) (model.Session, error) {
	return s.UpdateStatus(ctx, sessionID, model.SessionCompleted, teacherID)
}

// Cancel marks a session cancelled.
func (s *Service) Cancel(ctx context.Context, sessionID, teacherID string) (model.Session, error) {
	return s.UpdateStatus(ctx, sessionID, model.SessionCancelled, teacherID)
}

// Get returns a session by id.
func (s *Service) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.repo.Get(ctx, sessionID)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
