package attendance

import (
	"context"
	"time"

	"classtrack/internal/clock"
	"classtrack/internal/metrics"
	"classtrack/internal/model"
)

// DefaultLateThreshold is the grace period after the scheduled start
// within which a check-in still counts as present.
const DefaultLateThreshold = 15 * time.Minute

// SlotGetter narrows the schedule repository to the single read this
// package needs.
type SlotGetter interface {
	Get(ctx context.Context, id string) (*model.TimeSlot, error)
}

// Engine owns every post-creation mutation of attendance rows: teacher
// bulk and single marking, and student self-service check-in.
type Engine struct {
	repo          Repository
	slots         SlotGetter
	clock         clock.Clock
	lateThreshold time.Duration
}

// NewEngine creates an engine. A non-positive threshold falls back to the
// default 15 minutes.
func NewEngine(repo Repository, slots SlotGetter, clk clock.Clock, lateThreshold time.Duration) *Engine {
	if lateThreshold <= 0 {
		lateThreshold = DefaultLateThreshold
	}
	return &Engine{repo: repo, slots: slots, clock: clk, lateThreshold: lateThreshold}
}

// MarkUpdate is one teacher-issued row change.
type MarkUpdate struct {
	AttendanceID string                 `json:"attendance_id"`
	Status       model.AttendanceStatus `json:"status"`
	Note         string                 `json:"note,omitempty"`
}

// BulkMark applies a batch of teacher marks. The batch is all-or-nothing:
// if any update fails validation or ownership, none are committed.
func (e *Engine) BulkMark(ctx context.Context, sessionID string, updates []MarkUpdate, teacherID string) ([]model.AttendanceRecord, error) {
	sess, err := e.loadMarkableSession(ctx, sessionID, teacherID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, model.Invalid("no updates given")
	}

	now := e.clock.Now()
	marked := make([]model.AttendanceRecord, 0, len(updates))
	for _, u := range updates {
		rec, err := e.applyMark(ctx, sess, u, teacherID, now)
		if err != nil {
			return nil, err
		}
		marked = append(marked, rec)
	}
	if err := e.repo.ApplyMarks(ctx, sessionID, marked); err != nil {
		return nil, err
	}
	for _, rec := range marked {
		metrics.MarksApplied.WithLabelValues(string(rec.Status)).Inc()
	}
	return marked, nil
}

// MarkSingle applies one teacher mark using the same per-record rule as
// BulkMark.
func (e *Engine) MarkSingle(ctx context.Context, attendanceID string, status model.AttendanceStatus, note, teacherID string) (model.AttendanceRecord, error) {
	rec, err := e.repo.GetRecord(ctx, attendanceID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if rec == nil {
		return model.AttendanceRecord{}, model.NotFound("attendance record %s not found", attendanceID)
	}
	sess, err := e.loadMarkableSession(ctx, rec.SessionID, teacherID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	marked, err := e.applyMark(ctx, sess, MarkUpdate{AttendanceID: attendanceID, Status: status, Note: note}, teacherID, e.clock.Now())
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if err := e.repo.ApplyMarks(ctx, sess.ID, []model.AttendanceRecord{marked}); err != nil {
		return model.AttendanceRecord{}, err
	}
	metrics.MarksApplied.WithLabelValues(string(marked.Status)).Inc()
	return marked, nil
}

// StudentCheckIn records a one-shot self-service check-in. The student's
// row must still be absent; a teacher can re-mark the row afterwards.
func (e *Engine) StudentCheckIn(ctx context.Context, sessionID, studentID string, method model.MarkMethod, confidence *float64) (model.AttendanceRecord, error) {
	sess, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if sess == nil {
		return model.AttendanceRecord{}, model.NotFound("session %s not found", sessionID)
	}
	if sess.Status != model.SessionOngoing {
		return model.AttendanceRecord{}, model.Conflict("session not active")
	}
	rec, err := e.repo.GetRecordForStudent(ctx, sessionID, studentID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if rec == nil {
		return model.AttendanceRecord{}, model.NotFound("student %s has no attendance row in this session", studentID)
	}
	if rec.Status != model.StatusAbsent {
		return model.AttendanceRecord{}, model.Conflict("already checked in")
	}
	if method == "" {
		method = model.MethodSelfService
	}
	if !method.Valid() {
		return model.AttendanceRecord{}, model.Invalid("unknown check-in method %q", method)
	}

	slot, err := e.slots.Get(ctx, sess.SlotID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if slot == nil {
		return model.AttendanceRecord{}, model.NotFound("time slot %s not found", sess.SlotID)
	}

	now := e.clock.Now()
	scheduledStart := slot.StartTime.On(sess.Date)
	status := DetermineStatus(now, scheduledStart, e.lateThreshold)

	updated := *rec
	updated.Status = status
	updated.CheckInTime = &now
	updated.Method = method
	updated.Confidence = confidence
	updated.MarkedBy = nil
	updated.UpdatedAt = now
	if err := e.repo.CheckIn(ctx, updated); err != nil {
		return model.AttendanceRecord{}, err
	}
	metrics.CheckIns.WithLabelValues(string(status)).Inc()
	return updated, nil
}

// DetermineStatus classifies a check-in instant against the scheduled
// start: present while now <= start + threshold, late afterwards.
func DetermineStatus(now, scheduledStart time.Time, threshold time.Duration) model.AttendanceStatus {
	if now.After(scheduledStart.Add(threshold)) {
		return model.StatusLate
	}
	return model.StatusPresent
}

// ListBySession returns the session's attendance rows.
func (e *Engine) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	return e.repo.RecordsBySession(ctx, sessionID)
}

func (e *Engine) loadMarkableSession(ctx context.Context, sessionID, teacherID string) (*model.Session, error) {
	sess, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, model.NotFound("session %s not found", sessionID)
	}
	if sess.CreatedBy != teacherID {
		return nil, model.Forbidden("session belongs to another teacher")
	}
	if sess.Status.Terminal() {
		return nil, model.InvalidTransition("session is already %s", sess.Status)
	}
	return sess, nil
}

// applyMark builds the updated row for one teacher mark. A row re-marked
// late receives the marking instant as its check-in time, not any
// remembered arrival time.
func (e *Engine) applyMark(ctx context.Context, sess *model.Session, u MarkUpdate, teacherID string, now time.Time) (model.AttendanceRecord, error) {
	if !u.Status.Valid() {
		return model.AttendanceRecord{}, model.Invalid("unknown attendance status %q", u.Status)
	}
	rec, err := e.repo.GetRecord(ctx, u.AttendanceID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if rec == nil || rec.SessionID != sess.ID {
		return model.AttendanceRecord{}, model.NotFound("attendance record %s not found in session %s", u.AttendanceID, sess.ID)
	}
	updated := *rec
	updated.Status = u.Status
	updated.Method = model.MethodManual
	updated.MarkedBy = &teacherID
	updated.Note = u.Note
	updated.Confidence = nil
	updated.UpdatedAt = now
	if u.Status == model.StatusAbsent {
		updated.CheckInTime = nil
	} else {
		t := now
		updated.CheckInTime = &t
	}
	return updated, nil
}
