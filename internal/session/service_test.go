package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"classtrack/internal/model"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

type fakeSlots struct {
	slots map[string]model.TimeSlot
}

func (f *fakeSlots) Get(_ context.Context, id string) (*model.TimeSlot, error) {
	if s, ok := f.slots[id]; ok {
		return &s, nil
	}
	return nil, nil
}

type fakeRoster struct {
	byClass map[string][]string
}

func (f *fakeRoster) EnrolledStudents(_ context.Context, classID string) ([]string, error) {
	return f.byClass[classID], nil
}

// fakeSessionRepo enforces the (slot, date) uniqueness under a mutex the
// way the Postgres repo does under its advisory lock.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	records  map[string][]model.AttendanceRecord
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]model.Session),
		records:  make(map[string][]model.AttendanceRecord),
	}
}

func (f *fakeSessionRepo) Create(_ context.Context, sess model.Session, records []model.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.SlotID == sess.SlotID && existing.Date.Equal(sess.Date) {
			return model.Conflict("session already exists for this slot on %s", sess.Date.Format("2006-01-02"))
		}
	}
	f.sessions[sess.ID] = sess
	f.records[sess.ID] = records
	return nil
}

func (f *fakeSessionRepo) Get(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeSessionRepo) SetStatus(_ context.Context, id string, status model.SessionStatus, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return model.NotFound("session %s not found", id)
	}
	s.Status = status
	s.CompletedAt = &completedAt
	f.sessions[id] = s
	return nil
}

func (f *fakeSessionRepo) ListBySlot(_ context.Context, slotID string) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Session
	for _, s := range f.sessions {
		if s.SlotID == slotID {
			res = append(res, s)
		}
	}
	return res, nil
}

func testFixture(rosterSize int) (*Service, *fakeSessionRepo, fixedClock) {
	students := make([]string, rosterSize)
	for i := range students {
		students[i] = fmt.Sprintf("student-%02d", i)
	}
	slots := &fakeSlots{slots: map[string]model.TimeSlot{
		"slot-1":        {ID: "slot-1", TeacherID: "teacher-1", ClassID: "class-1", Active: true, DayOfWeek: 1},
		"slot-inactive": {ID: "slot-inactive", TeacherID: "teacher-1", ClassID: "class-1", Active: false, DayOfWeek: 1},
	}}
	roster := &fakeRoster{byClass: map[string][]string{"class-1": students}}
	repo := newFakeSessionRepo()
	clk := fixedClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	return NewService(repo, slots, roster, clk), repo, clk
}

func TestCreateSessionSnapshotsRoster(t *testing.T) {
	svc, repo, clk := testFixture(30)
	ctx := context.Background()

	sess, records, err := svc.CreateSession(ctx, "slot-1", clk.t, "teacher-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != model.SessionOngoing {
		t.Errorf("status = %s, want ongoing", sess.Status)
	}
	if len(records) != 30 {
		t.Fatalf("records = %d, want 30", len(records))
	}
	for _, rec := range records {
		if rec.Status != model.StatusAbsent {
			t.Errorf("record %s status = %s, want absent", rec.StudentID, rec.Status)
		}
		if rec.CheckInTime != nil {
			t.Errorf("record %s has a check-in time before any check-in", rec.StudentID)
		}
		if rec.SessionID != sess.ID {
			t.Errorf("record %s not tied to session", rec.StudentID)
		}
	}
	if len(repo.records[sess.ID]) != 30 {
		t.Error("rows not persisted with the session")
	}
}

func TestCreateSessionUnknownOrForeignSlot(t *testing.T) {
	svc, _, clk := testFixture(3)
	ctx := context.Background()

	tests := []struct {
		name    string
		slotID  string
		teacher string
	}{
		{"missing slot", "nope", "teacher-1"},
		{"inactive slot", "slot-inactive", "teacher-1"},
		{"foreign teacher", "slot-1", "teacher-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateSession(ctx, tt.slotID, clk.t, tt.teacher, "")
			if model.KindOf(err) != model.KindNotFound {
				t.Errorf("err = %v, want not found", err)
			}
		})
	}
}

func TestCreateSessionDuplicateDate(t *testing.T) {
	svc, _, clk := testFixture(3)
	ctx := context.Background()

	if _, _, err := svc.CreateSession(ctx, "slot-1", clk.t, "teacher-1", ""); err != nil {
		t.Fatal(err)
	}
	_, _, err := svc.CreateSession(ctx, "slot-1", clk.t, "teacher-1", "")
	if model.KindOf(err) != model.KindConflict {
		t.Fatalf("second create err = %v, want conflict", err)
	}

	// A different date is fine.
	if _, _, err := svc.CreateSession(ctx, "slot-1", clk.t.AddDate(0, 0, 7), "teacher-1", ""); err != nil {
		t.Fatalf("different date: %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, _, clk := testFixture(1)
	ctx := context.Background()

	sess, _, err := svc.CreateSession(ctx, "slot-1", clk.t, "teacher-1", "")
	if err != nil {
		t.Fatal(err)
	}

	ended, err := svc.End(ctx, sess.ID, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}
	if ended.Status != model.SessionCompleted {
		t.Errorf("status = %s, want completed", ended.Status)
	}
	if ended.CompletedAt == nil || !ended.CompletedAt.Equal(clk.t) {
		t.Errorf("completed at = %v, want %v", ended.CompletedAt, clk.t)
	}

	// Terminal: every further transition fails, including identity.
	for _, next := range []model.SessionStatus{model.SessionOngoing, model.SessionCompleted, model.SessionCancelled} {
		_, err := svc.UpdateStatus(ctx, sess.ID, next, "teacher-1")
		if model.KindOf(err) != model.KindInvalidTransition {
			t.Errorf("transition completed -> %s: err = %v, want invalid transition", next, err)
		}
	}
}

func TestUpdateStatusGuards(t *testing.T) {
	svc, _, clk := testFixture(1)
	ctx := context.Background()

	sess, _, err := svc.CreateSession(ctx, "slot-1", clk.t, "teacher-1", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateStatus(ctx, "missing", model.SessionCompleted, "teacher-1"); model.KindOf(err) != model.KindNotFound {
		t.Errorf("missing session err = %v, want not found", err)
	}
	if _, err := svc.UpdateStatus(ctx, sess.ID, model.SessionCompleted, "teacher-2"); model.KindOf(err) != model.KindForbidden {
		t.Errorf("foreign teacher err = %v, want forbidden", err)
	}
	if _, err := svc.UpdateStatus(ctx, sess.ID, model.SessionOngoing, "teacher-1"); model.KindOf(err) != model.KindValidation {
		t.Errorf("ongoing target err = %v, want validation", err)
	}
	if _, err := svc.UpdateStatus(ctx, sess.ID, "archived", "teacher-1"); model.KindOf(err) != model.KindValidation {
		t.Errorf("unknown target err = %v, want validation", err)
	}
}

func TestCancelSession(t *testing.T) {
	svc, _, clk := testFixture(1)
	ctx := context.Background()

	sess, _, err := svc.CreateSession(ctx, "slot-1", clk.t, "teacher-1", "")
	if err != nil {
		t.Fatal(err)
	}
	cancelled, err := svc.Cancel(ctx, sess.ID, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != model.SessionCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
}
