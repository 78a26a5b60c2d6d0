package schedule

import (
	"context"
	"strings"
	"testing"

	"classtrack/internal/model"
)

type fakeSlotSource struct {
	slots []model.TimeSlot
}

func (f *fakeSlotSource) ActiveSlots(_ context.Context, dayOfWeek int, periodID string) ([]model.TimeSlot, error) {
	var res []model.TimeSlot
	for _, s := range f.slots {
		if s.Active && s.DayOfWeek == dayOfWeek && s.PeriodID == periodID {
			res = append(res, s)
		}
	}
	return res, nil
}

func mustTod(t *testing.T, s string) model.TimeOfDay {
	t.Helper()
	tod, err := model.ParseTimeOfDay(s)
	if err != nil {
		t.Fatal(err)
	}
	return tod
}

func slot(t *testing.T, id, teacher, class string, day int, start, end string) model.TimeSlot {
	t.Helper()
	return model.TimeSlot{
		ID:        id,
		TeacherID: teacher,
		ClassID:   class,
		PeriodID:  "term-1",
		DayOfWeek: day,
		StartTime: mustTod(t, start),
		EndTime:   mustTod(t, end),
		Active:    true,
	}
}

func TestDetectorTeacherOverlap(t *testing.T) {
	// Mon 08:00-09:30 exists; candidate Mon 09:00-10:00 same teacher.
	src := &fakeSlotSource{slots: []model.TimeSlot{
		slot(t, "s1", "t1", "c1", 1, "08:00", "09:30"),
	}}
	d := NewDetector(src)
	res, err := d.Check(context.Background(), Candidate{
		TeacherID: "t1", ClassID: "c2", PeriodID: "term-1", DayOfWeek: 1,
		Start: mustTod(t, "09:00"), End: mustTod(t, "10:00"),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Conflict {
		t.Fatal("expected conflict")
	}
	if res.Side != "teacher" {
		t.Errorf("side = %q, want teacher", res.Side)
	}
	if !strings.Contains(res.Reason, "teacher") {
		t.Errorf("reason %q should cite the teacher side", res.Reason)
	}
}

func TestDetectorTouchingEndpointsDoNotConflict(t *testing.T) {
	src := &fakeSlotSource{slots: []model.TimeSlot{
		slot(t, "s1", "t1", "c1", 1, "08:00", "09:00"),
	}}
	d := NewDetector(src)
	res, err := d.Check(context.Background(), Candidate{
		TeacherID: "t1", ClassID: "c1", PeriodID: "term-1", DayOfWeek: 1,
		Start: mustTod(t, "09:00"), End: mustTod(t, "10:00"),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Conflict {
		t.Errorf("touching intervals must not conflict, got %q", res.Reason)
	}
}

func TestDetectorClassOverlap(t *testing.T) {
	src := &fakeSlotSource{slots: []model.TimeSlot{
		slot(t, "s1", "t1", "c1", 2, "10:00", "11:00"),
	}}
	d := NewDetector(src)
	res, err := d.Check(context.Background(), Candidate{
		TeacherID: "t2", ClassID: "c1", PeriodID: "term-1", DayOfWeek: 2,
		Start: mustTod(t, "10:30"), End: mustTod(t, "11:30"),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Conflict || res.Side != "class" {
		t.Errorf("expected class-side conflict, got %+v", res)
	}
}

func TestDetectorTeacherScanWinsOverClassScan(t *testing.T) {
	// Both a teacher-side and a class-side overlap exist; the teacher scan
	// runs first so its hit is the one reported.
	src := &fakeSlotSource{slots: []model.TimeSlot{
		slot(t, "class-hit", "other", "c1", 1, "08:00", "09:00"),
		slot(t, "teacher-hit", "t1", "other", 1, "08:30", "09:30"),
	}}
	d := NewDetector(src)
	res, err := d.Check(context.Background(), Candidate{
		TeacherID: "t1", ClassID: "c1", PeriodID: "term-1", DayOfWeek: 1,
		Start: mustTod(t, "08:00"), End: mustTod(t, "09:00"),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.SlotID != "teacher-hit" || res.Side != "teacher" {
		t.Errorf("teacher scan must win, got %+v", res)
	}
}

func TestDetectorExcludesSlotBeingEdited(t *testing.T) {
	src := &fakeSlotSource{slots: []model.TimeSlot{
		slot(t, "s1", "t1", "c1", 1, "08:00", "09:30"),
	}}
	d := NewDetector(src)
	res, err := d.Check(context.Background(), Candidate{
		TeacherID: "t1", ClassID: "c1", PeriodID: "term-1", DayOfWeek: 1,
		Start: mustTod(t, "08:00"), End: mustTod(t, "09:30"),
	}, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Conflict {
		t.Error("a slot must never conflict with itself on update")
	}
}

func TestDetectorScopedByDayAndPeriod(t *testing.T) {
	src := &fakeSlotSource{slots: []model.TimeSlot{
		slot(t, "s1", "t1", "c1", 1, "08:00", "09:30"),
	}}
	d := NewDetector(src)
	res, err := d.Check(context.Background(), Candidate{
		TeacherID: "t1", ClassID: "c1", PeriodID: "term-1", DayOfWeek: 2,
		Start: mustTod(t, "08:00"), End: mustTod(t, "09:30"),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Conflict {
		t.Error("different day of week must not conflict")
	}
}

func TestFindConflictIgnoresInactive(t *testing.T) {
	inactive := slot(t, "s1", "t1", "c1", 1, "08:00", "09:30")
	inactive.Active = false
	src := &fakeSlotSource{slots: []model.TimeSlot{inactive}}
	d := NewDetector(src)
	res, err := d.Check(context.Background(), Candidate{
		TeacherID: "t1", ClassID: "c1", PeriodID: "term-1", DayOfWeek: 1,
		Start: mustTod(t, "08:00"), End: mustTod(t, "09:30"),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Conflict {
		t.Error("inactive slots are out of scope")
	}
}
