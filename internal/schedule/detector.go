package schedule

import (
	"context"
	"fmt"

	"classtrack/internal/model"
)

// Candidate carries the fields of a time slot being created or updated,
// before it has an identity.
type Candidate struct {
	TeacherID string          `json:"teacher_id"`
	ClassID   string          `json:"class_id"`
	SubjectID string          `json:"subject_id"`
	PeriodID  string          `json:"period_id"`
	DayOfWeek int             `json:"day_of_week"`
	Start     model.TimeOfDay `json:"start_time"`
	End       model.TimeOfDay `json:"end_time"`
	Room      string          `json:"room"`
}

// CheckResult is the outcome of a conflict check.
type CheckResult struct {
	Conflict bool   `json:"conflict"`
	Reason   string `json:"reason,omitempty"`
	SlotID   string `json:"slot_id,omitempty"`
	Side     string `json:"-"`
}

// SlotSource provides the active slots a candidate may collide with.
type SlotSource interface {
	ActiveSlots(ctx context.Context, dayOfWeek int, periodID string) ([]model.TimeSlot, error)
}

// Detector checks a candidate slot against existing active slots in the
// same academic period and day of week. It has no side effects and can be
// called before any mutation.
type Detector struct {
	slots SlotSource
}

// NewDetector creates a detector over a slot source.
func NewDetector(slots SlotSource) *Detector {
	return &Detector{slots: slots}
}

// Check runs the teacher scan then the class scan and reports the first
// overlap found. excludeSlotID carries the id of the slot being edited so
// an update never conflicts with itself.
func (d *Detector) Check(ctx context.Context, cand Candidate, excludeSlotID string) (CheckResult, error) {
	existing, err := d.slots.ActiveSlots(ctx, cand.DayOfWeek, cand.PeriodID)
	if err != nil {
		return CheckResult{}, err
	}
	if hit := FindConflict(existing, cand, excludeSlotID); hit != nil {
		return CheckResult{Conflict: true, Reason: hit.Reason, SlotID: hit.SlotID, Side: hit.Side}, nil
	}
	return CheckResult{}, nil
}

// Hit names the slot a candidate overlaps and why. Side is "teacher" or
// "class" depending on which scan found it.
type Hit struct {
	SlotID string
	Side   string
	Reason string
}

// FindConflict scans existing slots for an overlap with the candidate.
// Two bounded linear scans run in fixed order: same teacher first, then
// same class. The first hit wins, so a teacher-side overlap is always the
// one reported even when a class-side overlap also exists. Slot counts per
// day are small, so the O(n) double scan is deliberate.
func FindConflict(existing []model.TimeSlot, cand Candidate, excludeSlotID string) *Hit {
	for _, s := range existing {
		if s.ID == excludeSlotID || s.TeacherID != cand.TeacherID {
			continue
		}
		if overlaps(cand.Start, cand.End, s.StartTime, s.EndTime) {
			return &Hit{
				SlotID: s.ID,
				Side:   "teacher",
				Reason: fmt.Sprintf("teacher already scheduled from %s to %s", s.StartTime, s.EndTime),
			}
		}
	}
	for _, s := range existing {
		if s.ID == excludeSlotID || s.ClassID != cand.ClassID {
			continue
		}
		if overlaps(cand.Start, cand.End, s.StartTime, s.EndTime) {
			return &Hit{
				SlotID: s.ID,
				Side:   "class",
				Reason: fmt.Sprintf("class already has a lesson from %s to %s", s.StartTime, s.EndTime),
			}
		}
	}
	return nil
}

// overlaps is the half-open interval test: touching endpoints do not
// conflict.
func overlaps(aStart, aEnd, bStart, bEnd model.TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}
