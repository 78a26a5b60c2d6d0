package schedule

import (
	"context"

	"github.com/google/uuid"

	"classtrack/internal/clock"
	"classtrack/internal/metrics"
	"classtrack/internal/model"
)

// Service owns administrative slot changes. Every create and update runs
// the conflict check before persistence.
type Service struct {
	repo     SlotRepository
	detector *Detector
	clock    clock.Clock
}

// NewService creates a service.
func NewService(repo SlotRepository, clk clock.Clock) *Service {
	return &Service{repo: repo, detector: NewDetector(repo), clock: clk}
}

// Check exposes the pure conflict predicate.
func (s *Service) Check(ctx context.Context, cand Candidate, excludeSlotID string) (CheckResult, error) {
	if err := validateCandidate(cand); err != nil {
		return CheckResult{}, err
	}
	return s.detector.Check(ctx, cand, excludeSlotID)
}

// CreateSlot validates, checks conflicts and inserts under the
// transactional guard.
func (s *Service) CreateSlot(ctx context.Context, cand Candidate) (model.TimeSlot, error) {
	if err := validateCandidate(cand); err != nil {
		return model.TimeSlot{}, err
	}
	res, err := s.detector.Check(ctx, cand, "")
	if err != nil {
		return model.TimeSlot{}, err
	}
	if res.Conflict {
		metrics.ConflictsDetected.WithLabelValues(res.Side).Inc()
		return model.TimeSlot{}, model.Conflict("%s", res.Reason)
	}
	slot := s.newSlot(cand)
	if err := s.repo.CreateChecked(ctx, slot); err != nil {
		return model.TimeSlot{}, err
	}
	metrics.SlotsCreated.Inc()
	return slot, nil
}

// UpdateSlot rewrites an existing slot's fields, excluding the slot itself
// from the conflict scan.
func (s *Service) UpdateSlot(ctx context.Context, id string, cand Candidate) (model.TimeSlot, error) {
	if err := validateCandidate(cand); err != nil {
		return model.TimeSlot{}, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.TimeSlot{}, err
	}
	if existing == nil {
		return model.TimeSlot{}, model.NotFound("time slot %s not found", id)
	}
	res, err := s.detector.Check(ctx, cand, id)
	if err != nil {
		return model.TimeSlot{}, err
	}
	if res.Conflict {
		metrics.ConflictsDetected.WithLabelValues(res.Side).Inc()
		return model.TimeSlot{}, model.Conflict("%s", res.Reason)
	}
	updated := *existing
	updated.TeacherID = cand.TeacherID
	updated.ClassID = cand.ClassID
	updated.SubjectID = cand.SubjectID
	updated.PeriodID = cand.PeriodID
	updated.DayOfWeek = cand.DayOfWeek
	updated.StartTime = cand.Start
	updated.EndTime = cand.End
	updated.Room = cand.Room
	updated.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateChecked(ctx, updated); err != nil {
		return model.TimeSlot{}, err
	}
	return updated, nil
}

// DeactivateSlot removes the slot from future conflict scans and session
// creation without deleting history.
func (s *Service) DeactivateSlot(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}

// ListByTeacher returns a teacher's slots.
func (s *Service) ListByTeacher(ctx context.Context, teacherID string) ([]model.TimeSlot, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

// BulkResult pairs one bulk candidate with its outcome.
type BulkResult struct {
	Slot *model.TimeSlot `json:"slot,omitempty"`
	Err  string          `json:"error,omitempty"`
}

// BulkCreateSlots admits each candidate after checking it against
// persisted state only. Candidates are not checked against each other, so
// two mutually overlapping candidates in one batch can both be admitted.
func (s *Service) BulkCreateSlots(ctx context.Context, cands []Candidate) ([]BulkResult, error) {
	results := make([]BulkResult, len(cands))
	admitted := make([]int, 0, len(cands))
	for i, cand := range cands {
		if err := validateCandidate(cand); err != nil {
			results[i] = BulkResult{Err: err.Error()}
			continue
		}
		res, err := s.detector.Check(ctx, cand, "")
		if err != nil {
			return nil, err
		}
		if res.Conflict {
			metrics.ConflictsDetected.WithLabelValues(res.Side).Inc()
			results[i] = BulkResult{Err: res.Reason}
			continue
		}
		admitted = append(admitted, i)
	}
	for _, i := range admitted {
		slot := s.newSlot(cands[i])
		if err := s.repo.Create(ctx, slot); err != nil {
			return nil, err
		}
		metrics.SlotsCreated.Inc()
		results[i] = BulkResult{Slot: &slot}
	}
	return results, nil
}

func (s *Service) newSlot(cand Candidate) model.TimeSlot {
	now := s.clock.Now()
	return model.TimeSlot{
		ID:        uuid.NewString(),
		TeacherID: cand.TeacherID,
		ClassID:   cand.ClassID,
		SubjectID: cand.SubjectID,
		PeriodID:  cand.PeriodID,
		DayOfWeek: cand.DayOfWeek,
		StartTime: cand.Start,
		EndTime:   cand.End,
		Room:      cand.Room,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func validateCandidate(cand Candidate) error {
	if cand.TeacherID == "" || cand.ClassID == "" || cand.PeriodID == "" {
		return model.Invalid("teacher, class and period are required")
	}
	if cand.DayOfWeek < 1 || cand.DayOfWeek > 7 {
		return model.Invalid("day of week must be 1..7, got %d", cand.DayOfWeek)
	}
	if cand.End <= cand.Start {
		return model.Invalid("end time %s must be after start time %s", cand.End, cand.Start)
	}
	return nil
}
