package summary

import (
	"context"
	"time"

	"classtrack/internal/model"
)

// RecordSource reads persisted attendance history for reporting.
type RecordSource interface {
	StudentHistory(ctx context.Context, studentID string, from, to time.Time) ([]model.AttendanceRecord, error)
	ClassStudents(ctx context.Context, classID string, from, to time.Time) ([]string, error)
}

// StudentReport is the analytics view of one student's attendance history
// over a date range.
type StudentReport struct {
	StudentID           string                 `json:"student_id"`
	From                time.Time              `json:"from"`
	To                  time.Time              `json:"to"`
	TotalSessions       int                    `json:"total_sessions"`
	Present             int                    `json:"present"`
	Absent              int                    `json:"absent"`
	Late                int                    `json:"late"`
	Excused             int                    `json:"excused"`
	AttendanceRate      int                    `json:"attendance_rate"`
	LateRate            int                    `json:"late_rate"`
	Trend               TrendResult            `json:"trend"`
	ConsecutiveAbsences int                    `json:"consecutive_absences"`
	RiskLevel           string                 `json:"risk_level"`
	MostCommonStatus    model.AttendanceStatus `json:"most_common_status,omitempty"`
}

// Service computes reports over persisted attendance rows. Aggregation
// itself is pure; the service only adds storage reads and the cache.
type Service struct {
	records RecordSource
	cache   *Cache
}

// NewService creates a reporting service. cache may be nil.
func NewService(records RecordSource, cache *Cache) *Service {
	return &Service{records: records, cache: cache}
}

// StudentReport returns the cached report when fresh, otherwise computes
// and caches it.
func (s *Service) StudentReport(ctx context.Context, studentID string, from, to time.Time) (StudentReport, error) {
	if rep, ok := s.cache.Get(ctx, studentID, from, to); ok {
		return rep, nil
	}
	return s.Refresh(ctx, studentID, from, to)
}

// Refresh recomputes a student's report from storage and rewrites the
// cache entry. The worker calls this when a session completes.
func (s *Service) Refresh(ctx context.Context, studentID string, from, to time.Time) (StudentReport, error) {
	history, err := s.records.StudentHistory(ctx, studentID, from, to)
	if err != nil {
		return StudentReport{}, err
	}
	rep := Compute(studentID, from, to, history)
	s.cache.Set(ctx, rep)
	return rep, nil
}

// ClassRisk reports every student holding attendance rows for a class in
// the range.
func (s *Service) ClassRisk(ctx context.Context, classID string, from, to time.Time) ([]StudentReport, error) {
	students, err := s.records.ClassStudents(ctx, classID, from, to)
	if err != nil {
		return nil, err
	}
	reports := make([]StudentReport, 0, len(students))
	for _, studentID := range students {
		rep, err := s.StudentReport(ctx, studentID, from, to)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// DefaultRange is the reporting window used when the caller gives none:
// the 90 days up to and including today. The worker warms the cache for
// the same window so its entries line up with default report requests.
func DefaultRange(now time.Time) (time.Time, time.Time) {
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -90), to
}

// Compute builds a report from a chronological history. Pure.
func Compute(studentID string, from, to time.Time, chronological []model.AttendanceRecord) StudentReport {
	rep := StudentReport{
		StudentID:     studentID,
		From:          from,
		To:            to,
		TotalSessions: len(chronological),
	}
	for _, r := range chronological {
		switch r.Status {
		case model.StatusPresent:
			rep.Present++
		case model.StatusAbsent:
			rep.Absent++
		case model.StatusLate:
			rep.Late++
		case model.StatusExcused:
			rep.Excused++
		}
	}
	rep.AttendanceRate = AttendanceRate(chronological)
	rep.LateRate = LateRate(chronological)
	rep.Trend = Trend(chronological)
	newestFirst := make([]model.AttendanceRecord, len(chronological))
	for i, r := range chronological {
		newestFirst[len(chronological)-1-i] = r
	}
	rep.ConsecutiveAbsences = ConsecutiveAbsences(newestFirst)
	rep.RiskLevel = RiskLevel(rep.AttendanceRate, rep.ConsecutiveAbsences)
	if len(chronological) > 0 {
		rep.MostCommonStatus = MostCommonStatus(chronological)
	}
	return rep
}
