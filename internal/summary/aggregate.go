package summary

import (
	"math"

	"classtrack/internal/model"
)

// Trend directions.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// Risk levels, most severe first.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// AttendanceRate returns round(100 * (present+late) / total), 0 for an
// empty slice.
func AttendanceRate(records []model.AttendanceRecord) int {
	if len(records) == 0 {
		return 0
	}
	attended := 0
	for _, r := range records {
		if r.Status.Attended() {
			attended++
		}
	}
	return int(math.Round(100 * float64(attended) / float64(len(records))))
}

// LateRate returns round(100 * late / total), 0 for an empty slice.
func LateRate(records []model.AttendanceRecord) int {
	if len(records) == 0 {
		return 0
	}
	late := 0
	for _, r := range records {
		if r.Status == model.StatusLate {
			late++
		}
	}
	return int(math.Round(100 * float64(late) / float64(len(records))))
}

// TrendResult describes how attendance moved between the two halves of a
// history.
type TrendResult struct {
	Direction  string `json:"direction"`
	FirstRate  int    `json:"first_rate"`
	SecondRate int    `json:"second_rate"`
	Change     int    `json:"change"`
}

// Trend splits a chronological history at the floor midpoint, rates each
// half and classifies the change: improving above +5, declining below -5,
// stable inside the band. Fewer than two records is insufficient data.
func Trend(chronological []model.AttendanceRecord) TrendResult {
	if len(chronological) < 2 {
		return TrendResult{Direction: TrendInsufficientData}
	}
	mid := len(chronological) / 2
	first := AttendanceRate(chronological[:mid])
	second := AttendanceRate(chronological[mid:])
	return classifyTrend(first, second)
}

// TrendOfRates applies the same classification to a chronological series
// of precomputed rates (one per session or reporting bucket), averaging
// each half.
func TrendOfRates(rates []int) TrendResult {
	if len(rates) < 2 {
		return TrendResult{Direction: TrendInsufficientData}
	}
	mid := len(rates) / 2
	return classifyTrend(mean(rates[:mid]), mean(rates[mid:]))
}

func classifyTrend(first, second int) TrendResult {
	change := second - first
	direction := TrendStable
	switch {
	case change > 5:
		direction = TrendImproving
	case change < -5:
		direction = TrendDeclining
	}
	return TrendResult{Direction: direction, FirstRate: first, SecondRate: second, Change: change}
}

func mean(vals []int) int {
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(vals))))
}

// ConsecutiveAbsences counts absences from the most recent record
// backwards, stopping at the first non-absent record.
func ConsecutiveAbsences(newestFirst []model.AttendanceRecord) int {
	count := 0
	for _, r := range newestFirst {
		if r.Status != model.StatusAbsent {
			break
		}
		count++
	}
	return count
}

// RiskLevel evaluates tiers in fixed order; the first matching tier wins
// and each tier's two conditions are OR'd.
func RiskLevel(rate, consecutiveAbsences int) string {
	switch {
	case consecutiveAbsences >= 5 || rate < 50:
		return RiskCritical
	case consecutiveAbsences >= 3 || rate < 70:
		return RiskHigh
	case consecutiveAbsences >= 2 || rate < 80:
		return RiskMedium
	default:
		return RiskLow
	}
}

// MostCommonStatus returns the mode of the records' statuses. Ties go to
// the status encountered first in iteration order; the tie-break is not
// meaningful and callers must not rely on it.
func MostCommonStatus(records []model.AttendanceRecord) model.AttendanceStatus {
	counts := make(map[model.AttendanceStatus]int, 4)
	var best model.AttendanceStatus
	bestCount := 0
	for _, r := range records {
		counts[r.Status]++
		if counts[r.Status] > bestCount {
			best = r.Status
			bestCount = counts[r.Status]
		}
	}
	return best
}
