package summary

import (
	"testing"
	"time"

	"classtrack/internal/model"
)

func recs(statuses ...model.AttendanceStatus) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, len(statuses))
	for i, s := range statuses {
		out[i] = model.AttendanceRecord{ID: string(rune('a' + i)), Status: s}
	}
	return out
}

func TestAttendanceRate(t *testing.T) {
	tests := []struct {
		name string
		in   []model.AttendanceRecord
		want int
	}{
		{"empty", nil, 0},
		{"all present", recs(model.StatusPresent, model.StatusPresent), 100},
		{"late counts as attended", recs(model.StatusPresent, model.StatusLate, model.StatusAbsent), 67},
		{"excused does not", recs(model.StatusExcused, model.StatusPresent), 50},
		{"one of three", recs(model.StatusPresent, model.StatusAbsent, model.StatusAbsent), 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AttendanceRate(tt.in); got != tt.want {
				t.Errorf("AttendanceRate = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLateRate(t *testing.T) {
	if got := LateRate(nil); got != 0 {
		t.Errorf("empty = %d, want 0", got)
	}
	got := LateRate(recs(model.StatusLate, model.StatusPresent, model.StatusPresent, model.StatusLate))
	if got != 50 {
		t.Errorf("LateRate = %d, want 50", got)
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name      string
		in        []model.AttendanceRecord
		direction string
		change    int
	}{
		{"empty", nil, TrendInsufficientData, 0},
		{"single record", recs(model.StatusPresent), TrendInsufficientData, 0},
		{
			"improving",
			recs(model.StatusAbsent, model.StatusAbsent, model.StatusPresent, model.StatusPresent),
			TrendImproving, 100,
		},
		{
			"declining",
			recs(model.StatusPresent, model.StatusPresent, model.StatusAbsent, model.StatusAbsent),
			TrendDeclining, -100,
		},
		{
			"stable inside band",
			recs(model.StatusPresent, model.StatusPresent, model.StatusPresent, model.StatusPresent),
			TrendStable, 0,
		},
		{
			// Odd length splits at the floor midpoint: first half is one
			// record, second half two.
			"odd length floor split",
			recs(model.StatusAbsent, model.StatusPresent, model.StatusPresent),
			TrendImproving, 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trend(tt.in)
			if got.Direction != tt.direction {
				t.Errorf("direction = %s, want %s", got.Direction, tt.direction)
			}
			if got.Direction != TrendInsufficientData && got.Change != tt.change {
				t.Errorf("change = %d, want %d", got.Change, tt.change)
			}
		})
	}
}

func TestTrendOfRates(t *testing.T) {
	got := TrendOfRates([]int{90, 90, 60, 60})
	if got.Direction != TrendDeclining {
		t.Errorf("direction = %s, want declining", got.Direction)
	}
	if got.FirstRate != 90 || got.SecondRate != 60 || got.Change != -30 {
		t.Errorf("got %+v, want first 90 second 60 change -30", got)
	}

	if got := TrendOfRates([]int{80}); got.Direction != TrendInsufficientData {
		t.Errorf("single rate direction = %s, want insufficient_data", got.Direction)
	}
	if got := TrendOfRates([]int{80, 84}); got.Direction != TrendStable {
		t.Errorf("+4 direction = %s, want stable", got.Direction)
	}
	if got := TrendOfRates([]int{80, 86}); got.Direction != TrendImproving {
		t.Errorf("+6 direction = %s, want improving", got.Direction)
	}
}

func TestConsecutiveAbsences(t *testing.T) {
	tests := []struct {
		name string
		in   []model.AttendanceRecord
		want int
	}{
		{"empty", nil, 0},
		{"latest attended", recs(model.StatusPresent, model.StatusAbsent), 0},
		{"run of three", recs(model.StatusAbsent, model.StatusAbsent, model.StatusAbsent, model.StatusPresent), 3},
		{"excused breaks the run", recs(model.StatusAbsent, model.StatusExcused, model.StatusAbsent), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConsecutiveAbsences(tt.in); got != tt.want {
				t.Errorf("ConsecutiveAbsences = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		name        string
		rate        int
		consecutive int
		want        string
	}{
		{"healthy", 95, 0, RiskLow},
		{"rate at medium edge", 79, 0, RiskMedium},
		{"two consecutive", 95, 2, RiskMedium},
		{"rate at high edge", 69, 0, RiskHigh},
		{"three consecutive", 95, 3, RiskHigh},
		{"rate below fifty", 49, 0, RiskCritical},
		{"five consecutive despite high rate", 95, 5, RiskCritical},
		{"boundary fifty is high not critical", 50, 0, RiskHigh},
		{"boundary seventy is medium not high", 70, 0, RiskMedium},
		{"boundary eighty is low", 80, 0, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskLevel(tt.rate, tt.consecutive); got != tt.want {
				t.Errorf("RiskLevel(%d, %d) = %s, want %s", tt.rate, tt.consecutive, got, tt.want)
			}
		})
	}
}

func TestMostCommonStatus(t *testing.T) {
	got := MostCommonStatus(recs(model.StatusLate, model.StatusPresent, model.StatusLate))
	if got != model.StatusLate {
		t.Errorf("mode = %s, want late", got)
	}
	// First-encountered wins a tie.
	got = MostCommonStatus(recs(model.StatusAbsent, model.StatusPresent))
	if got != model.StatusAbsent {
		t.Errorf("tie = %s, want absent", got)
	}
}

func TestCompute(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	history := recs(
		model.StatusPresent, model.StatusPresent, model.StatusLate,
		model.StatusPresent, model.StatusAbsent, model.StatusAbsent,
	)

	rep := Compute("student-1", from, to, history)
	if rep.TotalSessions != 6 {
		t.Errorf("total = %d, want 6", rep.TotalSessions)
	}
	if rep.Present != 3 || rep.Late != 1 || rep.Absent != 2 || rep.Excused != 0 {
		t.Errorf("counts = %d/%d/%d/%d", rep.Present, rep.Late, rep.Absent, rep.Excused)
	}
	if rep.AttendanceRate != 67 {
		t.Errorf("rate = %d, want 67", rep.AttendanceRate)
	}
	// History ends with two absences.
	if rep.ConsecutiveAbsences != 2 {
		t.Errorf("consecutive = %d, want 2", rep.ConsecutiveAbsences)
	}
	// Rate 67 trips the high tier before consecutive absences matter.
	if rep.RiskLevel != RiskHigh {
		t.Errorf("risk = %s, want high", rep.RiskLevel)
	}
	if rep.Trend.Direction != TrendDeclining {
		t.Errorf("trend = %s, want declining", rep.Trend.Direction)
	}
	if rep.MostCommonStatus != model.StatusPresent {
		t.Errorf("mode = %s, want present", rep.MostCommonStatus)
	}
}

func TestComputeEmptyHistory(t *testing.T) {
	rep := Compute("student-1", time.Time{}, time.Time{}, nil)
	if rep.AttendanceRate != 0 || rep.TotalSessions != 0 {
		t.Errorf("empty history: rate %d total %d", rep.AttendanceRate, rep.TotalSessions)
	}
	if rep.RiskLevel != RiskCritical {
		// Zero rate lands in the critical tier. Callers gate on
		// TotalSessions before acting on the level.
		t.Errorf("risk = %s, want critical", rep.RiskLevel)
	}
	if rep.Trend.Direction != TrendInsufficientData {
		t.Errorf("trend = %s, want insufficient_data", rep.Trend.Direction)
	}
	if rep.MostCommonStatus != "" {
		t.Errorf("mode = %q, want empty", rep.MostCommonStatus)
	}
}
