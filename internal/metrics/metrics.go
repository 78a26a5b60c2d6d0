package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters, exposed on /metrics by the API server.
var (
	ConflictsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_slot_conflicts_total",
		Help: "Slot conflicts detected, by scan side.",
	}, []string{"side"})

	SlotsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_slots_created_total",
		Help: "Time slots created.",
	})

	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_session_transitions_total",
		Help: "Session lifecycle transitions, by target status.",
	}, []string{"status"})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_sessions_created_total",
		Help: "Sessions created.",
	})

	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_checkins_total",
		Help: "Student self-service check-ins, by resulting status.",
	}, []string{"status"})

	MarksApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_marks_applied_total",
		Help: "Attendance rows written by teacher marking, by status.",
	}, []string{"status"})
)
