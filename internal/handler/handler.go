package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/config"
	"classtrack/internal/model"
	"classtrack/internal/queue"
	"classtrack/internal/schedule"
	"classtrack/internal/session"
	"classtrack/internal/summary"
)

// Handler wires the engine services onto gin routes and translates the
// error taxonomy into status codes.
type Handler struct {
	cfg      config.App
	slots    *schedule.Service
	periods  *schedule.PeriodRepository
	sessions *session.Service
	marking  *attendance.Engine
	reports  *summary.Service
	events   queue.Queue
}

// New creates a handler.
func New(cfg config.App, slots *schedule.Service, periods *schedule.PeriodRepository, sessions *session.Service, marking *attendance.Engine, reports *summary.Service, events queue.Queue) *Handler {
	return &Handler{cfg: cfg, slots: slots, periods: periods, sessions: sessions, marking: marking, reports: reports, events: events}
}

// Register mounts all routes on the router.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/v1/auth/token", h.IssueToken)

	authed := r.Group("/v1", auth.ActorAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/slots", h.CreateSlot)
	admin.POST("/slots/bulk", h.BulkCreateSlots)
	admin.POST("/slots/check", h.CheckConflict)
	admin.PUT("/slots/:id", h.UpdateSlot)
	admin.DELETE("/slots/:id", h.DeactivateSlot)
	admin.POST("/periods", h.CreatePeriod)

	authed.GET("/periods", h.ListPeriods)

	teacher := authed.Group("", auth.RequireRole(auth.RoleTeacher))
	teacher.GET("/slots/mine", h.MySlots)
	teacher.POST("/sessions", h.CreateSession)
	teacher.PATCH("/sessions/:id/status", h.UpdateSessionStatus)
	teacher.POST("/sessions/:id/end", h.EndSession)
	teacher.POST("/sessions/:id/cancel", h.CancelSession)
	teacher.GET("/sessions/:id/attendance", h.ListAttendance)
	teacher.GET("/sessions/:id/summary", h.SessionSummary)
	teacher.POST("/sessions/:id/marks", h.BulkMark)
	teacher.PATCH("/attendance/:id", h.MarkSingle)

	student := authed.Group("", auth.RequireRole(auth.RoleStudent))
	student.POST("/sessions/:id/checkin", h.StudentCheckIn)

	staff := authed.Group("", auth.RequireRole(auth.RoleTeacher, auth.RoleAdmin))
	staff.GET("/students/:id/report", h.StudentReport)
	staff.GET("/classes/:id/risk", h.ClassRisk)
}

// respondError maps the error taxonomy onto transport status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch model.KindOf(err) {
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindConflict:
		status = http.StatusConflict
	case model.KindForbidden:
		status = http.StatusForbidden
	case model.KindInvalidTransition:
		status = http.StatusUnprocessableEntity
	case model.KindValidation:
		status = http.StatusBadRequest
	default:
		log.Printf("internal error: %v", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ---------- Auth ----------

// IssueToken signs an access token for an actor. Identity verification
// sits in front of this service; this endpoint only mints tokens.
func (h *Handler) IssueToken(c *gin.Context) {
	var req struct {
		ActorID string `json:"actor_id" binding:"required"`
		Role    string `json:"role" binding:"required,oneof=admin teacher student"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, exp, err := auth.Issue(req.ActorID, req.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"access_token": token, "expires_at": exp.Unix()})
}

// ---------- Slots ----------

type slotRequest struct {
	TeacherID string `json:"teacher_id" binding:"required"`
	ClassID   string `json:"class_id" binding:"required"`
	SubjectID string `json:"subject_id"`
	PeriodID  string `json:"period_id" binding:"required"`
	DayOfWeek int    `json:"day_of_week" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Room      string `json:"room"`
}

func (r slotRequest) candidate() (schedule.Candidate, error) {
	start, err := model.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return schedule.Candidate{}, model.Invalid("%v", err)
	}
	end, err := model.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return schedule.Candidate{}, model.Invalid("%v", err)
	}
	return schedule.Candidate{
		TeacherID: r.TeacherID,
		ClassID:   r.ClassID,
		SubjectID: r.SubjectID,
		PeriodID:  r.PeriodID,
		DayOfWeek: r.DayOfWeek,
		Start:     start,
		End:       end,
		Room:      r.Room,
	}, nil
}

func (h *Handler) CreateSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cand, err := req.candidate()
	if err != nil {
		respondError(c, err)
		return
	}
	slot, err := h.slots.CreateSlot(c.Request.Context(), cand)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (h *Handler) UpdateSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cand, err := req.candidate()
	if err != nil {
		respondError(c, err)
		return
	}
	slot, err := h.slots.UpdateSlot(c.Request.Context(), c.Param("id"), cand)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

func (h *Handler) DeactivateSlot(c *gin.Context) {
	if err := h.slots.DeactivateSlot(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *Handler) CheckConflict(c *gin.Context) {
	var req struct {
		slotRequest
		ExcludeSlotID string `json:"exclude_slot_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cand, err := req.candidate()
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.slots.Check(c.Request.Context(), cand, req.ExcludeSlotID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) BulkCreateSlots(c *gin.Context) {
	var req struct {
		Slots []slotRequest `json:"slots" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cands := make([]schedule.Candidate, 0, len(req.Slots))
	for _, sr := range req.Slots {
		cand, err := sr.candidate()
		if err != nil {
			respondError(c, err)
			return
		}
		cands = append(cands, cand)
	}
	results, err := h.slots.BulkCreateSlots(c.Request.Context(), cands)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) MySlots(c *gin.Context) {
	actor := auth.Actor(c)
	slots, err := h.slots.ListByTeacher(c.Request.Context(), actor.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}
	if slots == nil {
		slots = []model.TimeSlot{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// ---------- Periods ----------

func (h *Handler) CreatePeriod(c *gin.Context) {
	var req struct {
		Name      string    `json:"name" binding:"required"`
		StartDate time.Time `json:"start_date" binding:"required"`
		EndDate   time.Time `json:"end_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := model.AcademicPeriod{
		ID:        uuid.NewString(),
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Active:    true,
	}
	if err := h.periods.Create(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPeriods(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	periods, err := h.periods.List(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	if periods == nil {
		periods = []model.AcademicPeriod{}
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// ---------- Sessions ----------

func (h *Handler) CreateSession(c *gin.Context) {
	var req struct {
		SlotID string `json:"slot_id" binding:"required"`
		Date   string `json:"date" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	actor := auth.Actor(c)
	sess, records, err := h.sessions.CreateSession(c.Request.Context(), req.SlotID, date, actor.ActorID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess, "attendance": records})
}

func (h *Handler) UpdateSessionStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.transition(c, model.SessionStatus(req.Status))
}

func (h *Handler) EndSession(c *gin.Context) {
	h.transition(c, model.SessionCompleted)
}

func (h *Handler) CancelSession(c *gin.Context) {
	h.transition(c, model.SessionCancelled)
}

func (h *Handler) transition(c *gin.Context, next model.SessionStatus) {
	actor := auth.Actor(c)
	sess, err := h.sessions.UpdateStatus(c.Request.Context(), c.Param("id"), next, actor.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sess.Status == model.SessionCompleted {
		h.publishCompleted(c.Request.Context(), sess.ID)
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) publishCompleted(ctx context.Context, sessionID string) {
	if h.events == nil {
		return
	}
	msg := queue.Message{Type: queue.TypeSessionCompleted, Body: []byte(sessionID)}
	if err := h.events.Publish(ctx, msg); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

// ---------- Attendance ----------

func (h *Handler) ListAttendance(c *gin.Context) {
	records, err := h.marking.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

// SessionSummary aggregates one session's rows into counts and rates.
func (h *Handler) SessionSummary(c *gin.Context) {
	records, err := h.marking.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	counts := map[model.AttendanceStatus]int{}
	for _, rec := range records {
		counts[rec.Status]++
	}
	resp := gin.H{
		"session_id":      c.Param("id"),
		"total":           len(records),
		"present":         counts[model.StatusPresent],
		"absent":          counts[model.StatusAbsent],
		"late":            counts[model.StatusLate],
		"excused":         counts[model.StatusExcused],
		"attendance_rate": summary.AttendanceRate(records),
		"late_rate":       summary.LateRate(records),
	}
	if len(records) > 0 {
		resp["most_common_status"] = summary.MostCommonStatus(records)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) BulkMark(c *gin.Context) {
	var req struct {
		Updates []attendance.MarkUpdate `json:"updates" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor := auth.Actor(c)
	records, err := h.marking.BulkMark(c.Request.Context(), c.Param("id"), req.Updates, actor.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records})
}

func (h *Handler) MarkSingle(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor := auth.Actor(c)
	rec, err := h.marking.MarkSingle(c.Request.Context(), c.Param("id"), model.AttendanceStatus(req.Status), req.Note, actor.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) StudentCheckIn(c *gin.Context) {
	var req struct {
		Method     string   `json:"method"`
		Confidence *float64 `json:"confidence"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	actor := auth.Actor(c)
	rec, err := h.marking.StudentCheckIn(c.Request.Context(), c.Param("id"), actor.ActorID, model.MarkMethod(req.Method), req.Confidence)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ---------- Reports ----------

func (h *Handler) reportRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, to := summary.DefaultRange(time.Now().UTC())
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return from, to, false
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return from, to, false
		}
		to = parsed
	}
	return from, to, true
}

func (h *Handler) StudentReport(c *gin.Context) {
	from, to, ok := h.reportRange(c)
	if !ok {
		return
	}
	rep, err := h.reports.StudentReport(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) ClassRisk(c *gin.Context) {
	from, to, ok := h.reportRange(c)
	if !ok {
		return
	}
	reports, err := h.reports.ClassRisk(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if reports == nil {
		reports = []summary.StudentReport{}
	}
	c.JSON(http.StatusOK, gin.H{"students": reports})
}
