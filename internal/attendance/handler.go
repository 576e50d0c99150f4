package attendance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/platform/httpx"
)

// Handler manages attendance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermAttendanceRecord))
		r.Post("/", h.handleRecord)
		r.Post("/bulk", h.handleRecordBatch)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermAttendanceView))
		r.Get("/class/{classLevelID}", h.handleClassRegister)
		r.Get("/students/{studentID}", h.handleStudentHistory)
		r.Get("/students/{studentID}/summary", h.handleStudentSummary)
	})
}

type entryView struct {
	ID           int64  `json:"id"`
	StudentID    int64  `json:"student_id"`
	ClassLevelID int64  `json:"class_level_id"`
	Date         string `json:"date"`
	Subject      string `json:"subject,omitempty"`
	Mark         string `json:"mark"`
	Remarks      string `json:"remarks,omitempty"`
	RecordedBy   int64  `json:"recorded_by"`
}

func toEntryView(e Entry) entryView {
	return entryView{
		ID:           e.ID,
		StudentID:    e.StudentID,
		ClassLevelID: e.ClassLevelID,
		Date:         e.Date.Format("2006-01-02"),
		Subject:      e.Subject,
		Mark:         string(e.Mark),
		Remarks:      e.Remarks,
		RecordedBy:   e.RecordedBy,
	}
}

type recordRequest struct {
	StudentID    int64  `json:"student_id"`
	ClassLevelID int64  `json:"class_level_id"`
	Date         string `json:"date"`
	Subject      string `json:"subject"`
	Mark         string `json:"mark"`
	Remarks      string `json:"remarks"`
}

func (req recordRequest) toInput() RecordInput {
	date, _ := time.Parse("2006-01-02", req.Date)
	return RecordInput{
		StudentID:    req.StudentID,
		ClassLevelID: req.ClassLevelID,
		Date:         date,
		Subject:      req.Subject,
		Mark:         Mark(req.Mark),
		Remarks:      req.Remarks,
	}
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	entry, err := h.service.Record(r.Context(), principal.ID, req.toInput())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"entry": toEntryView(entry)})
}

func (h *Handler) handleRecordBatch(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req struct {
		Entries []recordRequest `json:"entries"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	inputs := make([]RecordInput, 0, len(req.Entries))
	for _, e := range req.Entries {
		inputs = append(inputs, e.toInput())
	}
	entries, err := h.service.RecordBatch(r.Context(), principal.ID, inputs)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toEntryView(e))
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"entries": views})
}

func (h *Handler) handleClassRegister(w http.ResponseWriter, r *http.Request) {
	classLevelID, err := strconv.ParseInt(chi.URLParam(r, "classLevelID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid class level id")
		return
	}
	date, _ := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	entries, err := h.service.ClassRegister(r.Context(), classLevelID, date)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toEntryView(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": views})
}

func (h *Handler) handleStudentHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	from, to := parseRange(r)
	entries, err := h.service.StudentHistory(r.Context(), studentID, from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toEntryView(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": views})
}

func (h *Handler) handleStudentSummary(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	from, to := parseRange(r)
	summary, err := h.service.StudentSummary(r.Context(), studentID, from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary": map[string]any{
		"student_id": summary.StudentID,
		"present":    summary.Present,
		"absent":     summary.Absent,
		"late":       summary.Late,
		"excused":    summary.Excused,
		"total":      summary.Total(),
		"rate":       summary.Rate(),
	}})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("attendance handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseRange(r *http.Request) (time.Time, time.Time) {
	from, _ := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	to, _ := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	return from, to
}
