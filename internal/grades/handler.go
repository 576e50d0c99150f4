package grades

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/platform/httpx"
)

// Handler manages grade endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers grade routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermGradesRecord))
		r.Post("/", h.handleRecord)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermGradesView))
		r.Get("/students/{studentID}", h.handleStudentGrades)
		r.Get("/students/{studentID}/report", h.handleStudentReport)
		r.Get("/subjects/{subject}", h.handleSubjectGrades)
	})
}

type gradeView struct {
	ID         int64   `json:"id"`
	StudentID  int64   `json:"student_id"`
	Subject    string  `json:"subject"`
	ExamType   string  `json:"exam_type"`
	Term       int     `json:"term"`
	Year       int     `json:"year"`
	Marks      int     `json:"marks"`
	Band       string  `json:"band"`
	Points     float64 `json:"points"`
	RecordedBy int64   `json:"recorded_by"`
}

func toGradeView(g Grade) gradeView {
	return gradeView{
		ID:         g.ID,
		StudentID:  g.StudentID,
		Subject:    g.Subject,
		ExamType:   string(g.ExamType),
		Term:       g.Term,
		Year:       g.Year,
		Marks:      g.Marks,
		Band:       string(g.Band),
		Points:     g.Points(),
		RecordedBy: g.RecordedBy,
	}
}

type recordRequest struct {
	StudentID int64  `json:"student_id"`
	Subject   string `json:"subject"`
	ExamType  string `json:"exam_type"`
	Term      int    `json:"term"`
	Year      int    `json:"year"`
	Marks     int    `json:"marks"`
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
	grade, err := h.service.Record(r.Context(), principal.ID, RecordInput{
		StudentID: req.StudentID,
		Subject:   req.Subject,
		ExamType:  ExamType(req.ExamType),
		Term:      req.Term,
		Year:      req.Year,
		Marks:     req.Marks,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"grade": toGradeView(grade)})
}

func (h *Handler) handleStudentGrades(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	term, _ := strconv.Atoi(r.URL.Query().Get("term"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	grades, err := h.service.StudentGrades(r.Context(), studentID, term, year)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grades": toGradeViews(grades)})
}

func (h *Handler) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	term, _ := strconv.Atoi(r.URL.Query().Get("term"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	report, err := h.service.StudentReport(r.Context(), studentID, term, year)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": map[string]any{
		"student_id": report.StudentID,
		"term":       report.Term,
		"year":       report.Year,
		"grades":     toGradeViews(report.Grades),
		"gpa":        report.GPA(),
		"mean_marks": report.MeanMarks(),
	}})
}

func (h *Handler) handleSubjectGrades(w http.ResponseWriter, r *http.Request) {
	term, _ := strconv.Atoi(r.URL.Query().Get("term"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	grades, err := h.service.SubjectGrades(r.Context(),
		chi.URLParam(r, "subject"),
		ExamType(r.URL.Query().Get("exam_type")),
		term, year)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grades": toGradeViews(grades)})
}

func toGradeViews(grades []Grade) []gradeView {
	views := make([]gradeView, 0, len(grades))
	for _, g := range grades {
		views = append(views, toGradeView(g))
	}
	return views
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("grades handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
