package reports

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

// typePermissions maps each report type to the permission that grants access
// to it. Holders of the blanket reports.view permission pass for every type.
var typePermissions = map[Type]string{
	TypeEnrollment: authz.PermReportsView,
	TypeAttendance: authz.PermReportsOperational,
	TypeFinancial:  authz.PermReportsFinancial,
	TypePayroll:    authz.PermReportsFinancial,
	TypeAcademic:   authz.PermReportsAcademic,
}

// reportPermissions gates the route group: any of these grants entry, the
// per-type check narrows from there.
var reportPermissions = []string{
	authz.PermReportsView,
	authz.PermReportsAcademic,
	authz.PermReportsOperational,
	authz.PermReportsFinancial,
}

// authorizeType decides whether the principal may access reports of the type:
// the blanket reports.view permission or the type's own permission.
func authorizeType(p authz.Principal, t Type) error {
	if err := authz.Authorize(p, authz.Permission(authz.PermReportsView)); err == nil {
		return nil
	}
	return authz.Authorize(p, authz.Permission(typePermissions[t]))
}

// Handler manages report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers report routes. The group admits any report
// permission; each route then checks the permission for the specific type.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAnyPermission(reportPermissions...))
		r.Get("/", h.handleList)
		r.Get("/enrollment", h.handleSummary(TypeEnrollment))
		r.Get("/attendance", h.handleSummary(TypeAttendance))
		r.Get("/fees", h.handleSummary(TypeFinancial))
		r.Get("/payroll", h.handleSummary(TypePayroll))
		r.Get("/academic", h.handleSummary(TypeAcademic))
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/download", h.handleDownload)
		r.Post("/generate", h.handleGenerate)
	})
}

type reportView struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	RequestedBy int64      `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toReportView(r Report) reportView {
	return reportView{
		ID:          r.ID,
		Type:        string(r.Type),
		Status:      string(r.Status),
		Error:       r.Error,
		RequestedBy: r.RequestedBy,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

type generateRequest struct {
	Type         string `json:"type"`
	From         string `json:"from"`
	To           string `json:"to"`
	ClassLevelID int64  `json:"class_level_id"`
	Term         int    `json:"term"`
	Year         int    `json:"year"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	reportType := Type(req.Type)
	if _, known := typePermissions[reportType]; !known {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "unknown report type")
		return
	}
	if err := authorizeType(principal, reportType); err != nil {
		authz.RespondDeny(w, err)
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)
	report, err := h.service.Request(r.Context(), principal.ID, reportType, Params{
		From:         from,
		To:           to,
		ClassLevelID: req.ClassLevelID,
		Term:         req.Term,
		Year:         req.Year,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"report": toReportView(report)})
}

func (h *Handler) handleSummary(reportType Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := authz.PrincipalFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		if err := authorizeType(principal, reportType); err != nil {
			authz.RespondDeny(w, err)
			return
		}
		rows, err := h.service.Summarize(r.Context(), reportType, paramsFromQuery(r))
		if err != nil {
			h.respondErr(w, err)
			return
		}
		summary := map[string]any{"type": string(reportType)}
		if len(rows) > 0 {
			summary["columns"] = rows[0]
			summary["rows"] = rows[1:]
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"summary": summary})
	}
}

func paramsFromQuery(r *http.Request) Params {
	q := r.URL.Query()
	from, _ := time.Parse("2006-01-02", q.Get("from"))
	to, _ := time.Parse("2006-01-02", q.Get("to"))
	classLevelID, _ := strconv.ParseInt(q.Get("class_level_id"), 10, 64)
	term, _ := strconv.Atoi(q.Get("term"))
	year, _ := strconv.Atoi(q.Get("year"))
	return Params{From: from, To: to, ClassLevelID: classLevelID, Term: term, Year: year}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	list, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	views := make([]reportView, 0, len(list))
	for _, report := range list {
		if authorizeType(principal, report.Type) != nil {
			continue
		}
		views = append(views, toReportView(report))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reports": views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	report, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if err := authorizeType(principal, report.Type); err != nil {
		authz.RespondDeny(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": toReportView(report)})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	report, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if err := authorizeType(principal, report.Type); err != nil {
		authz.RespondDeny(w, err)
		return
	}
	if report.Status != StatusCompleted || report.ArtifactPath == "" {
		httpx.Problem(w, http.StatusConflict, "Conflict", "report is not ready")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+report.ID+`.csv"`)
	http.ServeFile(w, r, report.ArtifactPath)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("reports handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
