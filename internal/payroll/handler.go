package payroll

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/fees"
	"github.com/elimucore/elimucore/internal/platform/httpx"
)

// Handler manages payroll endpoints. All routes require payroll management.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermPayrollManage))
		r.Get("/{id}", h.handleGet)
		r.Get("/months/{month}", h.handleByMonth)
		r.Get("/staff/{staffID}", h.handleStaffHistory)
		r.Post("/generate", h.handleGenerate)
		r.Post("/generate-month", h.handleGenerateMonth)
		r.Post("/{id}/approve", h.handleApprove)
		r.Post("/{id}/pay", h.handlePay)
	})
}

type runView struct {
	ID          int64      `json:"id"`
	StaffID     int64      `json:"staff_id"`
	Month       string     `json:"month"`
	BasicSalary int64      `json:"basic_salary"`
	Allowances  int64      `json:"allowances"`
	Deductions  int64      `json:"deductions"`
	Gross       int64      `json:"gross"`
	Net         int64      `json:"net"`
	NetDisplay  string     `json:"net_display"`
	Status      string     `json:"status"`
	GeneratedBy int64      `json:"generated_by"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func toRunView(r Run) runView {
	return runView{
		ID:          r.ID,
		StaffID:     r.StaffID,
		Month:       r.Month.Format("2006-01"),
		BasicSalary: r.BasicSalary,
		Allowances:  r.Allowances,
		Deductions:  r.Deductions,
		Gross:       r.Gross(),
		Net:         r.Net(),
		NetDisplay:  fees.FormatMoney(r.Net()),
		Status:      string(r.Status),
		GeneratedBy: r.GeneratedBy,
		ApprovedBy:  r.ApprovedBy,
		ApprovedAt:  r.ApprovedAt,
		PaidAt:      r.PaidAt,
	}
}

type generateRequest struct {
	StaffID    int64  `json:"staff_id"`
	Month      string `json:"month"`
	Allowances int64  `json:"allowances"`
	Deductions int64  `json:"deductions"`
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
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "month must be YYYY-MM")
		return
	}
	run, err := h.service.Generate(r.Context(), principal.ID, GenerateInput{
		StaffID:    req.StaffID,
		Month:      month,
		Allowances: req.Allowances,
		Deductions: req.Deductions,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"run": toRunView(run)})
}

func (h *Handler) handleGenerateMonth(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req struct {
		Month string `json:"month"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "month must be YYYY-MM")
		return
	}
	result, err := h.service.GenerateMonth(r.Context(), principal.ID, month)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"generated": result.Generated,
		"skipped":   result.Skipped,
	})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	runID, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid run id")
		return
	}
	run, err := h.service.Approve(r.Context(), principal.ID, runID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"run": toRunView(run)})
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	runID, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid run id")
		return
	}
	run, err := h.service.Pay(r.Context(), principal.ID, runID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"run": toRunView(run)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	runID, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid run id")
		return
	}
	run, err := h.service.Get(r.Context(), runID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"run": toRunView(run)})
}

func (h *Handler) handleByMonth(w http.ResponseWriter, r *http.Request) {
	month, err := time.Parse("2006-01", chi.URLParam(r, "month"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "month must be YYYY-MM")
		return
	}
	runs, err := h.service.ByMonth(r.Context(), month)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"runs": toRunViews(runs)})
}

func (h *Handler) handleStaffHistory(w http.ResponseWriter, r *http.Request) {
	staffID, err := parseID(r, "staffID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid staff id")
		return
	}
	runs, err := h.service.StaffHistory(r.Context(), staffID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"runs": toRunViews(runs)})
}

func toRunViews(runs []Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, toRunView(run))
	}
	return views
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateRun), errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("payroll handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
