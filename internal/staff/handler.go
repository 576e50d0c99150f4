package staff

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/platform/httpx"
)

// Handler manages staff endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers staff routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermStaffView))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermStaffManage))
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

type memberView struct {
	ID             int64     `json:"id"`
	UserID         *int64    `json:"user_id,omitempty"`
	StaffNumber    string    `json:"staff_number"`
	TSCNumber      string    `json:"tsc_number,omitempty"`
	NationalID     string    `json:"national_id,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Department     string    `json:"department,omitempty"`
	Designation    string    `json:"designation,omitempty"`
	EmploymentType string    `json:"employment_type"`
	BasicSalary    int64     `json:"basic_salary"`
	HireDate       string    `json:"hire_date"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMemberView(m Member) memberView {
	view := memberView{
		ID:             m.ID,
		UserID:         m.UserID,
		StaffNumber:    m.StaffNumber,
		TSCNumber:      m.TSCNumber,
		NationalID:     m.NationalID,
		Phone:          m.Phone,
		Department:     m.Department,
		Designation:    m.Designation,
		EmploymentType: string(m.EmploymentType),
		BasicSalary:    m.BasicSalary,
		Status:         string(m.Status),
		CreatedAt:      m.CreatedAt,
	}
	if !m.HireDate.IsZero() {
		view.HireDate = m.HireDate.Format("2006-01-02")
	}
	return view
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	members, err := h.service.List(r.Context(), ListFilters{
		Department:     r.URL.Query().Get("department"),
		EmploymentType: EmploymentType(r.URL.Query().Get("employment_type")),
		Status:         Status(r.URL.Query().Get("status")),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		h.logger.Error("list staff", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, toMemberView(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid staff id")
		return
	}
	member, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": toMemberView(member)})
}

type createStaffRequest struct {
	UserID         *int64 `json:"user_id"`
	StaffNumber    string `json:"staff_number" validate:"required,max=32"`
	TSCNumber      string `json:"tsc_number" validate:"max=32"`
	NationalID     string `json:"national_id" validate:"max=32"`
	Phone          string `json:"phone" validate:"max=32"`
	Department     string `json:"department" validate:"max=128"`
	Designation    string `json:"designation" validate:"max=128"`
	EmploymentType string `json:"employment_type" validate:"required,oneof=tsc bom"`
	BasicSalary    int64  `json:"basic_salary" validate:"min=0"`
	HireDate       string `json:"hire_date"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	hireDate, _ := time.Parse("2006-01-02", req.HireDate)
	member, err := h.service.Create(r.Context(), CreateInput{
		UserID:         req.UserID,
		StaffNumber:    req.StaffNumber,
		TSCNumber:      req.TSCNumber,
		NationalID:     req.NationalID,
		Phone:          req.Phone,
		Department:     req.Department,
		Designation:    req.Designation,
		EmploymentType: EmploymentType(req.EmploymentType),
		BasicSalary:    req.BasicSalary,
		HireDate:       hireDate,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"staff": toMemberView(member)})
}

type updateStaffRequest struct {
	TSCNumber      string `json:"tsc_number" validate:"max=32"`
	NationalID     string `json:"national_id" validate:"max=32"`
	Phone          string `json:"phone" validate:"max=32"`
	Department     string `json:"department" validate:"max=128"`
	Designation    string `json:"designation" validate:"max=128"`
	EmploymentType string `json:"employment_type" validate:"omitempty,oneof=tsc bom"`
	BasicSalary    *int64 `json:"basic_salary"`
	Status         string `json:"status" validate:"omitempty,oneof=active on_leave suspended terminated"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid staff id")
		return
	}
	var req updateStaffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	member, err := h.service.Update(r.Context(), id, UpdateInput{
		TSCNumber:      req.TSCNumber,
		NationalID:     req.NationalID,
		Phone:          req.Phone,
		Department:     req.Department,
		Designation:    req.Designation,
		EmploymentType: EmploymentType(req.EmploymentType),
		BasicSalary:    req.BasicSalary,
		Status:         Status(req.Status),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": toMemberView(member)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid staff id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "staff member deleted"})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateStaffNumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("staff handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
