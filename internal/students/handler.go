package students

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

// Handler manages student endpoints.
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

// MountRoutes registers student routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermStudentsView))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/guardians", h.handleListGuardians)
		r.Get("/class-levels", h.handleClassLevels)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermStudentsManage))
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/guardians", h.handleAddGuardian)
	})
}

type studentView struct {
	ID              int64     `json:"id"`
	UserID          *int64    `json:"user_id,omitempty"`
	AdmissionNumber string    `json:"admission_number"`
	NationalID      string    `json:"national_id,omitempty"`
	ClassLevelID    int64     `json:"class_level_id"`
	Stream          string    `json:"stream,omitempty"`
	DateOfBirth     string    `json:"date_of_birth,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	AdmissionDate   string    `json:"admission_date"`
	Status          string    `json:"status"`
	IsApproved      bool      `json:"is_approved"`
	CreatedAt       time.Time `json:"created_at"`
}

func toStudentView(s Student) studentView {
	view := studentView{
		ID:              s.ID,
		UserID:          s.UserID,
		AdmissionNumber: s.AdmissionNumber,
		NationalID:      s.NationalID,
		ClassLevelID:    s.ClassLevelID,
		Stream:          s.Stream,
		Gender:          s.Gender,
		Phone:           s.Phone,
		Status:          string(s.Status),
		IsApproved:      s.IsApproved,
		CreatedAt:       s.CreatedAt,
	}
	if !s.DateOfBirth.IsZero() {
		view.DateOfBirth = s.DateOfBirth.Format("2006-01-02")
	}
	if !s.AdmissionDate.IsZero() {
		view.AdmissionDate = s.AdmissionDate.Format("2006-01-02")
	}
	return view
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	classLevelID, _ := strconv.ParseInt(r.URL.Query().Get("class_level_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	list, err := h.service.List(r.Context(), ListFilters{
		ClassLevelID: classLevelID,
		Status:       Status(r.URL.Query().Get("status")),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.logger.Error("list students", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]studentView, 0, len(list))
	for _, s := range list {
		views = append(views, toStudentView(s))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"students": views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	student, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"student": toStudentView(student)})
}

type createStudentRequest struct {
	UserID          *int64 `json:"user_id"`
	AdmissionNumber string `json:"admission_number" validate:"required,max=32"`
	NationalID      string `json:"national_id" validate:"max=32"`
	ClassLevelID    int64  `json:"class_level_id" validate:"required"`
	Stream          string `json:"stream" validate:"max=32"`
	DateOfBirth     string `json:"date_of_birth"`
	Gender          string `json:"gender" validate:"omitempty,oneof=male female"`
	Phone           string `json:"phone" validate:"max=32"`
	AdmissionDate   string `json:"admission_date"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	dob, _ := time.Parse("2006-01-02", req.DateOfBirth)
	admitted, _ := time.Parse("2006-01-02", req.AdmissionDate)
	student, err := h.service.Create(r.Context(), CreateInput{
		UserID:          req.UserID,
		AdmissionNumber: req.AdmissionNumber,
		NationalID:      req.NationalID,
		ClassLevelID:    req.ClassLevelID,
		Stream:          req.Stream,
		DateOfBirth:     dob,
		Gender:          req.Gender,
		Phone:           req.Phone,
		AdmissionDate:   admitted,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"student": toStudentView(student)})
}

type updateStudentRequest struct {
	NationalID   string `json:"national_id" validate:"max=32"`
	ClassLevelID int64  `json:"class_level_id"`
	Stream       string `json:"stream" validate:"max=32"`
	DateOfBirth  string `json:"date_of_birth"`
	Gender       string `json:"gender" validate:"omitempty,oneof=male female"`
	Phone        string `json:"phone" validate:"max=32"`
	Status       string `json:"status" validate:"omitempty,oneof=active suspended graduated transferred"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	var req updateStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	dob, _ := time.Parse("2006-01-02", req.DateOfBirth)
	student, err := h.service.Update(r.Context(), id, UpdateInput{
		NationalID:   req.NationalID,
		ClassLevelID: req.ClassLevelID,
		Stream:       req.Stream,
		DateOfBirth:  dob,
		Gender:       req.Gender,
		Phone:        req.Phone,
		Status:       Status(req.Status),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"student": toStudentView(student)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "student deleted"})
}

type guardianView struct {
	ID              int64  `json:"id"`
	StudentID       int64  `json:"student_id"`
	Name            string `json:"name"`
	Relationship    string `json:"relationship,omitempty"`
	Phone           string `json:"phone"`
	Email           string `json:"email,omitempty"`
	IDNumber        string `json:"id_number,omitempty"`
	Occupation      string `json:"occupation,omitempty"`
	Address         string `json:"address,omitempty"`
	ContactPriority string `json:"contact_priority"`
}

func toGuardianView(g Guardian) guardianView {
	return guardianView{
		ID:              g.ID,
		StudentID:       g.StudentID,
		Name:            g.Name,
		Relationship:    g.Relationship,
		Phone:           g.Phone,
		Email:           g.Email,
		IDNumber:        g.IDNumber,
		Occupation:      g.Occupation,
		Address:         g.Address,
		ContactPriority: string(g.ContactPriority),
	}
}

func (h *Handler) handleListGuardians(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	guardians, err := h.service.Guardians(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	views := make([]guardianView, 0, len(guardians))
	for _, g := range guardians {
		views = append(views, toGuardianView(g))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"guardians": views})
}

type addGuardianRequest struct {
	Name            string `json:"name" validate:"required,max=255"`
	Relationship    string `json:"relationship" validate:"max=64"`
	Phone           string `json:"phone" validate:"required,max=32"`
	Email           string `json:"email" validate:"omitempty,email"`
	IDNumber        string `json:"id_number" validate:"max=32"`
	Occupation      string `json:"occupation" validate:"max=128"`
	Address         string `json:"address" validate:"max=255"`
	ContactPriority string `json:"contact_priority" validate:"omitempty,oneof=primary secondary emergency"`
}

func (h *Handler) handleAddGuardian(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	var req addGuardianRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	guardian, err := h.service.AddGuardian(r.Context(), id, GuardianInput{
		Name:            req.Name,
		Relationship:    req.Relationship,
		Phone:           req.Phone,
		Email:           req.Email,
		IDNumber:        req.IDNumber,
		Occupation:      req.Occupation,
		Address:         req.Address,
		ContactPriority: ContactPriority(req.ContactPriority),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"guardian": toGuardianView(guardian)})
}

type classLevelView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) handleClassLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.ClassLevels(r.Context())
	if err != nil {
		h.logger.Error("list class levels", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]classLevelView, 0, len(levels))
	for _, l := range levels {
		views = append(views, classLevelView{ID: l.ID, Name: l.Name, Level: l.Level, Description: l.Description})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"class_levels": views})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateAdmission):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("students handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
