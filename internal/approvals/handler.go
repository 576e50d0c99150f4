package approvals

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

// Handler exposes the review queue endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers approval routes. All of them require the review
// permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermApprovalsReview))
		r.Get("/", h.handleListPending)
		r.Get("/pending", h.handleListPending)
		r.Post("/{id}/approve", h.handleApprove)
		r.Post("/{id}/reject", h.handleReject)
	})
}

type recordView struct {
	ID             int64      `json:"id"`
	ApprovableType string     `json:"approvable_type"`
	ApprovableID   int64      `json:"approvable_id"`
	UserID         int64      `json:"user_id"`
	Status         string     `json:"status"`
	ReviewedBy     *int64     `json:"reviewed_by,omitempty"`
	ReviewRemarks  string     `json:"review_remarks,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toRecordView(rec Record) recordView {
	return recordView{
		ID:             rec.ID,
		ApprovableType: string(rec.ApprovableType),
		ApprovableID:   rec.ApprovableID,
		UserID:         rec.UserID,
		Status:         string(rec.Status),
		ReviewedBy:     rec.ReviewedBy,
		ReviewRemarks:  rec.ReviewRemarks,
		ReviewedAt:     rec.ReviewedAt,
		CreatedAt:      rec.CreatedAt,
	}
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListPending(r.Context())
	if err != nil {
		h.logger.Error("list pending approvals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toRecordView(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approvals": views})
}

type reviewRequest struct {
	Remarks string `json:"remarks"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, StatusApproved)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, StatusRejected)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, status Status) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	recordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid record id")
		return
	}
	var req reviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}

	var rec Record
	if status == StatusApproved {
		rec, err = h.service.Approve(r.Context(), recordID, principal.ID, req.Remarks)
	} else {
		rec, err = h.service.Reject(r.Context(), recordID, principal.ID, req.Remarks)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrInvalidTransition):
			httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
		case errors.Is(err, ErrRemarksRequired):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		default:
			h.logger.Error("review approval", slog.Int64("record_id", recordID), slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approval": toRecordView(rec)})
}
