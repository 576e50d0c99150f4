package fees

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
	"github.com/elimucore/elimucore/internal/shared"
)

// IdempotencyKeyHeader carries the client's retry token on payment recording.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler manages fee and payment endpoints.
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

// MountRoutes registers fee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermFeesView))
		r.Get("/{id}", h.handleGetFee)
		r.Get("/{id}/payments", h.handleFeePayments)
		r.Get("/students/{studentID}", h.handleStudentFees)
		r.Get("/arrears", h.handleArrears)
		r.Get("/collections", h.handleCollections)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermFeesManage))
		r.Post("/", h.handleCreateFee)
		r.Post("/payments", h.handleRecordPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermPaymentsVerify))
		r.Get("/payments/pending", h.handlePendingPayments)
		r.Post("/payments/{id}/verify", h.handleVerifyPayment)
		r.Post("/payments/{id}/reject", h.handleRejectPayment)
	})
}

type feeView struct {
	ID             int64  `json:"id"`
	StudentID      int64  `json:"student_id"`
	FeeType        string `json:"fee_type"`
	Term           int    `json:"term"`
	Year           int    `json:"year"`
	Amount         int64  `json:"amount"`
	AmountPaid     int64  `json:"amount_paid"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	DueDate        string `json:"due_date"`
	Status         string `json:"status"`
}

func toFeeView(f Fee) feeView {
	return feeView{
		ID:             f.ID,
		StudentID:      f.StudentID,
		FeeType:        f.FeeType,
		Term:           f.Term,
		Year:           f.Year,
		Amount:         f.Amount,
		AmountPaid:     f.AmountPaid,
		Balance:        f.Balance(),
		BalanceDisplay: FormatMoney(f.Balance()),
		DueDate:        f.DueDate.Format("2006-01-02"),
		Status:         string(f.Status),
	}
}

type paymentView struct {
	ID             int64      `json:"id"`
	FeeID          int64      `json:"fee_id"`
	StudentID      int64      `json:"student_id"`
	Amount         int64      `json:"amount"`
	AmountDisplay  string     `json:"amount_display"`
	Method         string     `json:"method"`
	TransactionRef string     `json:"transaction_ref,omitempty"`
	ReceiptNumber  string     `json:"receipt_number"`
	PaymentDate    string     `json:"payment_date"`
	Status         string     `json:"status"`
	Remarks        string     `json:"remarks,omitempty"`
	RecordedBy     int64      `json:"recorded_by"`
	VerifiedBy     *int64     `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
}

func toPaymentView(p Payment) paymentView {
	return paymentView{
		ID:             p.ID,
		FeeID:          p.FeeID,
		StudentID:      p.StudentID,
		Amount:         p.Amount,
		AmountDisplay:  FormatMoney(p.Amount),
		Method:         string(p.Method),
		TransactionRef: p.TransactionRef,
		ReceiptNumber:  p.ReceiptNumber,
		PaymentDate:    p.PaymentDate.Format("2006-01-02"),
		Status:         string(p.Status),
		Remarks:        p.Remarks,
		RecordedBy:     p.RecordedBy,
		VerifiedBy:     p.VerifiedBy,
		VerifiedAt:     p.VerifiedAt,
	}
}

type createFeeRequest struct {
	StudentID int64  `json:"student_id" validate:"required"`
	FeeType   string `json:"fee_type" validate:"required,max=64"`
	Term      int    `json:"term" validate:"required,min=1,max=3"`
	Year      int    `json:"year" validate:"required,min=2000"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	DueDate   string `json:"due_date"`
}

func (h *Handler) handleCreateFee(w http.ResponseWriter, r *http.Request) {
	var req createFeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	dueDate, _ := time.Parse("2006-01-02", req.DueDate)
	fee, err := h.service.CreateFee(r.Context(), CreateFeeInput{
		StudentID: req.StudentID,
		FeeType:   req.FeeType,
		Term:      req.Term,
		Year:      req.Year,
		Amount:    req.Amount,
		DueDate:   dueDate,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"fee": toFeeView(fee)})
}

func (h *Handler) handleGetFee(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fee id")
		return
	}
	fee, err := h.service.GetFee(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fee": toFeeView(fee)})
}

func (h *Handler) handleStudentFees(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseID(r, "studentID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid student id")
		return
	}
	fees, err := h.service.StudentFees(r.Context(), studentID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fees": toFeeViews(fees)})
}

func (h *Handler) handleArrears(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	fees, err := h.service.Arrears(r.Context(), limit, offset)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"arrears": toFeeViews(fees)})
}

func (h *Handler) handleCollections(w http.ResponseWriter, r *http.Request) {
	from, _ := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	to, _ := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	summary, err := h.service.CollectionReport(r.Context(), from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summary": map[string]any{
		"from":                   summary.From.Format("2006-01-02"),
		"to":                     summary.To.Format("2006-01-02"),
		"total_billed":           summary.TotalBilled,
		"total_verified":         summary.TotalVerified,
		"total_pending":          summary.TotalPending,
		"payment_count":          summary.PaymentCount,
		"total_verified_display": FormatMoney(summary.TotalVerified),
	}})
}

type recordPaymentRequest struct {
	FeeID          int64  `json:"fee_id" validate:"required"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Method         string `json:"method" validate:"required,oneof=cash mpesa bank_transfer cheque bursary"`
	TransactionRef string `json:"transaction_ref" validate:"max=128"`
	PaymentDate    string `json:"payment_date"`
	Remarks        string `json:"remarks" validate:"max=500"`
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req recordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	paymentDate, _ := time.Parse("2006-01-02", req.PaymentDate)
	payment, err := h.service.RecordPayment(r.Context(), principal.ID, RecordPaymentInput{
		FeeID:          req.FeeID,
		Amount:         req.Amount,
		Method:         PaymentMethod(req.Method),
		TransactionRef: req.TransactionRef,
		PaymentDate:    paymentDate,
		Remarks:        req.Remarks,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"payment": toPaymentView(payment)})
}

func (h *Handler) handleFeePayments(w http.ResponseWriter, r *http.Request) {
	feeID, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fee id")
		return
	}
	payments, err := h.service.FeePayments(r.Context(), feeID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": toPaymentViews(payments)})
}

func (h *Handler) handlePendingPayments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	payments, err := h.service.PendingPayments(r.Context(), limit, offset)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": toPaymentViews(payments)})
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	paymentID, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}
	payment, err := h.service.VerifyPayment(r.Context(), principal.ID, paymentID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payment": toPaymentView(payment)})
}

func (h *Handler) handleRejectPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	paymentID, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}
	var req struct {
		Remarks string `json:"remarks"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	payment, err := h.service.RejectPayment(r.Context(), principal.ID, paymentID, req.Remarks)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payment": toPaymentView(payment)})
}

func toFeeViews(fees []Fee) []feeView {
	views := make([]feeView, 0, len(fees))
	for _, f := range fees {
		views = append(views, toFeeView(f))
	}
	return views
}

func toPaymentViews(payments []Payment) []paymentView {
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, toPaymentView(p))
	}
	return views
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyReviewed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrOverpayment), errors.Is(err, ErrRemarksRequired), errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("fees handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
