package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/elimucore/elimucore/internal/approvals"
	"github.com/elimucore/elimucore/internal/attendance"
	"github.com/elimucore/elimucore/internal/auth"
	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/fees"
	"github.com/elimucore/elimucore/internal/grades"
	"github.com/elimucore/elimucore/internal/observability"
	"github.com/elimucore/elimucore/internal/payroll"
	"github.com/elimucore/elimucore/internal/platform/httpx"
	"github.com/elimucore/elimucore/internal/reports"
	"github.com/elimucore/elimucore/internal/shared"
	"github.com/elimucore/elimucore/internal/staff"
	"github.com/elimucore/elimucore/internal/students"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          authz.Middleware

	AuthHandler       *auth.Handler
	ApprovalsHandler  *approvals.Handler
	StudentsHandler   *students.Handler
	StaffHandler      *staff.Handler
	AttendanceHandler *attendance.Handler
	FeesHandler       *fees.Handler
	PayrollHandler    *payroll.Handler
	GradesHandler     *grades.Handler
	ReportsHandler    *reports.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// CSRF token bootstrap for browser clients.
	r.Get("/api/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			params.Logger.Error("issue csrf token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.Guard.Authenticate)
			r.Route("/me", params.AuthHandler.MountUserRoutes)
			r.Route("/approvals", params.ApprovalsHandler.MountRoutes)
			r.Route("/students", params.StudentsHandler.MountRoutes)
			r.Route("/staff", params.StaffHandler.MountRoutes)
			r.Route("/attendance", params.AttendanceHandler.MountRoutes)
			r.Route("/fees", params.FeesHandler.MountRoutes)
			r.Route("/payroll", params.PayrollHandler.MountRoutes)
			r.Route("/grades", params.GradesHandler.MountRoutes)
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		})
	})

	return r
}
