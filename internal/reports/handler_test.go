package reports

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/elimucore/elimucore/internal/authz"
)

func newReportsRouter(t *testing.T, repo RepositoryPort, principal authz.Principal) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(repo, &stubEnqueuer{}, stubBuilder{}, logger)
	handler := NewHandler(logger, service, authz.Middleware{Logger: logger})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authz.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	r.Route("/reports", handler.MountRoutes)
	return r
}

func activeAs(role authz.Role) authz.Principal {
	return authz.Principal{ID: 9, Role: role, IsApproved: true, IsActive: true}
}

func TestBursarGeneratesFinancialReport(t *testing.T) {
	router := newReportsRouter(t, newMemoryReports(), activeAs(authz.RoleBursar))

	req := httptest.NewRequest(http.MethodPost, "/reports/generate",
		strings.NewReader(`{"type":"financial"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusAccepted, res.Code, res.Body.String())
}

func TestPerTypePermissionsReachable(t *testing.T) {
	cases := []struct {
		role       authz.Role
		reportType string
		want       int
	}{
		{authz.RoleBursar, "financial", http.StatusAccepted},
		{authz.RoleBursar, "payroll", http.StatusAccepted},
		{authz.RoleBursar, "academic", http.StatusForbidden},
		{authz.RoleDeputyAcademic, "academic", http.StatusAccepted},
		{authz.RoleDeputyAcademic, "financial", http.StatusForbidden},
		{authz.RoleDeputyAdmin, "attendance", http.StatusAccepted},
		{authz.RoleDeputyAdmin, "payroll", http.StatusForbidden},
		{authz.RolePrincipal, "enrollment", http.StatusAccepted},
		{authz.RolePrincipal, "financial", http.StatusAccepted},
	}
	for _, tc := range cases {
		router := newReportsRouter(t, newMemoryReports(), activeAs(tc.role))
		body := `{"type":"` + tc.reportType + `","term":1,"year":2026}`
		req := httptest.NewRequest(http.MethodPost, "/reports/generate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		require.Equal(t, tc.want, res.Code, "role %s type %s: %s", tc.role, tc.reportType, res.Body.String())
	}
}

func TestTeacherBlockedFromReports(t *testing.T) {
	router := newReportsRouter(t, newMemoryReports(), activeAs(authz.RoleTeacher))

	req := httptest.NewRequest(http.MethodGet, "/reports/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestSummaryEndpoints(t *testing.T) {
	cases := []struct {
		role string
		path string
		want int
	}{
		{"bursar", "/reports/fees", http.StatusOK},
		{"bursar", "/reports/payroll", http.StatusOK},
		{"bursar", "/reports/academic?term=1&year=2026", http.StatusForbidden},
		{"deputy_academic", "/reports/academic?term=1&year=2026", http.StatusOK},
		{"deputy_admin", "/reports/attendance", http.StatusOK},
		{"principal", "/reports/enrollment", http.StatusOK},
		{"super_admin", "/reports/payroll", http.StatusOK},
	}
	for _, tc := range cases {
		router := newReportsRouter(t, newMemoryReports(), activeAs(authz.Role(tc.role)))
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		require.Equal(t, tc.want, res.Code, "role %s path %s: %s", tc.role, tc.path, res.Body.String())
	}
}

func TestSummaryAcademicRequiresTermAndYear(t *testing.T) {
	router := newReportsRouter(t, newMemoryReports(), activeAs(authz.RoleDeputyAcademic))

	req := httptest.NewRequest(http.MethodGet, "/reports/academic", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
}

func TestListFiltersByTypePermission(t *testing.T) {
	repo := newMemoryReports()
	repo.reports["a"] = Report{ID: "a", Type: TypeFinancial, Status: StatusCompleted}
	repo.reports["b"] = Report{ID: "b", Type: TypeAcademic, Status: StatusCompleted}
	router := newReportsRouter(t, repo, activeAs(authz.RoleBursar))

	req := httptest.NewRequest(http.MethodGet, "/reports/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"id":"a"`)
	require.NotContains(t, res.Body.String(), `"id":"b"`)
}

func TestGetDeniedForOtherType(t *testing.T) {
	repo := newMemoryReports()
	repo.reports["b"] = Report{ID: "b", Type: TypeAcademic, Status: StatusCompleted, ArtifactPath: "/tmp/b.csv"}
	router := newReportsRouter(t, repo, activeAs(authz.RoleBursar))

	req := httptest.NewRequest(http.MethodGet, "/reports/b", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}
