package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/exam-portal/internal/apiclient"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
	"github.com/target/exam-portal/internal/guard"
	"github.com/target/exam-portal/internal/service"
	"github.com/target/exam-portal/internal/session"
)

// RouterServices holds everything the HTTP router serves.
type RouterServices struct {
	// JSON API. Auth is required when EnableAPI is set.
	Auth    *service.AuthService
	Student *service.StudentService
	Teacher *service.TeacherService
	Admin   *service.AdminService
	Proctor *service.ProctorService

	// Browser dashboards. Registry, API and Renderer are required when EnableUI is set.
	Registry *session.Registry
	API      *apiclient.Client
	Renderer *TemplateRenderer
	StaticFS fs.FS // Optional: served under /static/

	MetricsHandler http.Handler // Optional: served at /metrics
	Metrics        Recorder     // Optional

	EnableAPI bool
	EnableUI  bool

	CookieDomain  string
	SecureCookies bool
	// Compression is applied to every response when set.
	Compression *CompressionConfig

	Logger *slog.Logger
	Now    func() time.Time
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := services.Metrics
	if rec == nil {
		rec = nopRecorder{}
	}

	var sessions func() int
	if services.Registry != nil {
		sessions = services.Registry.Len
	}
	mux.Handle("GET /healthz", healthHandler(sessions))
	if services.MetricsHandler != nil {
		mux.Handle("GET /metrics", services.MetricsHandler)
	}
	if services.StaticFS != nil {
		mux.Handle("GET /static/", staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(services.StaticFS)))))
	}

	if services.EnableAPI && services.Auth != nil {
		registerAPIRoutes(mux, services, rec, logger)
	}

	if services.EnableUI && services.Registry != nil && services.Renderer != nil && services.API != nil {
		ui := &UIHandlers{
			Renderer: services.Renderer,
			API:      services.API,
			Metrics:  rec,
			Logger:   logger,
			Now:      services.Now,
		}
		device := DeviceSession(DeviceSessionConfig{
			Registry:     services.Registry,
			CookieDomain: services.CookieDomain,
			Secure:       services.SecureCookies,
			Logger:       logger,
		})
		csrf := CSRFProtection(CSRFConfig{
			CookieDomain: services.CookieDomain,
			Secure:       services.SecureCookies,
			Logger:       logger,
		})
		registerUIRoutes(mux, ui, func(next http.Handler) http.Handler {
			return device(csrf(next))
		})
	}

	mws := []func(http.Handler) http.Handler{Logging(logger), Recover(logger)}
	if services.Compression != nil {
		mws = append(mws, Compression(*services.Compression))
	}
	return chain(mux, mws...)
}

func registerAPIRoutes(mux *http.ServeMux, services RouterServices, rec Recorder, logger *slog.Logger) {
	auth := &AuthHandlers{Svc: services.Auth, Metrics: rec, Logger: logger}
	mux.HandleFunc("POST /api/auth/login", auth.Login)
	mux.HandleFunc("POST /api/auth/logout", auth.Logout)
	mux.HandleFunc("POST /api/auth/refresh", auth.Refresh)

	authed := RequireToken(services.Auth, rec)
	as := func(role domainauth.Role, h http.HandlerFunc) http.Handler {
		return chain(h, authed, RequireRole(rec, role))
	}

	if services.Student != nil {
		h := &StudentHandlers{Svc: services.Student, Metrics: rec}
		mux.Handle("GET /api/student/exams", as(domainauth.RoleStudent, h.Exams))
		mux.Handle("GET /api/student/exams/{id}", as(domainauth.RoleStudent, h.Exam))
		mux.Handle("POST /api/student/exams/{id}/start", as(domainauth.RoleStudent, h.Start))
		mux.Handle("POST /api/student/exams/{id}/submit", as(domainauth.RoleStudent, h.Submit))
		mux.Handle("GET /api/student/results", as(domainauth.RoleStudent, h.Results))
	}
	if services.Teacher != nil {
		h := &TeacherHandlers{Svc: services.Teacher, Metrics: rec}
		mux.Handle("GET /api/teacher/exams", as(domainauth.RoleTeacher, h.Exams))
		mux.Handle("POST /api/teacher/exams", as(domainauth.RoleTeacher, h.Create))
		mux.Handle("PUT /api/teacher/exams/{id}", as(domainauth.RoleTeacher, h.Update))
		mux.Handle("DELETE /api/teacher/exams/{id}", as(domainauth.RoleTeacher, h.Delete))
		mux.Handle("GET /api/teacher/exams/{id}/submissions", as(domainauth.RoleTeacher, h.Submissions))
		mux.Handle("POST /api/teacher/submissions/{id}/grade", as(domainauth.RoleTeacher, h.Grade))
	}
	if services.Admin != nil {
		h := &AdminHandlers{Svc: services.Admin, Metrics: rec}
		mux.Handle("GET /api/admin/users", as(domainauth.RoleAdmin, h.Users))
		mux.Handle("POST /api/admin/users", as(domainauth.RoleAdmin, h.Create))
		mux.Handle("PUT /api/admin/users/{id}", as(domainauth.RoleAdmin, h.Update))
		mux.Handle("DELETE /api/admin/users/{id}", as(domainauth.RoleAdmin, h.Delete))
		mux.Handle("GET /api/admin/stats", as(domainauth.RoleAdmin, h.Stats))
		mux.Handle("POST /api/admin/reports", as(domainauth.RoleAdmin, h.Report))
	}
	if services.Proctor != nil {
		h := &ProctorHandlers{Svc: services.Proctor, Metrics: rec}
		mux.Handle("GET /api/proctor/exams/active", as(domainauth.RoleProctor, h.ActiveExams))
		mux.Handle("GET /api/proctor/exams/{id}/students", as(domainauth.RoleProctor, h.Students))
		mux.Handle("GET /api/proctor/exams/{id}/logs", as(domainauth.RoleProctor, h.Logs))
		mux.Handle("POST /api/proctor/exams/{id}/flags", as(domainauth.RoleProctor, h.Flag))
		mux.Handle("POST /api/proctor/exams/{id}/end", as(domainauth.RoleProctor, h.End))
	}

	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		WriteAppError(w, nil, apperrors.NotFound("No such endpoint"))
	})
}

// registerUIRoutes mounts the dashboards behind wrap, which resolves the device
// session and checks the CSRF token on POSTs.
func registerUIRoutes(mux *http.ServeMux, h *UIHandlers, wrap func(http.Handler) http.Handler) {
	handle := func(pattern string, next http.HandlerFunc) {
		mux.Handle(pattern, wrap(next))
	}

	handle("GET /login", h.guarded(guard.PathLogin, h.loginPage))
	handle("POST /login", h.withStore(h.login))
	handle("POST /login/clear-error", h.withStore(h.clearError))
	handle("POST /logout", h.withStore(h.logout))
	handle("GET /unauthorized", h.guarded(guard.PathUnauthorized, h.unauthorized))
	handle("GET /dashboard", h.guarded(guard.PathDashboard, h.dashboard))

	handle("GET /student", h.guarded(guard.PathStudent, h.studentDashboard))
	handle("POST /student/exams/{id}/start", h.guarded(guard.PathStudent, h.startExam))
	handle("POST /student/exams/{id}/submit", h.guarded(guard.PathStudent, h.submitExam))

	handle("GET /teacher", h.guarded(guard.PathTeacher, h.teacherDashboard))
	handle("POST /teacher/exams", h.guarded(guard.PathTeacher, h.createExam))
	handle("POST /teacher/exams/{id}/delete", h.guarded(guard.PathTeacher, h.deleteExam))
	handle("POST /teacher/submissions/{id}/grade", h.guarded(guard.PathTeacher, h.gradeSubmission))

	handle("GET /admin", h.guarded(guard.PathAdmin, h.adminDashboard))
	handle("POST /admin/users", h.guarded(guard.PathAdmin, h.createUser))
	handle("POST /admin/users/{id}/delete", h.guarded(guard.PathAdmin, h.deleteUser))
	handle("POST /admin/reports", h.guarded(guard.PathAdmin, h.generateReport))

	handle("GET /proctor", h.guarded(guard.PathProctor, h.proctorDashboard))
	handle("POST /proctor/exams/{id}/flags", h.guarded(guard.PathProctor, h.flagStudent))
	handle("POST /proctor/exams/{id}/end", h.guarded(guard.PathProctor, h.endMonitoring))

	handle("/", h.withStore(h.fallback))
}

// staticWithCacheHeaders lets browsers cache embedded assets briefly. Asset names
// are not content-hashed, so the lifetime stays short.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		handler.ServeHTTP(w, r)
	})
}
