package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
	"github.com/target/exam-portal/internal/guard"
	"github.com/target/exam-portal/internal/service"
	"github.com/target/exam-portal/internal/session"
)

// MsgBusy is shown when a second sign-in is submitted while one is in flight.
const MsgBusy = "A sign-in attempt is already in progress"

type roleCard struct {
	Role     domainauth.Role
	Profile  domainauth.RoleProfile
	Selected bool
}

type loginView struct {
	Cards    []roleCard
	Selected domainauth.Role
	Theme    string
	Email    string
	Error    string
}

func newLoginView(selected domainauth.Role, email, errMsg string) loginView {
	v := loginView{Selected: selected, Email: email, Error: errMsg}
	for _, r := range domainauth.Roles() {
		p, _ := r.Profile()
		v.Cards = append(v.Cards, roleCard{Role: r, Profile: p, Selected: r == selected})
		if r == selected {
			v.Theme = p.Theme
		}
	}
	return v
}

// loginForm is validated in field order, so a missing role is reported before
// missing fields and missing fields before a malformed email.
type loginForm struct {
	Role     string `json:"role"     validate:"required,oneof=student teacher admin proctor"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
}

func (f loginForm) problem() string {
	err := service.Validate(f)
	if err == nil {
		return ""
	}
	if apperrors.GetField(err) == "role" {
		return session.MsgMissingRole
	}
	return apperrors.PublicMessage(err, session.MsgMissingFields)
}

// loginPage handles GET /login. ?role= preselects a role card.
func (h *UIHandlers) loginPage(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	role, _ := domainauth.ParseRole(r.URL.Query().Get("role"))
	p := h.page(r, st, "page-login", "Sign in")
	p.Data = newLoginView(role, "", st.State().Error)
	h.render(w, http.StatusOK, p)
}

// login handles POST /login. Success redirects to the dashboard; failure re-renders
// the form with the error and keeps the selected role.
func (h *UIHandlers) login(w http.ResponseWriter, r *http.Request, st *session.Store) {
	if st.State().IsAuthenticated {
		redirect(w, r, guard.PathDashboard)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	form := loginForm{
		Role:     strings.ToLower(strings.TrimSpace(r.PostForm.Get("role"))),
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	role := domainauth.Role(form.Role)
	if !role.Valid() {
		role = ""
	}
	if msg := form.problem(); msg != "" {
		h.renderLogin(w, r, st, http.StatusUnprocessableEntity, newLoginView(role, form.Email, msg))
		return
	}

	err := st.Login(r.Context(), domainauth.Credentials{Email: form.Email, Password: form.Password, Role: role})
	switch {
	case err == nil:
		redirect(w, r, guard.PathDashboard)
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		redirect(w, r, guard.PathDashboard)
	case errors.Is(err, session.ErrLoginInProgress):
		h.renderLogin(w, r, st, http.StatusConflict, newLoginView(role, form.Email, MsgBusy))
	case errors.Is(err, session.ErrLoginSuperseded):
		redirect(w, r, guard.PathLogin)
	default:
		status := http.StatusUnauthorized
		if errors.Is(err, domainauth.ErrGatewayUnreachable) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		msg := st.State().Error
		if msg == "" {
			msg = session.Message(err)
		}
		h.renderLogin(w, r, st, status, newLoginView(role, form.Email, msg))
	}
}

func (h *UIHandlers) renderLogin(w http.ResponseWriter, r *http.Request, st *session.Store, status int, v loginView) {
	p := h.page(r, st, "page-login", "Sign in")
	p.Data = v
	h.render(w, status, p)
}

// clearError handles POST /login/clear-error, sent by htmx as the user edits the form.
func (h *UIHandlers) clearError(w http.ResponseWriter, _ *http.Request, st *session.Store) {
	st.ClearError()
	if err := h.Renderer.RenderFragment(w, "login-error", ""); err != nil {
		h.logger().Error("render login error fragment failed", "error", err)
	}
}

// logout handles POST /logout: revoke the token remotely when possible, then clear
// the local session regardless.
func (h *UIHandlers) logout(w http.ResponseWriter, r *http.Request, st *session.Store) {
	ctx := r.Context()
	if tok, err := st.Token(ctx); err == nil && tok != "" {
		if err := h.client(st).Auth().Logout(ctx); err != nil {
			h.logger().DebugContext(ctx, "remote logout failed", "error", err)
		}
	}
	if err := st.Logout(ctx); err != nil {
		h.logger().WarnContext(ctx, "logout incomplete", "error", err)
	}
	redirect(w, r, guard.PathLogin)
}

// unauthorized handles GET /unauthorized.
func (h *UIHandlers) unauthorized(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.render(w, http.StatusForbidden, h.page(r, st, "page-unauthorized", "Access denied"))
}

// fallback handles every path the mux has no other pattern for: / redirects to the
// dashboard and unknown paths get the not-found page.
func (h *UIHandlers) fallback(w http.ResponseWriter, r *http.Request, st *session.Store) {
	d := guard.Navigate(st.State(), r.URL.Path)
	h.metrics().RecordGuard(string(d.View), string(d.Kind))
	if d.Kind == guard.KindRedirect && r.Method == http.MethodGet {
		redirect(w, r, d.Location)
		return
	}
	h.notFound(w, r, st)
}
