// Package guard decides, for a session snapshot and a requested path, whether to
// render a view, show the loading placeholder or redirect. It is pure: the web
// server and the terminal client share it.
package guard

import (
	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

// Kind is the outcome of a guard evaluation.
type Kind string

const (
	KindLoading                Kind = "loading"
	KindRender                 Kind = "render"
	KindRedirectToLogin        Kind = "redirect_login"
	KindRedirectToUnauthorized Kind = "redirect_unauthorized"
	KindRedirect               Kind = "redirect"
	KindNotFound               Kind = "not_found"
)

// View names a renderable page.
type View string

const (
	ViewLogin            View = "login"
	ViewStudentDashboard View = "student_dashboard"
	ViewTeacherDashboard View = "teacher_dashboard"
	ViewAdminDashboard   View = "admin_dashboard"
	ViewProctorDashboard View = "proctor_dashboard"
	ViewUnauthorized     View = "unauthorized"
	ViewNotFound         View = "not_found"
)

// Decision is what the caller should do for a navigation.
// Location is set for every redirect kind; View is set for KindRender.
type Decision struct {
	Kind     Kind
	View     View
	Location string
}

// Redirects reports whether the decision sends the caller elsewhere.
func (d Decision) Redirects() bool { return d.Location != "" }

func loading() Decision { return Decision{Kind: KindLoading} }

func render(v View) Decision { return Decision{Kind: KindRender, View: v} }

func toLogin() Decision {
	return Decision{Kind: KindRedirectToLogin, Location: PathLogin}
}

func toUnauthorized() Decision {
	return Decision{Kind: KindRedirectToUnauthorized, Location: PathUnauthorized}
}

// Evaluate applies the protected-route rules in order: loading shows the placeholder,
// an anonymous session goes to login, a role outside a non-empty allowed set goes to
// unauthorized, anything else renders view.
func Evaluate(state domainauth.State, allowed []domainauth.Role, view View) Decision {
	if state.Loading {
		return loading()
	}
	if !state.IsAuthenticated {
		return toLogin()
	}
	if len(allowed) > 0 && !state.Role.In(allowed) {
		return toUnauthorized()
	}
	return render(view)
}

// PublicOnly guards pages that make no sense once signed in, such as login.
func PublicOnly(state domainauth.State, view View) Decision {
	if state.Loading {
		return loading()
	}
	if state.IsAuthenticated {
		return Decision{Kind: KindRedirect, Location: PathDashboard}
	}
	return render(view)
}

// DashboardFor maps each role to its dashboard view. The boolean is false for unknown roles.
func DashboardFor(role domainauth.Role) (View, bool) {
	switch role {
	case domainauth.RoleStudent:
		return ViewStudentDashboard, true
	case domainauth.RoleTeacher:
		return ViewTeacherDashboard, true
	case domainauth.RoleAdmin:
		return ViewAdminDashboard, true
	case domainauth.RoleProctor:
		return ViewProctorDashboard, true
	default:
		return "", false
	}
}

// Dashboard guards the generic dashboard entry and dispatches by role.
func Dashboard(state domainauth.State) Decision {
	d := Evaluate(state, nil, "")
	if d.Kind != KindRender {
		return d
	}
	view, ok := DashboardFor(state.Role)
	if !ok {
		return toLogin()
	}
	return render(view)
}
