package guard

import (
	"path"
	"strings"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

// Application paths.
const (
	PathRoot         = "/"
	PathLogin        = "/login"
	PathDashboard    = "/dashboard"
	PathStudent      = "/student"
	PathTeacher      = "/teacher"
	PathAdmin        = "/admin"
	PathProctor      = "/proctor"
	PathUnauthorized = "/unauthorized"
)

// Access classifies how a route is guarded.
type Access string

const (
	AccessPublic     Access = "public"
	AccessPublicOnly Access = "public_only"
	AccessProtected  Access = "protected"
	AccessDispatch   Access = "dispatch"
	AccessRedirect   Access = "redirect"
)

// Route is one entry of the route table.
type Route struct {
	Path   string
	Access Access
	Roles  []domainauth.Role
	View   View
	// Target is set for AccessRedirect routes.
	Target string
}

var routes = []Route{
	{Path: PathLogin, Access: AccessPublicOnly, View: ViewLogin},
	{Path: PathDashboard, Access: AccessDispatch},
	{Path: PathStudent, Access: AccessProtected, Roles: []domainauth.Role{domainauth.RoleStudent}, View: ViewStudentDashboard},
	{Path: PathTeacher, Access: AccessProtected, Roles: []domainauth.Role{domainauth.RoleTeacher}, View: ViewTeacherDashboard},
	{Path: PathAdmin, Access: AccessProtected, Roles: []domainauth.Role{domainauth.RoleAdmin}, View: ViewAdminDashboard},
	{Path: PathProctor, Access: AccessProtected, Roles: []domainauth.Role{domainauth.RoleProctor}, View: ViewProctorDashboard},
	{Path: PathUnauthorized, Access: AccessPublic, View: ViewUnauthorized},
	{Path: PathRoot, Access: AccessRedirect, Target: PathDashboard},
}

// Routes returns a copy of the route table.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Lookup finds the route for p after cleaning it. Trailing slashes are ignored.
func Lookup(p string) (Route, bool) {
	clean := normalize(p)
	for _, r := range routes {
		if r.Path == clean {
			return r, true
		}
	}
	return Route{}, false
}

func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" || !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Apply evaluates r against state.
func (r Route) Apply(state domainauth.State) Decision {
	switch r.Access {
	case AccessPublic:
		return render(r.View)
	case AccessPublicOnly:
		return PublicOnly(state, r.View)
	case AccessProtected:
		return Evaluate(state, r.Roles, r.View)
	case AccessDispatch:
		return Dashboard(state)
	case AccessRedirect:
		return Decision{Kind: KindRedirect, Location: r.Target}
	default:
		return Decision{Kind: KindNotFound, View: ViewNotFound}
	}
}

// Navigate resolves p through the route table and applies its guard.
// Unknown paths yield KindNotFound regardless of the session.
func Navigate(state domainauth.State, p string) Decision {
	r, ok := Lookup(p)
	if !ok {
		return Decision{Kind: KindNotFound, View: ViewNotFound}
	}
	return r.Apply(state)
}
