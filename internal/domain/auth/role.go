package auth

import (
	"fmt"
	"strings"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
	RoleProctor Role = "proctor"
)

// Roles returns every known role in display order.
func Roles() []Role {
	return []Role{RoleStudent, RoleTeacher, RoleAdmin, RoleProctor}
}

// ParseRole converts s into a Role, rejecting anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleProctor:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// In reports whether r is a member of allowed.
func (r Role) In(allowed []Role) bool {
	for _, a := range allowed {
		if a == r {
			return true
		}
	}
	return false
}

// RoleProfile is the display metadata for a role on the login screen.
type RoleProfile struct {
	Name        string
	Description string
	// Theme is the CSS modifier applied to the login card once the role is picked.
	Theme string
}

// Profile returns the display metadata for r. The boolean is false for unknown roles.
func (r Role) Profile() (RoleProfile, bool) {
	switch r {
	case RoleStudent:
		return RoleProfile{Name: "Student", Description: "Take exams and view results", Theme: "theme-student"}, true
	case RoleTeacher:
		return RoleProfile{Name: "Teacher", Description: "Create and manage exams", Theme: "theme-teacher"}, true
	case RoleAdmin:
		return RoleProfile{Name: "Admin", Description: "System administration", Theme: "theme-admin"}, true
	case RoleProctor:
		return RoleProfile{Name: "Proctor", Description: "Monitor exam sessions", Theme: "theme-proctor"}, true
	default:
		return RoleProfile{}, false
	}
}
