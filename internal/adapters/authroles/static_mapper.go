package authroles

import (
	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

// StaticMapper maps identity provider groups to the roles a user may sign in as.
// A role whose group is empty is never granted.
type StaticMapper struct {
	StudentGroup string
	TeacherGroup string
	AdminGroup   string
	ProctorGroup string
}

func (m StaticMapper) group(r domainauth.Role) string {
	switch r {
	case domainauth.RoleStudent:
		return m.StudentGroup
	case domainauth.RoleTeacher:
		return m.TeacherGroup
	case domainauth.RoleAdmin:
		return m.AdminGroup
	case domainauth.RoleProctor:
		return m.ProctorGroup
	default:
		return ""
	}
}

// Allowed returns the roles granted by groups, in display order.
func (m StaticMapper) Allowed(groups []string) []domainauth.Role {
	member := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		member[g] = struct{}{}
	}
	var out []domainauth.Role
	for _, r := range domainauth.Roles() {
		g := m.group(r)
		if g == "" {
			continue
		}
		if _, ok := member[g]; ok {
			out = append(out, r)
		}
	}
	return out
}
