package exam

import (
	"strings"
	"time"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

// AccountStatus is the administrative status of a directory account.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Account is a user directory entry managed by admins.
type Account struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Role         domainauth.Role `json:"role"`
	Department   string          `json:"department,omitempty"`
	Status       AccountStatus   `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    *time.Time      `json:"updatedAt,omitempty"`
	PasswordHash []byte          `json:"-"`
}

// AccountInput is the admin-editable part of an account.
type AccountInput struct {
	Name       string          `json:"name"       validate:"required"`
	Email      string          `json:"email"      validate:"required,email"`
	Role       domainauth.Role `json:"role"       validate:"required,oneof=student teacher admin proctor"`
	Department string          `json:"department"`
	Password   string          `json:"password,omitempty"`
}

// AccountFilter narrows the directory listing. Search matches name or email
// case-insensitively; an empty Role matches every role.
type AccountFilter struct {
	Search string
	Role   domainauth.Role
}

// Match reports whether a satisfies the filter.
func (f AccountFilter) Match(a Account) bool {
	if f.Role != "" && a.Role != f.Role {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Name), q) || strings.Contains(strings.ToLower(a.Email), q)
}

// Apply filters accounts, preserving order.
func (f AccountFilter) Apply(accounts []Account) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// RoleCounts tallies accounts per role.
type RoleCounts struct {
	Total    int `json:"total"`
	Students int `json:"students"`
	Teachers int `json:"teachers"`
	Admins   int `json:"admins"`
	Proctors int `json:"proctors"`
}

// CountByRole tallies accounts per role.
func CountByRole(accounts []Account) RoleCounts {
	c := RoleCounts{Total: len(accounts)}
	for _, a := range accounts {
		switch a.Role {
		case domainauth.RoleStudent:
			c.Students++
		case domainauth.RoleTeacher:
			c.Teachers++
		case domainauth.RoleAdmin:
			c.Admins++
		case domainauth.RoleProctor:
			c.Proctors++
		}
	}
	return c
}

// SystemStats summarises platform activity for admins.
type SystemStats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalExams       int `json:"totalExams"`
	ActiveExams      int `json:"activeExams"`
	TotalSubmissions int `json:"totalSubmissions"`
}

// ReportRequest asks for a report of Type, optionally narrowed by a JMESPath Filter
// evaluated against the report dataset.
type ReportRequest struct {
	Type   string `json:"type"   validate:"required,oneof=users exams submissions activity"`
	Filter string `json:"filter"`
}

// Report is a generated report.
type Report struct {
	Success     bool      `json:"success"`
	ReportID    string    `json:"reportId"`
	Type        string    `json:"type"`
	Filter      string    `json:"filter,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
	DownloadURL string    `json:"downloadUrl"`
	Rows        any       `json:"rows"`
}
