package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/target/exam-portal/internal/domain/exam"
)

// AdminClient calls /admin.
type AdminClient struct{ s *Session }

// UserList is the directory listing with per-role counts of the whole directory.
type UserList struct {
	Users  []exam.Account  `json:"users"`
	Counts exam.RoleCounts `json:"counts"`
}

func (c *AdminClient) Users(ctx context.Context, f exam.AccountFilter) (*UserList, error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Role != "" {
		q.Set("role", string(f.Role))
	}
	var out UserList
	if err := c.s.do(ctx, request{method: http.MethodGet, path: "/admin/users", query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AdminClient) CreateUser(ctx context.Context, in exam.AccountInput) (*exam.Account, error) {
	var out exam.Account
	if err := c.s.do(ctx, request{method: http.MethodPost, path: "/admin/users", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AdminClient) UpdateUser(ctx context.Context, id int64, in exam.AccountInput) (*exam.Account, error) {
	var out exam.Account
	r := request{method: http.MethodPut, path: "/admin/users/" + itoa(id), body: in}
	if err := c.s.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AdminClient) DeleteUser(ctx context.Context, id int64) error {
	return c.s.do(ctx, request{method: http.MethodDelete, path: "/admin/users/" + itoa(id)}, nil)
}

func (c *AdminClient) SystemStats(ctx context.Context) (*exam.SystemStats, error) {
	var out exam.SystemStats
	if err := c.s.do(ctx, request{method: http.MethodGet, path: "/admin/stats"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AdminClient) GenerateReport(ctx context.Context, req exam.ReportRequest) (*exam.Report, error) {
	var out exam.Report
	if err := c.s.do(ctx, request{method: http.MethodPost, path: "/admin/reports", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
