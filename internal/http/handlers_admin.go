package httpx

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
	apperrors "github.com/target/exam-portal/internal/errors"
	"github.com/target/exam-portal/internal/service"
)

// AdminHandlers serves /api/admin.
type AdminHandlers struct {
	Svc     *service.AdminService
	Metrics APIErrorRecorder
}

func (h *AdminHandlers) fail(w http.ResponseWriter, err error) { WriteAppError(w, h.Metrics, err) }

type userList struct {
	Users  []exam.Account  `json:"users"`
	Counts exam.RoleCounts `json:"counts"`
}

// Users handles GET /api/admin/users?search=&role=. Counts cover the whole directory.
func (h *AdminHandlers) Users(w http.ResponseWriter, r *http.Request) {
	filter := exam.AccountFilter{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if raw := r.URL.Query().Get("role"); raw != "" && raw != "all" {
		role, err := domainauth.ParseRole(raw)
		if err != nil {
			h.fail(w, apperrors.ValidationField("role", "Unknown role"))
			return
		}
		filter.Role = role
	}

	var out userList
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		users, err := h.Svc.Users(ctx, filter)
		out.Users = users
		return err
	})
	g.Go(func() error {
		counts, err := h.Svc.UserCounts(ctx)
		out.Counts = counts
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, err)
		return
	}
	if out.Users == nil {
		out.Users = []exam.Account{}
	}
	WriteJSON(w, http.StatusOK, out)
}

// Create handles POST /api/admin/users.
func (h *AdminHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var in exam.AccountInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	acct, err := h.Svc.CreateUser(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, acct)
}

// Update handles PUT /api/admin/users/{id}.
func (h *AdminHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var in exam.AccountInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	acct, err := h.Svc.UpdateUser(r.Context(), id, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, acct)
}

// Delete handles DELETE /api/admin/users/{id}.
func (h *AdminHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Svc.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.SystemStats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Report handles POST /api/admin/reports.
func (h *AdminHandlers) Report(w http.ResponseWriter, r *http.Request) {
	var req exam.ReportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	rep, err := h.Svc.GenerateReport(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rep)
}

// ProctorHandlers serves /api/proctor.
type ProctorHandlers struct {
	Svc     *service.ProctorService
	Metrics APIErrorRecorder
}

func (h *ProctorHandlers) fail(w http.ResponseWriter, err error) { WriteAppError(w, h.Metrics, err) }

// ActiveExams handles GET /api/proctor/exams/active.
func (h *ProctorHandlers) ActiveExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.Svc.ActiveExams(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, exams)
}

// Students handles GET /api/proctor/exams/{id}/students.
func (h *ProctorHandlers) Students(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	students, err := h.Svc.Students(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, students)
}

// Logs handles GET /api/proctor/exams/{id}/logs.
func (h *ProctorHandlers) Logs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	logs, err := h.Svc.ActivityLogs(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, logs)
}

// Flag handles POST /api/proctor/exams/{id}/flags.
func (h *ProctorHandlers) Flag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req exam.FlagRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	receipt, err := h.Svc.FlagSuspiciousActivity(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, receipt)
}

// End handles POST /api/proctor/exams/{id}/end.
func (h *ProctorHandlers) End(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Svc.EndMonitoring(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
