package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/target/exam-portal/internal/apiclient"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
	"github.com/target/exam-portal/internal/guard"
	"github.com/target/exam-portal/internal/session"
)

// answerPrefix marks the form fields that carry exam answers, keyed by question.
const answerPrefix = "answer."

const defaultActivityType = "suspicious_behavior"

// back returns a redirect builder for path that keeps extra query pairs.
func back(path string, kv ...string) func(notice, errMsg string) string {
	return func(notice, errMsg string) string {
		pairs := append([]string{}, kv...)
		pairs = append(pairs, "notice", notice, "error", errMsg)
		return backTo(path, pairs...)
	}
}

func formInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(r.PostForm.Get(name)))
	return n
}

func (h *UIHandlers) startExam(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathStudent), func(ctx context.Context, c *apiclient.Session) (string, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return "", err
		}
		if _, err := c.Student().StartExam(ctx, id); err != nil {
			return "", err
		}
		return "Exam started. Good luck!", nil
	})
}

func (h *UIHandlers) submitExam(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathStudent, "tab", tabResults), func(ctx context.Context, c *apiclient.Session) (string, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return "", err
		}
		answers := make(map[string]string)
		for key, vals := range r.PostForm {
			if q, ok := strings.CutPrefix(key, answerPrefix); ok && q != "" && len(vals) > 0 {
				answers[q] = vals[0]
			}
		}
		if _, err := c.Student().SubmitExam(ctx, id, answers); err != nil {
			return "", err
		}
		return "Exam submitted", nil
	})
}

func (h *UIHandlers) createExam(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathTeacher), func(ctx context.Context, c *apiclient.Session) (string, error) {
		in := exam.Input{
			Title:       strings.TrimSpace(r.PostForm.Get("title")),
			Subject:     strings.TrimSpace(r.PostForm.Get("subject")),
			Date:        strings.TrimSpace(r.PostForm.Get("date")),
			Time:        strings.TrimSpace(r.PostForm.Get("time")),
			Duration:    formInt(r, "duration"),
			Description: strings.TrimSpace(r.PostForm.Get("description")),
		}
		created, err := c.Teacher().CreateExam(ctx, in)
		if err != nil {
			return "", err
		}
		return "Exam \"" + created.Title + "\" created", nil
	})
}

func (h *UIHandlers) deleteExam(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathTeacher), func(ctx context.Context, c *apiclient.Session) (string, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return "", err
		}
		if err := c.Teacher().DeleteExam(ctx, id); err != nil {
			return "", err
		}
		return "Exam deleted", nil
	})
}

func (h *UIHandlers) gradeSubmission(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	// The exam query keeps the submissions panel open after the redirect.
	examID := r.URL.Query().Get("exam")
	h.action(w, r, st, back(guard.PathTeacher, "exam", examID), func(ctx context.Context, c *apiclient.Session) (string, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return "", err
		}
		g := exam.Grade{Score: formInt(r, "score"), Grade: strings.TrimSpace(r.PostForm.Get("grade"))}
		if _, err := c.Teacher().GradeSubmission(ctx, id, g); err != nil {
			return "", err
		}
		return "Submission graded", nil
	})
}

func (h *UIHandlers) createUser(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathAdmin), func(ctx context.Context, c *apiclient.Session) (string, error) {
		in := exam.AccountInput{
			Name:       strings.TrimSpace(r.PostForm.Get("name")),
			Email:      strings.TrimSpace(r.PostForm.Get("email")),
			Role:       domainauth.Role(strings.ToLower(strings.TrimSpace(r.PostForm.Get("role")))),
			Department: strings.TrimSpace(r.PostForm.Get("department")),
			Password:   r.PostForm.Get("password"),
		}
		acct, err := c.Admin().CreateUser(ctx, in)
		if err != nil {
			return "", err
		}
		return "User " + acct.Name + " created", nil
	})
}

func (h *UIHandlers) deleteUser(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathAdmin), func(ctx context.Context, c *apiclient.Session) (string, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return "", err
		}
		if err := c.Admin().DeleteUser(ctx, id); err != nil {
			return "", err
		}
		return "User deleted", nil
	})
}

func (h *UIHandlers) generateReport(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathAdmin), func(ctx context.Context, c *apiclient.Session) (string, error) {
		req := exam.ReportRequest{
			Type:   strings.TrimSpace(r.PostForm.Get("type")),
			Filter: strings.TrimSpace(r.PostForm.Get("filter")),
		}
		rep, err := c.Admin().GenerateReport(ctx, req)
		if err != nil {
			return "", err
		}
		return "Report generated! Report ID: " + rep.ReportID, nil
	})
}

func (h *UIHandlers) flagStudent(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	examID := r.PathValue("id")
	h.action(w, r, st, back(guard.PathProctor, "exam", examID), func(ctx context.Context, c *apiclient.Session) (string, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return "", err
		}
		req := exam.FlagRequest{
			StudentID:    int64(formInt(r, "studentId")),
			ActivityType: strings.TrimSpace(r.PostForm.Get("activityType")),
			Description:  strings.TrimSpace(r.PostForm.Get("description")),
		}
		if req.ActivityType == "" {
			req.ActivityType = defaultActivityType
		}
		if _, err := c.Proctor().FlagSuspiciousActivity(ctx, id, req); err != nil {
			return "", err
		}
		return "Student flagged for review", nil
	})
}

func (h *UIHandlers) endMonitoring(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	h.action(w, r, st, back(guard.PathProctor), func(ctx context.Context, c *apiclient.Session) (string, error) {
		id, err := pathID(r, "id")
		if err != nil {
			return "", err
		}
		if err := c.Proctor().EndMonitoring(ctx, id); err != nil {
			return "", err
		}
		return "Monitoring ended", nil
	})
}
