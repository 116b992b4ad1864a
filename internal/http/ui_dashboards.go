package httpx

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
	"github.com/target/exam-portal/internal/guard"
	"github.com/target/exam-portal/internal/session"
)

// Dashboard tabs for students.
const (
	tabExams   = "exams"
	tabResults = "results"
)

// dashboard serves /dashboard by rendering the role's dashboard in place.
func (h *UIHandlers) dashboard(w http.ResponseWriter, r *http.Request, st *session.Store, view guard.View) {
	switch view {
	case guard.ViewStudentDashboard:
		h.studentDashboard(w, r, st, view)
	case guard.ViewTeacherDashboard:
		h.teacherDashboard(w, r, st, view)
	case guard.ViewAdminDashboard:
		h.adminDashboard(w, r, st, view)
	case guard.ViewProctorDashboard:
		h.proctorDashboard(w, r, st, view)
	default:
		h.notFound(w, r, st)
	}
}

// finish renders p, or redirects to login when err is an authorization failure.
// Any other error is shown above whatever data did load.
func (h *UIHandlers) finish(w http.ResponseWriter, r *http.Request, p Page, err error) {
	if err != nil {
		if expired(w, r, err) {
			return
		}
		h.logger().WarnContext(r.Context(), "dashboard load failed", "template", p.Template, "error", err)
		if p.Error == "" {
			p.Error = loadError(err)
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, http.StatusOK, p)
}

func queryID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

type studentStats struct {
	Total     int
	Completed int
	Average   int
	Upcoming  int
}

type studentView struct {
	Tab     string
	Exams   []exam.StudentExam
	Results []exam.Result
	Stats   studentStats
}

func newStudentStats(exams []exam.StudentExam, results []exam.Result) studentStats {
	s := studentStats{Total: len(exams), Completed: len(results)}
	for _, e := range exams {
		if e.Availability == exam.AvailabilityUpcoming {
			s.Upcoming++
		}
	}
	if len(results) > 0 {
		sum := 0
		for _, res := range results {
			sum += res.Score
		}
		s.Average = int(math.Round(float64(sum) / float64(len(results))))
	}
	return s
}

func (h *UIHandlers) studentDashboard(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	v := studentView{Tab: tabExams}
	if r.URL.Query().Get("tab") == tabResults {
		v.Tab = tabResults
	}

	c := h.client(st).Student()
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		exams, err := c.Exams(ctx)
		v.Exams = exams
		return err
	})
	g.Go(func() error {
		results, err := c.Results(ctx)
		v.Results = results
		return err
	})
	err := g.Wait()
	v.Stats = newStudentStats(v.Exams, v.Results)

	p := h.page(r, st, "page-student", "Student Dashboard")
	p.Data = v
	h.finish(w, r, p, err)
}

type teacherView struct {
	Exams       []exam.Exam
	Counts      exam.StatusCounts
	Selected    *exam.Exam
	Submissions []exam.Submission
}

func (h *UIHandlers) teacherDashboard(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	var v teacherView
	c := h.client(st).Teacher()
	ctx := r.Context()

	exams, err := c.Exams(ctx)
	v.Exams = exams
	v.Counts = exam.CountByStatus(exams)
	if err == nil {
		if id := queryID(r, "exam"); id != 0 {
			for i := range v.Exams {
				if v.Exams[i].ID == id {
					v.Selected = &v.Exams[i]
					break
				}
			}
			if v.Selected != nil {
				v.Submissions, err = c.Submissions(ctx, id)
			}
		}
	}

	p := h.page(r, st, "page-teacher", "Teacher Dashboard")
	p.Data = v
	h.finish(w, r, p, err)
}

type roleOption struct {
	Value    string
	Label    string
	Selected bool
}

type adminView struct {
	Stats   exam.SystemStats
	Users   []exam.Account
	Counts  exam.RoleCounts
	Search  string
	Role    string
	Options []roleOption
}

func roleOptions(selected string) []roleOption {
	opts := []roleOption{{Value: "all", Label: "All roles", Selected: selected == "" || selected == "all"}}
	for _, role := range domainauth.Roles() {
		p, _ := role.Profile()
		opts = append(opts, roleOption{Value: string(role), Label: p.Name, Selected: selected == string(role)})
	}
	return opts
}

func (h *UIHandlers) adminDashboard(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	q := r.URL.Query()
	v := adminView{Search: strings.TrimSpace(q.Get("search")), Role: q.Get("role")}
	filter := exam.AccountFilter{Search: v.Search}
	if role, err := domainauth.ParseRole(v.Role); err == nil {
		filter.Role = role
	} else {
		v.Role = "all"
	}
	v.Options = roleOptions(v.Role)

	c := h.client(st).Admin()
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		stats, err := c.SystemStats(ctx)
		if stats != nil {
			v.Stats = *stats
		}
		return err
	})
	g.Go(func() error {
		list, err := c.Users(ctx, filter)
		if list != nil {
			v.Users = list.Users
			v.Counts = list.Counts
		}
		return err
	})
	err := g.Wait()

	p := h.page(r, st, "page-admin", "Admin Dashboard")
	p.Data = v
	h.finish(w, r, p, err)
}

type proctorView struct {
	Exams     []exam.ActiveExam
	Selected  *exam.ActiveExam
	Students  []exam.ExamStudent
	Logs      []exam.ActivityLog
	Summary   exam.MonitoringSummary
	ActiveNow int
	Remaining string
}

func (h *UIHandlers) proctorDashboard(w http.ResponseWriter, r *http.Request, st *session.Store, _ guard.View) {
	var v proctorView
	c := h.client(st).Proctor()

	exams, err := c.ActiveExams(r.Context())
	v.Exams = exams
	if err == nil && len(v.Exams) > 0 {
		v.Selected = &v.Exams[0]
		if id := queryID(r, "exam"); id != 0 {
			for i := range v.Exams {
				if v.Exams[i].ID == id {
					v.Selected = &v.Exams[i]
					break
				}
			}
		}
		v.Remaining = v.Selected.Remaining(h.now())

		id := v.Selected.ID
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			students, err := c.Students(ctx, id)
			v.Students = students
			return err
		})
		g.Go(func() error {
			logs, err := c.ActivityLogs(ctx, id)
			v.Logs = logs
			return err
		})
		err = g.Wait()
		v.Summary = exam.Summarize(v.Students, v.Logs)
		for _, s := range v.Students {
			if s.Status == exam.AttendanceActive {
				v.ActiveNow++
			}
		}
	}

	p := h.page(r, st, "page-proctor", "Proctor Dashboard")
	p.Data = v
	h.finish(w, r, p, err)
}
