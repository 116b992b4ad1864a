package data

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/target/exam-portal/internal/core"
	"github.com/target/exam-portal/internal/domain/exam"
)

var (
	_ core.ExamRepository       = (*ExamRepo)(nil)
	_ core.ResultRepository     = (*ResultRepo)(nil)
	_ core.SubmissionRepository = (*SubmissionRepo)(nil)
	_ core.AccountRepository    = (*AccountRepo)(nil)
	_ core.MonitoringRepository = (*MonitoringRepo)(nil)
)

func nextID[T any](items []T, id func(T) int64) int64 {
	var hi int64
	for _, it := range items {
		if v := id(it); v > hi {
			hi = v
		}
	}
	return hi + 1
}

func timePtr(t time.Time) *time.Time { return &t }

// ExamRepo is an in-memory ExamRepository.
type ExamRepo struct {
	mu    sync.RWMutex
	time  TimeProvider
	exams []exam.Exam
	next  int64
}

// NewExamRepo creates an ExamRepo holding seed.
func NewExamRepo(tp TimeProvider, seed []exam.Exam) *ExamRepo {
	items := slices.Clone(seed)
	return &ExamRepo{time: tp, exams: items, next: nextID(items, func(e exam.Exam) int64 { return e.ID })}
}

func (r *ExamRepo) List(_ context.Context) ([]exam.Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.exams), nil
}

func (r *ExamRepo) GetByID(_ context.Context, id int64) (*exam.Exam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrExamNotFound
	}
	e := r.exams[i]
	return &e, nil
}

// Create stores a new draft exam.
func (r *ExamRepo) Create(_ context.Context, in exam.Input) (*exam.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := exam.Exam{ID: r.next, Status: exam.StatusDraft, CreatedAt: timePtr(nowOr(r.time).UTC())}
	in.Apply(&e)
	r.next++
	r.exams = append(r.exams, e)
	return &e, nil
}

func (r *ExamRepo) Update(_ context.Context, id int64, in exam.Input) (*exam.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrExamNotFound
	}
	in.Apply(&r.exams[i])
	r.exams[i].UpdatedAt = timePtr(nowOr(r.time).UTC())
	e := r.exams[i]
	return &e, nil
}

func (r *ExamRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return ErrExamNotFound
	}
	r.exams = slices.Delete(r.exams, i, i+1)
	return nil
}

func (r *ExamRepo) index(id int64) int {
	return slices.IndexFunc(r.exams, func(e exam.Exam) bool { return e.ID == id })
}

// ResultRepo is an in-memory ResultRepository.
type ResultRepo struct {
	mu      sync.RWMutex
	results []exam.Result
}

// NewResultRepo creates a ResultRepo holding seed.
func NewResultRepo(seed []exam.Result) *ResultRepo {
	return &ResultRepo{results: slices.Clone(seed)}
}

func (r *ResultRepo) ListByStudent(_ context.Context, studentID int64) ([]exam.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]exam.Result, 0, len(r.results))
	for _, res := range r.results {
		if res.StudentID == studentID {
			out = append(out, res)
		}
	}
	return out, nil
}

// SubmissionRepo is an in-memory SubmissionRepository.
type SubmissionRepo struct {
	mu   sync.RWMutex
	time TimeProvider
	subs []exam.Submission
	next int64
}

// NewSubmissionRepo creates a SubmissionRepo holding seed.
func NewSubmissionRepo(tp TimeProvider, seed []exam.Submission) *SubmissionRepo {
	items := slices.Clone(seed)
	return &SubmissionRepo{time: tp, subs: items, next: nextID(items, func(s exam.Submission) int64 { return s.ID })}
}

func (r *SubmissionRepo) List(_ context.Context) ([]exam.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.subs), nil
}

func (r *SubmissionRepo) ListByExam(_ context.Context, examID int64) ([]exam.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]exam.Submission, 0, len(r.subs))
	for _, s := range r.subs {
		if s.ExamID == examID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Create stores sub with a fresh ID and submission time, in submitted status.
func (r *SubmissionRepo) Create(_ context.Context, sub exam.Submission) (*exam.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.ID = r.next
	sub.SubmittedAt = nowOr(r.time).UTC()
	sub.Status = exam.SubmissionSubmitted
	sub.Score = nil
	sub.Grade = ""
	r.next++
	r.subs = append(r.subs, sub)
	return &sub, nil
}

func (r *SubmissionRepo) Grade(_ context.Context, id int64, g exam.Grade) (*exam.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.subs, func(s exam.Submission) bool { return s.ID == id })
	if i < 0 {
		return nil, ErrSubmissionNotFound
	}
	score := g.Score
	r.subs[i].Score = &score
	r.subs[i].Grade = g.Grade
	r.subs[i].Status = exam.SubmissionGraded
	s := r.subs[i]
	return &s, nil
}

// AccountRepo is an in-memory AccountRepository. Emails are unique case-insensitively.
type AccountRepo struct {
	mu       sync.RWMutex
	time     TimeProvider
	accounts []exam.Account
	next     int64
}

// NewAccountRepo creates an AccountRepo holding seed.
func NewAccountRepo(tp TimeProvider, seed []exam.Account) *AccountRepo {
	items := slices.Clone(seed)
	return &AccountRepo{time: tp, accounts: items, next: nextID(items, func(a exam.Account) int64 { return a.ID })}
}

func (r *AccountRepo) List(_ context.Context, filter exam.AccountFilter) ([]exam.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter.Apply(r.accounts), nil
}

func (r *AccountRepo) GetByID(_ context.Context, id int64) (*exam.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrAccountNotFound
	}
	a := r.accounts[i]
	return &a, nil
}

// Create stores acct with a fresh ID and creation time.
func (r *AccountRepo) Create(_ context.Context, acct exam.Account) (*exam.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(acct.Email, 0) {
		return nil, fmt.Errorf("%w: %s", ErrAccountEmailExists, acct.Email)
	}
	acct.ID = r.next
	acct.CreatedAt = nowOr(r.time).UTC()
	if acct.Status == "" {
		acct.Status = exam.AccountActive
	}
	r.next++
	r.accounts = append(r.accounts, acct)
	return &acct, nil
}

func (r *AccountRepo) Update(_ context.Context, id int64, in exam.AccountInput) (*exam.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrAccountNotFound
	}
	if r.emailTaken(in.Email, id) {
		return nil, fmt.Errorf("%w: %s", ErrAccountEmailExists, in.Email)
	}
	a := &r.accounts[i]
	a.Name = in.Name
	a.Email = in.Email
	a.Role = in.Role
	a.Department = in.Department
	a.UpdatedAt = timePtr(nowOr(r.time).UTC())
	out := *a
	return &out, nil
}

func (r *AccountRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return ErrAccountNotFound
	}
	r.accounts = slices.Delete(r.accounts, i, i+1)
	return nil
}

func (r *AccountRepo) index(id int64) int {
	return slices.IndexFunc(r.accounts, func(a exam.Account) bool { return a.ID == id })
}

func (r *AccountRepo) emailTaken(email string, except int64) bool {
	return slices.ContainsFunc(r.accounts, func(a exam.Account) bool {
		return a.ID != except && strings.EqualFold(a.Email, email)
	})
}

// MonitoringSeed is the initial proctoring state for NewMonitoringRepo.
type MonitoringSeed struct {
	Active   []exam.ActiveExam
	Students []exam.ExamStudent
	Logs     []exam.ActivityLog
}

// MonitoringRepo is an in-memory MonitoringRepository.
type MonitoringRepo struct {
	mu       sync.RWMutex
	time     TimeProvider
	active   []exam.ActiveExam
	students []exam.ExamStudent
	logs     []exam.ActivityLog
	nextLog  int64
}

// NewMonitoringRepo creates a MonitoringRepo holding seed.
func NewMonitoringRepo(tp TimeProvider, seed MonitoringSeed) *MonitoringRepo {
	logs := slices.Clone(seed.Logs)
	return &MonitoringRepo{
		time:     tp,
		active:   slices.Clone(seed.Active),
		students: slices.Clone(seed.Students),
		logs:     logs,
		nextLog:  nextID(logs, func(l exam.ActivityLog) int64 { return l.ID }),
	}
}

func (r *MonitoringRepo) ActiveExams(_ context.Context) ([]exam.ActiveExam, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.active), nil
}

func (r *MonitoringRepo) Students(_ context.Context, examID int64) ([]exam.ExamStudent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]exam.ExamStudent, 0, len(r.students))
	for _, s := range r.students {
		if s.ExamID == examID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MonitoringRepo) Logs(_ context.Context, examID int64) ([]exam.ActivityLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]exam.ActivityLog, 0, len(r.logs))
	for _, l := range r.logs {
		if l.ExamID == examID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *MonitoringRepo) AllLogs(_ context.Context) ([]exam.ActivityLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.logs), nil
}

// AppendLog records entry with a fresh ID. A zero Timestamp is set to now.
func (r *MonitoringRepo) AppendLog(_ context.Context, entry exam.ActivityLog) (*exam.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextLog
	if entry.Timestamp.IsZero() {
		entry.Timestamp = nowOr(r.time).UTC()
	}
	r.nextLog++
	r.logs = append(r.logs, entry)
	return &entry, nil
}

func (r *MonitoringRepo) SetStudentStatus(_ context.Context, p core.StudentStatusParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.students, func(s exam.ExamStudent) bool {
		return s.ExamID == p.ExamID && s.StudentID == p.StudentID
	})
	if i < 0 {
		return ErrStudentNotInExam
	}
	r.students[i].Status = p.Status
	r.students[i].LastActivity = nowOr(r.time).UTC()
	return nil
}

// EndExam stops monitoring examID: it leaves the active list and its students finish.
func (r *MonitoringRepo) EndExam(_ context.Context, examID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.active, func(a exam.ActiveExam) bool { return a.ID == examID })
	if i < 0 {
		return ErrActiveExamNotFound
	}
	r.active = slices.Delete(r.active, i, i+1)
	for j := range r.students {
		if r.students[j].ExamID == examID {
			r.students[j].Status = exam.AttendanceFinished
		}
	}
	return nil
}
