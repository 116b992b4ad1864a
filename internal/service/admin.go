package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/exam-portal/internal/core"
	"github.com/target/exam-portal/internal/domain/exam"
	apperrors "github.com/target/exam-portal/internal/errors"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// AdminRepos groups the repositories AdminService reads and writes.
type AdminRepos struct {
	Accounts    core.AccountRepository
	Exams       core.ExamRepository
	Submissions core.SubmissionRepository
	Monitoring  core.MonitoringRepository
}

// AdminServiceOptions groups dependencies for AdminService.
type AdminServiceOptions struct {
	Repos     AdminRepos
	Evaluator JMESPathEvaluator // Optional: defaults to go-jmespath
	Logger    *slog.Logger      // Optional
}

// AdminService serves the admin dashboard: the user directory, platform stats and reports.
type AdminService struct {
	repos  AdminRepos
	eval   JMESPathEvaluator
	logger *slog.Logger
	now    func() time.Time
	cost   int
}

// NewAdminService constructs an AdminService. It panics when a repository is missing.
func NewAdminService(opts AdminServiceOptions) *AdminService {
	r := opts.Repos
	if r.Accounts == nil || r.Exams == nil || r.Submissions == nil || r.Monitoring == nil {
		panic("admin service: repositories are required")
	}
	eval := opts.Evaluator
	if eval == nil {
		eval = jmespathLibEvaluator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		repos:  r,
		eval:   eval,
		logger: logger.With("component", "admin_service"),
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
	}
}

// Users lists directory accounts matching filter.
func (s *AdminService) Users(ctx context.Context, filter exam.AccountFilter) ([]exam.Account, error) {
	users, err := s.repos.Accounts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UserCounts tallies every account per role, ignoring any filter.
func (s *AdminService) UserCounts(ctx context.Context) (exam.RoleCounts, error) {
	users, err := s.repos.Accounts.List(ctx, exam.AccountFilter{})
	if err != nil {
		return exam.RoleCounts{}, fmt.Errorf("list users: %w", err)
	}
	return exam.CountByRole(users), nil
}

// CreateUser validates in and stores a new account. A supplied password is stored as a bcrypt hash.
func (s *AdminService) CreateUser(ctx context.Context, in exam.AccountInput) (*exam.Account, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	acct := exam.Account{
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Role:       in.Role,
		Department: strings.TrimSpace(in.Department),
		Status:     exam.AccountActive,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
		if err != nil {
			return nil, apperrors.ValidationField("password", "Password cannot be used")
		}
		acct.PasswordHash = hash
	}
	created, err := s.repos.Accounts.Create(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// UpdateUser validates in and replaces the editable fields of account id.
func (s *AdminService) UpdateUser(ctx context.Context, id int64, in exam.AccountInput) (*exam.Account, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	acct, err := s.repos.Accounts.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return acct, nil
}

// DeleteUser removes account id.
func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repos.Accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

// SystemStats computes platform totals from the repositories.
func (s *AdminService) SystemStats(ctx context.Context) (exam.SystemStats, error) {
	users, err := s.repos.Accounts.List(ctx, exam.AccountFilter{})
	if err != nil {
		return exam.SystemStats{}, fmt.Errorf("list users: %w", err)
	}
	exams, err := s.repos.Exams.List(ctx)
	if err != nil {
		return exam.SystemStats{}, fmt.Errorf("list exams: %w", err)
	}
	active, err := s.repos.Monitoring.ActiveExams(ctx)
	if err != nil {
		return exam.SystemStats{}, fmt.Errorf("list active exams: %w", err)
	}
	subs, err := s.repos.Submissions.List(ctx)
	if err != nil {
		return exam.SystemStats{}, fmt.Errorf("list submissions: %w", err)
	}
	return exam.SystemStats{
		TotalUsers:       len(users),
		TotalExams:       len(exams),
		ActiveExams:      len(active),
		TotalSubmissions: len(subs),
	}, nil
}

// GenerateReport builds the dataset for req.Type and, when req.Filter is set,
// narrows it with the JMESPath expression.
func (s *AdminService) GenerateReport(ctx context.Context, req exam.ReportRequest) (*exam.Report, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if err := s.eval.Validate(req.Filter); err != nil {
		return nil, apperrors.ValidationField("filter", "Invalid filter expression: "+err.Error())
	}

	dataset, err := s.dataset(ctx, req.Type)
	if err != nil {
		return nil, err
	}
	rows, err := toGeneric(dataset)
	if err != nil {
		return nil, fmt.Errorf("encode report rows: %w", err)
	}
	if strings.TrimSpace(req.Filter) != "" {
		rows, err = s.eval.Evaluate(req.Filter, rows)
		if err != nil {
			return nil, apperrors.ValidationField("filter", "Filter could not be applied: "+err.Error())
		}
	}

	id := fmt.Sprintf("report_%s_%s", req.Type, uuid.NewString())
	s.logger.InfoContext(ctx, "report generated", "report_id", id, "type", req.Type)
	return &exam.Report{
		Success:     true,
		ReportID:    id,
		Type:        req.Type,
		Filter:      req.Filter,
		GeneratedAt: s.now().UTC(),
		DownloadURL: "/api/reports/download/" + id + ".pdf",
		Rows:        rows,
	}, nil
}

func (s *AdminService) dataset(ctx context.Context, kind string) (any, error) {
	var (
		out any
		err error
	)
	switch kind {
	case "users":
		out, err = s.repos.Accounts.List(ctx, exam.AccountFilter{})
	case "exams":
		out, err = s.repos.Exams.List(ctx)
	case "submissions":
		out, err = s.repos.Submissions.List(ctx)
	case "activity":
		out, err = s.repos.Monitoring.AllLogs(ctx)
	default:
		return nil, apperrors.ValidationField("type", "Unknown report type")
	}
	if err != nil {
		return nil, fmt.Errorf("load %s report: %w", kind, err)
	}
	return out, nil
}

// toGeneric converts typed rows into the map/slice form JMESPath evaluates.
func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
