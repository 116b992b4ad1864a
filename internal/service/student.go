package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/target/exam-portal/internal/core"
	"github.com/target/exam-portal/internal/domain/exam"
	apperrors "github.com/target/exam-portal/internal/errors"
)

// StudentRepos groups the repositories StudentService reads and writes.
type StudentRepos struct {
	Exams       core.ExamRepository
	Results     core.ResultRepository
	Submissions core.SubmissionRepository
}

// StudentServiceOptions groups dependencies for StudentService.
type StudentServiceOptions struct {
	Repos  StudentRepos
	Now    func() time.Time // Optional: defaults to time.Now
	Logger *slog.Logger     // Optional
}

// StudentService serves the student dashboard: published exams, results and attempts.
type StudentService struct {
	repos  StudentRepos
	now    func() time.Time
	logger *slog.Logger
}

// NewStudentService constructs a StudentService. It panics when a repository is missing.
func NewStudentService(opts StudentServiceOptions) *StudentService {
	if opts.Repos.Exams == nil || opts.Repos.Results == nil || opts.Repos.Submissions == nil {
		panic("student service: repositories are required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StudentService{repos: opts.Repos, now: now, logger: logger.With("component", "student_service")}
}

// Exams lists every non-draft exam with its availability at the current time.
func (s *StudentService) Exams(ctx context.Context) ([]exam.StudentExam, error) {
	exams, err := s.repos.Exams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	now := s.now()
	out := make([]exam.StudentExam, 0, len(exams))
	for _, e := range exams {
		if e.Status == exam.StatusDraft {
			continue
		}
		out = append(out, e.ForStudent(now))
	}
	return out, nil
}

// Exam returns one non-draft exam. Drafts read as not found.
func (s *StudentService) Exam(ctx context.Context, id int64) (*exam.StudentExam, error) {
	e, err := s.repos.Exams.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if e.Status == exam.StatusDraft {
		return nil, apperrors.NotFound("Exam not found")
	}
	v := e.ForStudent(s.now())
	return &v, nil
}

// Results lists studentID's graded results.
func (s *StudentService) Results(ctx context.Context, studentID int64) ([]exam.Result, error) {
	res, err := s.repos.Results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return res, nil
}

// StartExam opens an attempt. Only exams inside their window can be started.
func (s *StudentService) StartExam(ctx context.Context, studentID, examID int64) (*exam.AttemptSession, error) {
	v, err := s.Exam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !v.CanStart {
		return nil, apperrors.Conflict(fmt.Sprintf("This exam is %s and cannot be started", v.Availability))
	}
	sess := &exam.AttemptSession{
		Success:     true,
		ExamSession: fmt.Sprintf("session_%d_%s", examID, uuid.NewString()),
		StartedAt:   s.now().UTC(),
	}
	s.logger.InfoContext(ctx, "exam started", "exam_id", examID, "student_id", studentID)
	return sess, nil
}

// SubmitParams groups parameters for SubmitExam.
type SubmitParams struct {
	ExamID      int64
	StudentID   int64
	StudentName string
	Answers     map[string]string
}

// SubmitExam records a submission for a non-draft exam.
func (s *StudentService) SubmitExam(ctx context.Context, p SubmitParams) (*exam.SubmissionReceipt, error) {
	if _, err := s.Exam(ctx, p.ExamID); err != nil {
		return nil, err
	}
	sub, err := s.repos.Submissions.Create(ctx, exam.Submission{
		ExamID:      p.ExamID,
		StudentID:   p.StudentID,
		StudentName: p.StudentName,
		Answers:     p.Answers,
	})
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	s.logger.InfoContext(ctx, "exam submitted", "exam_id", p.ExamID, "student_id", p.StudentID, "submission_id", sub.ID)
	return &exam.SubmissionReceipt{Success: true, SubmissionID: fmt.Sprintf("sub_%d_%d", p.ExamID, sub.ID)}, nil
}
