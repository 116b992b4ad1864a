package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/exam-portal/internal/core"
	"github.com/target/exam-portal/internal/domain/exam"
)

// TeacherServiceOptions groups dependencies for TeacherService.
type TeacherServiceOptions struct {
	Exams       core.ExamRepository       // Required
	Submissions core.SubmissionRepository // Required
	Logger      *slog.Logger              // Optional
}

// TeacherService serves the teacher dashboard: exam authoring and grading.
type TeacherService struct {
	exams  core.ExamRepository
	subs   core.SubmissionRepository
	logger *slog.Logger
}

// NewTeacherService constructs a TeacherService. It panics when a repository is missing.
func NewTeacherService(opts TeacherServiceOptions) *TeacherService {
	if opts.Exams == nil || opts.Submissions == nil {
		panic("teacher service: repositories are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TeacherService{exams: opts.Exams, subs: opts.Submissions, logger: logger.With("component", "teacher_service")}
}

// Exams lists every exam.
func (s *TeacherService) Exams(ctx context.Context) ([]exam.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// Exam returns one exam.
func (s *TeacherService) Exam(ctx context.Context, id int64) (*exam.Exam, error) {
	return s.exams.GetByID(ctx, id)
}

// CreateExam validates in and stores a new draft exam.
func (s *TeacherService) CreateExam(ctx context.Context, in exam.Input) (*exam.Exam, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	e, err := s.exams.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.logger.InfoContext(ctx, "exam created", "exam_id", e.ID)
	return e, nil
}

// UpdateExam validates in and replaces the editable fields of exam id.
func (s *TeacherService) UpdateExam(ctx context.Context, id int64, in exam.Input) (*exam.Exam, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	e, err := s.exams.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return e, nil
}

// DeleteExam removes exam id.
func (s *TeacherService) DeleteExam(ctx context.Context, id int64) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.logger.InfoContext(ctx, "exam deleted", "exam_id", id)
	return nil
}

// Submissions lists the submissions of an existing exam.
func (s *TeacherService) Submissions(ctx context.Context, examID int64) ([]exam.Submission, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	subs, err := s.subs.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// GradeSubmission validates g and grades submission id.
func (s *TeacherService) GradeSubmission(ctx context.Context, id int64, g exam.Grade) (*exam.Submission, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	sub, err := s.subs.Grade(ctx, id, g)
	if err != nil {
		return nil, fmt.Errorf("grade submission: %w", err)
	}
	return sub, nil
}
