package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/target/exam-portal/internal/core"
	"github.com/target/exam-portal/internal/domain/exam"
)

// ProctorServiceOptions groups dependencies for ProctorService.
type ProctorServiceOptions struct {
	Monitoring core.MonitoringRepository // Required
	Now        func() time.Time          // Optional: defaults to time.Now
	Logger     *slog.Logger              // Optional
}

// ProctorService serves the proctor dashboard: live exams, their students and activity logs.
type ProctorService struct {
	repo   core.MonitoringRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewProctorService constructs a ProctorService. It panics when the repository is missing.
func NewProctorService(opts ProctorServiceOptions) *ProctorService {
	if opts.Monitoring == nil {
		panic("proctor service: monitoring repository is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProctorService{repo: opts.Monitoring, now: now, logger: logger.With("component", "proctor_service")}
}

// ActiveExams lists exams under monitoring.
func (s *ProctorService) ActiveExams(ctx context.Context) ([]exam.ActiveExam, error) {
	out, err := s.repo.ActiveExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active exams: %w", err)
	}
	return out, nil
}

// Students lists the students taking examID.
func (s *ProctorService) Students(ctx context.Context, examID int64) ([]exam.ExamStudent, error) {
	out, err := s.repo.Students(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list exam students: %w", err)
	}
	return out, nil
}

// ActivityLogs lists the activity recorded for examID.
func (s *ProctorService) ActivityLogs(ctx context.Context, examID int64) ([]exam.ActivityLog, error) {
	out, err := s.repo.Logs(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return out, nil
}

// FlagSuspiciousActivity marks the student flagged and records a warning in the activity log.
func (s *ProctorService) FlagSuspiciousActivity(ctx context.Context, examID int64, req exam.FlagRequest) (*exam.FlagReceipt, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	students, err := s.repo.Students(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list exam students: %w", err)
	}
	var name string
	for _, st := range students {
		if st.StudentID == req.StudentID {
			name = st.StudentName
			break
		}
	}

	if err := s.repo.SetStudentStatus(ctx, core.StudentStatusParams{
		ExamID: examID, StudentID: req.StudentID, Status: exam.AttendanceFlagged,
	}); err != nil {
		return nil, fmt.Errorf("flag student: %w", err)
	}
	now := s.now().UTC()
	if _, err := s.repo.AppendLog(ctx, exam.ActivityLog{
		ExamID:      examID,
		StudentID:   req.StudentID,
		StudentName: name,
		Activity:    req.ActivityType + ": " + req.Description,
		Timestamp:   now,
		Severity:    exam.SeverityWarning,
	}); err != nil {
		return nil, fmt.Errorf("record flag: %w", err)
	}

	s.logger.InfoContext(ctx, "suspicious activity flagged",
		"exam_id", examID, "student_id", req.StudentID, "activity", req.ActivityType)
	return &exam.FlagReceipt{
		Success:   true,
		FlagID:    fmt.Sprintf("flag_%d_%s", req.StudentID, uuid.NewString()),
		Timestamp: now,
	}, nil
}

// EndMonitoring stops monitoring examID.
func (s *ProctorService) EndMonitoring(ctx context.Context, examID int64) error {
	if err := s.repo.EndExam(ctx, examID); err != nil {
		return fmt.Errorf("end monitoring: %w", err)
	}
	s.logger.InfoContext(ctx, "monitoring ended", "exam_id", examID)
	return nil
}
