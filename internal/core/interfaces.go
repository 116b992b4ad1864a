// Package core defines the repository ports the exam services depend on.
package core

import (
	"context"

	"github.com/target/exam-portal/internal/domain/exam"
)

// These interfaces are the contracts between the service layer and data layer.
// Service implementations depend on them, not on concrete repositories.

// ExamRepository stores authored exams.
type ExamRepository interface {
	List(ctx context.Context) ([]exam.Exam, error)
	GetByID(ctx context.Context, id int64) (*exam.Exam, error)
	Create(ctx context.Context, in exam.Input) (*exam.Exam, error)
	Update(ctx context.Context, id int64, in exam.Input) (*exam.Exam, error)
	Delete(ctx context.Context, id int64) error
}

// ResultRepository stores graded results.
type ResultRepository interface {
	ListByStudent(ctx context.Context, studentID int64) ([]exam.Result, error)
}

// SubmissionRepository stores submitted attempts.
type SubmissionRepository interface {
	List(ctx context.Context) ([]exam.Submission, error)
	ListByExam(ctx context.Context, examID int64) ([]exam.Submission, error)
	Create(ctx context.Context, sub exam.Submission) (*exam.Submission, error)
	Grade(ctx context.Context, id int64, g exam.Grade) (*exam.Submission, error)
}

// AccountRepository stores the user directory.
type AccountRepository interface {
	List(ctx context.Context, filter exam.AccountFilter) ([]exam.Account, error)
	GetByID(ctx context.Context, id int64) (*exam.Account, error)
	Create(ctx context.Context, acct exam.Account) (*exam.Account, error)
	Update(ctx context.Context, id int64, in exam.AccountInput) (*exam.Account, error)
	Delete(ctx context.Context, id int64) error
}

// MonitoringRepository stores proctoring state.
type MonitoringRepository interface {
	ActiveExams(ctx context.Context) ([]exam.ActiveExam, error)
	Students(ctx context.Context, examID int64) ([]exam.ExamStudent, error)
	Logs(ctx context.Context, examID int64) ([]exam.ActivityLog, error)
	AllLogs(ctx context.Context) ([]exam.ActivityLog, error)
	AppendLog(ctx context.Context, entry exam.ActivityLog) (*exam.ActivityLog, error)
	SetStudentStatus(ctx context.Context, params StudentStatusParams) error
	EndExam(ctx context.Context, examID int64) error
}

// StudentStatusParams groups parameters for MonitoringRepository.SetStudentStatus.
type StudentStatusParams struct {
	ExamID    int64
	StudentID int64
	Status    exam.AttendanceStatus
}
