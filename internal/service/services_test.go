package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/exam-portal/internal/data"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
	apperrors "github.com/target/exam-portal/internal/errors"
)

var testNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newFixtures() *data.Fixtures {
	return data.NewFixtures(data.NewFixedTimeProvider(testNow))
}

func newStudentService(f *data.Fixtures) *StudentService {
	return NewStudentService(StudentServiceOptions{
		Repos:  StudentRepos{Exams: f.Exams, Results: f.Results, Submissions: f.Submissions},
		Now:    func() time.Time { return testNow },
		Logger: quietLogger(),
	})
}

func TestStudentService_ExamsDeriveAvailabilityAndHideDrafts(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()
	_, err := f.Exams.Create(ctx, exam.Input{Title: "Draft", Subject: "Art", Date: "2024-01-15", Time: "10:00", Duration: 60})
	require.NoError(t, err)

	exams, err := newStudentService(f).Exams(ctx)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, exam.AvailabilityActive, exams[0].Availability)
	assert.True(t, exams[0].CanStart)
	assert.Equal(t, exam.AvailabilityCompleted, exams[1].Availability)
}

func TestStudentService_ExamHidesDrafts(t *testing.T) {
	f := newFixtures()
	ctx := context.Background()
	draft, err := f.Exams.Create(ctx, exam.Input{Title: "Draft", Subject: "Art", Date: "2024-01-15", Time: "10:00", Duration: 60})
	require.NoError(t, err)

	_, err = newStudentService(f).Exam(ctx, draft.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = newStudentService(f).Exam(ctx, 404)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStudentService_StartExam(t *testing.T) {
	f := newFixtures()
	svc := newStudentService(f)
	ctx := context.Background()

	sess, err := svc.StartExam(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, sess.Success)
	assert.Contains(t, sess.ExamSession, "session_1_")

	_, err = svc.StartExam(ctx, 1, 2)
	assert.True(t, apperrors.IsConflict(err))
}

func TestStudentService_SubmitAndResults(t *testing.T) {
	f := newFixtures()
	svc := newStudentService(f)
	ctx := context.Background()

	receipt, err := svc.SubmitExam(ctx, SubmitParams{ExamID: 1, StudentID: 1, StudentName: "John Doe", Answers: map[string]string{"q1": "b"}})
	require.NoError(t, err)
	assert.Equal(t, "sub_1_2", receipt.SubmissionID)

	subs, err := f.Submissions.ListByExam(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "b", subs[0].Answers["q1"])

	results, err := svc.Results(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestTeacherService_ExamLifecycle(t *testing.T) {
	f := newFixtures()
	svc := NewTeacherService(TeacherServiceOptions{Exams: f.Exams, Submissions: f.Submissions, Logger: quietLogger()})
	ctx := context.Background()

	_, err := svc.CreateExam(ctx, exam.Input{Title: "No date", Subject: "History", Duration: 10})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "date", apperrors.GetField(err))

	created, err := svc.CreateExam(ctx, exam.Input{Title: "History Quiz", Subject: "History", Date: "2024-03-01", Time: "09:30", Duration: 45})
	require.NoError(t, err)
	assert.Equal(t, exam.StatusDraft, created.Status)

	exams, err := svc.Exams(ctx)
	require.NoError(t, err)
	counts := exam.CountByStatus(exams)
	assert.Equal(t, exam.StatusCounts{Draft: 1, Published: 1, Completed: 1}, counts)

	_, err = svc.UpdateExam(ctx, created.ID, exam.Input{Title: "History Quiz", Subject: "History", Date: "03/01/2024", Time: "09:30", Duration: 45})
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, svc.DeleteExam(ctx, created.ID))
	err = svc.DeleteExam(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTeacherService_SubmissionsAndGrading(t *testing.T) {
	f := newFixtures()
	svc := NewTeacherService(TeacherServiceOptions{Exams: f.Exams, Submissions: f.Submissions, Logger: quietLogger()})
	ctx := context.Background()

	subs, err := svc.Submissions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	_, err = svc.Submissions(ctx, 99)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.GradeSubmission(ctx, subs[0].ID, exam.Grade{Score: 90})
	assert.True(t, apperrors.IsValidation(err))

	graded, err := svc.GradeSubmission(ctx, subs[0].ID, exam.Grade{Score: 90, Grade: "A-"})
	require.NoError(t, err)
	assert.Equal(t, "A-", graded.Grade)
}

func newAdminService(f *data.Fixtures) *AdminService {
	svc := NewAdminService(AdminServiceOptions{
		Repos:  AdminRepos{Accounts: f.Accounts, Exams: f.Exams, Submissions: f.Submissions, Monitoring: f.Monitoring},
		Logger: quietLogger(),
	})
	svc.cost = bcrypt.MinCost
	return svc
}

func TestAdminService_Users(t *testing.T) {
	f := newFixtures()
	svc := newAdminService(f)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, exam.AccountInput{Name: "Bad", Email: "not-an-email", Role: domainauth.RoleStudent})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "email", apperrors.GetField(err))

	_, err = svc.CreateUser(ctx, exam.AccountInput{Name: "Bad", Email: "bad@example.com", Role: "guest"})
	assert.Equal(t, "role", apperrors.GetField(err))

	created, err := svc.CreateUser(ctx, exam.AccountInput{
		Name: " Pat Proctor ", Email: "pat@example.com", Role: domainauth.RoleProctor, Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pat Proctor", created.Name)
	require.NoError(t, bcrypt.CompareHashAndPassword(created.PasswordHash, []byte("s3cret")))

	_, err = svc.CreateUser(ctx, exam.AccountInput{Name: "Again", Email: "pat@example.com", Role: domainauth.RoleProctor})
	assert.True(t, apperrors.IsConflict(err))

	counts, err := svc.UserCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, exam.RoleCounts{Total: 3, Students: 1, Teachers: 1, Proctors: 1}, counts)

	found, err := svc.Users(ctx, exam.AccountFilter{Search: "pat"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, svc.DeleteUser(ctx, created.ID))
	assert.True(t, apperrors.IsNotFound(svc.DeleteUser(ctx, created.ID)))
}

func TestAdminService_SystemStats(t *testing.T) {
	stats, err := newAdminService(newFixtures()).SystemStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exam.SystemStats{TotalUsers: 2, TotalExams: 2, ActiveExams: 1, TotalSubmissions: 1}, stats)
}

func TestAdminService_GenerateReport(t *testing.T) {
	svc := newAdminService(newFixtures())
	ctx := context.Background()

	report, err := svc.GenerateReport(ctx, exam.ReportRequest{Type: "users", Filter: "[?role=='teacher'].name"})
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Contains(t, report.ReportID, "report_users_")
	assert.Equal(t, []any{"Jane Smith"}, report.Rows)

	all, err := svc.GenerateReport(ctx, exam.ReportRequest{Type: "activity"})
	require.NoError(t, err)
	rows, ok := all.Rows.([]any)
	require.True(t, ok)
	assert.Len(t, rows, 1)

	_, err = svc.GenerateReport(ctx, exam.ReportRequest{Type: "users", Filter: "[?"})
	assert.Equal(t, "filter", apperrors.GetField(err))

	_, err = svc.GenerateReport(ctx, exam.ReportRequest{Type: "payroll"})
	assert.Equal(t, "type", apperrors.GetField(err))
}

func TestProctorService_FlagAndEnd(t *testing.T) {
	f := newFixtures()
	svc := NewProctorService(ProctorServiceOptions{Monitoring: f.Monitoring, Now: func() time.Time { return testNow }, Logger: quietLogger()})
	ctx := context.Background()

	_, err := svc.FlagSuspiciousActivity(ctx, 1, exam.FlagRequest{StudentID: 1})
	assert.True(t, apperrors.IsValidation(err))

	receipt, err := svc.FlagSuspiciousActivity(ctx, 1, exam.FlagRequest{StudentID: 1, ActivityType: "Phone", Description: "Phone visible on camera"})
	require.NoError(t, err)
	assert.Contains(t, receipt.FlagID, "flag_1_")
	assert.Equal(t, testNow, receipt.Timestamp)

	students, err := svc.Students(ctx, 1)
	require.NoError(t, err)
	logs, err := svc.ActivityLogs(ctx, 1)
	require.NoError(t, err)
	summary := exam.Summarize(students, logs)
	assert.Equal(t, exam.MonitoringSummary{Students: 1, Flagged: 1, Alerts: 2}, summary)
	assert.Equal(t, "John Doe", logs[1].StudentName)

	_, err = svc.FlagSuspiciousActivity(ctx, 1, exam.FlagRequest{StudentID: 7, ActivityType: "Phone", Description: "x"})
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.EndMonitoring(ctx, 1))
	active, err := svc.ActiveExams(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.True(t, apperrors.IsNotFound(svc.EndMonitoring(ctx, 1)))
}
