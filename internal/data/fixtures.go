package data

import (
	"time"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
)

// Fixtures bundles the in-memory repositories that back the mock API.
type Fixtures struct {
	Exams       *ExamRepo
	Results     *ResultRepo
	Submissions *SubmissionRepo
	Accounts    *AccountRepo
	Monitoring  *MonitoringRepo
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// NewFixtures returns repositories seeded with the demo data set.
func NewFixtures(tp TimeProvider) *Fixtures {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	seeded := mustTime("2024-01-01T00:00:00Z")
	score := 85

	return &Fixtures{
		Exams: NewExamRepo(tp, []exam.Exam{
			{
				ID: 1, Title: "Mathematics Final Exam", Subject: "Mathematics",
				Date: "2024-01-15", Time: "10:00", Duration: 120, Status: exam.StatusPublished,
				Description:   "Final examination covering all topics from the semester",
				StudentsCount: 25,
			},
			{
				ID: 2, Title: "Physics Midterm", Subject: "Physics",
				Date: "2024-01-10", Time: "14:00", Duration: 90, Status: exam.StatusCompleted,
				Description:   "Midterm examination covering mechanics and thermodynamics",
				StudentsCount: 30, SubmissionsCount: 28,
			},
		}),
		Results: NewResultRepo([]exam.Result{
			{
				ID: 1, ExamID: 2, StudentID: 1, ExamTitle: "Physics Midterm",
				Score: 85, MaxScore: 100, Grade: "B+",
				CompletedAt: mustTime("2024-01-10T15:30:00Z"),
				Feedback:    "Good performance, focus on thermodynamics concepts",
			},
		}),
		Submissions: NewSubmissionRepo(tp, []exam.Submission{
			{
				ID: 1, ExamID: 2, StudentID: 1, StudentName: "John Doe",
				SubmittedAt: mustTime("2024-01-10T15:30:00Z"),
				Score:       &score, Grade: "B+", Status: exam.SubmissionGraded,
			},
		}),
		Accounts: NewAccountRepo(tp, []exam.Account{
			{
				ID: 1, Name: "John Doe", Email: "john.doe@example.com", Role: domainauth.RoleStudent,
				Department: "Computer Science", Status: exam.AccountActive, CreatedAt: seeded,
			},
			{
				ID: 2, Name: "Jane Smith", Email: "jane.smith@example.com", Role: domainauth.RoleTeacher,
				Department: "Mathematics", Status: exam.AccountActive, CreatedAt: seeded,
			},
		}),
		Monitoring: NewMonitoringRepo(tp, MonitoringSeed{
			Active: []exam.ActiveExam{
				{
					ID: 1, Title: "Mathematics Final Exam",
					StartTime:     mustTime("2024-01-15T10:00:00Z"),
					EndTime:       mustTime("2024-01-15T12:00:00Z"),
					StudentsCount: 25, ActiveStudents: 23,
				},
			},
			Students: []exam.ExamStudent{
				{
					ID: 1, ExamID: 1, StudentID: 1, StudentName: "John Doe",
					WebcamURL: "/api/webcam/student/1", Status: exam.AttendanceActive,
					StartTime:    mustTime("2024-01-15T10:00:00Z"),
					LastActivity: mustTime("2024-01-15T10:45:00Z"),
				},
			},
			Logs: []exam.ActivityLog{
				{
					ID: 1, ExamID: 1, StudentID: 1, StudentName: "John Doe",
					Activity: "Tab switched", Timestamp: mustTime("2024-01-15T10:30:00Z"),
					Severity: exam.SeverityWarning,
				},
			},
		}),
	}
}
