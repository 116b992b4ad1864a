package exam

import (
	"fmt"
	"time"
)

// ActiveExam is an exam currently under proctoring.
type ActiveExam struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	StudentsCount  int       `json:"studentsCount"`
	ActiveStudents int       `json:"activeStudents"`
}

// Remaining formats the time left until EndTime as HH:MM:SS, clamped at zero.
func (a ActiveExam) Remaining(now time.Time) string {
	d := a.EndTime.Sub(now)
	if d <= 0 {
		return "00:00:00"
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// AttendanceStatus is a monitored student's status.
type AttendanceStatus string

const (
	AttendanceActive   AttendanceStatus = "active"
	AttendanceFlagged  AttendanceStatus = "flagged"
	AttendanceFinished AttendanceStatus = "finished"
)

// ExamStudent is a student being monitored during an exam.
type ExamStudent struct {
	ID           int64            `json:"id"`
	ExamID       int64            `json:"examId"`
	StudentID    int64            `json:"studentId"`
	StudentName  string           `json:"studentName"`
	WebcamURL    string           `json:"webcamUrl"`
	Status       AttendanceStatus `json:"status"`
	StartTime    time.Time        `json:"startTime"`
	LastActivity time.Time        `json:"lastActivity"`
}

// Severity grades an activity log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ActivityLog is a recorded proctoring event.
type ActivityLog struct {
	ID          int64     `json:"id"`
	ExamID      int64     `json:"examId"`
	StudentID   int64     `json:"studentId"`
	StudentName string    `json:"studentName"`
	Activity    string    `json:"activity"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    Severity  `json:"severity"`
}

// FlagRequest reports suspicious activity for a student.
type FlagRequest struct {
	StudentID    int64  `json:"studentId"    validate:"required,gt=0"`
	ActivityType string `json:"activityType" validate:"required"`
	Description  string `json:"description"  validate:"required"`
}

// FlagReceipt acknowledges a flag.
type FlagReceipt struct {
	Success   bool      `json:"success"`
	FlagID    string    `json:"flagId"`
	Timestamp time.Time `json:"timestamp"`
}

// MonitoringSummary is the proctor header for a selected exam.
type MonitoringSummary struct {
	Students int `json:"students"`
	Flagged  int `json:"flagged"`
	Alerts   int `json:"alerts"`
}

// Summarize counts flagged students and warning-or-worse log entries.
func Summarize(students []ExamStudent, logs []ActivityLog) MonitoringSummary {
	s := MonitoringSummary{Students: len(students)}
	for _, st := range students {
		if st.Status == AttendanceFlagged {
			s.Flagged++
		}
	}
	for _, l := range logs {
		if l.Severity == SeverityWarning || l.Severity == SeverityError {
			s.Alerts++
		}
	}
	return s
}
