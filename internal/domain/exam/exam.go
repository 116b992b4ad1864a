// Package exam contains the exam platform's domain entities: exams, results,
// submissions, the user directory and proctoring records.
package exam

import (
	"fmt"
	"time"
)

// Status is the lifecycle status an exam is authored with.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCompleted Status = "completed"
)

// Availability is the status a student sees, derived from Status and the clock.
type Availability string

const (
	AvailabilityUpcoming  Availability = "upcoming"
	AvailabilityActive    Availability = "active"
	AvailabilityExpired   Availability = "expired"
	AvailabilityCompleted Availability = "completed"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Exam is a scheduled exam.
type Exam struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Subject          string     `json:"subject"`
	Date             string     `json:"date"`
	Time             string     `json:"time"`
	Duration         int        `json:"duration"` // minutes
	Status           Status     `json:"status"`
	Description      string     `json:"description,omitempty"`
	StudentsCount    int        `json:"studentsCount"`
	SubmissionsCount int        `json:"submissionsCount"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

// StartsAt parses Date and Time in loc.
func (e Exam) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, e.Date+" "+e.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse exam schedule: %w", err)
	}
	return t, nil
}

// EndsAt is StartsAt plus Duration.
func (e Exam) EndsAt(loc *time.Location) (time.Time, error) {
	start, err := e.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(e.Duration) * time.Minute), nil
}

// Availability derives the student-facing status at now. Completed exams stay
// completed; otherwise the exam is upcoming before its start, active inside its
// window and expired after it. An unparseable schedule reads as expired.
func (e Exam) Availability(now time.Time) Availability {
	if e.Status == StatusCompleted {
		return AvailabilityCompleted
	}
	start, err := e.StartsAt(now.Location())
	if err != nil {
		return AvailabilityExpired
	}
	if start.After(now) {
		return AvailabilityUpcoming
	}
	if start.Add(time.Duration(e.Duration) * time.Minute).After(now) {
		return AvailabilityActive
	}
	return AvailabilityExpired
}

// CanStart reports whether a student may start the exam at now.
func (e Exam) CanStart(now time.Time) bool {
	return e.Availability(now) == AvailabilityActive
}

// Input is the author-editable part of an exam.
type Input struct {
	Title       string `json:"title"       validate:"required"`
	Subject     string `json:"subject"     validate:"required"`
	Date        string `json:"date"        validate:"required,datetime=2006-01-02"`
	Time        string `json:"time"        validate:"required,datetime=15:04"`
	Duration    int    `json:"duration"    validate:"required,gt=0"`
	Description string `json:"description"`
}

// Apply copies the input fields onto e.
func (in Input) Apply(e *Exam) {
	e.Title = in.Title
	e.Subject = in.Subject
	e.Date = in.Date
	e.Time = in.Time
	e.Duration = in.Duration
	e.Description = in.Description
}

// StatusCounts tallies exams per authoring status.
type StatusCounts struct {
	Draft     int `json:"draft"`
	Published int `json:"published"`
	Completed int `json:"completed"`
}

// CountByStatus tallies exams per status.
func CountByStatus(exams []Exam) StatusCounts {
	var c StatusCounts
	for _, e := range exams {
		switch e.Status {
		case StatusDraft:
			c.Draft++
		case StatusPublished:
			c.Published++
		case StatusCompleted:
			c.Completed++
		}
	}
	return c
}

// CountAvailable returns how many exams have availability a at now.
func CountAvailable(exams []Exam, a Availability, now time.Time) int {
	n := 0
	for _, e := range exams {
		if e.Availability(now) == a {
			n++
		}
	}
	return n
}

// Result is a graded outcome for a student.
type Result struct {
	ID          int64     `json:"id"`
	ExamID      int64     `json:"examId"`
	StudentID   int64     `json:"studentId"`
	ExamTitle   string    `json:"examTitle"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"maxScore"`
	Grade       string    `json:"grade"`
	CompletedAt time.Time `json:"completedAt"`
	Feedback    string    `json:"feedback,omitempty"`
}

// SubmissionStatus is the grading state of a submission.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// Submission is a student's answers to an exam.
type Submission struct {
	ID          int64             `json:"id"`
	ExamID      int64             `json:"examId"`
	StudentID   int64             `json:"studentId"`
	StudentName string            `json:"studentName"`
	SubmittedAt time.Time         `json:"submittedAt"`
	Answers     map[string]string `json:"answers,omitempty"`
	Score       *int              `json:"score,omitempty"`
	Grade       string            `json:"grade,omitempty"`
	Status      SubmissionStatus  `json:"status"`
}

// Grade is the teacher's grading input.
type Grade struct {
	Score int    `json:"score" validate:"gte=0"`
	Grade string `json:"grade" validate:"required"`
}

// AttemptSession identifies a started exam attempt.
type AttemptSession struct {
	Success     bool      `json:"success"`
	ExamSession string    `json:"examSession"`
	StartedAt   time.Time `json:"startedAt"`
}

// SubmissionReceipt acknowledges a submitted attempt.
type SubmissionReceipt struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submissionId"`
}

// StudentExam is an exam as a student sees it.
type StudentExam struct {
	Exam
	Availability Availability `json:"availability"`
	CanStart     bool         `json:"canStart"`
}

// ForStudent derives the student view of e at now.
func (e Exam) ForStudent(now time.Time) StudentExam {
	a := e.Availability(now)
	return StudentExam{Exam: e, Availability: a, CanStart: a == AvailabilityActive}
}
