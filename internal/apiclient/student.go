package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/target/exam-portal/internal/domain/exam"
)

// StudentClient calls /student.
type StudentClient struct{ s *Session }

func (c *StudentClient) Exams(ctx context.Context) ([]exam.StudentExam, error) {
	var out []exam.StudentExam
	err := c.s.do(ctx, request{method: http.MethodGet, path: "/student/exams"}, &out)
	return out, err
}

func (c *StudentClient) Exam(ctx context.Context, id int64) (*exam.StudentExam, error) {
	var out exam.StudentExam
	if err := c.s.do(ctx, request{method: http.MethodGet, path: "/student/exams/" + itoa(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StudentClient) Results(ctx context.Context) ([]exam.Result, error) {
	var out []exam.Result
	err := c.s.do(ctx, request{method: http.MethodGet, path: "/student/results"}, &out)
	return out, err
}

func (c *StudentClient) StartExam(ctx context.Context, id int64) (*exam.AttemptSession, error) {
	var out exam.AttemptSession
	path := "/student/exams/" + itoa(id) + "/start"
	if err := c.s.do(ctx, request{method: http.MethodPost, path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitRequest is the body of a submission.
type SubmitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (c *StudentClient) SubmitExam(ctx context.Context, id int64, answers map[string]string) (*exam.SubmissionReceipt, error) {
	var out exam.SubmissionReceipt
	path := "/student/exams/" + itoa(id) + "/submit"
	body := SubmitRequest{Answers: answers}
	if err := c.s.do(ctx, request{method: http.MethodPost, path: path, body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
