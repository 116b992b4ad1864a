package apiclient

import (
	"context"
	"net/http"

	"github.com/target/exam-portal/internal/domain/exam"
)

// TeacherClient calls /teacher.
type TeacherClient struct{ s *Session }

func (c *TeacherClient) Exams(ctx context.Context) ([]exam.Exam, error) {
	var out []exam.Exam
	err := c.s.do(ctx, request{method: http.MethodGet, path: "/teacher/exams"}, &out)
	return out, err
}

func (c *TeacherClient) CreateExam(ctx context.Context, in exam.Input) (*exam.Exam, error) {
	var out exam.Exam
	if err := c.s.do(ctx, request{method: http.MethodPost, path: "/teacher/exams", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *TeacherClient) UpdateExam(ctx context.Context, id int64, in exam.Input) (*exam.Exam, error) {
	var out exam.Exam
	r := request{method: http.MethodPut, path: "/teacher/exams/" + itoa(id), body: in}
	if err := c.s.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *TeacherClient) DeleteExam(ctx context.Context, id int64) error {
	return c.s.do(ctx, request{method: http.MethodDelete, path: "/teacher/exams/" + itoa(id)}, nil)
}

func (c *TeacherClient) Submissions(ctx context.Context, examID int64) ([]exam.Submission, error) {
	var out []exam.Submission
	path := "/teacher/exams/" + itoa(examID) + "/submissions"
	err := c.s.do(ctx, request{method: http.MethodGet, path: path}, &out)
	return out, err
}

func (c *TeacherClient) GradeSubmission(ctx context.Context, id int64, g exam.Grade) (*exam.Submission, error) {
	var out exam.Submission
	path := "/teacher/submissions/" + itoa(id) + "/grade"
	if err := c.s.do(ctx, request{method: http.MethodPost, path: path, body: g}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
