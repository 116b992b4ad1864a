package apiclient

import (
	"context"
	"net/http"

	"github.com/target/exam-portal/internal/domain/exam"
)

// ProctorClient calls /proctor.
type ProctorClient struct{ s *Session }

func (c *ProctorClient) ActiveExams(ctx context.Context) ([]exam.ActiveExam, error) {
	var out []exam.ActiveExam
	err := c.s.do(ctx, request{method: http.MethodGet, path: "/proctor/exams/active"}, &out)
	return out, err
}

func (c *ProctorClient) Students(ctx context.Context, examID int64) ([]exam.ExamStudent, error) {
	var out []exam.ExamStudent
	path := "/proctor/exams/" + itoa(examID) + "/students"
	err := c.s.do(ctx, request{method: http.MethodGet, path: path}, &out)
	return out, err
}

func (c *ProctorClient) ActivityLogs(ctx context.Context, examID int64) ([]exam.ActivityLog, error) {
	var out []exam.ActivityLog
	path := "/proctor/exams/" + itoa(examID) + "/logs"
	err := c.s.do(ctx, request{method: http.MethodGet, path: path}, &out)
	return out, err
}

func (c *ProctorClient) FlagSuspiciousActivity(ctx context.Context, examID int64, req exam.FlagRequest) (*exam.FlagReceipt, error) {
	var out exam.FlagReceipt
	path := "/proctor/exams/" + itoa(examID) + "/flags"
	if err := c.s.do(ctx, request{method: http.MethodPost, path: path, body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ProctorClient) EndMonitoring(ctx context.Context, examID int64) error {
	path := "/proctor/exams/" + itoa(examID) + "/end"
	return c.s.do(ctx, request{method: http.MethodPost, path: path}, nil)
}
