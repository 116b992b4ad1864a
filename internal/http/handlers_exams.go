package httpx

import (
	"net/http"

	"github.com/target/exam-portal/internal/domain/exam"
	"github.com/target/exam-portal/internal/service"
)

// StudentHandlers serves /api/student. The student is the token's subject.
type StudentHandlers struct {
	Svc     *service.StudentService
	Metrics APIErrorRecorder
}

func (h *StudentHandlers) fail(w http.ResponseWriter, err error) { WriteAppError(w, h.Metrics, err) }

// Exams handles GET /api/student/exams.
func (h *StudentHandlers) Exams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.Svc.Exams(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, exams)
}

// Exam handles GET /api/student/exams/{id}.
func (h *StudentHandlers) Exam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	e, err := h.Svc.Exam(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, e)
}

// Results handles GET /api/student/results.
func (h *StudentHandlers) Results(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetClaimsFromContext(r.Context())
	res, err := h.Svc.Results(r.Context(), claims.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Start handles POST /api/student/exams/{id}/start.
func (h *StudentHandlers) Start(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	claims, _ := GetClaimsFromContext(r.Context())
	sess, err := h.Svc.StartExam(r.Context(), claims.UserID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}

type submitBody struct {
	Answers map[string]string `json:"answers"`
}

// Submit handles POST /api/student/exams/{id}/submit.
func (h *StudentHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var body submitBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	claims, _ := GetClaimsFromContext(r.Context())
	receipt, err := h.Svc.SubmitExam(r.Context(), service.SubmitParams{
		ExamID:      id,
		StudentID:   claims.UserID,
		StudentName: claims.Name,
		Answers:     body.Answers,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, receipt)
}

// TeacherHandlers serves /api/teacher.
type TeacherHandlers struct {
	Svc     *service.TeacherService
	Metrics APIErrorRecorder
}

func (h *TeacherHandlers) fail(w http.ResponseWriter, err error) { WriteAppError(w, h.Metrics, err) }

// Exams handles GET /api/teacher/exams.
func (h *TeacherHandlers) Exams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.Svc.Exams(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, exams)
}

// Create handles POST /api/teacher/exams.
func (h *TeacherHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var in exam.Input
	if !DecodeJSON(w, r, &in) {
		return
	}
	e, err := h.Svc.CreateExam(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, e)
}

// Update handles PUT /api/teacher/exams/{id}.
func (h *TeacherHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var in exam.Input
	if !DecodeJSON(w, r, &in) {
		return
	}
	e, err := h.Svc.UpdateExam(r.Context(), id, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, e)
}

// Delete handles DELETE /api/teacher/exams/{id}.
func (h *TeacherHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Svc.DeleteExam(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Submissions handles GET /api/teacher/exams/{id}/submissions.
func (h *TeacherHandlers) Submissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	subs, err := h.Svc.Submissions(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, subs)
}

// Grade handles POST /api/teacher/submissions/{id}/grade.
func (h *TeacherHandlers) Grade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var g exam.Grade
	if !DecodeJSON(w, r, &g) {
		return
	}
	sub, err := h.Svc.GradeSubmission(r.Context(), id, g)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sub)
}
