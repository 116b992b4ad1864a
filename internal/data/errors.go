package data

import apperrors "github.com/target/exam-portal/internal/errors"

// Shared sentinel errors for data-layer repositories. They carry an AppError code
// so the HTTP layer can map them without importing this package.
var (
	ErrExamNotFound       = apperrors.NotFound("Exam not found")
	ErrSubmissionNotFound = apperrors.NotFound("Submission not found")
	ErrAccountNotFound    = apperrors.NotFound("User not found")
	ErrAccountEmailExists = apperrors.Conflict("A user with this email already exists")
	ErrActiveExamNotFound = apperrors.NotFound("Exam is not being monitored")
	ErrStudentNotInExam   = apperrors.NotFound("Student is not taking this exam")
	ErrStorageKeyRequired = apperrors.ValidationField("key", "Storage key is required")
)
