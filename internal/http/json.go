package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
	errclass "github.com/target/exam-portal/internal/observability/errors"
)

// maxJSONBody bounds request bodies on the JSON API.
const maxJSONBody = 1 << 20

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
// Returns true on success; otherwise a 400 has already been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// The client is gone; nothing left to do.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes the {"error": code, "message": text} envelope.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// StatusForError maps err onto an HTTP status code.
func StatusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeCanceled:
		return http.StatusRequestTimeout
	case apperrors.ErrCodeInternal:
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, domainauth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domainauth.ErrGatewayUnreachable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// APIErrorRecorder counts error responses.
type APIErrorRecorder interface {
	RecordAPIError(status, class string)
}

// WriteAppError writes err in the JSON envelope with the status StatusForError picks.
// Internal errors never leak their cause to the client.
func WriteAppError(w http.ResponseWriter, rec APIErrorRecorder, err error) int {
	status := StatusForError(err)
	code := string(apperrors.GetCode(err))
	if code == "" {
		code = errclass.Classify(err)
	}
	msg := apperrors.PublicMessage(err, http.StatusText(status))
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		msg = http.StatusText(status)
	}
	if rec != nil {
		rec.RecordAPIError(statusLabel(status), errclass.Classify(err))
	}

	body := map[string]string{"error": code, "message": msg}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, status, body)
	return status
}

func statusLabel(code int) string { return strconv.Itoa(code) }

// pathID parses the {name} path value as a positive integer id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationField(name, "Invalid "+name)
	}
	return id, nil
}
