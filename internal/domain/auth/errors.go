package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the gateway rejects the email/password/role combination.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrGatewayUnreachable is returned when the gateway cannot be reached or times out.
	ErrGatewayUnreachable = errors.New("authentication gateway unreachable")
	// ErrMalformedSession marks partial or corrupt persisted session data.
	ErrMalformedSession = errors.New("malformed persisted session")
	// ErrUnauthorized is returned when a downstream call reports an invalid or expired token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnknownRole is returned when a role string is outside the known set.
	ErrUnknownRole = errors.New("unknown role")
)

// RejectedError carries the gateway's own failure message. It matches ErrInvalidCredentials.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "Invalid credentials"
	}
	return e.Message
}

func (e *RejectedError) Is(target error) bool { return target == ErrInvalidCredentials }

// Reject builds a RejectedError with msg.
func Reject(msg string) error { return &RejectedError{Message: msg} }
