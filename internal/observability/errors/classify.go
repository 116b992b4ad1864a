// Package errors classifies errors into short labels for metrics and logs.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
)

// Classify returns a normalized label for err. Application error codes and the auth
// sentinels map to their own names; anything else falls back to the innermost
// concrete type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	switch {
	case goerrors.Is(err, domainauth.ErrUnauthorized):
		return "unauthorized"
	case goerrors.Is(err, domainauth.ErrInvalidCredentials):
		return "invalid_credentials"
	case goerrors.Is(err, domainauth.ErrGatewayUnreachable):
		return "gateway_unreachable"
	case goerrors.Is(err, domainauth.ErrMalformedSession):
		return "malformed_session"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
