package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
)

// AuthClient calls /auth.
type AuthClient struct{ s *Session }

// Login posts credentials. A rejection is a LoginResponse with Success false and a nil error.
func (a *AuthClient) Login(ctx context.Context, req domainauth.LoginRequest) (domainauth.LoginResponse, error) {
	r := request{method: http.MethodPost, path: "/auth/login", body: req, anonymous: true}
	resp, err := a.s.send(ctx, r)
	if err != nil {
		return domainauth.LoginResponse{}, err
	}

	var out domainauth.LoginResponse
	switch {
	case resp.status >= 200 && resp.status <= 299:
		if err := json.Unmarshal(resp.body, &out); err != nil {
			return out, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Unexpected response from the server")
		}
		return out, nil
	case resp.status == http.StatusUnauthorized, resp.status == http.StatusBadRequest:
		if json.Unmarshal(resp.body, &out) == nil && out.Message != "" {
			out.Success = false
			return out, nil
		}
	}
	return out, a.s.statusErr(ctx, r, resp)
}

// Logout revokes the session token on the server.
func (a *AuthClient) Logout(ctx context.Context) error {
	return a.s.do(ctx, request{method: http.MethodPost, path: "/auth/logout"}, nil)
}

// Refresh exchanges the session token for a fresh one.
func (a *AuthClient) Refresh(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := a.s.do(ctx, request{method: http.MethodPost, path: "/auth/refresh"}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", apperrors.Internal("Refresh returned no token")
	}
	return out.Token, nil
}

// Gateway implements ports.AuthGateway against a remote API.
type Gateway struct {
	auth *AuthClient
}

// NewGateway returns a gateway that signs in through c.
func NewGateway(c *Client) *Gateway {
	return &Gateway{auth: c.Anonymous().Auth()}
}

// Authenticate posts creds to /auth/login.
func (g *Gateway) Authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error) {
	resp, err := g.auth.Login(ctx, domainauth.LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		Role:     creds.Role,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domainauth.Grant{}, fmt.Errorf("%w: %w", domainauth.ErrGatewayUnreachable, err)
		}
		if apperrors.IsValidation(err) {
			return domainauth.Grant{}, domainauth.Reject(apperrors.PublicMessage(err, ""))
		}
		return domainauth.Grant{}, fmt.Errorf("%w: %w", domainauth.ErrGatewayUnreachable, err)
	}
	if !resp.Success || resp.User == nil || resp.Token == "" {
		return domainauth.Grant{}, domainauth.Reject(resp.Message)
	}
	return domainauth.Grant{User: *resp.User, Token: resp.Token}, nil
}
