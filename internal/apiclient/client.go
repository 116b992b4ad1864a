// Package apiclient is the typed HTTP client the dashboards and examctl use to reach the
// portal's JSON API. Every call carries the device's bearer token; a 401 response runs the
// session's unauthorized hook so the caller can tear the session down.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
)

// DefaultTimeout bounds every API request.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 64 << 10

// TokenSource yields the bearer token of the current session, or "" when signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the default client with its cookie jar.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is safe for concurrent use. Bind it to a session with Session.
type Client struct {
	base   string
	hc     *http.Client
	logger *slog.Logger
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be an absolute http(s) URL", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc = &http.Client{Timeout: timeout, Jar: jar}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{base: base, hc: hc, logger: logger.With("component", "apiclient")}, nil
}

// SessionOptions binds a Client to one signed-in device.
type SessionOptions struct {
	Tokens TokenSource
	// OnUnauthorized runs once per 401 response, before the error is returned.
	OnUnauthorized func(ctx context.Context)
}

// Session issues requests on behalf of one session.
type Session struct {
	c              *Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
}

// Session returns a view of c that authenticates with opts.Tokens.
func (c *Client) Session(opts SessionOptions) *Session {
	return &Session{c: c, tokens: opts.Tokens, onUnauthorized: opts.OnUnauthorized}
}

// Anonymous returns a view of c that sends no bearer token.
func (c *Client) Anonymous() *Session { return &Session{c: c} }

func (s *Session) Auth() *AuthClient       { return &AuthClient{s: s} }
func (s *Session) Student() *StudentClient { return &StudentClient{s: s} }
func (s *Session) Teacher() *TeacherClient { return &TeacherClient{s: s} }
func (s *Session) Admin() *AdminClient     { return &AdminClient{s: s} }
func (s *Session) Proctor() *ProctorClient { return &ProctorClient{s: s} }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests carry no token and never fire the unauthorized hook.
	anonymous bool
}

type response struct {
	status int
	body   []byte
}

// StatusError is the HTTP-level cause attached to API errors.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api returned %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("api returned %d", e.Status)
}

// Is makes a 401 match domainauth.ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	return e.Status == http.StatusUnauthorized && target == domainauth.ErrUnauthorized
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Session) send(ctx context.Context, r request) (response, error) {
	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return response{}, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	target := s.c.base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.anonymous && s.tokens != nil {
		tok, err := s.tokens.Token(ctx)
		if err != nil {
			return response{}, fmt.Errorf("read session token: %w", err)
		}
		if tok != "" {
			(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(req)
		}
	}

	resp, err := s.c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, ctxErr
		}
		return response{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "Unable to reach the server")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return response{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "Unable to read the server response")
	}
	return response{status: resp.StatusCode, body: raw}, nil
}

func (s *Session) do(ctx context.Context, r request, out any) error {
	resp, err := s.send(ctx, r)
	if err != nil {
		return err
	}
	if resp.status < 200 || resp.status > 299 {
		return s.statusErr(ctx, r, resp)
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Unexpected response from the server")
	}
	return nil
}

func (s *Session) statusErr(ctx context.Context, r request, resp response) error {
	var env errorEnvelope
	if len(resp.body) <= maxErrorBody {
		_ = json.Unmarshal(resp.body, &env)
	}
	se := &StatusError{Status: resp.status, Code: env.Error, Message: env.Message}

	if resp.status == http.StatusUnauthorized && !r.anonymous && s.onUnauthorized != nil {
		s.c.logger.DebugContext(ctx, "api rejected session token", "path", r.path)
		s.onUnauthorized(ctx)
	}

	msg := env.Message
	if msg == "" {
		msg = http.StatusText(resp.status)
	}
	return &apperrors.AppError{Code: codeForStatus(resp.status), Message: msg, Cause: se}
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.ErrCodeValidation
	case http.StatusUnauthorized:
		return apperrors.ErrCodeUnauthenticated
	case http.StatusForbidden:
		return apperrors.ErrCodeForbidden
	case http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case http.StatusConflict:
		return apperrors.ErrCodeConflict
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return apperrors.ErrCodeTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return apperrors.ErrCodeUnavailable
	default:
		return apperrors.ErrCodeInternal
	}
}

// Status returns the HTTP status behind err, or 0.
func Status(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
