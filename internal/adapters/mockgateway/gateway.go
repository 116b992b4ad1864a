// Package mockgateway provides a config-driven AuthGateway for local development and
// demos. Any non-empty email and password is accepted for a known role; the
// returned user is the fixture for that role with the submitted email.
package mockgateway

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/ports"
)

// DefaultDelay simulates gateway latency.
const DefaultDelay = time.Second

// Config controls the mock gateway behavior. All fields are optional.
type Config struct {
	// Delay before answering; zero means DefaultDelay, negative disables it.
	Delay time.Duration
	// Password, when set, is the only password accepted.
	Password string
	// Issuer signs tokens; when nil an opaque random token is returned.
	Issuer ports.TokenIssuer
	// Users overrides the built-in fixtures per role.
	Users map[domainauth.Role]domainauth.User
}

// Gateway implements ports.AuthGateway without any backing service.
type Gateway struct {
	delay    time.Duration
	password string
	issuer   ports.TokenIssuer
	users    map[domainauth.Role]domainauth.User
}

// New constructs a mock gateway from Config.
func New(cfg Config) *Gateway {
	delay := cfg.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	users := cfg.Users
	if users == nil {
		users = Users()
	}
	return &Gateway{delay: delay, password: cfg.Password, issuer: cfg.Issuer, users: users}
}

// Users returns the built-in fixture user for every role.
func Users() map[domainauth.Role]domainauth.User {
	return map[domainauth.Role]domainauth.User{
		domainauth.RoleStudent: {ID: 1, Name: "John Doe", StudentID: "ST001", Department: "Computer Science"},
		domainauth.RoleTeacher: {ID: 2, Name: "Jane Smith", TeacherID: "TC001", Department: "Mathematics"},
		domainauth.RoleAdmin:   {ID: 3, Name: "Admin User", AdminID: "AD001", Permissions: []string{"all"}},
		domainauth.RoleProctor: {ID: 4, Name: "Proctor User", ProctorID: "PR001", AssignedExams: []int64{}},
	}
}

// Authenticate waits for the configured delay, honouring ctx, then answers from the fixtures.
func (g *Gateway) Authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domainauth.Grant{}, fmt.Errorf("%w: %w", domainauth.ErrGatewayUnreachable, ctx.Err())
		case <-timer.C:
		}
	}

	user, ok := g.users[creds.Role]
	if !ok || !creds.Complete() {
		return domainauth.Grant{}, domainauth.Reject("Invalid credentials")
	}
	if g.password != "" && creds.Password != g.password {
		return domainauth.Grant{}, domainauth.Reject("Invalid credentials")
	}
	user.Email = creds.Email

	tok, err := g.token(user, creds.Role)
	if err != nil {
		return domainauth.Grant{}, fmt.Errorf("issue mock token: %w", err)
	}
	return domainauth.Grant{User: user, Token: tok}, nil
}

func (g *Gateway) token(user domainauth.User, role domainauth.Role) (string, error) {
	if g.issuer != nil {
		return g.issuer.Issue(user, role)
	}
	suffix, err := randomString(24)
	if err != nil {
		return "", err
	}
	return "mock-" + role.String() + "-" + suffix, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		return s, nil
	}
	return s[:n], nil
}
