package ports

// Package ports defines interfaces (hexagonal ports) for session and auth behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/session.

import (
	"context"
	"time"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
)

// AuthGateway verifies credentials and issues a bearer token.
//
// Authenticate returns a Grant on success. A rejection wraps
// domainauth.ErrInvalidCredentials (a *domainauth.RejectedError carries the
// gateway's message); transport failures and timeouts wrap
// domainauth.ErrGatewayUnreachable. Implementations must honour ctx cancellation.
type AuthGateway interface {
	Authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error)
}

// Storage is a durable string key/value store scoped to one device.
// Get reports found=false for a missing key. Remove of a missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	Subject   string
	UserID    int64
	Name      string
	Email     string
	Role      domainauth.Role
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer mints bearer tokens for an authenticated user.
type TokenIssuer interface {
	Issue(user domainauth.User, role domainauth.Role) (string, error)
}

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
}

// RoleMapper maps identity provider groups to the application roles they may sign in as.
type RoleMapper interface {
	Allowed(groups []string) []domainauth.Role
}
