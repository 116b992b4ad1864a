package httpx

import (
	"context"

	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/session"
)

// Context keys are centralized here so every handler and middleware shares them.
type (
	storeKey  struct{}
	deviceKey struct{}
	claimsKey struct{}
)

// SetStoreInContext returns a child context carrying the device's session store.
// A nil store returns ctx unchanged.
func SetStoreInContext(ctx context.Context, st *session.Store) context.Context {
	if st == nil {
		return ctx
	}
	return context.WithValue(ctx, storeKey{}, st)
}

// GetStoreFromContext returns the session store attached by DeviceSession.
func GetStoreFromContext(ctx context.Context) (*session.Store, bool) {
	st, ok := ctx.Value(storeKey{}).(*session.Store)
	return st, ok && st != nil
}

// SetDeviceInContext records the device id for logging.
func SetDeviceInContext(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}

// GetDeviceFromContext returns the device id, or "".
func GetDeviceFromContext(ctx context.Context) string {
	d, _ := ctx.Value(deviceKey{}).(string)
	return d
}

// SetClaimsInContext returns a child context carrying verified token claims.
func SetClaimsInContext(ctx context.Context, c ports.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// GetClaimsFromContext returns the claims attached by RequireToken.
func GetClaimsFromContext(ctx context.Context) (ports.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(ports.Claims)
	return c, ok
}
