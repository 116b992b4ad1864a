package ports_test

import (
	"testing"

	"github.com/target/exam-portal/internal/adapters/authroles"
	"github.com/target/exam-portal/internal/adapters/kvstore"
	"github.com/target/exam-portal/internal/adapters/mockgateway"
	"github.com/target/exam-portal/internal/mocks"
	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/token"
)

// This test only verifies that our adapters and mocks conform to the ports at compile time.
func TestImplementationsSatisfyPorts(t *testing.T) {
	t.Helper()

	var _ ports.AuthGateway = (*mocks.MockAuthGateway)(nil)
	var _ ports.AuthGateway = (*mockgateway.Gateway)(nil)
	var _ ports.Storage = (*mocks.MockStorage)(nil)
	var _ ports.Storage = (*kvstore.Memory)(nil)
	var _ ports.Storage = (*kvstore.File)(nil)
	var _ ports.TokenIssuer = (*token.Manager)(nil)
	var _ ports.TokenVerifier = (*token.Manager)(nil)
	var _ ports.RoleMapper = (*authroles.StaticMapper)(nil)
}
