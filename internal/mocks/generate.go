// Package mocks provides mock implementations of the session ports for tests.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	gw := mocks.NewMockAuthGateway(ctrl)
//	gw.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(grant, nil)
package mocks

// Generate mocks for AuthGateway (Authenticate) and Storage (Get, Set, Remove) from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/exam-portal/internal/ports AuthGateway,Storage
