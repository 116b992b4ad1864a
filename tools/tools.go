//go:build tools

// Package tools lists the development tools used on this repository. They are
// installed with `go install` and kept out of go.mod.
package tools

// Air reloads cmd/examportal while editing templates and handlers.
//
//	go install github.com/air-verse/air@v1.63.0
//	SERVICES=ui,api DEV=true air --build.cmd "go build -o ./tmp/examportal ./cmd/examportal" --build.bin ./tmp/examportal
//
// mockgen regenerates internal/mocks from the ports package.
//
//	go generate ./internal/mocks
