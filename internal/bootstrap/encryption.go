package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/target/exam-portal/internal/data/cryptoutil"
)

// NewSealer returns the sealer for persisted session values. An empty key stores
// values in the clear, which is only acceptable for local development.
//
//nolint:ireturn // callers wrap storage through the Sealer interface.
func NewSealer(key string, logger *slog.Logger) (cryptoutil.Sealer, error) {
	if key == "" {
		if logger != nil {
			logger.Warn("storage encryption key is empty, session values are stored unsealed")
		}
		return cryptoutil.PlainSealer{}, nil
	}

	sealer, err := cryptoutil.NewAESGCMSealer(cryptoutil.ParseKey(key, nil))
	if err != nil {
		return nil, fmt.Errorf("create sealer: %w", err)
	}
	return sealer, nil
}
