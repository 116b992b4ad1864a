package config

import (
	"fmt"
	"strings"
	"time"
)

// StorageBackend selects where persisted session keys live.
type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StorageFile     StorageBackend = "file"
	StorageRedis    StorageBackend = "redis"
	StoragePostgres StorageBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := StorageBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case StorageMemory, StorageFile, StorageRedis, StoragePostgres:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: memory, file, redis, postgres)", v)
	}
}

// StorageConfig configures the session storage backend.
type StorageConfig struct {
	Backend StorageBackend `env:"STORAGE_BACKEND" envDefault:"memory"`

	// FilePath is the JSON file used by the file backend.
	FilePath string `env:"STORAGE_FILE_PATH" envDefault:"examportal-sessions.json"`

	// EncryptionKey seals stored values with AES-GCM when set.
	EncryptionKey string `env:"STORAGE_ENCRYPTION_KEY"`

	// KeyPrefix namespaces keys in shared backends.
	KeyPrefix string `env:"STORAGE_KEY_PREFIX" envDefault:"examportal"`

	// TTL expires stored keys in redis and postgres. Zero keeps them forever.
	TTL time.Duration `env:"STORAGE_TTL" envDefault:"0s"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = StorageMemory
	}
	s.FilePath = strings.TrimSpace(s.FilePath)
	s.KeyPrefix = strings.Trim(strings.TrimSpace(s.KeyPrefix), ":")
	if s.TTL < 0 {
		s.TTL = 0
	}
}

// Encrypted reports whether stored values are sealed.
func (s *StorageConfig) Encrypted() bool { return s.EncryptionKey != "" }
