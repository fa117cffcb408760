package config

import (
	"fmt"
	"strings"
	"time"
)

// StoreKind selects the durable slot backing the persisted session.
type StoreKind string

const (
	// StoreFile keeps the session in a local JSON file.
	StoreFile StoreKind = "file"
	// StoreRedis keeps the session in a Redis key.
	StoreRedis StoreKind = "redis"
	// StorePostgres keeps the session in a PostgreSQL table.
	StorePostgres StoreKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreKind.
func (k *StoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis", "postgres":
		*k = StoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreKind: %q (valid options: file, redis, postgres)", v)
	}
}

// StorageConfig controls where the session is persisted.
type StorageConfig struct {
	Kind    StoreKind `env:"SESSION_STORE"    envDefault:"file"`
	SlotKey string    `env:"SESSION_SLOT_KEY" envDefault:"jm_auth"`

	// File is the session file path; empty means the user config directory.
	File string `env:"SESSION_FILE"`

	// RedisPrefix and RedisTTL apply to the redis store. A zero TTL never expires.
	RedisPrefix string        `env:"SESSION_REDIS_PREFIX" envDefault:"jm:slot:"`
	RedisTTL    time.Duration `env:"SESSION_REDIS_TTL"    envDefault:"0s"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	if s.Kind == "" {
		s.Kind = StoreFile
	}
	s.SlotKey = strings.TrimSpace(s.SlotKey)
	if s.SlotKey == "" {
		s.SlotKey = "jm_auth"
	}
	s.File = strings.TrimSpace(s.File)
	if s.RedisTTL < 0 {
		s.RedisTTL = 0
	}
}
