package syncer

import (
	"time"

	"codeberg.org/mutker/divoomctl/internal/settings"
)

const (
	defaultPushInterval = 2 * time.Second
	defaultRetryBackoff = 3 * time.Second
	defaultMaxAttempts  = 4
)

// Store persists per-device sync intent. *settings.Store satisfies it.
type Store interface {
	Save(address string, s settings.Settings) error
	Load(address string) (*settings.Settings, error)
	All() (map[string]settings.Settings, error)
}

// Config carries the sync loop timings. The defaults match the telemetry
// clock's refresh cadence; tests shrink them.
type Config struct {
	PushInterval time.Duration
	RetryBackoff time.Duration
	MaxAttempts  int
}

func DefaultConfig() Config {
	return Config{
		PushInterval: defaultPushInterval,
		RetryBackoff: defaultRetryBackoff,
		MaxAttempts:  defaultMaxAttempts,
	}
}
