package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/BradenHooton/nexus/internal/config"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random delay range in milliseconds
	DelayOnSuccess bool // If true, delay even on successful login
}

// TimingConfigFrom reads the login delay from session configuration.
func TimingConfigFrom(cfg config.SessionConfig) TimingConfig {
	return TimingConfig{
		BaseDelayMs:    cfg.FailureDelayMs,
		RandomDelayMs:  cfg.FailureJitterMs,
		DelayOnSuccess: cfg.DelayOnSuccess,
	}
}

// TimingDelay pads login failures so "unknown email" and "wrong password"
// take about the same time.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	return int(binary.BigEndian.Uint64(randomBytes) % uint64(max)), nil
}

func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if jitter, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(jitter) * time.Millisecond
		}
	}
	return delay
}

// WaitFrom sleeps until at least base + jitter has elapsed since startTime.
// Successful attempts return immediately unless DelayOnSuccess is set.
func (td *TimingDelay) WaitFrom(startTime time.Time, succeeded bool) {
	if succeeded && !td.config.DelayOnSuccess {
		return
	}

	if remaining := td.target() - time.Since(startTime); remaining > 0 {
		td.sleep(remaining)
	}
}
