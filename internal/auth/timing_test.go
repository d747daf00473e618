package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/nexus/internal/config"
	"github.com/stretchr/testify/assert"
)

func newRecordingDelay(cfg TimingConfig) (*TimingDelay, *[]time.Duration) {
	var slept []time.Duration
	td := NewTimingDelay(cfg)
	td.sleep = func(d time.Duration) { slept = append(slept, d) }
	return td, &slept
}

func TestTimingDelay_FailureWaitsBasePlusJitter(t *testing.T) {
	td, slept := newRecordingDelay(TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})

	td.WaitFrom(time.Now(), false)

	if assert.Len(t, *slept, 1) {
		assert.GreaterOrEqual(t, (*slept)[0], 90*time.Millisecond)
		assert.Less(t, (*slept)[0], 150*time.Millisecond)
	}
}

func TestTimingDelay_SuccessSkipsDelay(t *testing.T) {
	td, slept := newRecordingDelay(TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})

	td.WaitFrom(time.Now(), true)

	assert.Empty(t, *slept)
}

func TestTimingDelay_DelayOnSuccess(t *testing.T) {
	td, slept := newRecordingDelay(TimingConfig{BaseDelayMs: 100, DelayOnSuccess: true})

	td.WaitFrom(time.Now(), true)

	assert.Len(t, *slept, 1)
}

func TestTimingDelay_WaitFromAccountsForElapsedTime(t *testing.T) {
	td, slept := newRecordingDelay(TimingConfig{BaseDelayMs: 100})

	td.WaitFrom(time.Now().Add(-60*time.Millisecond), false)
	if assert.Len(t, *slept, 1) {
		assert.LessOrEqual(t, (*slept)[0], 40*time.Millisecond)
	}

	// Already slower than the target: no sleep at all.
	td.WaitFrom(time.Now().Add(-time.Second), false)
	assert.Len(t, *slept, 1)
}

func TestTimingDelay_RealSleep(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 20})

	start := time.Now()
	td.WaitFrom(time.Now(), false)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTimingConfigFrom(t *testing.T) {
	cfg := TimingConfigFrom(config.SessionConfig{FailureDelayMs: 200, FailureJitterMs: 100})
	assert.Equal(t, TimingConfig{BaseDelayMs: 200, RandomDelayMs: 100}, cfg)

	cfg = TimingConfigFrom(config.SessionConfig{FailureDelayMs: 200, DelayOnSuccess: true})
	assert.Equal(t, TimingConfig{BaseDelayMs: 200, DelayOnSuccess: true}, cfg)
}
