package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of periodic housekeeping. It returns how many records it removed.
type Task func(ctx context.Context) (int64, error)

// CleanupManager runs a Task on a fixed interval until stopped
type CleanupManager struct {
	name     string
	task     Task
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(name string, task Task, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		name:     name,
		task:     task,
		logger:   logger.With(slog.String("task", name)),
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop is called or
// ctx is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	removed, err := cm.task(cleanupCtx)
	if err != nil {
		cm.logger.Error("cleanup failed", slog.Any("error", err))
		return
	}

	if removed > 0 {
		cm.logger.Info("cleanup completed", slog.Int64("removed", removed))
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
