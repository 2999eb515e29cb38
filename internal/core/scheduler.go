package core

// scheduler.go provides background maintenance for in-memory sessions.
//
// Sessions hold a whole uploaded sheet in memory, so idle ones are dropped
// periodically. The sweeper is long-running and context-aware for graceful
// shutdown.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig holds configuration for the session sweeper.
// Zero values fall back to defaults.
type SweepConfig struct {
	IdleTimeout   time.Duration // Sessions idle longer than this are removed (default: 2h)
	CheckInterval time.Duration // How often to sweep (default: 10m)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 2 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 10 * time.Minute
	}
	return c
}

// StartSweeper removes idle sessions every CheckInterval until ctx is cancelled.
func (m *SessionManager) StartSweeper(ctx context.Context, cfg SweepConfig) {
	cfg = cfg.withDefaults()
	slog.Info("session sweeper started",
		"idle_timeout", cfg.IdleTimeout,
		"check_interval", cfg.CheckInterval,
	)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case now := <-ticker.C:
			if n := m.Sweep(now, cfg.IdleTimeout); n > 0 {
				slog.Info("expired idle sessions", "removed", n, "remaining", m.Count())
			}
		}
	}
}
