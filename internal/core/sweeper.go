package core

// sweeper.go releases tables that have not been touched for SessionTTL.
// The sweeper runs for the lifetime of the server and stops with its context.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when StartSweeper gets a non-positive interval.
const DefaultSweepInterval = time.Minute

// StartSweeper blocks, sweeping expired sessions every interval until ctx
// is cancelled. Run it in its own goroutine.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started", "interval", interval, "ttl", s.opts.SessionTTL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep releases every session idle for longer than SessionTTL and returns
// how many were released.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.opts.SessionTTL).UnixNano()

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if sess.used.Load() < cutoff {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.release()
		slog.Debug("session expired", "session_id", sess.id)
	}
	if len(expired) > 0 {
		slog.Info("expired sessions released", "count", len(expired), "remaining", s.Len())
	}
	return len(expired)
}
