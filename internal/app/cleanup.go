package app

import (
	"context"
	"log"
	"time"
)

// StaleAttemptDeleter removes uncompleted participant rows older than
// maxAge, freeing their phone numbers for another entry.
type StaleAttemptDeleter interface {
	DeleteStaleUncompleted(ctx context.Context, maxAge time.Duration) (int64, error)
}

// SessionSweeper reclaims abandoned sessions from stores without native
// expiry. Redis sessions expire by TTL and need no sweeping.
type SessionSweeper interface {
	Sweep(maxAge time.Duration) int
}

// Cleaner periodically reclaims abandoned quiz attempts. Abandonment is
// inferred purely by age; there is no mid-session cancel signal.
type Cleaner struct {
	participants StaleAttemptDeleter
	sessions     SessionSweeper // optional
	maxAge       time.Duration
}

func NewCleaner(participants StaleAttemptDeleter, sessions SessionSweeper, maxAge time.Duration) *Cleaner {
	return &Cleaner{participants: participants, sessions: sessions, maxAge: maxAge}
}

// RunOnce performs a single sweep and returns how many participant rows
// were reclaimed.
func (c *Cleaner) RunOnce(ctx context.Context) (int64, error) {
	if c.sessions != nil {
		if n := c.sessions.Sweep(c.maxAge); n > 0 {
			log.Printf("cleanup: removed %d abandoned sessions", n)
		}
	}
	removed, err := c.participants.DeleteStaleUncompleted(ctx, c.maxAge)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("cleanup: removed %d stale uncompleted attempts", removed)
	}
	return removed, nil
}

// Run sweeps on the given interval until the context is canceled.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := c.RunOnce(ctx); err != nil {
				log.Printf("cleanup sweep failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
