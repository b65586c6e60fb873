package scheduler

import (
	"context"
	"log"
	"time"
)

// Refresher starts a directory refresh without blocking
type Refresher interface {
	Refresh() bool
}

// Scheduler re-fetches the directory on a fixed interval
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
}

// New creates a new scheduler. An interval of zero disables periodic
// refreshes.
func New(refresher Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
	}
}

// Start runs the refresh loop until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		log.Println("Scheduler disabled: refresh on demand only")
		<-ctx.Done()
		return nil
	}

	log.Printf("Scheduler starting (every %s)", s.interval)
	s.refreshLoop(ctx)
	log.Println("Scheduler stopping")
	return nil
}

// refreshLoop periodically refreshes the server list
func (s *Scheduler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.refresher.Refresh() {
				log.Println("Refresh rejected, session closed")
				return
			}
		}
	}
}
