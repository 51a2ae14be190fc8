// Package reaper deletes projects whose scheduled deletion time has
// passed. Evacuated broken projects get a deletion cool-down instead of
// an immediate delete; this sweep is what finally removes them unless a
// reconnect or save cancelled the schedule.
package reaper

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netsblox/cloud/internal/storage"
)

// DefaultInterval is how often the sweep runs.
const DefaultInterval = time.Minute

// Reaper periodically removes expired projects.
type Reaper struct {
	log      *logrus.Entry
	projects storage.Projects
	interval time.Duration
	now      func() time.Time
}

// New builds a reaper over the project store. A non-positive interval
// falls back to DefaultInterval.
func New(projects storage.Projects, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		log:      logrus.WithField("component", "reaper"),
		projects: projects,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep deletes every project whose deleteAt is due.
func (r *Reaper) Sweep(ctx context.Context) {
	removed, err := r.projects.DeleteExpired(ctx, r.now())
	if err != nil {
		r.log.WithError(err).Error("deleting expired projects")
		return
	}
	if removed > 0 {
		r.log.WithField("count", removed).Info("deleted expired projects")
	}
}
