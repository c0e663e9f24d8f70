package timeseries

import (
	"context"
	"time"

	"github.com/mavgraph/mavgraph/monitoring"
	"github.com/mavgraph/mavgraph/timeutil"
)

const (
	// DefaultPruneInterval is how often the pruner sweeps the repository.
	DefaultPruneInterval = 5 * time.Second

	// DefaultRetention is how far back points are kept.
	DefaultRetention = 10 * time.Minute
)

// Pruner periodically evicts repository points older than a retention
// horizon. Capacity-based eviction in the rings stays active regardless; the
// pruner only adds the time bound.
type Pruner struct {
	Repo     *Repository
	Interval time.Duration
	Horizon  time.Duration
	Clock    timeutil.Clock
}

// NewPruner creates a pruner with the default interval and horizon.
func NewPruner(repo *Repository) *Pruner {
	return &Pruner{
		Repo:     repo,
		Interval: DefaultPruneInterval,
		Horizon:  DefaultRetention,
		Clock:    timeutil.RealClock{},
	}
}

// Run sweeps the repository every Interval until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context) {
	ticker := p.Clock.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.RunOnce()
		}
	}
}

// RunOnce evicts everything older than now minus Horizon and returns the
// number of points evicted.
func (p *Pruner) RunOnce() int {
	cutoff := p.Clock.Now().Add(-p.Horizon)
	evicted := p.Repo.PruneOlderThan(cutoff)
	if evicted > 0 {
		monitoring.Logf("Retention prune: evicted %d points older than %v", evicted, p.Horizon)
	}
	return evicted
}
