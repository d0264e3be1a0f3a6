package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// JobQueue is the queue-provider surface consumed per cycle.
type JobQueue interface {
	CountQueuedJobs(ctx context.Context, runnerLabel string) (int, error)
	ListRunners(ctx context.Context) ([]models.Runner, error)
}

// Fleet is the compute-provider surface consumed per cycle.
type Fleet interface {
	GetInstanceCount(ctx context.Context) (int, error)
}

// SnapshotCollector builds a normalized snapshot from both providers.
// The decision engine only ever sees the typed snapshot, never raw
// provider payloads.
type SnapshotCollector struct {
	jobs        JobQueue
	fleet       Fleet
	runnerLabel string
	namePrefix  string
}

func NewSnapshotCollector(jobs JobQueue, fleet Fleet, runnerLabel, namePrefix string) *SnapshotCollector {
	return &SnapshotCollector{
		jobs:        jobs,
		fleet:       fleet,
		runnerLabel: runnerLabel,
		namePrefix:  namePrefix,
	}
}

func (c *SnapshotCollector) Collect(ctx context.Context) (models.Snapshot, error) {
	queued, err := c.jobs.CountQueuedJobs(ctx, c.runnerLabel)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: queued jobs: %v", ErrCollectionFailed, err)
	}

	runners, err := c.jobs.ListRunners(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: runners: %v", ErrCollectionFailed, err)
	}

	online, idle := countRunners(runners, c.namePrefix)

	current, err := c.fleet.GetInstanceCount(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: instance count: %v", ErrCollectionFailed, err)
	}
	if current < 0 {
		return models.Snapshot{}, fmt.Errorf("%w: negative instance count %d", ErrInvalidSnapshot, current)
	}

	snap := models.Snapshot{
		Timestamp:        time.Now(),
		QueuedJobs:       queued,
		OnlineRunners:    online,
		IdleRunners:      idle,
		CurrentInstances: current,
	}

	logger.Debugf("Snapshot: %d queued, %d online, %d idle, %d instances",
		snap.QueuedJobs, snap.OnlineRunners, snap.IdleRunners, snap.CurrentInstances)
	return snap, nil
}

// countRunners tallies online and idle runners matching the name prefix.
// Idle is a subset of online by construction.
func countRunners(runners []models.Runner, prefix string) (online, idle int) {
	for _, r := range runners {
		if prefix != "" && !strings.HasPrefix(r.Name, prefix) {
			continue
		}
		if !r.Online() {
			continue
		}
		online++
		if !r.Busy {
			idle++
		}
	}
	return online, idle
}
