package reaper

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// Registry is the queue-provider surface for runner registrations.
type Registry interface {
	ListRunners(ctx context.Context) ([]models.Runner, error)
	DeleteRunner(ctx context.Context, id int64) error
}

// Reaper removes dead runner registrations: runners that are offline and
// not busy. Ephemeral runners deregister themselves after their single
// job, so anything left offline is a crashed or replaced container.
type Reaper struct {
	registry   Registry
	namePrefix string
}

func New(registry Registry, namePrefix string) *Reaper {
	return &Reaper{registry: registry, namePrefix: namePrefix}
}

// Run lists registered runners, filters them to the configured name
// prefix, and reaps the dead ones.
func (r *Reaper) Run(ctx context.Context) ([]int64, error) {
	runners, err := r.registry.ListRunners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runners: %w", err)
	}

	matching := runners[:0]
	for _, runner := range runners {
		if r.namePrefix == "" || strings.HasPrefix(runner.Name, r.namePrefix) {
			matching = append(matching, runner)
		}
	}

	return r.Reap(ctx, matching), nil
}

// Reap deletes every dead runner in the given list. Individual deletion
// failures are logged and skipped: reaping is best-effort cleanup and an
// undeleted runner is retried next cycle. Returns the deleted ids.
func (r *Reaper) Reap(ctx context.Context, runners []models.Runner) []int64 {
	var deleted []int64
	for _, runner := range runners {
		if !runner.Dead() {
			continue
		}

		if err := r.registry.DeleteRunner(ctx, runner.ID); err != nil {
			logger.Warnf("Failed to delete dead runner %s (id %d): %v", runner.Name, runner.ID, err)
			continue
		}

		logger.Infof("Deleted dead runner %s (id %d)", runner.Name, runner.ID)
		deleted = append(deleted, runner.ID)
	}

	if len(deleted) > 0 {
		logger.Infof("Reaped %d dead runner(s)", len(deleted))
	}
	return deleted
}
