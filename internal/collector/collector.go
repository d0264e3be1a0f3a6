package collector

import (
	"context"
	"errors"

	"github.com/forgeci/runner-autoscaler/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("snapshot collection failed")
	ErrInvalidSnapshot  = errors.New("inconsistent snapshot from providers")
)

// Collector assembles the per-cycle state snapshot.
type Collector interface {
	Collect(ctx context.Context) (models.Snapshot, error)
}
