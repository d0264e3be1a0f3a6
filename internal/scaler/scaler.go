package scaler

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

var ErrScalingFailed = errors.New("scaling operation failed")

// Fleet is the compute-provider surface used to apply a scale change.
type Fleet interface {
	SetInstanceCount(ctx context.Context, count int) error
}

// Applicator executes scaling decisions against the fleet provider.
// A decision whose target equals the current count is a no-op.
type Applicator struct {
	fleet Fleet
}

func NewApplicator(fleet Fleet) *Applicator {
	return &Applicator{fleet: fleet}
}

func (a *Applicator) Apply(ctx context.Context, decision models.Decision) error {
	if !decision.ShouldApply() {
		return nil
	}

	logger.Infof("Applying %s: %d -> %d instances (reason: %s)",
		decision.Action, decision.CurrentInstances, decision.TargetInstances, decision.Reason)

	if err := a.fleet.SetInstanceCount(ctx, decision.TargetInstances); err != nil {
		return fmt.Errorf("%w: %v", ErrScalingFailed, err)
	}
	return nil
}
