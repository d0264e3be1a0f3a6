package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/forgeci/runner-autoscaler/internal/collector"
	"github.com/forgeci/runner-autoscaler/internal/decision"
	"github.com/forgeci/runner-autoscaler/internal/events"
	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/internal/metrics"
	"github.com/forgeci/runner-autoscaler/internal/reaper"
	"github.com/forgeci/runner-autoscaler/internal/scaler"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// Status is the outcome of the most recent completed cycle.
type Status struct {
	Snapshot models.Snapshot `json:"snapshot"`
	Decision models.Decision `json:"decision"`
	CycleAt  time.Time       `json:"cycle_at"`
}

// Config wires the control loop dependencies.
type Config struct {
	PollInterval time.Duration
	Collector    collector.Collector
	Engine       *decision.Engine
	Store        *decision.Store
	Applicator   *scaler.Applicator
	Reaper       *reaper.Reaper
	Publisher    *events.Publisher
	Metrics      *metrics.Metrics
}

// Scheduler drives the collect, decide, apply, reap cycle on a fixed
// interval. Cycles run to completion; a slow cycle delays the next tick
// rather than being preempted.
type Scheduler struct {
	cfg Config

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastStatus *Status
}

func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.run(runCtx)

	logger.WithComponent("scheduler").
		WithField("poll_interval", s.cfg.PollInterval.String()).
		Info("Scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	logger.Info("Scheduler stopped")
}

// LastStatus returns the result of the most recent completed cycle.
func (s *Scheduler) LastStatus() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStatus == nil {
		return Status{}, false
	}
	return *s.lastStatus, true
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// First cycle runs immediately; the ticker covers the rest.
	s.runCycle(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	s.cfg.Metrics.CyclesTotal.Inc()
	defer func() {
		s.cfg.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	snap, err := s.cfg.Collector.Collect(ctx)
	if err != nil {
		s.cfg.Metrics.CollectionErrors.Inc()
		s.cfg.Publisher.Error("snapshot collection failed", err)
		logger.Errorf("Snapshot collection failed: %v", err)
		return
	}

	s.cfg.Metrics.ObserveSnapshot(snap)
	s.cfg.Publisher.SnapshotCollected(snap)

	state := s.cfg.Store.Read()
	dec, newState := s.cfg.Engine.Decide(snap, time.Now().UTC(), state)

	// Cooldown state is committed before the apply call. A failed apply
	// does not roll the cooldown back; the next cycle re-evaluates from
	// a fresh snapshot.
	s.cfg.Store.Commit(newState)

	s.cfg.Metrics.ObserveDecision(dec)
	s.cfg.Publisher.DecisionMade(dec)

	logger.WithFields(map[string]interface{}{
		"action":  dec.Action,
		"current": dec.CurrentInstances,
		"target":  dec.TargetInstances,
		"reason":  dec.Reason,
	}).Info("Decision made")

	if dec.ShouldApply() {
		s.applyDecision(ctx, dec)
	}

	s.reapRunners(ctx)

	s.mu.Lock()
	s.lastStatus = &Status{Snapshot: snap, Decision: dec, CycleAt: start.UTC()}
	s.mu.Unlock()
}

func (s *Scheduler) applyDecision(ctx context.Context, dec models.Decision) {
	s.cfg.Publisher.ScalingStarted(dec)

	if err := s.cfg.Applicator.Apply(ctx, dec); err != nil {
		s.cfg.Metrics.ApplyFailures.Inc()
		s.cfg.Publisher.ScalingFailed(dec, err)
		logger.Errorf("Scaling apply failed: %v", err)
		return
	}

	s.cfg.Publisher.ScalingApplied(models.NewScalingEvent(dec, models.ScalingEventApplied))
}

func (s *Scheduler) reapRunners(ctx context.Context) {
	reaped, err := s.cfg.Reaper.Run(ctx)
	if err != nil {
		s.cfg.Publisher.Error("runner reaping failed", err)
		logger.Errorf("Runner reaping failed: %v", err)
		return
	}
	if len(reaped) == 0 {
		return
	}
	s.cfg.Metrics.RunnersReaped.Add(float64(len(reaped)))
	s.cfg.Publisher.RunnersReaped(reaped)
}
