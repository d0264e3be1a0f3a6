package collector

import (
	"context"
	"time"

	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/internal/resilience"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// ResilientCollector wraps a collector with retries and a circuit breaker
// so a provider outage turns into a fast-failing cycle step instead of a
// stalled loop.
type ResilientCollector struct {
	collector      Collector
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientCollectorConfig struct {
	Collector     Collector
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientCollector(cfg ResilientCollectorConfig) *ResilientCollector {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "collector",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientCollector{
		collector:      cfg.Collector,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (c *ResilientCollector) Collect(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	var lastErr error

	err := c.circuitBreaker.Execute(func() error {
		for attempt := 1; attempt <= c.retryAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var err error
			snap, err = c.collector.Collect(ctx)
			if err == nil {
				return nil
			}

			lastErr = err
			logger.Warnf("Collection attempt %d/%d failed: %v", attempt, c.retryAttempts, err)

			if attempt < c.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

func (c *ResilientCollector) CircuitState() resilience.State {
	return c.circuitBreaker.State()
}
