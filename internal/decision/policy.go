package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/forgeci/runner-autoscaler/pkg/config"
)

// Policy decides whether a met threshold condition should fire now or keep
// accumulating. Exactly one policy is selected at startup; the priority
// chain is the same either way.
type Policy interface {
	// Evaluate records the breach in the working state and reports whether
	// the engine should act on it this cycle.
	Evaluate(dir Direction, now time.Time, st *State) bool
}

// NewPolicy builds the policy named by the configuration.
func NewPolicy(cfg config.PolicyConfig) (Policy, error) {
	switch cfg.Type {
	case config.PolicyInstant, "":
		return InstantPolicy{}, nil
	case config.PolicyDecay:
		return &DecayPolicy{
			HalfLife:  cfg.HalfLife,
			Threshold: cfg.BreachThreshold,
			Window:    cfg.Window,
		}, nil
	default:
		return nil, fmt.Errorf("unknown scaling policy %q", cfg.Type)
	}
}

// InstantPolicy acts on the first qualifying cycle. Hysteresis comes from
// the threshold conditions themselves plus the per-direction cooldowns.
type InstantPolicy struct{}

func (InstantPolicy) Evaluate(Direction, time.Time, *State) bool {
	return true
}

// DecayPolicy accumulates timestamped breaches and acts once their
// time-decayed score crosses Threshold. Each breach's weight halves every
// HalfLife, so a single noisy reading decays away instead of triggering a
// move, at the cost of a few cycles of extra latency.
type DecayPolicy struct {
	HalfLife  time.Duration
	Threshold float64
	Window    time.Duration
}

func (p *DecayPolicy) Evaluate(dir Direction, now time.Time, st *State) bool {
	st.pruneBreaches(now.Add(-p.Window))
	st.Breaches = append(st.Breaches, Breach{At: now, Direction: dir})
	return p.score(dir, now, st) >= p.Threshold
}

func (p *DecayPolicy) score(dir Direction, now time.Time, st *State) float64 {
	score := 0.0
	for _, b := range st.Breaches {
		if b.Direction != dir {
			continue
		}
		age := now.Sub(b.At).Seconds()
		score += math.Pow(0.5, age/p.HalfLife.Seconds())
	}
	return score
}
