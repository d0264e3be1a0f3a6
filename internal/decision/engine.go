package decision

import (
	"math"
	"time"

	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

type Config struct {
	MinInstances       int
	MaxInstances       int
	RunnersPerInstance int
	ScaleUpCooldown    time.Duration
	ScaleDownCooldown  time.Duration
	ScaleUpStep        int
	ScaleUpProportion  float64
}

// Engine evaluates one snapshot against the scaling priority chain. It is
// a pure function of its inputs: no clock reads beyond the supplied now,
// no I/O, and the cooldown state is threaded through explicitly.
type Engine struct {
	config Config
	policy Policy
}

func NewEngine(cfg Config, policy Policy) *Engine {
	if cfg.MinInstances < 1 {
		cfg.MinInstances = 1
	}
	if cfg.MaxInstances < cfg.MinInstances {
		cfg.MaxInstances = cfg.MinInstances
	}
	if cfg.RunnersPerInstance < 1 {
		cfg.RunnersPerInstance = 1
	}
	if cfg.ScaleUpStep < 1 {
		cfg.ScaleUpStep = 1
	}
	if cfg.ScaleUpProportion <= 0 || cfg.ScaleUpProportion > 1 {
		cfg.ScaleUpProportion = 1
	}
	if policy == nil {
		policy = InstantPolicy{}
	}

	return &Engine{config: cfg, policy: policy}
}

// Decide runs the priority chain: restore minimum capacity, scale up for
// queued jobs, scale down when idle. At most one action fires per cycle.
func (e *Engine) Decide(snap models.Snapshot, now time.Time, st State) (models.Decision, State) {
	decision := models.Decision{
		Timestamp:        now,
		Action:           models.ActionNone,
		CurrentInstances: snap.CurrentInstances,
		TargetInstances:  snap.CurrentInstances,
	}

	minRunners := e.config.MinInstances * e.config.RunnersPerInstance

	// Priority 1: restore minimum capacity. Cooldown and breach scoring
	// exist to prevent thrash, not to let capacity sit below the floor,
	// so both are bypassed here.
	if snap.OnlineRunners < minRunners {
		return e.restoreMinimum(decision, snap, now, st)
	}

	// Priority 2: scale up for queued jobs.
	if snap.QueuedJobs > 0 {
		if snap.CurrentInstances >= e.config.MaxInstances {
			decision.Reason = "at_max_instances"
			logger.Debugf("Decision: none (%d queued jobs but already at max %d)",
				snap.QueuedJobs, e.config.MaxInstances)
			return decision, st
		}
		return e.scaleUpForQueue(decision, snap, now, st)
	}

	// Priority 3: scale down when idle capacity exceeds the floor.
	if snap.IdleRunners > minRunners {
		return e.scaleDownIdle(decision, snap, now, st)
	}

	decision.Reason = "steady"
	logger.Debugf("Decision: none (%d instances, %d queued, %d idle)",
		snap.CurrentInstances, snap.QueuedJobs, snap.IdleRunners)
	return decision, st
}

func (e *Engine) restoreMinimum(decision models.Decision, snap models.Snapshot, now time.Time, st State) (models.Decision, State) {
	missing := e.config.MinInstances*e.config.RunnersPerInstance - snap.OnlineRunners
	target := snap.CurrentInstances + ceilDiv(missing, e.config.RunnersPerInstance)
	if target < e.config.MinInstances {
		target = e.config.MinInstances
	}
	if target > e.config.MaxInstances {
		target = e.config.MaxInstances
	}

	if target <= snap.CurrentInstances {
		// Already at max: nothing left to add, capacity recovers as the
		// provider replaces containers.
		decision.Reason = "below_minimum_at_max_instances"
		logger.Warnf("Online runners (%d) below floor (%d) but already at max instances (%d)",
			snap.OnlineRunners, e.config.MinInstances*e.config.RunnersPerInstance, e.config.MaxInstances)
		return decision, st
	}

	decision.Action = models.ActionScaleUp
	decision.TargetInstances = target
	decision.Reason = "below_minimum_capacity"
	st.LastScaleUpAt = now

	logger.Infof("Decision: scale_up %d -> %d instances (online runners %d below floor %d)",
		snap.CurrentInstances, target, snap.OnlineRunners,
		e.config.MinInstances*e.config.RunnersPerInstance)
	return decision, st
}

func (e *Engine) scaleUpForQueue(decision models.Decision, snap models.Snapshot, now time.Time, st State) (models.Decision, State) {
	if !e.policy.Evaluate(DirectionUp, now, &st) {
		decision.Reason = "stabilizing"
		logger.Debugf("Scale-up condition met (%d queued) but breach score below threshold", snap.QueuedJobs)
		return decision, st
	}

	if cooldownActive(st.LastScaleUpAt, e.config.ScaleUpCooldown, now) {
		decision.Reason = "cooldown"
		decision.CooldownActive = true
		remaining := e.config.ScaleUpCooldown - now.Sub(st.LastScaleUpAt)
		logger.Infof("Scale-up blocked by cooldown (%s remaining)", remaining.Round(time.Second))
		return decision, st
	}

	rawAdd := int(math.Ceil(float64(snap.QueuedJobs) / float64(e.config.RunnersPerInstance) * e.config.ScaleUpProportion))
	add := rawAdd
	if add > e.config.ScaleUpStep {
		add = e.config.ScaleUpStep
	}
	if add < 1 {
		add = 1
	}

	target := snap.CurrentInstances + add
	if target > e.config.MaxInstances {
		target = e.config.MaxInstances
	}

	decision.Action = models.ActionScaleUp
	decision.TargetInstances = target
	decision.Reason = "queued_jobs"
	st.LastScaleUpAt = now
	st.clearBreaches(DirectionUp)

	logger.Infof("Decision: scale_up %d -> %d instances (%d queued jobs, raw step %d capped at %d)",
		snap.CurrentInstances, target, snap.QueuedJobs, rawAdd, e.config.ScaleUpStep)
	return decision, st
}

func (e *Engine) scaleDownIdle(decision models.Decision, snap models.Snapshot, now time.Time, st State) (models.Decision, State) {
	// Shrink one instance at a time: only idle capacity above the floor is
	// ever removed, and the fleet provider prefers terminating idle
	// containers, so busy runners survive the change.
	target := snap.CurrentInstances - 1
	if target < e.config.MinInstances {
		target = e.config.MinInstances
	}

	if target >= snap.CurrentInstances {
		decision.Reason = "at_min_instances"
		logger.Debugf("Decision: none (%d idle runners but already at min instances %d)",
			snap.IdleRunners, e.config.MinInstances)
		return decision, st
	}

	if !e.policy.Evaluate(DirectionDown, now, &st) {
		decision.Reason = "stabilizing"
		logger.Debugf("Scale-down condition met (%d idle) but breach score below threshold", snap.IdleRunners)
		return decision, st
	}

	if cooldownActive(st.LastScaleDownAt, e.config.ScaleDownCooldown, now) {
		decision.Reason = "cooldown"
		decision.CooldownActive = true
		remaining := e.config.ScaleDownCooldown - now.Sub(st.LastScaleDownAt)
		logger.Infof("Scale-down blocked by cooldown (%s remaining)", remaining.Round(time.Second))
		return decision, st
	}

	decision.Action = models.ActionScaleDown
	decision.TargetInstances = target
	decision.Reason = "idle_capacity"
	st.LastScaleDownAt = now
	st.clearBreaches(DirectionDown)

	logger.Infof("Decision: scale_down %d -> %d instances (%d idle runners, 0 queued)",
		snap.CurrentInstances, target, snap.IdleRunners)
	return decision, st
}

// cooldownActive reports whether an action in the same direction fired
// within the cooldown window. A zero timestamp means no prior action.
func cooldownActive(last time.Time, cooldown time.Duration, now time.Time) bool {
	if last.IsZero() {
		return false
	}
	return now.Sub(last) < cooldown
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
