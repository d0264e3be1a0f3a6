package models

import "time"

type Action string

const (
	ActionScaleUp   Action = "scale_up"
	ActionScaleDown Action = "scale_down"
	ActionNone      Action = "none"
)

// Decision is the output of one decision-engine evaluation. It is consumed
// by the applicator and logged, never retained across cycles.
type Decision struct {
	Timestamp        time.Time `json:"timestamp"`
	Action           Action    `json:"action"`
	CurrentInstances int       `json:"current_instances"`
	TargetInstances  int       `json:"target_instances"`
	Reason           string    `json:"reason"`
	CooldownActive   bool      `json:"cooldown_active"`
}

func (d *Decision) InstanceDelta() int {
	return d.TargetInstances - d.CurrentInstances
}

func (d *Decision) ShouldApply() bool {
	return d.Action != ActionNone && d.TargetInstances != d.CurrentInstances
}
