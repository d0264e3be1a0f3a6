package models

import "time"

type ScalingEventStatus string

const (
	ScalingEventApplied ScalingEventStatus = "applied"
	ScalingEventFailed  ScalingEventStatus = "failed"
)

// ScalingEvent is the audit record of one executed (or rejected) scale change.
type ScalingEvent struct {
	ID              int                `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	Action          Action             `json:"action"`
	InstancesBefore int                `json:"instances_before"`
	InstancesAfter  int                `json:"instances_after"`
	TriggerReason   string             `json:"trigger_reason"`
	Status          ScalingEventStatus `json:"status"`
}

func NewScalingEvent(decision Decision, status ScalingEventStatus) *ScalingEvent {
	return &ScalingEvent{
		Timestamp:       decision.Timestamp,
		Action:          decision.Action,
		InstancesBefore: decision.CurrentInstances,
		InstancesAfter:  decision.TargetInstances,
		TriggerReason:   decision.Reason,
		Status:          status,
	}
}
