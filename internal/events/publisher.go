package events

import (
	"fmt"

	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// Publisher is the typed facade the polling loop uses to emit events.
type Publisher struct {
	bus *EventBus
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) SnapshotCollected(snap models.Snapshot) {
	event := models.NewEvent(models.EventTypeSnapshotCollected, "Snapshot collected").
		WithData(snap)
	p.bus.Publish(event)
}

func (p *Publisher) DecisionMade(decision models.Decision) {
	msg := "Scaling decision: " + string(decision.Action)
	event := models.NewEvent(models.EventTypeDecisionMade, msg).
		WithData(decision)
	p.bus.Publish(event)
}

func (p *Publisher) ScalingStarted(decision models.Decision) {
	msg := fmt.Sprintf("Scaling started: %s %d -> %d",
		decision.Action, decision.CurrentInstances, decision.TargetInstances)
	event := models.NewEvent(models.EventTypeScalingStarted, msg).
		WithData(decision)
	p.bus.Publish(event)
}

func (p *Publisher) ScalingApplied(scalingEvent *models.ScalingEvent) {
	msg := fmt.Sprintf("Scaling applied: %s %d -> %d",
		scalingEvent.Action, scalingEvent.InstancesBefore, scalingEvent.InstancesAfter)
	event := models.NewEvent(models.EventTypeScalingApplied, msg).
		WithData(scalingEvent)
	p.bus.Publish(event)
}

func (p *Publisher) ScalingFailed(decision models.Decision, err error) {
	msg := fmt.Sprintf("Scaling failed: %s %d -> %d: %v",
		decision.Action, decision.CurrentInstances, decision.TargetInstances, err)
	event := models.NewEvent(models.EventTypeScalingFailed, msg).
		WithSeverity(models.SeverityCritical).
		WithData(models.NewScalingEvent(decision, models.ScalingEventFailed))
	p.bus.Publish(event)
}

func (p *Publisher) RunnersReaped(ids []int64) {
	msg := fmt.Sprintf("Reaped %d dead runner(s)", len(ids))
	event := models.NewEvent(models.EventTypeRunnerReaped, msg).
		WithData(map[string]interface{}{"runner_ids": ids})
	p.bus.Publish(event)
}

func (p *Publisher) Error(message string, err error) {
	event := models.NewEvent(models.EventTypeError, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{"error": err.Error()})
	p.bus.Publish(event)
}
