package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeci/runner-autoscaler/pkg/models"
)

func TestEventBus_SubscribeAndPublish(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeDecisionMade)
	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "scale up"))

	select {
	case event := <-ch:
		assert.Equal(t, models.EventTypeDecisionMade, event.Type)
		assert.Equal(t, "scale up", event.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_SubscriberOnlySeesItsType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeScalingApplied)
	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "ignored"))

	select {
	case event := <-ch:
		t.Fatalf("unexpected event: %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_SubscribeAllReceivesEverything(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.SubscribeAll()
	bus.Publish(models.NewEvent(models.EventTypeDecisionMade, "one"))
	bus.Publish(models.NewEvent(models.EventTypeScalingApplied, "two"))

	received := make([]models.EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case event := <-ch:
			received = append(received, event.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []models.EventType{models.EventTypeDecisionMade, models.EventTypeScalingApplied}, received)
}

func TestEventBus_FullChannelDropsEvent(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeError)
	bus.Publish(models.NewEvent(models.EventTypeError, "first"))
	bus.Publish(models.NewEvent(models.EventTypeError, "dropped"))

	event := <-ch
	assert.Equal(t, "first", event.Message)

	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_PublishAfterCloseIsNoOp(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.SubscribeAll()
	bus.Close()

	bus.Publish(models.NewEvent(models.EventTypeError, "ignored"))

	_, open := <-ch
	assert.False(t, open, "channel should be closed")
}

func TestPublisher_ScalingFailedCarriesSeverity(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeScalingFailed)
	p := NewPublisher(bus)

	p.ScalingFailed(models.Decision{
		Action:           models.ActionScaleUp,
		CurrentInstances: 1,
		TargetInstances:  2,
	}, assert.AnError)

	select {
	case event := <-ch:
		require.Equal(t, models.EventTypeScalingFailed, event.Type)
		assert.Equal(t, models.SeverityCritical, event.Severity)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
