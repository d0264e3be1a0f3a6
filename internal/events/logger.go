package events

import (
	"context"

	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

// ScalingEventStore persists scaling-event audit records. Nil disables
// persistence; only the audit history is stored, never engine state.
type ScalingEventStore interface {
	Insert(ctx context.Context, event *models.ScalingEvent) error
}

// EventLogger drains the event stream into structured logs and, when a
// store is configured, persists executed scale changes.
type EventLogger struct {
	store     ScalingEventStore
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewEventLogger(store ScalingEventStore, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		store:     store,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
	<-l.done
}

func (l *EventLogger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"severity":   event.Severity,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	switch event.Type {
	case models.EventTypeScalingApplied, models.EventTypeScalingFailed:
		l.persistScalingEvent(event)
	}
}

func (l *EventLogger) persistScalingEvent(event *models.Event) {
	if l.store == nil {
		return
	}

	scalingEvent, ok := event.Data.(*models.ScalingEvent)
	if !ok {
		return
	}

	if err := l.store.Insert(l.ctx, scalingEvent); err != nil {
		logger.Errorf("Failed to persist scaling event: %v", err)
	}
}
