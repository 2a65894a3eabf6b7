package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

// EventObserver receives per-event timing from EventConsumer.
type EventObserver interface {
	StartEvent()
	FinishEvent(service string, event domain.SessionEvent, duration time.Duration, err error)
	ObserveEventLag(service string, lag time.Duration)
}

// EventConsumer logs consumed session events and persists them when a recorder is set.
type EventConsumer struct {
	service  string
	recorder ports.EventRecorder
	observer EventObserver
	logger   *slog.Logger
	now      func() time.Time
}

func NewEventConsumer(service string, recorder ports.EventRecorder, observer EventObserver, logger *slog.Logger) *EventConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventConsumer{
		service:  service,
		recorder: recorder,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *EventConsumer) Handle(ctx context.Context, event domain.SessionEvent) error {
	started := c.now()
	if c.observer != nil {
		c.observer.StartEvent()
		if !event.OccurredAt.IsZero() {
			c.observer.ObserveEventLag(c.service, started.Sub(event.OccurredAt))
		}
	}

	var err error
	if c.recorder != nil {
		err = c.recorder.RecordSessionEvent(ctx, event)
	}

	if c.observer != nil {
		c.observer.FinishEvent(c.service, event, c.now().Sub(started), err)
	}
	if err != nil {
		return err
	}

	c.logger.Info("session_event",
		"type", event.Type,
		"session_id", event.SessionID,
		"document_id", event.DocumentID,
		"filename", event.Filename,
		"chunks", event.Chunks,
		"provider", event.Provider,
		"success", event.Success,
	)
	return nil
}
