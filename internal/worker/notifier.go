package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/queuectl/internal/domain"
)

// Notifier receives an event after each persisted job transition
type Notifier interface {
	Notify(ctx context.Context, event domain.JobEvent) error
}

// NoopNotifier discards events; used when no broker is configured
type NoopNotifier struct{}

// Notify implements Notifier
func (NoopNotifier) Notify(context.Context, domain.JobEvent) error { return nil }

// Publisher sends a message body to a broker
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// EventNotifier publishes job events as JSON through a broker
type EventNotifier struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewEventNotifier creates a new EventNotifier instance
func NewEventNotifier(publisher Publisher, logger *slog.Logger) *EventNotifier {
	return &EventNotifier{
		publisher: publisher,
		logger:    logger,
	}
}

// Notify implements Notifier
func (n *EventNotifier) Notify(ctx context.Context, event domain.JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	if err := n.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}

	n.logger.Debug("Job event published",
		slog.String("job_id", event.JobID),
		slog.String("state", event.State),
	)
	return nil
}
