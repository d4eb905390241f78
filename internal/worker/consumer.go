package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/queuectl/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventSource opens a delivery stream of published job events
type EventSource interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// EventHandler is called once per decoded job event
type EventHandler func(event domain.JobEvent) error

// ConsumeEvents reads job events from source until ctx is done or the stream closes.
// Malformed messages are rejected without requeue; handler errors requeue the message.
func ConsumeEvents(ctx context.Context, source EventSource, consumerTag string, logger *slog.Logger, handle EventHandler) error {
	deliveries, err := source.Consume(consumerTag)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	logger.Info("Job event consumer started",
		slog.String("consumer_tag", consumerTag),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Job event consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				logger.Warn("Job event delivery channel closed")
				return nil
			}
			dispatchDelivery(delivery, logger, handle)
		}
	}
}

func dispatchDelivery(delivery amqp.Delivery, logger *slog.Logger, handle EventHandler) {
	var event domain.JobEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil || event.JobID == "" {
		logger.Error("Discarding malformed job event",
			slog.Any("error", err),
			slog.String("body", string(delivery.Body)),
		)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			logger.Error("Failed to NACK malformed message",
				slog.Any("error", nackErr),
			)
		}
		return
	}

	if err := handle(event); err != nil {
		logger.Error("Job event handler failed",
			slog.String("job_id", event.JobID),
			slog.Any("error", err),
		)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			logger.Error("Failed to NACK message",
				slog.Any("error", nackErr),
			)
		}
		return
	}

	if ackErr := delivery.Ack(false); ackErr != nil {
		logger.Error("Failed to ACK message",
			slog.String("job_id", event.JobID),
			slog.Any("error", ackErr),
		)
	}
}
