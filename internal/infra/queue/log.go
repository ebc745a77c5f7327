package queue

import (
	"context"

	"go.uber.org/zap"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event at Info.
func (p *LogPublisher) Publish(_ context.Context, event domain.LeadEvent) error {
	p.logger.Info("lead event",
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("lead_id", event.LeadID),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.String("actor_id", event.ActorID),
		zap.String("role", string(event.ActorRole)),
	)
	return nil
}
