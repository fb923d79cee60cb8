package services

import (
	"context"
	"log/slog"

	"github.com/dukex/flowbridge/pkg/eventbus"
	"github.com/dukex/flowbridge/pkg/events"
)

// Audit logs every conversion lifecycle event it receives.
type Audit struct {
	logger *slog.Logger
}

func NewAudit(logger *slog.Logger) *Audit {
	return &Audit{logger: logger}
}

// Register installs the audit handlers on a subscriber. Call before Subscribe.
func (a *Audit) Register(subscriber eventbus.EventSubscriber) error {
	for _, eventType := range []events.EventType{
		events.ConversionCompletedEvent,
		events.ConversionFailedEvent,
		events.ConversionDeletedEvent,
		events.ConversionsPurgedEvent,
	} {
		if err := subscriber.Handle(eventType, a.handle); err != nil {
			return err
		}
	}

	return nil
}

func (a *Audit) handle(ctx context.Context, event any) error {
	switch e := event.(type) {
	case *events.ConversionCompleted:
		a.logger.InfoContext(ctx, "Conversion completed",
			"event_id", e.ID,
			"conversion_id", e.ConversionID,
			"workflow_id", e.WorkflowID,
			"workflow_name", e.WorkflowName,
			"nodes", e.NodeCount,
			"unmapped", e.UnmappedCount,
			"archived", e.Archived)
	case *events.ConversionFailed:
		a.logger.WarnContext(ctx, "Conversion failed",
			"event_id", e.ID,
			"source", e.SourceName,
			"input_error", e.InputError,
			"error", e.Error)
	case *events.ConversionDeleted:
		a.logger.InfoContext(ctx, "Conversion deleted", "event_id", e.ID, "conversion_id", e.ConversionID)
	case *events.ConversionsPurged:
		a.logger.InfoContext(ctx, "Conversions purged", "event_id", e.ID, "count", e.Count, "cutoff", e.Cutoff)
	default:
		a.logger.WarnContext(ctx, "Unknown event", "event", event)
	}

	return nil
}
