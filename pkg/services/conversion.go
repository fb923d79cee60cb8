package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/dukex/flowbridge/pkg/eventbus"
	"github.com/dukex/flowbridge/pkg/events"
	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/otelhelper"
	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ConvertRequest is one blueprint to convert.
type ConvertRequest struct {
	// Filename is the uploaded file name, empty for raw JSON bodies.
	Filename string
	Data     []byte
}

// ConvertResponse is a conversion result plus the archive id when the result was stored.
type ConvertResponse struct {
	*converter.Result

	ConversionID string `json:"conversion_id,omitempty"`
}

// ListConversionsRequest contains options for listing archived conversions.
type ListConversionsRequest struct {
	Limit     int    `validate:"min=0,max=100"`
	Offset    int    `validate:"min=0"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
}

// ListConversionsResponse contains one page of archived conversions.
type ListConversionsResponse struct {
	Conversions []*models.Conversion `json:"conversions"`
	TotalCount  int64                `json:"total_count"`
	HasNextPage bool                 `json:"has_next_page"`
}

// Conversion converts blueprints, archives successful results when an archive is
// configured and publishes lifecycle events when a publisher is configured.
type Conversion struct {
	converter   *converter.Converter
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	newID       func() string
}

// NewConversion creates a conversion service. persistence and publisher may be nil.
func NewConversion(
	logger *slog.Logger,
	tracer trace.Tracer,
	conv *converter.Converter,
	persistence persistence.Persistence,
	publisher eventbus.EventPublisher,
) *Conversion {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("flowbridge")
	}

	return &Conversion{
		converter:   conv,
		persistence: persistence,
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger,
		newID:       uuid.NewString,
	}
}

// Archiving reports whether successful conversions are stored.
func (s *Conversion) Archiving() bool {
	return s.persistence != nil
}

// Convert runs the conversion pipeline. Archive and publish failures are logged and
// never fail the conversion itself.
func (s *Conversion) Convert(ctx context.Context, req ConvertRequest) (*ConvertResponse, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.conversion.convert",
		attribute.String(otelhelper.SourceFilenameKey, req.Filename),
	)
	defer span.End()

	result, err := s.converter.ConvertBytes(ctx, req.Data)
	if err != nil {
		otelhelper.SetError(span, err)

		inputError := converter.IsInputError(err)
		if inputError {
			s.logger.InfoContext(ctx, "Rejected blueprint", "filename", req.Filename, "error", err)
		} else {
			s.logger.ErrorContext(ctx, "Conversion failed", "filename", req.Filename, "error", err)
		}

		s.publish(ctx, "", events.ConversionFailed{
			BaseEvent:  events.NewBaseEvent(events.ConversionFailedEvent, ""),
			SourceName: req.Filename,
			Error:      err.Error(),
			InputError: inputError,
		})

		return nil, err
	}

	response := &ConvertResponse{Result: result}

	if s.persistence != nil {
		response.ConversionID = s.archive(ctx, req.Filename, result)
	}

	span.SetAttributes(attribute.String(otelhelper.ConversionIDKey, response.ConversionID))

	s.logger.InfoContext(ctx, "Converted blueprint",
		"filename", req.Filename,
		"workflow_name", result.Workflow.Name,
		"nodes", result.Stats.NodeCount,
		"unmapped", result.Stats.UnmappedCount,
		"warnings", len(result.Warnings),
		"conversion_id", response.ConversionID)

	s.publish(ctx, response.ConversionID, events.ConversionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ConversionCompletedEvent, response.ConversionID),
		WorkflowID:    result.Workflow.ID,
		WorkflowName:  result.Workflow.Name,
		SourceName:    req.Filename,
		NodeCount:     result.Stats.NodeCount,
		UnmappedCount: result.Stats.UnmappedCount,
		WarningCount:  len(result.Warnings),
		Archived:      response.ConversionID != "",
	})

	return response, nil
}

func (s *Conversion) archive(ctx context.Context, filename string, result *converter.Result) string {
	conversion := &models.Conversion{
		ID:            s.newID(),
		SourceName:    result.Workflow.Name,
		Filename:      filename,
		Workflow:      result.Workflow,
		Warnings:      result.Warnings,
		NodeCount:     result.Stats.NodeCount,
		UnmappedCount: result.Stats.UnmappedCount,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.persistence.SaveConversion(ctx, conversion); err != nil {
		s.logger.ErrorContext(ctx, "Failed to archive conversion", "conversion_id", conversion.ID, "error", err)

		return ""
	}

	return conversion.ID
}

// ListConversions retrieves archived conversions with pagination.
func (s *Conversion) ListConversions(ctx context.Context, req ListConversionsRequest) (*ListConversionsResponse, error) {
	if s.persistence == nil {
		return nil, ErrArchiveDisabled
	}

	if err := validateListConversionsRequest(&req); err != nil {
		return nil, err
	}

	result, err := s.persistence.Conversions(ctx, persistence.ListConversionsOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	return &ListConversionsResponse{
		Conversions: result.Conversions,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func validateListConversionsRequest(req *ListConversionsRequest) error {
	const op = "ListConversions"

	if req.Limit < 0 {
		return newParameterError(op, ErrInvalidPagination, "limit", req.Limit, ">= 0")
	}

	if req.Offset < 0 {
		return newParameterError(op, ErrInvalidPagination, "offset", req.Offset, ">= 0")
	}

	if req.Limit == 0 {
		req.Limit = persistence.DefaultListLimit
	}

	if req.Limit > persistence.MaxListLimit {
		req.Limit = persistence.MaxListLimit
	}

	req.SortOrder = strings.ToLower(req.SortOrder)
	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return newParameterError(op, ErrInvalidSortOrder, "sort_order", req.SortOrder, "asc, desc")
	}

	return nil
}

// FetchByID retrieves an archived conversion by its ID.
func (s *Conversion) FetchByID(ctx context.Context, id string) (*models.Conversion, error) {
	if s.persistence == nil {
		return nil, ErrArchiveDisabled
	}

	if strings.TrimSpace(id) == "" {
		return nil, ErrConversionIDMissing
	}

	return s.persistence.ConversionByID(ctx, id)
}

// Delete removes an archived conversion and publishes conversion.deleted.
func (s *Conversion) Delete(ctx context.Context, id string) error {
	if s.persistence == nil {
		return ErrArchiveDisabled
	}

	if strings.TrimSpace(id) == "" {
		return ErrConversionIDMissing
	}

	if err := s.persistence.DeleteConversion(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, id, events.ConversionDeleted{
		BaseEvent: events.NewBaseEvent(events.ConversionDeletedEvent, id),
	})

	return nil
}

// HealthCheck checks the health of the archive. A disabled archive is healthy.
func (s *Conversion) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Archive disabled", true
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Archive is unhealthy: " + err.Error(), false
	}

	return "Archive is healthy", true
}

func (s *Conversion) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
