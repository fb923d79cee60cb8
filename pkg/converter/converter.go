// Package converter runs the Make.com to n8n conversion pipeline: extract, map, assemble.
package converter

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowbridge/pkg/assembler"
	"github.com/dukex/flowbridge/pkg/blueprint"
	"github.com/dukex/flowbridge/pkg/mapper"
	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/otelhelper"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	//go:embed schema.json
	schemaJSON []byte

	documentSchema = mustCompileSchema()
)

// Result is a converted workflow and every warning raised while producing it.
type Result struct {
	Workflow *models.Workflow `json:"n8n_workflow"`
	Warnings []string         `json:"warnings"`
	Stats    Stats            `json:"stats"`
}

// Stats summarizes one conversion.
type Stats struct {
	ModuleCount        int `json:"module_count"`
	NodeCount          int `json:"node_count"`
	UnmappedCount      int `json:"unmapped_count"`
	UnconvertibleCount int `json:"unconvertible_count"`
}

// Converter converts blueprints against one mapping table. It holds no per-call state
// and is safe for concurrent use.
type Converter struct {
	mapper    *mapper.Mapper
	assembler *assembler.Assembler
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Converter) {
		c.tracer = tracer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithAssembler replaces the default assembler, typically to pin ids and clock in tests.
func WithAssembler(a *assembler.Assembler) Option {
	return func(c *Converter) {
		c.assembler = a
	}
}

func New(table models.MappingTable, opts ...Option) *Converter {
	c := &Converter{
		mapper:    mapper.New(table),
		assembler: assembler.New(),
		tracer:    noop.NewTracerProvider().Tracer("flowbridge"),
		logger:    slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ConvertBytes decodes a JSON blueprint and converts it.
func (c *Converter) ConvertBytes(ctx context.Context, data []byte) (*Result, error) {
	document, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return c.Convert(ctx, document)
}

// Convert converts a decoded blueprint document. Unmapped modules and unconvertible
// expressions are reported as warnings; only a malformed document or an internal failure
// returns an error, and then the result is nil.
func (c *Converter) Convert(ctx context.Context, document any) (result *Result, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "converter.convert")
	defer span.End()

	stage := StageValidate

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &InternalError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}

		if err != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.StageKey, stage))
			c.logger.ErrorContext(ctx, "Conversion failed", "stage", stage, "error", err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}

	stage = StageExtract

	modules, err := blueprint.Extract(document)
	if err != nil {
		return nil, err
	}

	stage = StageMap
	mapped := c.mapper.Map(modules)

	stage = StageAssemble
	workflow := c.assembler.Assemble(blueprint.Name(document), mapped.Nodes, mapped.Connections)

	result = &Result{
		Workflow: workflow,
		Warnings: mapped.Warnings,
		Stats: Stats{
			ModuleCount:        len(modules),
			NodeCount:          len(mapped.Nodes),
			UnmappedCount:      mapped.UnmappedCount,
			UnconvertibleCount: len(mapped.Unconvertible),
		},
	}

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.Int(otelhelper.ModuleCountKey, result.Stats.ModuleCount),
		attribute.Int(otelhelper.NodeCountKey, result.Stats.NodeCount),
		attribute.Int(otelhelper.UnmappedCountKey, result.Stats.UnmappedCount),
		attribute.Int(otelhelper.WarningCountKey, len(result.Warnings)),
	)

	c.logger.DebugContext(ctx, "Converted blueprint",
		"workflow_name", workflow.Name,
		"modules", result.Stats.ModuleCount,
		"nodes", result.Stats.NodeCount,
		"warnings", len(result.Warnings))

	return result, nil
}

// LooksLikeHTML reports whether data is an HTML page rather than a JSON export.
func LooksLikeHTML(data []byte) bool {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))

	return bytes.HasPrefix(trimmed, []byte("<!DOCTYPE")) || bytes.HasPrefix(trimmed, []byte("<html"))
}

// Decode parses a JSON blueprint, rejecting HTML pages and reporting syntax errors with
// their line and column.
func Decode(data []byte) (any, error) {
	if LooksLikeHTML(data) {
		return nil, ErrHTMLContent
	}

	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, column := position(data, syntaxErr.Offset)

			return nil, &SyntaxError{Line: line, Column: column, Err: err}
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	return document, nil
}

func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}

	if offset < 1 {
		return 1, 1
	}

	consumed := data[:offset-1]
	line := bytes.Count(consumed, []byte("\n")) + 1
	column := len(consumed) - bytes.LastIndexByte(consumed, '\n')

	return line, column
}

func validateDocument(document any) error {
	result, err := documentSchema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return blueprint.NewStructureError("", err.Error())
	}

	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	field := strings.TrimPrefix(strings.TrimPrefix(first.Field(), "(root)"), ".")

	if property, ok := first.Details()["property"].(string); ok && first.Type() == "required" {
		field = strings.TrimPrefix(field+"."+property, ".")
	}

	return blueprint.NewStructureError(field, first.Description())
}

func mustCompileSchema() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("blueprint schema does not compile: %v", err))
	}

	return schema
}
