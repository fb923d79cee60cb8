package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/persistence"
)

const selectConversion = `
	SELECT
		id
	  , source_name
	  , filename
	  , workflow
	  , warnings
	  , node_count
	  , unmapped_count
	  , created_at
	FROM conversions
`

// ConversionRepository handles conversion-related database operations.
type ConversionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConversionRepository creates a new conversion repository.
func NewConversionRepository(db *sql.DB, logger *slog.Logger) *ConversionRepository {
	return &ConversionRepository{db: db, logger: logger}
}

// List returns one page of conversions ordered by creation time.
func (r *ConversionRepository) List(ctx context.Context, opts persistence.ListConversionsOptions) (*persistence.ConversionListResult, error) {
	opts = opts.Normalize()

	var totalCount int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversions").Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversions: %w", err)
	}

	query := selectConversion + " ORDER BY created_at DESC, id LIMIT $1 OFFSET $2"
	if opts.SortOrder == "asc" {
		query = selectConversion + " ORDER BY created_at ASC, id LIMIT $1 OFFSET $2"
	}

	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	conversions := make([]*models.Conversion, 0, opts.Limit)

	for rows.Next() {
		conversion, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}

		conversions = append(conversions, conversion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversions: %w", err)
	}

	return &persistence.ConversionListResult{
		Conversions: conversions,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(conversions)) < totalCount,
	}, nil
}

// GetByID retrieves a conversion by its ID.
func (r *ConversionRepository) GetByID(ctx context.Context, id string) (*models.Conversion, error) {
	row := r.db.QueryRowContext(ctx, selectConversion+" WHERE id = $1", id)

	conversion, err := scanConversion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewConversionError("GetByID", id, persistence.ErrConversionNotFound)
		}

		return nil, fmt.Errorf("failed to scan conversion: %w", err)
	}

	return conversion, nil
}

// Save inserts a conversion, replacing an existing row with the same ID.
func (r *ConversionRepository) Save(ctx context.Context, conversion *models.Conversion) error {
	if conversion == nil || conversion.ID == "" || conversion.Workflow == nil {
		return persistence.NewConversionError("Save", "", persistence.ErrInvalidConversion)
	}

	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now().UTC()
	}

	workflowJSON, err := json.Marshal(conversion.Workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow of conversion %s: %w", conversion.ID, err)
	}

	warnings := conversion.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings of conversion %s: %w", conversion.ID, err)
	}

	query := `
		INSERT INTO conversions (id, source_name, filename, workflow, warnings, node_count, unmapped_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			source_name = EXCLUDED.source_name
		  , filename = EXCLUDED.filename
		  , workflow = EXCLUDED.workflow
		  , warnings = EXCLUDED.warnings
		  , node_count = EXCLUDED.node_count
		  , unmapped_count = EXCLUDED.unmapped_count
	`

	_, err = r.db.ExecContext(ctx, query,
		conversion.ID,
		conversion.SourceName,
		sql.NullString{String: conversion.Filename, Valid: conversion.Filename != ""},
		string(workflowJSON),
		string(warningsJSON),
		conversion.NodeCount,
		conversion.UnmappedCount,
		conversion.CreatedAt,
	)
	if err != nil {
		return persistence.NewConversionError("Save", conversion.ID, err)
	}

	return nil
}

// Delete removes a conversion.
func (r *ConversionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM conversions WHERE id = $1", id)
	if err != nil {
		return persistence.NewConversionError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewConversionError("Delete", id, persistence.ErrConversionNotFound)
	}

	return nil
}

// PurgeBefore deletes every conversion created before cutoff.
func (r *ConversionRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM conversions WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge conversions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(affected), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(row scanner) (*models.Conversion, error) {
	var (
		conversion   models.Conversion
		filename     sql.NullString
		workflowJSON []byte
		warningsJSON []byte
	)

	err := row.Scan(
		&conversion.ID,
		&conversion.SourceName,
		&filename,
		&workflowJSON,
		&warningsJSON,
		&conversion.NodeCount,
		&conversion.UnmappedCount,
		&conversion.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	conversion.Filename = filename.String

	if err := json.Unmarshal(workflowJSON, &conversion.Workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	if err := json.Unmarshal(warningsJSON, &conversion.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}

	return &conversion, nil
}
