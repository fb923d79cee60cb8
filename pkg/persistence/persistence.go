// Package persistence archives successful conversions so their workflows can be downloaded later.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/flowbridge/pkg/models"
)

// Listing defaults and bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Persistence interface {
	Conversions(ctx context.Context, opts ListConversionsOptions) (*ConversionListResult, error)
	SaveConversion(ctx context.Context, conversion *models.Conversion) error
	ConversionByID(ctx context.Context, id string) (*models.Conversion, error)
	DeleteConversion(ctx context.Context, id string) error
	// PurgeBefore deletes conversions created before cutoff and returns how many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// ListConversionsOptions pages through the archive, newest first unless SortOrder is "asc".
type ListConversionsOptions struct {
	Limit     int
	Offset    int
	SortOrder string
}

// ConversionListResult is one page of archived conversions.
type ConversionListResult struct {
	Conversions []*models.Conversion
	TotalCount  int64
	HasNextPage bool
}

// Normalize applies defaults and clamps the limit.
func (o ListConversionsOptions) Normalize() ListConversionsOptions {
	if o.Limit <= 0 || o.Limit > MaxListLimit {
		o.Limit = DefaultListLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortOrder != "asc" {
		o.SortOrder = "desc"
	}

	return o
}
