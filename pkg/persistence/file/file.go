// Package file provides file-based persistence for archived conversions.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/persistence"
)

// ErrNotDirectory is returned by HealthCheck when the archive root is a regular file.
var ErrNotDirectory = errors.New("archive root is not a directory")

// Persistence archives each conversion as a JSON document under root.
type Persistence struct {
	root        string
	conversions *ConversionRepository
}

// NewPersistence accepts a plain directory or a file:// URL.
func NewPersistence(root string) persistence.Persistence {
	dir := strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:        dir,
		conversions: NewConversionRepository(dir),
	}
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck requires the root to exist as a directory.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("archive root %s: %w", fp.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, fp.root)
	}

	return nil
}

func (fp *Persistence) Conversions(ctx context.Context, opts persistence.ListConversionsOptions) (*persistence.ConversionListResult, error) {
	return fp.conversions.List(ctx, opts)
}

func (fp *Persistence) SaveConversion(ctx context.Context, conversion *models.Conversion) error {
	return fp.conversions.Save(ctx, conversion)
}

func (fp *Persistence) ConversionByID(ctx context.Context, id string) (*models.Conversion, error) {
	return fp.conversions.GetByID(ctx, id)
}

func (fp *Persistence) DeleteConversion(ctx context.Context, id string) error {
	return fp.conversions.Delete(ctx, id)
}

func (fp *Persistence) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return fp.conversions.PurgeBefore(ctx, cutoff)
}
