package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/persistence"
)

const conversionsDir = "conversions"

// ConversionRepository stores one JSON file per conversion under <root>/conversions.
type ConversionRepository struct {
	root string
	mu   sync.RWMutex
}

// NewConversionRepository creates a new conversion repository.
func NewConversionRepository(root string) *ConversionRepository {
	return &ConversionRepository{root: root}
}

// List returns one page of conversions sorted by creation time.
func (cr *ConversionRepository) List(ctx context.Context, opts persistence.ListConversionsOptions) (*persistence.ConversionListResult, error) {
	opts = opts.Normalize()

	cr.mu.RLock()
	all, err := cr.loadAll(ctx)
	cr.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if opts.SortOrder == "asc" {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}

		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	totalCount := int64(len(all))

	if opts.Offset >= len(all) {
		return &persistence.ConversionListResult{
			Conversions: make([]*models.Conversion, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(all))

	return &persistence.ConversionListResult{
		Conversions: all[opts.Offset:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(all),
	}, nil
}

// GetByID retrieves a conversion by its ID from the file system.
func (cr *ConversionRepository) GetByID(_ context.Context, id string) (*models.Conversion, error) {
	filePath, ok := cr.pathOf(id)
	if !ok {
		return nil, persistence.NewConversionError("GetByID", id, persistence.ErrConversionNotFound)
	}

	cr.mu.RLock()
	defer cr.mu.RUnlock()

	return readConversion(filePath, id)
}

// Save writes a conversion, replacing any previous file with the same ID.
func (cr *ConversionRepository) Save(_ context.Context, conversion *models.Conversion) error {
	if conversion == nil || conversion.Workflow == nil {
		return persistence.NewConversionError("Save", "", persistence.ErrInvalidConversion)
	}

	filePath, ok := cr.pathOf(conversion.ID)
	if !ok {
		return persistence.NewConversionError("Save", conversion.ID, persistence.ErrInvalidConversion)
	}

	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(conversion, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversion %s: %w", conversion.ID, err)
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	if err := os.MkdirAll(path.Join(cr.root, conversionsDir), 0750); err != nil {
		return fmt.Errorf("failed to create conversions directory: %w", err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write conversion %s: %w", conversion.ID, err)
	}

	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to store conversion %s: %w", conversion.ID, err)
	}

	return nil
}

// Delete removes a conversion by its ID.
func (cr *ConversionRepository) Delete(_ context.Context, id string) error {
	filePath, ok := cr.pathOf(id)
	if !ok {
		return persistence.NewConversionError("Delete", id, persistence.ErrConversionNotFound)
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	err := os.Remove(filePath)
	if os.IsNotExist(err) {
		return persistence.NewConversionError("Delete", id, persistence.ErrConversionNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete conversion %s: %w", id, err)
	}

	return nil
}

// PurgeBefore removes every conversion created before cutoff.
func (cr *ConversionRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	all, err := cr.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, conversion := range all {
		if !conversion.CreatedAt.Before(cutoff) {
			continue
		}

		filePath, _ := cr.pathOf(conversion.ID)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to purge conversion %s: %w", conversion.ID, err)
		}

		removed++
	}

	return removed, nil
}

// loadAll reads every stored conversion. Callers hold the lock.
func (cr *ConversionRepository) loadAll(ctx context.Context) ([]*models.Conversion, error) {
	root := os.DirFS(path.Join(cr.root, conversionsDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list conversion files: %w", err)
	}

	conversions := make([]*models.Conversion, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := strings.TrimSuffix(file, ".json")

		conversion, err := readConversion(path.Join(cr.root, conversionsDir, file), id)
		if persistence.IsConversionNotFound(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to load conversion %s: %w", id, err)
		}

		conversions = append(conversions, conversion)
	}

	return conversions, nil
}

func (cr *ConversionRepository) pathOf(id string) (string, bool) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", false
	}

	return filepath.Clean(path.Join(cr.root, conversionsDir, id+".json")), true
}

func readConversion(filePath, id string) (*models.Conversion, error) {
	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewConversionError("GetByID", id, persistence.ErrConversionNotFound)
		}

		return nil, fmt.Errorf("failed to fetch conversion %s: %w", id, err)
	}

	var conversion models.Conversion

	if err := json.Unmarshal(body, &conversion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversion %s: %w", id, err)
	}

	return &conversion, nil
}
