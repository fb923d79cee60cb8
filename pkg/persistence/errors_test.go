package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestConversionError(t *testing.T) {
	t.Parallel()

	t.Run("wraps the sentinel", func(t *testing.T) {
		t.Parallel()

		err := persistence.NewConversionError("GetByID", "c-123", persistence.ErrConversionNotFound)

		assert.True(t, persistence.IsConversionNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrConversionNotFound))
		assert.True(t, persistence.IsConversionNotFound(fmt.Errorf("handler: %w", err)))
		assert.False(t, persistence.IsConversionNotFound(persistence.NewConversionError("Save", "c", errors.New("disk full"))))
	})

	t.Run("message contains context", func(t *testing.T) {
		t.Parallel()

		err := persistence.NewConversionError("Delete", "c-456", persistence.ErrConversionNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "c-456")
		assert.Contains(t, err.Error(), "conversion not found")
	})
}

func TestListConversionsOptions_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, out persistence.ListConversionsOptions
	}{
		{
			in:  persistence.ListConversionsOptions{},
			out: persistence.ListConversionsOptions{Limit: 20, SortOrder: "desc"},
		},
		{
			in:  persistence.ListConversionsOptions{Limit: 500, Offset: -3, SortOrder: "asc"},
			out: persistence.ListConversionsOptions{Limit: 20, SortOrder: "asc"},
		},
		{
			in:  persistence.ListConversionsOptions{Limit: 5, Offset: 10, SortOrder: "sideways"},
			out: persistence.ListConversionsOptions{Limit: 5, Offset: 10, SortOrder: "desc"},
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.out, tt.in.Normalize())
	}
}
