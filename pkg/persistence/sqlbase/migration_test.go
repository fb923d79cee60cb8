package sqlbase_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/flowbridge/pkg/persistence/sqlbase"
	"github.com/stretchr/testify/assert"
)

func TestMigrationManager_Versions(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		migrations map[int]string
		current    int
		latest     int
		pending    []int
	}{
		{name: "empty", migrations: map[int]string{}, latest: 0, pending: []int{}},
		{
			name:       "fresh database",
			migrations: map[int]string{3: "c", 1: "a", 2: "b"},
			latest:     3,
			pending:    []int{1, 2, 3},
		},
		{
			name:       "partially migrated",
			migrations: map[int]string{3: "c", 1: "a", 2: "b"},
			current:    1,
			latest:     3,
			pending:    []int{2, 3},
		},
		{
			name:       "up to date",
			migrations: map[int]string{1: "a"},
			current:    1,
			latest:     1,
			pending:    []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			manager := sqlbase.NewMigrationManager(logger, nil, tt.migrations)

			assert.Equal(t, tt.latest, manager.LatestVersion())
			assert.ElementsMatch(t, tt.pending, manager.Pending(tt.current))
		})
	}
}
