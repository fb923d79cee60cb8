package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/dukex/flowbridge/pkg/persistence/file"
	"github.com/dukex/flowbridge/pkg/persistence/postgresql"
	"github.com/dukex/flowbridge/pkg/persistence/redis"
)

// NewPersistence opens the conversion archive named by databaseURL. An empty URL disables
// the archive and returns nil. URLs without a scheme are file paths. ttl is applied by
// archives that expire entries themselves.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, ttl time.Duration) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "":
		return nil, nil //nolint:nilnil // archive disabled
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres archive: %w", err)
		}

		return p, nil
	case "redis", "rediss":
		p, err := redis.NewPersistence(ctx, logger, databaseURL, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis archive: %w", err)
		}

		return p, nil
	case "file":
		return file.NewPersistence(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database url: %s", databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return ""
	}

	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return strings.ToLower(scheme)
}
