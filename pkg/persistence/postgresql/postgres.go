// Package postgresql provides PostgreSQL persistence for archived conversions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/dukex/flowbridge/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Pool limits for the archive connection. Conversions are written once per request
// and read rarely.
const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
)

// Persistence archives conversions in PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	conversionRepo *ConversionRepository
}

// NewPersistence connects to databaseURL and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (_ *Persistence, err error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	defer func() {
		if err != nil {
			_ = database.Close()
		}
	}()

	database.SetMaxOpenConns(maxOpenConns)
	database.SetMaxIdleConns(maxIdleConns)
	database.SetConnMaxIdleTime(connMaxIdleTime)

	if err = database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		conversionRepo: NewConversionRepository(database, logger),
	}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	return p.db.Close()
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}

	return nil
}

func (p *Persistence) Conversions(ctx context.Context, opts persistence.ListConversionsOptions) (*persistence.ConversionListResult, error) {
	return p.conversionRepo.List(ctx, opts)
}

func (p *Persistence) ConversionByID(ctx context.Context, id string) (*models.Conversion, error) {
	return p.conversionRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveConversion(ctx context.Context, conversion *models.Conversion) error {
	return p.conversionRepo.Save(ctx, conversion)
}

func (p *Persistence) DeleteConversion(ctx context.Context, id string) error {
	return p.conversionRepo.Delete(ctx, id)
}

func (p *Persistence) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return p.conversionRepo.PurgeBefore(ctx, cutoff)
}
