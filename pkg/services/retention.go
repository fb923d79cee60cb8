package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowbridge/pkg/eventbus"
	"github.com/dukex/flowbridge/pkg/events"
	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// Retention defaults.
const (
	DefaultRetention         = 7 * 24 * time.Hour
	DefaultRetentionSchedule = "@hourly"
)

var (
	ErrInvalidRetention = errors.New("retention must be positive")
	ErrInvalidSchedule  = errors.New("invalid retention schedule")
)

// Retention purges archived conversions older than the retention period on a cron schedule.
type Retention struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	retention   time.Duration
	schedule    string
	now         func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRetention creates a retention sweeper. publisher may be nil.
func NewRetention(
	logger *slog.Logger,
	persistence persistence.Persistence,
	publisher eventbus.EventPublisher,
	retention time.Duration,
	schedule string,
) (*Retention, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRetention, retention)
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, schedule, err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Retention{
		persistence: persistence,
		publisher:   publisher,
		logger:      logger,
		retention:   retention,
		schedule:    schedule,
		now:         time.Now,
	}, nil
}

// Start schedules the purge job. The job stops when Stop is called.
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return nil
	}

	log := cronLogger{logger: r.logger}

	r.cron = cron.New(cron.WithLogger(log), cron.WithChain(
		cron.SkipIfStillRunning(log),
		cron.Recover(log),
	))

	_, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.Purge(context.WithoutCancel(ctx)); err != nil {
			r.logger.ErrorContext(ctx, "Scheduled purge failed", "error", err)
		}
	})
	if err != nil {
		r.cron = nil

		return fmt.Errorf("failed to schedule purge: %w", err)
	}

	r.logger.InfoContext(ctx, "Starting archive retention", "retention", r.retention.String(), "schedule", r.schedule)
	r.cron.Start()

	return nil
}

// Stop stops the scheduler and waits for a running purge until ctx is done.
func (r *Retention) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Purge removes conversions older than the retention period and publishes
// conversions.purged when anything was removed.
func (r *Retention) Purge(ctx context.Context) (int, error) {
	cutoff := r.now().UTC().Add(-r.retention)

	count, err := r.persistence.PurgeBefore(ctx, cutoff)
	if err != nil {
		return count, fmt.Errorf("failed to purge conversions: %w", err)
	}

	if count == 0 {
		return 0, nil
	}

	r.logger.InfoContext(ctx, "Purged archived conversions", "count", count, "cutoff", cutoff)

	if r.publisher != nil {
		err := r.publisher.Publish(ctx, "", events.ConversionsPurged{
			BaseEvent: events.NewBaseEvent(events.ConversionsPurgedEvent, ""),
			Count:     count,
			Cutoff:    cutoff,
		})
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to publish event", "event_type", events.ConversionsPurgedEvent, "error", err)
		}
	}

	return count, nil
}

// cronLogger routes scheduler logs to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
