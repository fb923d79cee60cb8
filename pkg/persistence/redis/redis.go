// Package redis provides a Redis-backed conversion archive. Every conversion is stored as a
// JSON string with a TTL and indexed in a sorted set scored by creation time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "flowbridge:conversion:"
	indexKey  = "flowbridge:conversions"
)

// Persistence implements the persistence.Persistence interface on Redis.
type Persistence struct {
	client *goredis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewPersistence connects to the Redis server at databaseURL (redis:// or rediss://).
// A positive ttl expires conversions on the server side as well.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, ttl time.Duration) (*Persistence, error) {
	opts, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return &Persistence{client: client, logger: logger, ttl: max(ttl, 0)}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

func (p *Persistence) SaveConversion(ctx context.Context, conversion *models.Conversion) error {
	if conversion == nil || conversion.ID == "" || conversion.Workflow == nil {
		return persistence.NewConversionError("Save", "", persistence.ErrInvalidConversion)
	}

	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(conversion)
	if err != nil {
		return fmt.Errorf("failed to marshal conversion %s: %w", conversion.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+conversion.ID, data, p.ttl)
		pipe.ZAdd(ctx, indexKey, goredis.Z{Score: score(conversion.CreatedAt), Member: conversion.ID})

		return nil
	})
	if err != nil {
		return persistence.NewConversionError("Save", conversion.ID, err)
	}

	return nil
}

func (p *Persistence) ConversionByID(ctx context.Context, id string) (*models.Conversion, error) {
	data, err := p.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewConversionError("GetByID", id, persistence.ErrConversionNotFound)
	}

	if err != nil {
		return nil, persistence.NewConversionError("GetByID", id, err)
	}

	var conversion models.Conversion
	if err := json.Unmarshal(data, &conversion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversion %s: %w", id, err)
	}

	return &conversion, nil
}

func (p *Persistence) DeleteConversion(ctx context.Context, id string) error {
	var deleted *goredis.IntCmd

	_, err := p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		deleted = pipe.Del(ctx, keyPrefix+id)
		pipe.ZRem(ctx, indexKey, id)

		return nil
	})
	if err != nil {
		return persistence.NewConversionError("Delete", id, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewConversionError("Delete", id, persistence.ErrConversionNotFound)
	}

	return nil
}

// Conversions pages through the index. Index entries whose record already expired are
// dropped from the index and skipped.
func (p *Persistence) Conversions(ctx context.Context, opts persistence.ListConversionsOptions) (*persistence.ConversionListResult, error) {
	opts = opts.Normalize()

	if err := p.dropExpired(ctx); err != nil {
		return nil, err
	}

	total, err := p.client.ZCard(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count conversions: %w", err)
	}

	start, stop := int64(opts.Offset), int64(opts.Offset+opts.Limit-1)

	var ids []string
	if opts.SortOrder == "asc" {
		ids, err = p.client.ZRange(ctx, indexKey, start, stop).Result()
	} else {
		ids, err = p.client.ZRevRange(ctx, indexKey, start, stop).Result()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	conversions := make([]*models.Conversion, 0, len(ids))

	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = keyPrefix + id
		}

		values, err := p.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load conversions: %w", err)
		}

		for i, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}

			var conversion models.Conversion
			if err := json.Unmarshal([]byte(raw), &conversion); err != nil {
				return nil, fmt.Errorf("failed to unmarshal conversion %s: %w", ids[i], err)
			}

			conversions = append(conversions, &conversion)
		}
	}

	return &persistence.ConversionListResult{
		Conversions: conversions,
		TotalCount:  total,
		HasNextPage: int64(opts.Offset+len(ids)) < total,
	}, nil
}

func (p *Persistence) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	maxScore := "(" + strconv.FormatFloat(score(cutoff), 'f', -1, 64)

	ids, err := p.client.ZRangeByScore(ctx, indexKey, &goredis.ZRangeBy{Min: "-inf", Max: maxScore}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find expired conversions: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	if err := p.remove(ctx, ids); err != nil {
		return 0, err
	}

	return len(ids), nil
}

// dropExpired removes index members whose record has been expired by Redis.
func (p *Persistence) dropExpired(ctx context.Context) error {
	if p.ttl <= 0 {
		return nil
	}

	maxScore := "(" + strconv.FormatFloat(score(time.Now().Add(-p.ttl)), 'f', -1, 64)

	if err := p.client.ZRemRangeByScore(ctx, indexKey, "-inf", maxScore).Err(); err != nil {
		return fmt.Errorf("failed to drop expired conversions: %w", err)
	}

	return nil
}

func (p *Persistence) remove(ctx context.Context, ids []string) error {
	keys := make([]string, len(ids))
	members := make([]any, len(ids))

	for i, id := range ids {
		keys[i] = keyPrefix + id
		members[i] = id
	}

	_, err := p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, indexKey, members...)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove conversions: %w", err)
	}

	p.logger.DebugContext(ctx, "Removed conversions", "count", len(ids))

	return nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
