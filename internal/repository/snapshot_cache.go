package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	appErrors "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/errors"
)

// SnapshotCache caches per-day conflict-check snapshots in Redis. Every
// schedule write invalidates all cached days. A nil client degrades to a
// pass-through so the service works without Redis.
type SnapshotCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewSnapshotCache constructs a snapshot cache.
func NewSnapshotCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) *SnapshotCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{client: client, logger: logger, ttl: ttl}
}

func snapshotKey(day models.DayOfWeek) string {
	return fmt.Sprintf("schedules:snapshot:%s", day)
}

// Get retrieves the cached snapshot for a weekday.
func (c *SnapshotCache) Get(ctx context.Context, day models.DayOfWeek) ([]models.ScheduleEntry, error) {
	if c.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, snapshotKey(day)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get snapshot %s: %w", day, err)
	}

	var entries []models.ScheduleEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", day, err)
	}
	return entries, nil
}

// Set stores the snapshot for a weekday with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, day models.DayOfWeek, entries []models.ScheduleEntry) error {
	if c.client == nil {
		return nil
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", day, err)
	}

	if err := c.client.Set(ctx, snapshotKey(day), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot %s: %w", day, err)
	}
	return nil
}

// Invalidate removes every cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, "schedules:snapshot:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan snapshots: %w", err)
	}
	return nil
}
