package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/nba-projections/internal/models"
)

// ErrCacheMiss is returned when no projections are cached for a slate.
var ErrCacheMiss = errors.New("projections not cached")

// BreakerConfig controls the circuit breaker around redis calls.
type BreakerConfig struct {
	Threshold int
	Timeout   time.Duration
}

// Snapshot is the cached form of a published projection table.
type Snapshot struct {
	RunID       string                       `json:"run_id"`
	SlateDate   time.Time                    `json:"slate_date"`
	PublishedAt time.Time                    `json:"published_at"`
	Projections []models.DfsPlayerProjection `json:"projections"`
}

// ProjectionCache keeps the published projections per slate in redis.
type ProjectionCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
	ttl     time.Duration
}

func NewProjectionCache(client *redis.Client, log *logrus.Entry, ttl time.Duration, cfg BreakerConfig) *ProjectionCache {
	if cfg.Threshold < 1 {
		cfg.Threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "projection-cache",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.Threshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Projection cache circuit breaker state changed")
		},
	})
	return &ProjectionCache{client: client, breaker: cb, log: log, ttl: ttl}
}

// ProjectionsKey is the cache key for a slate's projections.
func ProjectionsKey(slate time.Time) string {
	return fmt.Sprintf("projections:%s", slate.Format("2006-01-02"))
}

// Publish caches the published run for its slate.
func (c *ProjectionCache) Publish(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal projections: %w", err)
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, ProjectionsKey(snap.SlateDate), data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to cache projections: %w", err)
	}
	return nil
}

// Get returns the cached projections for a slate.
func (c *ProjectionCache) Get(ctx context.Context, slate time.Time) (*Snapshot, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		data, err := c.client.Get(ctx, ProjectionsKey(slate)).Bytes()
		if errors.Is(err, redis.Nil) {
			// a miss is not a redis failure
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cached projections: %w", err)
	}
	data, _ := res.([]byte)
	if data == nil {
		return nil, ErrCacheMiss
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal projections: %w", err)
	}
	return &snap, nil
}

// Invalidate drops a slate's cached projections.
func (c *ProjectionCache) Invalidate(ctx context.Context, slate time.Time) error {
	if err := c.client.Del(ctx, ProjectionsKey(slate)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}
