// Package cache provides a Redis-backed cache of recent diagnostic output
// for the diagnostics server: the latest result and threshold set per
// manifest, plus a short-horizon score timeline in a sorted set.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"driftlab/internal/domain"
)

// ErrCacheMiss is returned when a requested key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL bounds how stale a cached result may be served.
const DefaultTTL = 5 * time.Minute

// RedisCache caches diagnostic output in Redis. It is a read-through
// acceleration layer only; the stores remain the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at addr.
func New(addr, password string, db int, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(client, ttl)
}

// NewWithClient wraps an existing client. A non-positive ttl selects DefaultTTL.
func NewWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Ping checks connection health.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func latestResultKey(manifestHash string) string {
	return fmt.Sprintf("driftlab:latest_result:%s", manifestHash)
}

func latestThresholdsKey(manifestHash string) string {
	return fmt.Sprintf("driftlab:latest_thresholds:%s", manifestHash)
}

func scoresKey(manifestHash string) string {
	return fmt.Sprintf("driftlab:scores:%s", manifestHash)
}

// SetLatestResult stores the most recent diagnostic result for a manifest.
func (c *RedisCache) SetLatestResult(ctx context.Context, r *domain.DiagnosticResult) error {
	if r == nil || r.ManifestHash == "" {
		return errors.New("cache: result missing manifest hash")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.client.Set(ctx, latestResultKey(r.ManifestHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set latest result: %w", err)
	}
	return nil
}

// GetLatestResult retrieves the cached result. Returns ErrCacheMiss when absent.
func (c *RedisCache) GetLatestResult(ctx context.Context, manifestHash string) (*domain.DiagnosticResult, error) {
	data, err := c.client.Get(ctx, latestResultKey(manifestHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get latest result: %w", err)
	}

	var r domain.DiagnosticResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &r, nil
}

// SetLatestThresholds stores the most recent threshold set for a manifest.
func (c *RedisCache) SetLatestThresholds(ctx context.Context, t *domain.ThresholdSet) error {
	if t == nil || t.ManifestHash == "" {
		return errors.New("cache: threshold set missing manifest hash")
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal threshold set: %w", err)
	}
	if err := c.client.Set(ctx, latestThresholdsKey(t.ManifestHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set latest thresholds: %w", err)
	}
	return nil
}

// GetLatestThresholds retrieves the cached threshold set. Returns ErrCacheMiss when absent.
func (c *RedisCache) GetLatestThresholds(ctx context.Context, manifestHash string) (*domain.ThresholdSet, error) {
	data, err := c.client.Get(ctx, latestThresholdsKey(manifestHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get latest thresholds: %w", err)
	}

	var t domain.ThresholdSet
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal threshold set: %w", err)
	}
	return &t, nil
}

// AppendScore adds a point to the manifest's score timeline. The sorted-set
// score is the window end, so range reads map directly onto time ranges.
func (c *RedisCache) AppendScore(ctx context.Context, p *domain.ScorePoint) error {
	if p == nil || p.ManifestHash == "" {
		return errors.New("cache: score point missing manifest hash")
	}

	member, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal score point: %w", err)
	}

	key := scoresKey(p.ManifestHash)
	if err := c.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(p.WindowEndMS),
		Member: member,
	}).Err(); err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

// ScoresInRange retrieves timeline points with window end in [startMS, endMS].
func (c *RedisCache) ScoresInRange(ctx context.Context, manifestHash string, startMS, endMS int64) ([]domain.ScorePoint, error) {
	members, err := c.client.ZRangeByScore(ctx, scoresKey(manifestHash), &redis.ZRangeBy{
		Min: strconv.FormatInt(startMS, 10),
		Max: strconv.FormatInt(endMS, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range scores: %w", err)
	}

	points := make([]domain.ScorePoint, 0, len(members))
	for _, m := range members {
		var p domain.ScorePoint
		if err := json.Unmarshal([]byte(m), &p); err != nil {
			return nil, fmt.Errorf("unmarshal score point: %w", err)
		}
		points = append(points, p)
	}
	return points, nil
}

// TrimScoresBefore drops timeline points with window end < cutoffMS.
func (c *RedisCache) TrimScoresBefore(ctx context.Context, manifestHash string, cutoffMS int64) error {
	err := c.client.ZRemRangeByScore(ctx, scoresKey(manifestHash),
		"0", "("+strconv.FormatInt(cutoffMS, 10)).Err()
	if err != nil {
		return fmt.Errorf("trim scores: %w", err)
	}
	return nil
}
