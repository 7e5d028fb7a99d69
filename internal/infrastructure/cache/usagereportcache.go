package cache

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"classnotex/internal/domain/usage"
	"classnotex/internal/shared/logger"
)

// CachedUsage represents a cached monthly usage report for one account.
// The ledger row in the database stays authoritative; this cache only
// absorbs read traffic from the usage endpoint.
type CachedUsage struct {
	MonthKey string
	Counters map[usage.Counter]float64
}

// UsageReportCache defines the interface for usage report caching.
type UsageReportCache interface {
	GetUsage(ctx context.Context, accountID, monthKey string) (*CachedUsage, error)
	SetUsage(ctx context.Context, accountID string, report *CachedUsage) error
	// InvalidateUsage drops the cached report. Called after every
	// reserve/commit/release so reads never lag a mutation.
	InvalidateUsage(ctx context.Context, accountID, monthKey string) error
}

const (
	usageKeyPrefix = "usage:report:"
	baseUsageTTL   = 5 * time.Minute
	usageTTLJitter = 2 * time.Minute // TTL range: 5-7 min (anti-stampede)
	fieldMonthKey  = "month_key"
)

// RedisUsageReportCache implements UsageReportCache using Redis Hash
type RedisUsageReportCache struct {
	client *redis.Client
	logger logger.Interface
}

// NewRedisUsageReportCache creates a new Redis-based usage report cache
func NewRedisUsageReportCache(client *redis.Client, logger logger.Interface) *RedisUsageReportCache {
	return &RedisUsageReportCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisUsageReportCache) key(accountID, monthKey string) string {
	return fmt.Sprintf("%s%s:%s", usageKeyPrefix, accountID, monthKey)
}

// GetUsage retrieves a usage report from cache. A nil report means miss.
func (c *RedisUsageReportCache) GetUsage(ctx context.Context, accountID, monthKey string) (*CachedUsage, error) {
	key := c.key(accountID, monthKey)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get usage report from cache: %w", err)
	}

	if len(result) == 0 {
		return nil, nil // Cache miss
	}

	report := &CachedUsage{
		MonthKey: result[fieldMonthKey],
		Counters: make(map[usage.Counter]float64, len(usage.AllCounters())),
	}
	for _, counter := range usage.AllCounters() {
		if raw, ok := result[counter.String()]; ok {
			report.Counters[counter], _ = strconv.ParseFloat(raw, 64)
		}
	}

	return report, nil
}

// SetUsage stores a usage report in cache
func (c *RedisUsageReportCache) SetUsage(ctx context.Context, accountID string, report *CachedUsage) error {
	key := c.key(accountID, report.MonthKey)

	fields := map[string]interface{}{
		fieldMonthKey: report.MonthKey,
	}
	for counter, value := range report.Counters {
		fields[counter.String()] = value
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, usageTTLWithJitter())

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set usage report in cache: %w", err)
	}

	c.logger.Debugw("usage report cached",
		"account_id", accountID,
		"month_key", report.MonthKey,
	)

	return nil
}

// InvalidateUsage removes a usage report from cache
func (c *RedisUsageReportCache) InvalidateUsage(ctx context.Context, accountID, monthKey string) error {
	key := c.key(accountID, monthKey)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate usage report cache: %w", err)
	}

	c.logger.Debugw("usage report cache invalidated",
		"account_id", accountID,
		"month_key", monthKey,
	)

	return nil
}

// usageTTLWithJitter returns a randomized TTL to prevent cache stampede.
func usageTTLWithJitter() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(usageTTLJitter)))
	return baseUsageTTL + jitter
}
