package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	CounterOverrideDenied1hKey = "gov:cnt:override_denied:1h"
	CounterRateLimited1hKey    = "gov:cnt:rate_limited:1h"
	CounterCommits24hKey       = "gov:cnt:commits:24h"

	LimitedActions24hKeyPrefix = "gov:zset:limited_actions:24h:"
	DeniedRoles24hKeyPrefix    = "gov:zset:denied_roles:24h:"
)

// DashboardRepo keeps rolling governance counters for the admin surface:
// how often overrides denied an action, how often quotas ran out, and
// which roles/actions trip most per guild.
type DashboardRepo struct {
	client *goredis.Client
}

type Summary struct {
	OverrideDenied1h int64 `json:"override_denied_1h"`
	RateLimited1h    int64 `json:"rate_limited_1h"`
	Commits24h       int64 `json:"commits_24h"`
}

type RankedItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func NewDashboardRepo(client *goredis.Client) *DashboardRepo {
	return &DashboardRepo{client: client}
}

// ObserveOverrideDenied records a deny decision attributed to a managed role.
func (r *DashboardRepo) ObserveOverrideDenied(ctx context.Context, guildID, roleKey string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.incrementCounter(ctx, CounterOverrideDenied1hKey, time.Hour); err != nil {
		return err
	}
	return r.incrementRanked(ctx, DeniedRoles24hKeyPrefix+guildID, roleKey, 24*time.Hour)
}

// ObserveRateLimited records a quota refusal for an action.
func (r *DashboardRepo) ObserveRateLimited(ctx context.Context, guildID, actionKey string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.incrementCounter(ctx, CounterRateLimited1hKey, time.Hour); err != nil {
		return err
	}
	return r.incrementRanked(ctx, LimitedActions24hKeyPrefix+guildID, actionKey, 24*time.Hour)
}

// ObserveCommit records a successful governance session commit.
func (r *DashboardRepo) ObserveCommit(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.incrementCounter(ctx, CounterCommits24hKey, 24*time.Hour)
}

func (r *DashboardRepo) GetSummary(ctx context.Context) (Summary, error) {
	if r.client == nil {
		return Summary{}, fmt.Errorf("redis client is nil")
	}

	denied, err := r.counterValue(ctx, CounterOverrideDenied1hKey)
	if err != nil {
		return Summary{}, err
	}
	limited, err := r.counterValue(ctx, CounterRateLimited1hKey)
	if err != nil {
		return Summary{}, err
	}
	commits, err := r.counterValue(ctx, CounterCommits24hKey)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		OverrideDenied1h: denied,
		RateLimited1h:    limited,
		Commits24h:       commits,
	}, nil
}

// TopLimitedActions lists the actions most often refused by quota in a guild.
func (r *DashboardRepo) TopLimitedActions(ctx context.Context, guildID string, limit int64) ([]RankedItem, error) {
	return r.topRanked(ctx, LimitedActions24hKeyPrefix+guildID, limit)
}

// TopDeniedRoles lists the roles whose deny overrides fire most in a guild.
func (r *DashboardRepo) TopDeniedRoles(ctx context.Context, guildID string, limit int64) ([]RankedItem, error) {
	return r.topRanked(ctx, DeniedRoles24hKeyPrefix+guildID, limit)
}

func (r *DashboardRepo) topRanked(ctx context.Context, key string, limit int64) ([]RankedItem, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	pairs, err := r.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranked set %s: %w", key, err)
	}

	items := make([]RankedItem, 0, len(pairs))
	for _, pair := range pairs {
		member, ok := pair.Member.(string)
		if !ok {
			member = fmt.Sprint(pair.Member)
		}
		items = append(items, RankedItem{ID: member, Score: pair.Score})
	}
	return items, nil
}

func (r *DashboardRepo) incrementCounter(ctx context.Context, key string, ttl time.Duration) error {
	pipe := r.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment counter %s: %w", key, err)
	}
	return nil
}

func (r *DashboardRepo) incrementRanked(ctx context.Context, key, member string, ttl time.Duration) error {
	member = strings.TrimSpace(member)
	if member == "" {
		return nil
	}
	pipe := r.client.Pipeline()
	pipe.ZIncrBy(ctx, key, 1, member)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment ranked set %s: %w", key, err)
	}
	return nil
}

func (r *DashboardRepo) counterValue(ctx context.Context, key string) (int64, error) {
	value, err := r.client.Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", key, err)
	}
	return value, nil
}
