package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestDashboardCountersAndRanking(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewDashboardRepo(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.ObserveOverrideDenied(ctx, "g1", "muted"); err != nil {
			t.Fatalf("observe override denied: %v", err)
		}
	}
	if err := repo.ObserveOverrideDenied(ctx, "g1", "restricted"); err != nil {
		t.Fatalf("observe override denied: %v", err)
	}
	if err := repo.ObserveRateLimited(ctx, "g1", "ban"); err != nil {
		t.Fatalf("observe rate limited: %v", err)
	}
	if err := repo.ObserveCommit(ctx); err != nil {
		t.Fatalf("observe commit: %v", err)
	}

	summary, err := repo.GetSummary(ctx)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.OverrideDenied1h != 4 || summary.RateLimited1h != 1 || summary.Commits24h != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	top, err := repo.TopDeniedRoles(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("top denied roles: %v", err)
	}
	if len(top) != 2 || top[0].ID != "muted" || top[0].Score != 3 {
		t.Fatalf("unexpected ranking: %+v", top)
	}
}

func TestDashboardCountersExpire(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewDashboardRepo(client)
	ctx := context.Background()

	if err := repo.ObserveRateLimited(ctx, "g1", "warn"); err != nil {
		t.Fatalf("observe rate limited: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	summary, err := repo.GetSummary(ctx)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.RateLimited1h != 0 {
		t.Fatalf("expected hourly counter to expire, got %d", summary.RateLimited1h)
	}
}
