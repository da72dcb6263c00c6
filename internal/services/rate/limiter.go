package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/somospye/pyebot-sub000/internal/domain/model"
	"github.com/somospye/pyebot-sub000/internal/domain/rules"
)

// RoleSource supplies the managed role configurations of a guild.
type RoleSource interface {
	ListRoles(ctx context.Context, guildID string) ([]model.ManagedRole, error)
}

// BucketResult reports one bucket consumption attempt.
type BucketResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining uint      `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// ConsumeResult reports a multi-role consumption attempt. When Limited is
// false no held role restricted the action at all. LimitedRoleKey names
// the role whose bucket refused.
type ConsumeResult struct {
	Allowed        bool      `json:"allowed"`
	Limited        bool      `json:"limited"`
	Remaining      uint      `json:"remaining"`
	ResetAt        time.Time `json:"reset_at,omitempty"`
	LimitedRoleKey string    `json:"limited_role_key,omitempty"`
}

type bucket struct {
	count   uint
	resetAt time.Time
	window  uint
	maxUses uint
}

// Limiter keeps fixed-window token buckets in process memory, one per
// guild:role:action. Running several bot instances gives each its own
// independent quota; that is a documented property of the deployment,
// not something the limiter tries to paper over.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	roles   RoleSource
	now     func() time.Time
}

func NewLimiter(roles RoleSource) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		roles:   roles,
		now:     time.Now,
	}
}

// SetNow replaces the clock, for tests.
func (l *Limiter) SetNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// BucketKey builds the canonical bucket identifier.
func BucketKey(guildID, roleKey, actionKey string) string {
	return guildID + ":" + roleKey + ":" + actionKey
}

// Consume takes one token from a bucket, creating or resetting it when
// the window elapsed or the configured limit changed since last use.
// Misconfigured input (maxUses>0 with no positive window) is treated as
// "always allowed" rather than an error.
func (l *Limiter) Consume(key string, maxUses, windowSeconds uint) BucketResult {
	if maxUses == 0 || windowSeconds == 0 {
		return BucketResult{Allowed: true, Remaining: maxUses}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.Compare(b.resetAt) >= 0 || b.maxUses != maxUses || b.window != windowSeconds {
		b = &bucket{
			resetAt: now.Add(time.Duration(windowSeconds) * time.Second),
			window:  windowSeconds,
			maxUses: maxUses,
		}
		l.buckets[key] = b
	}

	if b.count >= b.maxUses {
		return BucketResult{Allowed: false, Remaining: 0, ResetAt: b.resetAt}
	}

	b.count++
	return BucketResult{Allowed: true, Remaining: b.maxUses - b.count, ResetAt: b.resetAt}
}

// Rollback undoes one previously consumed token. It never drops a count
// below zero and removes an empty, already-expired bucket so the table
// stays bounded.
func (l *Limiter) Rollback(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return
	}
	if b.count > 0 {
		b.count--
	}
	if b.count == 0 && l.now().Compare(b.resetAt) >= 0 {
		delete(l.buckets, key)
	}
}

// ConsumeRoleLimits consumes one use of an action across every held role
// that limits it. Consumption is all-or-nothing: the first refusing
// bucket aborts the attempt and every bucket consumed earlier in the
// same call is rolled back.
func (l *Limiter) ConsumeRoleLimits(ctx context.Context, guildID, actionKey string, memberRoleIDs []string) (ConsumeResult, error) {
	if l.roles == nil {
		return ConsumeResult{}, fmt.Errorf("rate limiter role source is not configured")
	}

	key, err := rules.NormalizeActionKey(actionKey)
	if err != nil {
		return ConsumeResult{}, err
	}

	roles, err := l.roles.ListRoles(ctx, guildID)
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("load managed roles: %w", err)
	}

	result := ConsumeResult{Allowed: true}
	var consumed []string
	for _, role := range roles {
		if !role.HeldBy(memberRoleIDs) {
			continue
		}
		limit, ok := role.LimitFor(key)
		if !ok {
			continue
		}

		bucketKey := BucketKey(guildID, role.Key, key)
		res := l.Consume(bucketKey, limit.MaxUses, limit.EffectiveWindowSeconds())
		if !res.Allowed {
			for _, k := range consumed {
				l.Rollback(k)
			}
			return ConsumeResult{
				Allowed:        false,
				Limited:        true,
				Remaining:      0,
				ResetAt:        res.ResetAt,
				LimitedRoleKey: role.Key,
			}, nil
		}

		consumed = append(consumed, bucketKey)
		if !result.Limited || res.Remaining < result.Remaining {
			result.Remaining = res.Remaining
		}
		if !result.Limited || (!res.ResetAt.IsZero() && res.ResetAt.Before(result.ResetAt)) {
			result.ResetAt = res.ResetAt
		}
		result.Limited = true
	}

	return result, nil
}
