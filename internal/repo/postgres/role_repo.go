package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
)

var ErrRoleNotFound = errors.New("managed role not found")

// RoleRepo is the persistent store for managed role configurations, one
// row per (guild_id, key). Overrides and limits live in jsonb columns so
// the action-key maps stay schemaless.
type RoleRepo struct {
	pool *pgxpool.Pool
}

func NewRoleRepo(pool *pgxpool.Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

func (r *RoleRepo) ListRoles(ctx context.Context, guildID string) ([]model.ManagedRole, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(guildID) == "" {
		return nil, fmt.Errorf("guild id is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT guild_id, key, label, platform_role_id, overrides, limits, updated_by, updated_at
FROM managed_roles
WHERE guild_id = $1
ORDER BY key
`, guildID)
	if err != nil {
		return nil, fmt.Errorf("list managed roles: %w", err)
	}
	defer rows.Close()

	var roles []model.ManagedRole
	for rows.Next() {
		role, scanErr := scanRole(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate managed roles: %w", err)
	}

	return roles, nil
}

func (r *RoleRepo) GetRole(ctx context.Context, guildID, key string) (model.ManagedRole, error) {
	if r.pool == nil {
		return model.ManagedRole{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(guildID) == "" || strings.TrimSpace(key) == "" {
		return model.ManagedRole{}, fmt.Errorf("guild id and role key are required")
	}

	row := r.pool.QueryRow(ctx, `
SELECT guild_id, key, label, platform_role_id, overrides, limits, updated_by, updated_at
FROM managed_roles
WHERE guild_id = $1 AND key = $2
`, guildID, key)

	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ManagedRole{}, ErrRoleNotFound
		}
		return model.ManagedRole{}, err
	}

	return role, nil
}

// UpsertRole persists the full configuration of one managed role and
// returns the record as stored, including the server-assigned updated_at.
func (r *RoleRepo) UpsertRole(ctx context.Context, role model.ManagedRole) (model.ManagedRole, error) {
	if r.pool == nil {
		return model.ManagedRole{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(role.GuildID) == "" || strings.TrimSpace(role.Key) == "" {
		return model.ManagedRole{}, fmt.Errorf("guild id and role key are required")
	}

	overrides, err := json.Marshal(nonNilOverrides(role.Overrides))
	if err != nil {
		return model.ManagedRole{}, fmt.Errorf("marshal role overrides: %w", err)
	}
	limits, err := json.Marshal(nonNilLimits(role.Limits))
	if err != nil {
		return model.ManagedRole{}, fmt.Errorf("marshal role limits: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO managed_roles (guild_id, key, label, platform_role_id, overrides, limits, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, NOW(), NOW())
ON CONFLICT (guild_id, key) DO UPDATE SET
	label = EXCLUDED.label,
	platform_role_id = EXCLUDED.platform_role_id,
	overrides = EXCLUDED.overrides,
	limits = EXCLUDED.limits,
	updated_by = EXCLUDED.updated_by,
	updated_at = NOW()
RETURNING guild_id, key, label, platform_role_id, overrides, limits, updated_by, updated_at
`, role.GuildID, role.Key, role.Label, role.PlatformRoleID, overrides, limits, role.UpdatedBy)

	stored, err := scanRole(row)
	if err != nil {
		return model.ManagedRole{}, fmt.Errorf("upsert managed role: %w", err)
	}

	return stored, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (model.ManagedRole, error) {
	var (
		role      model.ManagedRole
		overrides []byte
		limits    []byte
		updatedAt time.Time
	)

	err := row.Scan(&role.GuildID, &role.Key, &role.Label, &role.PlatformRoleID, &overrides, &limits, &role.UpdatedBy, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ManagedRole{}, pgx.ErrNoRows
		}
		return model.ManagedRole{}, fmt.Errorf("scan managed role: %w", err)
	}

	role.UpdatedAt = updatedAt
	role.Overrides = map[string]enums.OverrideValue{}
	role.Limits = map[string]model.LimitRecord{}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &role.Overrides); err != nil {
			return model.ManagedRole{}, fmt.Errorf("unmarshal role overrides: %w", err)
		}
	}
	if len(limits) > 0 {
		if err := json.Unmarshal(limits, &role.Limits); err != nil {
			return model.ManagedRole{}, fmt.Errorf("unmarshal role limits: %w", err)
		}
	}

	return role, nil
}

func nonNilOverrides(m map[string]enums.OverrideValue) map[string]enums.OverrideValue {
	if m == nil {
		return map[string]enums.OverrideValue{}
	}
	return m
}

func nonNilLimits(m map[string]model.LimitRecord) map[string]model.LimitRecord {
	if m == nil {
		return map[string]model.LimitRecord{}
	}
	return m
}
