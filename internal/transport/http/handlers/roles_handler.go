package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
	"github.com/somospye/pyebot-sub000/internal/domain/rules"
	pgrepo "github.com/somospye/pyebot-sub000/internal/repo/postgres"
	authsvc "github.com/somospye/pyebot-sub000/internal/services/auth"
	"github.com/somospye/pyebot-sub000/internal/transport/http/dto"
	httperrors "github.com/somospye/pyebot-sub000/internal/transport/http/errors"
)

// RoleStore is the persistence surface the role endpoints need.
type RoleStore interface {
	ListRoles(ctx context.Context, guildID string) ([]model.ManagedRole, error)
	GetRole(ctx context.Context, guildID, key string) (model.ManagedRole, error)
	UpsertRole(ctx context.Context, role model.ManagedRole) (model.ManagedRole, error)
}

type RolesHandler struct {
	store RoleStore
}

func NewRolesHandler(store RoleStore) *RolesHandler {
	return &RolesHandler{store: store}
}

func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeInternal(w, "ROLE_STORE_UNAVAILABLE", "role store is unavailable")
		return
	}

	guildID := chi.URLParam(r, "guild_id")
	roles, err := h.store.ListRoles(r.Context(), guildID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list roles")
		return
	}

	out := dto.RolesListResponse{Roles: make([]dto.RoleResponse, 0, len(roles))}
	for _, role := range roles {
		out.Roles = append(out.Roles, mapRole(role))
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *RolesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeInternal(w, "ROLE_STORE_UNAVAILABLE", "role store is unavailable")
		return
	}

	guildID := chi.URLParam(r, "guild_id")
	key, err := rules.NormalizeActionKey(chi.URLParam(r, "key"))
	if err != nil {
		writeBadRequest(w, "INVALID_ROLE_KEY", "role key is invalid")
		return
	}

	role, err := h.store.GetRole(r.Context(), guildID, key)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRoleNotFound) {
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "ROLE_NOT_FOUND",
				Message: "managed role not found",
			})
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load role")
		return
	}

	httperrors.Write(w, http.StatusOK, mapRole(role))
}

func (h *RolesHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeInternal(w, "ROLE_STORE_UNAVAILABLE", "role store is unavailable")
		return
	}

	guildID := chi.URLParam(r, "guild_id")
	key, err := rules.NormalizeActionKey(chi.URLParam(r, "key"))
	if err != nil {
		writeBadRequest(w, "INVALID_ROLE_KEY", "role key is invalid")
		return
	}

	var req dto.UpsertRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "request body is not valid json")
		return
	}

	role, err := roleFromRequest(guildID, key, req)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}
	if identity, ok := authsvc.IdentityFromContext(r.Context()); ok {
		role.UpdatedBy = identity.UserID
	}

	stored, err := h.store.UpsertRole(r.Context(), role)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to save role")
		return
	}

	httperrors.Write(w, http.StatusOK, mapRole(stored))
}

// roleFromRequest validates and normalizes the payload into a domain
// role. All override and limit keys go through action key normalization
// so lookups later compare equal.
func roleFromRequest(guildID, key string, req dto.UpsertRoleRequest) (model.ManagedRole, error) {
	label, err := rules.ValidateLabel(req.Label)
	if err != nil {
		return model.ManagedRole{}, err
	}

	overrides := make(map[string]enums.OverrideValue, len(req.Overrides))
	for rawKey, rawValue := range req.Overrides {
		actionKey, err := rules.NormalizeActionKey(rawKey)
		if err != nil {
			return model.ManagedRole{}, err
		}
		value := enums.OverrideValue(rawValue)
		if !value.Valid() {
			return model.ManagedRole{}, fmt.Errorf("override for %s must be allow, deny or inherit", actionKey)
		}
		if value.Effective() == enums.OverrideInherit {
			continue
		}
		overrides[actionKey] = value
	}

	limits := make(map[string]model.LimitRecord, len(req.Limits))
	for rawKey, payload := range req.Limits {
		actionKey, err := rules.NormalizeActionKey(rawKey)
		if err != nil {
			return model.ManagedRole{}, err
		}
		if payload.MaxUses == 0 {
			continue
		}
		windowSec, err := rules.ParseWindowSeconds(payload.Window)
		if err != nil {
			return model.ManagedRole{}, err
		}
		limits[actionKey] = model.LimitRecord{MaxUses: payload.MaxUses, WindowSeconds: &windowSec}
	}

	return model.ManagedRole{
		GuildID:        guildID,
		Key:            key,
		Label:          label,
		PlatformRoleID: req.PlatformRoleID,
		Overrides:      overrides,
		Limits:         limits,
	}, nil
}

func mapRole(role model.ManagedRole) dto.RoleResponse {
	overrides := make(map[string]string, len(role.Overrides))
	for key, value := range role.Overrides {
		overrides[key] = string(value.Effective())
	}

	limits := make(map[string]dto.LimitPayload, len(role.Limits))
	for key, limit := range role.Limits {
		if !limit.Configured() {
			continue
		}
		limits[key] = dto.LimitPayload{
			MaxUses: limit.MaxUses,
			Window:  rules.WindowLabel(limit.EffectiveWindowSeconds()),
		}
	}

	return dto.RoleResponse{
		GuildID:        role.GuildID,
		Key:            role.Key,
		Label:          role.Label,
		PlatformRoleID: role.PlatformRoleID,
		Overrides:      overrides,
		Limits:         limits,
		UpdatedBy:      role.UpdatedBy,
		UpdatedAt:      role.UpdatedAt,
	}
}

func decodeJSON(r *http.Request, target any) error {
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
