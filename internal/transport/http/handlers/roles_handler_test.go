package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
	pgrepo "github.com/somospye/pyebot-sub000/internal/repo/postgres"
	authsvc "github.com/somospye/pyebot-sub000/internal/services/auth"
	"github.com/somospye/pyebot-sub000/internal/transport/http/dto"
)

type roleStoreStub struct {
	roles    map[string]model.ManagedRole
	upserted *model.ManagedRole
}

func (s *roleStoreStub) ListRoles(_ context.Context, guildID string) ([]model.ManagedRole, error) {
	out := make([]model.ManagedRole, 0, len(s.roles))
	for _, role := range s.roles {
		if role.GuildID == guildID {
			out = append(out, role)
		}
	}
	return out, nil
}

func (s *roleStoreStub) GetRole(_ context.Context, guildID, key string) (model.ManagedRole, error) {
	role, ok := s.roles[key]
	if !ok || role.GuildID != guildID {
		return model.ManagedRole{}, pgrepo.ErrRoleNotFound
	}
	return role, nil
}

func (s *roleStoreStub) UpsertRole(_ context.Context, role model.ManagedRole) (model.ManagedRole, error) {
	s.upserted = &role
	return role, nil
}

func routedRequest(method, target string, body []byte, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestGetRoleReturnsNotFound(t *testing.T) {
	h := NewRolesHandler(&roleStoreStub{roles: map[string]model.ManagedRole{}})

	req := routedRequest(http.MethodGet, "/guilds/g1/roles/mod", nil, map[string]string{
		"guild_id": "g1", "key": "mod",
	})
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUpsertRoleNormalizesAndPersists(t *testing.T) {
	store := &roleStoreStub{roles: map[string]model.ManagedRole{}}
	h := NewRolesHandler(store)

	body, err := json.Marshal(dto.UpsertRoleRequest{
		Label: "Moderators",
		Overrides: map[string]string{
			"Temp-Ban": "deny",
			"warn":     "inherit",
		},
		Limits: map[string]dto.LimitPayload{
			"ban":  {MaxUses: 3, Window: "24h"},
			"kick": {MaxUses: 0, Window: "1h"},
		},
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := routedRequest(http.MethodPut, "/guilds/g1/roles/mod", body, map[string]string{
		"guild_id": "g1", "key": "mod",
	})
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{
		UserID: "admin-1",
		Role:   "admin",
	}))

	rr := httptest.NewRecorder()
	h.Upsert(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %s", rr.Code, rr.Body.String())
	}
	if store.upserted == nil {
		t.Fatalf("role was not persisted")
	}

	role := *store.upserted
	if role.GuildID != "g1" || role.Key != "mod" || role.UpdatedBy != "admin-1" {
		t.Fatalf("unexpected persisted role: %+v", role)
	}
	if role.OverrideFor("temp_ban") != enums.OverrideDeny {
		t.Fatalf("override key must be normalized, got %v", role.Overrides)
	}
	if _, ok := role.Overrides["warn"]; ok {
		t.Fatalf("inherit override must not be stored")
	}
	if limit, ok := role.LimitFor("ban"); !ok || limit.MaxUses != 3 || limit.EffectiveWindowSeconds() != 86400 {
		t.Fatalf("unexpected ban limit: %+v", role.Limits)
	}
	if _, ok := role.LimitFor("kick"); ok {
		t.Fatalf("zero max uses must not be stored")
	}
}

func TestUpsertRoleRejectsOverlongLabel(t *testing.T) {
	store := &roleStoreStub{roles: map[string]model.ManagedRole{}}
	h := NewRolesHandler(store)

	body, err := json.Marshal(dto.UpsertRoleRequest{
		Label: "this label is much longer than thirty-two characters allow",
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := routedRequest(http.MethodPut, "/guilds/g1/roles/mod", body, map[string]string{
		"guild_id": "g1", "key": "mod",
	})
	rr := httptest.NewRecorder()
	h.Upsert(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	if store.upserted != nil {
		t.Fatalf("invalid role must not be persisted")
	}
}

func TestUpsertRoleRejectsBadWindow(t *testing.T) {
	h := NewRolesHandler(&roleStoreStub{roles: map[string]model.ManagedRole{}})

	body, err := json.Marshal(dto.UpsertRoleRequest{
		Label:  "Mods",
		Limits: map[string]dto.LimitPayload{"ban": {MaxUses: 3, Window: "whenever"}},
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := routedRequest(http.MethodPut, "/guilds/g1/roles/mod", body, map[string]string{
		"guild_id": "g1", "key": "mod",
	})
	rr := httptest.NewRecorder()
	h.Upsert(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
