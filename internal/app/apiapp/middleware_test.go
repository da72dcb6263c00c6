package apiapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	authsvc "github.com/somospye/pyebot-sub000/internal/services/auth"
)

func identityEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in request context")
		}
		_ = json.NewEncoder(w).Encode(identity)
	})
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	tokens := authsvc.NewJWTManager("test-secret", time.Minute)
	handler := AuthMiddleware(tokens, zap.NewNop())(identityEcho(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guilds/g1/roles", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	tokens := authsvc.NewJWTManager("test-secret", time.Minute)
	handler := AuthMiddleware(tokens, zap.NewNop())(identityEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/guilds/g1/roles", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewarePassesIdentityThrough(t *testing.T) {
	tokens := authsvc.NewJWTManager("test-secret", time.Minute)
	signed, _, err := tokens.GenerateAccessToken("user-42", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	handler := AuthMiddleware(tokens, zap.NewNop())(identityEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/guilds/g1/roles", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var identity authsvc.Identity
	if err := json.NewDecoder(rec.Body).Decode(&identity); err != nil {
		t.Fatalf("decode identity: %v", err)
	}
	if identity.UserID != "user-42" || identity.Role != "admin" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := RequireRole("admin")(next)

	t.Run("no identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: "u1", Role: "viewer"}))

		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("allowed role, case-insensitive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: "u1", Role: "Admin"}))

		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}
