package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/somospye/pyebot-sub000/internal/domain/model"
	ratesvc "github.com/somospye/pyebot-sub000/internal/services/rate"
	"github.com/somospye/pyebot-sub000/internal/transport/http/dto"
)

type roleSourceStub struct {
	roles []model.ManagedRole
}

func (s roleSourceStub) ListRoles(context.Context, string) ([]model.ManagedRole, error) {
	return s.roles, nil
}

type limitObserverStub struct {
	limited []string
}

func (o *limitObserverStub) ObserveRateLimited(_ context.Context, _, actionKey string) error {
	o.limited = append(o.limited, actionKey)
	return nil
}

func limitedRole(key, platformID string, maxUses, windowSec uint) model.ManagedRole {
	id := platformID
	window := windowSec
	return model.ManagedRole{
		GuildID:        "g1",
		Key:            key,
		Label:          key,
		PlatformRoleID: &id,
		Limits: map[string]model.LimitRecord{
			"ban": {MaxUses: maxUses, WindowSeconds: &window},
		},
	}
}

func consumeRequest(t *testing.T) *http.Request {
	t.Helper()
	body, err := json.Marshal(dto.ConsumeRequest{
		Action:        "ban",
		MemberRoleIDs: []string{"111"},
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	return routedRequest(http.MethodPost, "/guilds/g1/limits/consume", body, map[string]string{
		"guild_id": "g1",
	})
}

func TestConsumeReturnsTooManyRequestsWhenExhausted(t *testing.T) {
	limiter := ratesvc.NewLimiter(roleSourceStub{roles: []model.ManagedRole{
		limitedRole("mod", "111", 1, 3600),
	}})
	observer := &limitObserverStub{}
	h := NewLimitsHandler(limiter)
	h.AttachObserver(observer)

	rr := httptest.NewRecorder()
	h.Consume(rr, consumeRequest(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("first consume must pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Consume(rr, consumeRequest(t))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusTooManyRequests)
	}

	var payload struct {
		Code           string `json:"code"`
		LimitedRoleKey string `json:"limited_role_key"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "RATE_LIMITED" || payload.LimitedRoleKey != "mod" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(observer.limited) != 1 || observer.limited[0] != "ban" {
		t.Fatalf("refusal must be observed, got %v", observer.limited)
	}
}

func TestConsumeReportsRemainingUses(t *testing.T) {
	limiter := ratesvc.NewLimiter(roleSourceStub{roles: []model.ManagedRole{
		limitedRole("mod", "111", 3, 3600),
	}})
	h := NewLimitsHandler(limiter)

	rr := httptest.NewRecorder()
	h.Consume(rr, consumeRequest(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rr.Code)
	}
	var payload dto.ConsumeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Allowed || !payload.Limited || payload.Remaining != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.ResetAt == nil {
		t.Fatalf("limited consumption must report reset time")
	}
}

func TestConsumeUnlimitedMemberPasses(t *testing.T) {
	limiter := ratesvc.NewLimiter(roleSourceStub{})
	h := NewLimitsHandler(limiter)

	rr := httptest.NewRecorder()
	h.Consume(rr, consumeRequest(t))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rr.Code)
	}
	var payload dto.ConsumeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Allowed || payload.Limited {
		t.Fatalf("unrestricted member must pass without a limit, got %+v", payload)
	}
}
