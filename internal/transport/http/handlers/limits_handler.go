package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/somospye/pyebot-sub000/internal/domain/rules"
	ratesvc "github.com/somospye/pyebot-sub000/internal/services/rate"
	"github.com/somospye/pyebot-sub000/internal/transport/http/dto"
	httperrors "github.com/somospye/pyebot-sub000/internal/transport/http/errors"
)

type limitObserver interface {
	ObserveRateLimited(ctx context.Context, guildID, actionKey string) error
}

// LimitsHandler exposes quota consumption to the bot-adjacent services
// that execute moderation actions.
type LimitsHandler struct {
	limiter  *ratesvc.Limiter
	observer limitObserver
}

func NewLimitsHandler(limiter *ratesvc.Limiter) *LimitsHandler {
	return &LimitsHandler{limiter: limiter}
}

func (h *LimitsHandler) AttachObserver(observer limitObserver) {
	h.observer = observer
}

func (h *LimitsHandler) Consume(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		writeInternal(w, "LIMITER_UNAVAILABLE", "rate limiter is unavailable")
		return
	}

	guildID := chi.URLParam(r, "guild_id")

	var req dto.ConsumeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "request body is not valid json")
		return
	}

	result, err := h.limiter.ConsumeRoleLimits(r.Context(), guildID, req.Action, req.MemberRoleIDs)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidActionKey) {
			writeBadRequest(w, "INVALID_ACTION_KEY", "action key is invalid")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to consume limits")
		return
	}

	if !result.Allowed {
		if h.observer != nil {
			_ = h.observer.ObserveRateLimited(r.Context(), guildID, req.Action)
		}
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:           "RATE_LIMITED",
			Message:        "action quota exhausted",
			LimitedRoleKey: result.LimitedRoleKey,
			ResetAt:        result.ResetAt,
		})
		return
	}

	resp := dto.ConsumeResponse{
		Allowed:   true,
		Limited:   result.Limited,
		Remaining: result.Remaining,
	}
	if result.Limited && !result.ResetAt.IsZero() {
		resetAt := result.ResetAt
		resp.ResetAt = &resetAt
	}
	httperrors.Write(w, http.StatusOK, resp)
}
