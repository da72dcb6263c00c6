package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/somospye/pyebot-sub000/internal/domain/rules"
	"github.com/somospye/pyebot-sub000/internal/services/permissions"
	"github.com/somospye/pyebot-sub000/internal/transport/http/dto"
	httperrors "github.com/somospye/pyebot-sub000/internal/transport/http/errors"
)

type denialObserver interface {
	ObserveOverrideDenied(ctx context.Context, guildID, roleKey string) error
}

type PermissionsHandler struct {
	resolver *permissions.Service
	observer denialObserver
}

func NewPermissionsHandler(resolver *permissions.Service) *PermissionsHandler {
	return &PermissionsHandler{resolver: resolver}
}

// AttachObserver wires the dashboard so denials show up in the rolling
// counters. Optional; resolution works without it.
func (h *PermissionsHandler) AttachObserver(observer denialObserver) {
	h.observer = observer
}

func (h *PermissionsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		writeInternal(w, "RESOLVER_UNAVAILABLE", "permission resolver is unavailable")
		return
	}

	guildID := chi.URLParam(r, "guild_id")

	var req dto.ResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "request body is not valid json")
		return
	}

	decision, err := h.resolver.Resolve(r.Context(), guildID, req.Action, req.MemberRoleIDs, req.FallbackAllowed)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidActionKey) {
			writeBadRequest(w, "INVALID_ACTION_KEY", "action key is invalid")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to resolve permission")
		return
	}

	if decision.Decision == permissions.DecisionDeniedByOverride && h.observer != nil {
		_ = h.observer.ObserveOverrideDenied(r.Context(), guildID, decision.MatchedRoleKey)
	}

	httperrors.Write(w, http.StatusOK, dto.ResolveResponse{
		Allowed:        decision.Allowed,
		Decision:       string(decision.Decision),
		MatchedRoleKey: decision.MatchedRoleKey,
	})
}
