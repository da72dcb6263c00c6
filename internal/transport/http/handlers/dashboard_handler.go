package handlers

import (
	"context"
	"net/http"

	redisrepo "github.com/somospye/pyebot-sub000/internal/repo/redis"
	"github.com/somospye/pyebot-sub000/internal/transport/http/dto"
	httperrors "github.com/somospye/pyebot-sub000/internal/transport/http/errors"
)

const dashboardTopN = 10

type DashboardStore interface {
	GetSummary(ctx context.Context) (redisrepo.Summary, error)
	TopLimitedActions(ctx context.Context, guildID string, limit int64) ([]redisrepo.RankedItem, error)
	TopDeniedRoles(ctx context.Context, guildID string, limit int64) ([]redisrepo.RankedItem, error)
}

type DashboardHandler struct {
	store DashboardStore
}

func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeInternal(w, "DASHBOARD_UNAVAILABLE", "dashboard store is unavailable")
		return
	}

	guildID := r.URL.Query().Get("guild_id")

	summary, err := h.store.GetSummary(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load dashboard summary")
		return
	}

	resp := dto.DashboardResponse{
		OverrideDenied1h:  summary.OverrideDenied1h,
		RateLimited1h:     summary.RateLimited1h,
		Commits24h:        summary.Commits24h,
		TopLimitedActions: []dto.RankedItemResponse{},
		TopDeniedRoles:    []dto.RankedItemResponse{},
	}

	if guildID != "" {
		limited, err := h.store.TopLimitedActions(r.Context(), guildID, dashboardTopN)
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "failed to load limited actions ranking")
			return
		}
		denied, err := h.store.TopDeniedRoles(r.Context(), guildID, dashboardTopN)
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "failed to load denied roles ranking")
			return
		}
		resp.TopLimitedActions = mapRanked(limited)
		resp.TopDeniedRoles = mapRanked(denied)
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func mapRanked(items []redisrepo.RankedItem) []dto.RankedItemResponse {
	out := make([]dto.RankedItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.RankedItemResponse{ID: item.ID, Score: item.Score})
	}
	return out
}
