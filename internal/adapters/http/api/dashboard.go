package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atomicvault/vaultpulse/internal/dashboard"
)

// DashboardDependencies defines the interface for dashboard operations.
type DashboardDependencies interface {
	IsOperator(userID string) bool
	PlaceDashboard(ctx context.Context, channelID, actor string) error
	DashboardSnapshot(ctx context.Context) (dashboard.Snapshot, error)
}

// DashboardHandler handles dashboard reads and placement.
type DashboardHandler struct {
	deps DashboardDependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps DashboardDependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

type placeRequest struct {
	ChannelID string `json:"channel_id"`
}

// HandleDashboard handles GET /dashboard (snapshot) and POST /dashboard
// (operator-only placement).
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	switch r.Method {
	case http.MethodGet:
		snap, err := h.deps.DashboardSnapshot(r.Context())
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodPost:
		actor := r.Header.Get(ActorHeader)
		if !h.deps.IsOperator(actor) {
			writeError(w, http.StatusForbidden, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		}
		var req placeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if strings.TrimSpace(req.ChannelID) == "" {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing channel_id")))
			return
		}
		if err := h.deps.PlaceDashboard(r.Context(), req.ChannelID, actor); err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "placed",
			"channel_id": req.ChannelID,
		})
	default:
		http.NotFound(w, r)
	}
}
