package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/atomicvault/vaultpulse/internal/domain/model"
)

// AFKDependencies defines the interface for setting away state.
type AFKDependencies interface {
	SetAFK(userID, reason string) model.AFKStatus
}

// AFKHandler handles away-state requests.
type AFKHandler struct {
	deps AFKDependencies
}

// NewAFKHandler creates a new AFK handler.
func NewAFKHandler(deps AFKDependencies) *AFKHandler {
	return &AFKHandler{deps: deps}
}

type afkRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type afkResponse struct {
	UserID string    `json:"user_id"`
	Reason string    `json:"reason"`
	Since  time.Time `json:"since"`
}

// HandlePostAFK handles POST /afk requests. The away state is cleared by
// the member's next activity event, not by this endpoint.
func (h *AFKHandler) HandlePostAFK(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_afk"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req afkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing user_id")))
		return
	}
	if req.Reason == "" {
		req.Reason = "AFK"
	}
	status := h.deps.SetAFK(req.UserID, req.Reason)
	writeJSON(w, http.StatusOK, afkResponse{
		UserID: req.UserID,
		Reason: status.Reason,
		Since:  status.Since,
	})
}
