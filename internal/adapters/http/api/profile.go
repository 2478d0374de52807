package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atomicvault/vaultpulse/internal/domain/model"
)

// ProfileDependencies defines the interface for profile reads.
type ProfileDependencies interface {
	Profile(ctx context.Context, userID string) (model.Profile, error)
}

// ProfileHandler handles member profile reads.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

type afkView struct {
	Reason string    `json:"reason"`
	Since  time.Time `json:"since"`
	For    string    `json:"for"`
}

// coarseDuration renders elapsed time the way the status display does:
// minutes under an hour, hours under a day, days beyond.
func coarseDuration(since time.Time) string {
	elapsed := time.Since(since)
	switch {
	case elapsed < time.Hour:
		return strconv.Itoa(int(elapsed.Minutes())) + "m"
	case elapsed < 24*time.Hour:
		return strconv.Itoa(int(elapsed.Hours())) + "h"
	default:
		return strconv.Itoa(int(elapsed.Hours()/24)) + "d"
	}
}

type profileResponse struct {
	UserID           string   `json:"user_id"`
	Level            int64    `json:"level"`
	TotalXP          int64    `json:"total_xp"`
	Title            string   `json:"title"`
	Vouches          int64    `json:"vouches"`
	Clearance        string   `json:"clearance"`
	TicketsCompleted int64    `json:"tickets_completed"`
	AFK              *afkView `json:"afk,omitempty"`
}

// HandleGetProfile handles GET /profile/{user_id} requests.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/profile/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.Profile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	resp := profileResponse{
		UserID:           p.Progress.UserID,
		Level:            p.Progress.Level,
		TotalXP:          p.Progress.Total,
		Title:            p.Progress.Title,
		Vouches:          p.Vouches,
		Clearance:        p.Clearance,
		TicketsCompleted: p.TicketsCompleted,
	}
	if p.AFK != nil {
		resp.AFK = &afkView{
			Reason: p.AFK.Reason,
			Since:  p.AFK.Since,
			For:    coarseDuration(p.AFK.Since),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
