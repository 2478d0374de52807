package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/atomicvault/vaultpulse/internal/domain/leveling"
)

// ProgressDependencies defines the interface for progress reads.
type ProgressDependencies interface {
	Progress(ctx context.Context, userID string) (leveling.Progress, error)
}

// ProgressHandler handles member progress reads.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

type progressResponse struct {
	UserID    string `json:"user_id"`
	Level     int64  `json:"level"`
	TotalXP   int64  `json:"total_xp"`
	IntoLevel int64  `json:"into_level"`
	Title     string `json:"title"`
}

// HandleGetProgress handles GET /progress/{user_id} requests. A member
// without a record reads as level zero rather than 404.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_progress"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/progress/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.Progress(r.Context(), userID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		UserID:    p.UserID,
		Level:     p.Level,
		TotalXP:   p.Total,
		IntoLevel: p.IntoLevel,
		Title:     p.Title,
	})
}
