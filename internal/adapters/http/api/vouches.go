package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// VouchDependencies defines the interface for recording endorsements.
type VouchDependencies interface {
	GiveVouch(ctx context.Context, from, to string) (int64, string, error)
}

// VouchHandler handles endorsement requests.
type VouchHandler struct {
	deps VouchDependencies
}

// NewVouchHandler creates a new vouch handler.
func NewVouchHandler(deps VouchDependencies) *VouchHandler {
	return &VouchHandler{deps: deps}
}

type vouchRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (v vouchRequest) validate() error {
	switch {
	case strings.TrimSpace(v.From) == "":
		return errors.New("missing from")
	case strings.TrimSpace(v.To) == "":
		return errors.New("missing to")
	}
	return nil
}

type vouchResponse struct {
	UserID    string `json:"user_id"`
	Count     int64  `json:"count"`
	Clearance string `json:"clearance"`
}

// HandlePostVouch handles POST /vouches requests.
func (h *VouchHandler) HandlePostVouch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vouch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req vouchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	count, clearance, err := h.deps.GiveVouch(r.Context(), req.From, req.To)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, vouchResponse{
		UserID:    req.To,
		Count:     count,
		Clearance: clearance,
	})
}
