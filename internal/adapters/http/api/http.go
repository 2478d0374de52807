// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
	"github.com/atomicvault/vaultpulse/internal/dashboard"
	"github.com/atomicvault/vaultpulse/internal/domain/dedupe"
	"github.com/atomicvault/vaultpulse/internal/domain/leveling"
	"github.com/atomicvault/vaultpulse/internal/domain/model"
	"github.com/atomicvault/vaultpulse/internal/domain/ticket"
	"github.com/atomicvault/vaultpulse/internal/domain/vouch"
)

// ActorHeader identifies the caller on operations that need authorization.
// The messaging-client collaborator is trusted to set it truthfully.
const ActorHeader = "X-Actor-ID"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an activity event for async processing. Returns false
	// on backpressure.
	Enqueue(ctx context.Context, e model.ActivityEvent) bool

	// Read operations expose the experience ledger.
	Progress(ctx context.Context, userID string) (leveling.Progress, error)
	Leaderboard(ctx context.Context, n int) ([]repository.Entry, error)

	// Vouch and profile operations.
	GiveVouch(ctx context.Context, from, to string) (int64, string, error)
	Profile(ctx context.Context, userID string) (model.Profile, error)

	// Ticket workflow. IsOperator gates the operator-only transitions.
	IsOperator(userID string) bool
	CreateTicket(ctx context.Context, customerID, operatorID, label string) (ticket.Codes, error)
	StartTicket(ctx context.Context, customerID, code string) error
	CompleteTicket(ctx context.Context, customerID, code, operatorID string) (ticket.Receipt, error)
	CancelTicket(ctx context.Context, customerID, code, reason string) (ticket.Snapshot, error)
	ViewTicket(ctx context.Context, customerID string) (ticket.Ticket, bool, error)
	ListTickets(ctx context.Context) ([]ticket.Ticket, error)

	// AFK state.
	SetAFK(userID, reason string) model.AFKStatus

	// Dashboard placement and reads.
	PlaceDashboard(ctx context.Context, channelID, actor string) error
	DashboardSnapshot(ctx context.Context) (dashboard.Snapshot, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	eventsHandler    *EventsHandler
	progressHandler  *ProgressHandler
	lbHandler        *LeaderboardHandler
	vouchHandler     *VouchHandler
	profileHandler   *ProfileHandler
	ticketsHandler   *TicketsHandler
	afkHandler       *AFKHandler
	dashboardHandler *DashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		eventsHandler:    NewEventsHandler(deps),
		progressHandler:  NewProgressHandler(deps),
		lbHandler:        NewLeaderboardHandler(deps, maxLeaderboardLimit),
		vouchHandler:     NewVouchHandler(deps),
		profileHandler:   NewProfileHandler(deps),
		ticketsHandler:   NewTicketsHandler(deps),
		afkHandler:       NewAFKHandler(deps),
		dashboardHandler: NewDashboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/progress/", MetricsMiddleware(s.progressHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.lbHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/vouches", MetricsMiddleware(s.vouchHandler.HandlePostVouch, "vouches"))
	mux.HandleFunc("/profile/", MetricsMiddleware(s.profileHandler.HandleGetProfile, "profile"))
	mux.HandleFunc("/tickets", MetricsMiddleware(s.ticketsHandler.HandleTickets, "tickets"))
	mux.HandleFunc("/tickets/", MetricsMiddleware(s.ticketsHandler.HandleTicket, "tickets"))
	mux.HandleFunc("/afk", MetricsMiddleware(s.afkHandler.HandlePostAFK, "afk"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain sentinels to their HTTP shape. The
// store being unreachable is a 503, never a 404: absence and unavailability
// are different answers.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, ticket.ErrInvalidCode):
		writeError(w, http.StatusForbidden, "invalid_code", Wrap(op, err))
	case errors.Is(err, ticket.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", Wrap(op, err))
	case errors.Is(err, ticket.ErrTicketExists):
		writeError(w, http.StatusConflict, "ticket_exists", Wrap(op, err))
	case errors.Is(err, vouch.ErrSelfVouch):
		writeError(w, http.StatusUnprocessableEntity, "self_vouch", Wrap(op, err))
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
