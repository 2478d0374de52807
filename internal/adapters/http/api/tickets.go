package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/atomicvault/vaultpulse/internal/domain/ticket"
)

// TicketDependencies defines the interface for the ticket workflow.
type TicketDependencies interface {
	IsOperator(userID string) bool
	CreateTicket(ctx context.Context, customerID, operatorID, label string) (ticket.Codes, error)
	StartTicket(ctx context.Context, customerID, code string) error
	CompleteTicket(ctx context.Context, customerID, code, operatorID string) (ticket.Receipt, error)
	CancelTicket(ctx context.Context, customerID, code, reason string) (ticket.Snapshot, error)
	ViewTicket(ctx context.Context, customerID string) (ticket.Ticket, bool, error)
	ListTickets(ctx context.Context) ([]ticket.Ticket, error)
}

// TicketsHandler handles the ticket collection and per-ticket transitions.
type TicketsHandler struct {
	deps TicketDependencies
}

// NewTicketsHandler creates a new tickets handler.
func NewTicketsHandler(deps TicketDependencies) *TicketsHandler {
	return &TicketsHandler{deps: deps}
}

type createTicketRequest struct {
	CustomerID string `json:"customer_id"`
	Label      string `json:"label"`
}

func (c createTicketRequest) validate() error {
	switch {
	case strings.TrimSpace(c.CustomerID) == "":
		return errors.New("missing customer_id")
	case strings.TrimSpace(c.Label) == "":
		return errors.New("missing label")
	}
	return nil
}

type codesResponse struct {
	CustomerID string `json:"customer_id"`
	StartCode  string `json:"start_code"`
	EndCode    string `json:"end_code"`
	CancelCode string `json:"cancel_code"`
}

type transitionRequest struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

type ticketView struct {
	CustomerID string `json:"customer_id"`
	Label      string `json:"label"`
	OperatorID string `json:"operator_id"`
	Status     string `json:"status"`
	StartCode  string `json:"start_code,omitempty"`
	EndCode    string `json:"end_code,omitempty"`
	CancelCode string `json:"cancel_code,omitempty"`
}

type receiptResponse struct {
	ReceiptID      string    `json:"receipt_id"`
	Label          string    `json:"label"`
	CustomerID     string    `json:"customer_id"`
	OperatorID     string    `json:"operator_id"`
	CompletedTotal int64     `json:"completed_total"`
	CompletedAt    time.Time `json:"completed_at"`
}

type cancelResponse struct {
	Label      string `json:"label"`
	CustomerID string `json:"customer_id"`
	OperatorID string `json:"operator_id"`
	Reason     string `json:"reason"`
}

func viewFrom(t ticket.Ticket) ticketView {
	return ticketView{
		CustomerID: t.CustomerID,
		Label:      t.Label,
		OperatorID: t.OperatorID,
		Status:     string(t.Status),
		StartCode:  t.StartCode,
		EndCode:    t.EndCode,
		CancelCode: t.CancelCode,
	}
}

// HandleTickets handles the /tickets collection: POST creates, GET lists.
// Both are operator-only.
func (h *TicketsHandler) HandleTickets(w http.ResponseWriter, r *http.Request) {
	const op = "api.tickets"
	actor := r.Header.Get(ActorHeader)
	if !h.deps.IsOperator(actor) {
		writeError(w, http.StatusForbidden, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req createTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		codes, err := h.deps.CreateTicket(r.Context(), req.CustomerID, actor, req.Label)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusCreated, codesResponse{
			CustomerID: req.CustomerID,
			StartCode:  codes.Start,
			EndCode:    codes.End,
			CancelCode: codes.Cancel,
		})
	case http.MethodGet:
		tickets, err := h.deps.ListTickets(r.Context())
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		out := make([]ticketView, len(tickets))
		for i, t := range tickets {
			out[i] = viewFrom(t)
		}
		writeJSON(w, http.StatusOK, out)
	default:
		http.NotFound(w, r)
	}
}

// HandleTicket handles /tickets/{customer_id} and its transition
// sub-resources: /start, /complete and /cancel.
func (h *TicketsHandler) HandleTicket(w http.ResponseWriter, r *http.Request) {
	const op = "api.ticket"
	rest := strings.TrimPrefix(r.URL.Path, "/tickets/")
	customerID, action, _ := strings.Cut(rest, "/")
	if customerID == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if action == "" {
		h.handleView(w, r, customerID)
		return
	}
	h.handleTransition(w, r, customerID, action)
}

// handleView returns the customer's open ticket, codes included. Only the
// owning customer or an operator may read it.
func (h *TicketsHandler) handleView(w http.ResponseWriter, r *http.Request, customerID string) {
	const op = "api.view_ticket"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	actor := r.Header.Get(ActorHeader)
	if actor != customerID && !h.deps.IsOperator(actor) {
		writeError(w, http.StatusForbidden, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	t, found, err := h.deps.ViewTicket(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, ticket.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, viewFrom(t))
}

func (h *TicketsHandler) handleTransition(w http.ResponseWriter, r *http.Request, customerID, action string) {
	const op = "api.ticket_transition"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	switch action {
	case "start":
		if err := h.deps.StartTicket(r.Context(), customerID, req.Code); err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"customer_id": customerID,
			"status":      string(ticket.StatusInProgress),
		})
	case "complete":
		actor := r.Header.Get(ActorHeader)
		if !h.deps.IsOperator(actor) {
			writeError(w, http.StatusForbidden, "unauthorized", NewKind(op, ErrUnauthorized))
			return
		}
		receipt, err := h.deps.CompleteTicket(r.Context(), customerID, req.Code, actor)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, receiptResponse{
			ReceiptID:      receipt.ID,
			Label:          receipt.Label,
			CustomerID:     receipt.CustomerID,
			OperatorID:     receipt.OperatorID,
			CompletedTotal: receipt.CompletedTotal,
			CompletedAt:    receipt.CompletedAt,
		})
	case "cancel":
		snap, err := h.deps.CancelTicket(r.Context(), customerID, req.Code, req.Reason)
		if err != nil {
			writeDomainError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, cancelResponse{
			Label:      snap.Label,
			CustomerID: snap.CustomerID,
			OperatorID: snap.OperatorID,
			Reason:     snap.Reason,
		})
	default:
		http.NotFound(w, r)
	}
}
