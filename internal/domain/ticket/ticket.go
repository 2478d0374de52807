// Package ticket implements the service ticket workflow: one open ticket
// per customer, guarded by three independently generated one-time codes.
package ticket

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
	"github.com/atomicvault/vaultpulse/pkg/metrics"
)

const (
	activeCollection = "active_services"
	statsCollection  = "service_stats"
)

// Status is the lifecycle state of an open ticket. Terminal states are not
// stored; completion and cancellation delete the record.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
)

// Ticket is the stored shape of one open service job.
type Ticket struct {
	CustomerID string
	Label      string
	OperatorID string
	Status     Status
	StartCode  string
	EndCode    string
	CancelCode string
}

// Codes carries the three one-time codes returned exactly once at creation.
// Callers must deliver them to the customer out-of-band.
type Codes struct {
	Start  string
	End    string
	Cancel string
}

// Receipt is the completion snapshot emitted when a ticket finishes.
type Receipt struct {
	ID             string
	Label          string
	CustomerID     string
	OperatorID     string
	CompletedTotal int64
	CompletedAt    time.Time
}

// Snapshot is the cancellation record returned for logging.
type Snapshot struct {
	Label      string
	CustomerID string
	OperatorID string
	Reason     string
}

// Service runs the ticket state machine against the record store.
// Authorization is the caller's concern; the service assumes the operator
// identity it is handed has already been checked.
type Service struct {
	store    repository.Store
	genCode  func() (string, error)
	receipts func() string
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCodeGenerator overrides one-time code generation, used by tests.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.genCode = gen
		}
	}
}

// New creates a ticket Service over the given store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		genCode:  func() (string, error) { return GenerateCode(CodeLength) },
		receipts: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a ticket for the customer and returns its three codes. A
// customer with an open ticket must cancel or complete it first.
func (s *Service) Create(ctx context.Context, customerID, operatorID, label string) (Codes, error) {
	_, exists, err := s.store.Get(ctx, activeCollection, customerID)
	if err != nil {
		return Codes{}, err
	}
	if exists {
		return Codes{}, ErrTicketExists
	}

	var codes Codes
	for _, c := range []*string{&codes.Start, &codes.End, &codes.Cancel} {
		code, err := s.genCode()
		if err != nil {
			return Codes{}, err
		}
		*c = code
	}

	err = s.store.Upsert(ctx, activeCollection, customerID, repository.Record{
		"name":     label,
		"staff_id": operatorID,
		"s_otp":    codes.Start,
		"e_otp":    codes.End,
		"c_otp":    codes.Cancel,
		"status":   string(StatusPending),
	})
	if err != nil {
		return Codes{}, err
	}
	metrics.RecordTicketCreated()
	return codes, nil
}

// Start transitions a PENDING ticket to IN_PROGRESS when the start code
// matches. A ticket already in progress is rejected with ErrInvalidState.
func (s *Service) Start(ctx context.Context, customerID, code string) error {
	rec, ok, err := s.store.Get(ctx, activeCollection, customerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if code == "" || code != rec["s_otp"] {
		return ErrInvalidCode
	}
	if Status(rec["status"]) != StatusPending {
		return ErrInvalidState
	}
	return s.store.Upsert(ctx, activeCollection, customerID, repository.Record{
		"status": string(StatusInProgress),
	})
}

// Complete finishes a ticket: the end code must match, the operator's
// completion counter is incremented exactly once, and the ticket is removed.
// The delete is the commit point: of two concurrent completions with the
// correct code, only the one that removes the record credits the operator;
// the other reads as ErrNotFound.
func (s *Service) Complete(ctx context.Context, customerID, code, operatorID string) (Receipt, error) {
	rec, ok, err := s.store.Get(ctx, activeCollection, customerID)
	if err != nil {
		return Receipt{}, err
	}
	if !ok {
		return Receipt{}, ErrNotFound
	}
	if code == "" || code != rec["e_otp"] {
		return Receipt{}, ErrInvalidCode
	}

	removed, err := s.store.Delete(ctx, activeCollection, customerID)
	if err != nil {
		return Receipt{}, err
	}
	if !removed {
		return Receipt{}, ErrNotFound
	}
	total, err := s.store.Increment(ctx, statsCollection, operatorID, "completed", 1)
	if err != nil {
		return Receipt{}, err
	}
	metrics.RecordTicketCompleted()
	return Receipt{
		ID:             s.receipts(),
		Label:          rec["name"],
		CustomerID:     customerID,
		OperatorID:     operatorID,
		CompletedTotal: total,
		CompletedAt:    time.Now().UTC(),
	}, nil
}

// Cancel voids a ticket at any open state when the cancel code matches.
// The operator completion counter is unaffected.
func (s *Service) Cancel(ctx context.Context, customerID, code, reason string) (Snapshot, error) {
	rec, ok, err := s.store.Get(ctx, activeCollection, customerID)
	if err != nil {
		return Snapshot{}, err
	}
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if code == "" || code != rec["c_otp"] {
		return Snapshot{}, ErrInvalidCode
	}
	removed, err := s.store.Delete(ctx, activeCollection, customerID)
	if err != nil {
		return Snapshot{}, err
	}
	if !removed {
		return Snapshot{}, ErrNotFound
	}
	metrics.RecordTicketCancelled()
	return Snapshot{
		Label:      rec["name"],
		CustomerID: customerID,
		OperatorID: rec["staff_id"],
		Reason:     reason,
	}, nil
}

// View returns the customer's open ticket, codes included. The owning
// customer is the only caller allowed to see codes again after creation.
func (s *Service) View(ctx context.Context, customerID string) (Ticket, bool, error) {
	rec, ok, err := s.store.Get(ctx, activeCollection, customerID)
	if err != nil || !ok {
		return Ticket{}, false, err
	}
	return ticketFromRecord(customerID, rec), true, nil
}

// ListActive returns every open ticket with codes stripped, in stable order.
func (s *Service) ListActive(ctx context.Context) ([]Ticket, error) {
	all, err := s.store.All(ctx, activeCollection)
	if err != nil {
		return nil, err
	}
	out := make([]Ticket, 0, len(all))
	for _, kr := range all {
		t := ticketFromRecord(kr.Key, kr.Record)
		t.StartCode, t.EndCode, t.CancelCode = "", "", ""
		out = append(out, t)
	}
	return out, nil
}

// ActiveCount returns the number of open tickets.
func (s *Service) ActiveCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx, activeCollection)
}

// CompletedBy returns an operator's completion total; absent reads as zero.
func (s *Service) CompletedBy(ctx context.Context, operatorID string) (int64, error) {
	rec, ok, err := s.store.Get(ctx, statsCollection, operatorID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return rec.Int64("completed"), nil
}

func ticketFromRecord(customerID string, rec repository.Record) Ticket {
	return Ticket{
		CustomerID: customerID,
		Label:      rec["name"],
		OperatorID: rec["staff_id"],
		Status:     Status(rec["status"]),
		StartCode:  rec["s_otp"],
		EndCode:    rec["e_otp"],
		CancelCode: rec["c_otp"],
	}
}
