// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	eventqueue "github.com/atomicvault/vaultpulse/internal/adapters/mq/queue"
	workerpool "github.com/atomicvault/vaultpulse/internal/adapters/mq/worker"
	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
	"github.com/atomicvault/vaultpulse/internal/dashboard"
	"github.com/atomicvault/vaultpulse/internal/domain/dedupe"
	"github.com/atomicvault/vaultpulse/internal/domain/leveling"
	"github.com/atomicvault/vaultpulse/internal/domain/model"
	"github.com/atomicvault/vaultpulse/internal/domain/ticket"
	"github.com/atomicvault/vaultpulse/internal/domain/vouch"
	"github.com/atomicvault/vaultpulse/pkg/logger"
	"github.com/atomicvault/vaultpulse/pkg/metrics"
)

// Service wires the domain components together and owns process-wide state
// that has no ledger of its own (the AFK map).
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ledger    *leveling.Ledger
	vouches   *vouch.Service
	tickets   *ticket.Service
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool
	refresher *dashboard.Refresher
	publisher dashboard.Publisher

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	pointsPerLevel  int64
	snapshotPath    string
	refreshInterval time.Duration
	coreTeam        map[string]string

	// AFK state has its own lock so workers never contend with the
	// lifecycle mutex held during Stop.
	afkMu sync.RWMutex
	afk   map[string]model.AFKStatus

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built record store. Without it the service
// creates an in-memory store on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPointsPerLevel sets the experience level granularity.
func WithPointsPerLevel(points int64) Option {
	return func(s *Service) {
		if points > 0 {
			s.pointsPerLevel = points
		}
	}
}

// WithSnapshotPath persists the default memory store to a JSON file.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.snapshotPath = path
	}
}

// WithRefreshInterval sets the dashboard refresh interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithCoreTeam sets the privileged operator allow-list.
func WithCoreTeam(core map[string]string) Option {
	return func(s *Service) {
		if core != nil {
			s.coreTeam = core
		}
	}
}

// WithPublisher sets the dashboard message publisher.
func WithPublisher(p dashboard.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     4,
		queueSize:       10_000,
		dedupeSize:      50_000,
		pointsPerLevel:  leveling.DefaultPointsPerLevel,
		refreshInterval: 60 * time.Second,
		coreTeam:        map[string]string{},
		afk:             map[string]model.AFKStatus{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting vault pulse service...")

	if s.store == nil {
		var memOpts []repository.MemoryOption
		if s.snapshotPath != "" {
			memOpts = append(memOpts, repository.WithSnapshotPath(s.snapshotPath))
		}
		store, err := repository.NewMemoryStore(memOpts...)
		if err != nil {
			return err
		}
		s.store = store
		s.logger.Info(ctx, "using memory store", logger.String("snapshotPath", s.snapshotPath))
	}

	s.ledger = leveling.New(s.store, leveling.WithPointsPerLevel(s.pointsPerLevel))
	s.vouches = vouch.New(s.store, vouch.WithCoreTeam(s.coreTeam))
	s.tickets = ticket.New(s.store)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	if s.publisher == nil {
		s.publisher = dashboard.NewLogPublisher()
	}
	s.refresher = dashboard.New(s.store, s, s.publisher,
		dashboard.WithInterval(s.refreshInterval),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)
	go s.refresher.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "vault pulse service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int64("pointsPerLevel", s.pointsPerLevel),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping vault pulse service...")

	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "vault pulse service stopped")
}

// SeenAndRecord atomically checks if an event id was seen and records it if
// not. Returns true if the event was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordActivityDuplicate()
	}
	return seen
}

// Unrecord removes an event id from the seen list, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits an activity event for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, e model.ActivityEvent) bool {
	return s.queue.Enqueue(ctx, e)
}

// RecordActivity applies one activity event to the experience ledger.
// Core members accrue at the privileged rate; activity clears AFK state.
func (s *Service) RecordActivity(ctx context.Context, userID string) (leveling.Result, error) {
	_, privileged := s.coreTeam[userID]
	res, err := s.ledger.RecordActivity(ctx, userID, privileged)
	if err != nil {
		return leveling.Result{}, err
	}
	s.clearAFK(userID)
	return res, nil
}

// NotifyLevelUp records the level-up on the dashboard and logs it.
func (s *Service) NotifyLevelUp(ctx context.Context, res leveling.Result) {
	s.logger.Info(ctx, "member leveled up",
		logger.String("userID", res.UserID),
		logger.Int64("level", res.NewLevel),
		logger.String("title", res.Title),
	)
	if err := s.refresher.RecordAction(ctx, res.UserID+" reached level "+res.Title); err != nil {
		s.logger.Warn(ctx, "failed to record level-up action", logger.Error(err))
	}
}

// Progress returns a member's current standing.
func (s *Service) Progress(ctx context.Context, userID string) (leveling.Progress, error) {
	return s.ledger.Progress(ctx, userID)
}

// Leaderboard returns the top n members by experience.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.ledger.Leaderboard(ctx, n)
}

// GiveVouch records an endorsement and returns the recipient's new count
// and clearance label.
func (s *Service) GiveVouch(ctx context.Context, from, to string) (int64, string, error) {
	count, err := s.vouches.Give(ctx, from, to)
	if err != nil {
		return 0, "", err
	}
	metrics.RecordVouch()
	if err := s.refresher.RecordAction(ctx, from+" vouched for "+to); err != nil {
		s.logger.Warn(ctx, "failed to record vouch action", logger.Error(err))
	}
	return count, s.vouches.Clearance(to, count), nil
}

// Profile aggregates a member's levels, vouches, clearance, ticket stats
// and AFK state in one read.
func (s *Service) Profile(ctx context.Context, userID string) (model.Profile, error) {
	progress, err := s.ledger.Progress(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	count, err := s.vouches.Count(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	completed, err := s.tickets.CompletedBy(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	p := model.Profile{
		Progress:         progress,
		Vouches:          count,
		Clearance:        s.vouches.Clearance(userID, count),
		TicketsCompleted: completed,
	}
	if afk, ok := s.AFKStatus(userID); ok {
		p.AFK = &afk
	}
	return p, nil
}

// IsOperator reports whether the identity is on the core-team allow-list.
func (s *Service) IsOperator(userID string) bool {
	_, ok := s.coreTeam[userID]
	return ok
}

// CreateTicket opens a ticket for the customer and returns its codes.
func (s *Service) CreateTicket(ctx context.Context, customerID, operatorID, label string) (ticket.Codes, error) {
	codes, err := s.tickets.Create(ctx, customerID, operatorID, label)
	if err != nil {
		return ticket.Codes{}, err
	}
	if err := s.refresher.RecordAction(ctx, "Service opened for "+customerID); err != nil {
		s.logger.Warn(ctx, "failed to record ticket action", logger.Error(err))
	}
	return codes, nil
}

// StartTicket transitions a pending ticket to in-progress.
func (s *Service) StartTicket(ctx context.Context, customerID, code string) error {
	if err := s.tickets.Start(ctx, customerID, code); err != nil {
		return err
	}
	if err := s.refresher.RecordAction(ctx, "Service started for "+customerID); err != nil {
		s.logger.Warn(ctx, "failed to record ticket action", logger.Error(err))
	}
	return nil
}

// CompleteTicket finishes a ticket and credits the operator.
func (s *Service) CompleteTicket(ctx context.Context, customerID, code, operatorID string) (ticket.Receipt, error) {
	receipt, err := s.tickets.Complete(ctx, customerID, code, operatorID)
	if err != nil {
		return ticket.Receipt{}, err
	}
	if err := s.refresher.RecordAction(ctx, "Service completed for "+customerID); err != nil {
		s.logger.Warn(ctx, "failed to record ticket action", logger.Error(err))
	}
	return receipt, nil
}

// CancelTicket voids a ticket without crediting anyone.
func (s *Service) CancelTicket(ctx context.Context, customerID, code, reason string) (ticket.Snapshot, error) {
	snap, err := s.tickets.Cancel(ctx, customerID, code, reason)
	if err != nil {
		return ticket.Snapshot{}, err
	}
	if err := s.refresher.RecordAction(ctx, "Service cancelled for "+customerID); err != nil {
		s.logger.Warn(ctx, "failed to record ticket action", logger.Error(err))
	}
	return snap, nil
}

// ViewTicket returns the customer's open ticket, codes included.
func (s *Service) ViewTicket(ctx context.Context, customerID string) (ticket.Ticket, bool, error) {
	return s.tickets.View(ctx, customerID)
}

// ListTickets returns every open ticket with codes stripped.
func (s *Service) ListTickets(ctx context.Context) ([]ticket.Ticket, error) {
	return s.tickets.ListActive(ctx)
}

// SetAFK marks a member away with a reason.
func (s *Service) SetAFK(userID, reason string) model.AFKStatus {
	s.afkMu.Lock()
	defer s.afkMu.Unlock()
	status := model.AFKStatus{Reason: reason, Since: time.Now().UTC()}
	s.afk[userID] = status
	return status
}

// AFKStatus reads a member's away state.
func (s *Service) AFKStatus(userID string) (model.AFKStatus, bool) {
	s.afkMu.RLock()
	defer s.afkMu.RUnlock()
	status, ok := s.afk[userID]
	return status, ok
}

func (s *Service) afkCount() int {
	s.afkMu.RLock()
	defer s.afkMu.RUnlock()
	return len(s.afk)
}

func (s *Service) clearAFK(userID string) {
	s.afkMu.Lock()
	defer s.afkMu.Unlock()
	delete(s.afk, userID)
}

// PlaceDashboard points the pulse dashboard at a channel.
func (s *Service) PlaceDashboard(ctx context.Context, channelID, actor string) error {
	return s.refresher.Place(ctx, channelID, actor)
}

// DashboardSnapshot builds the current dashboard aggregate.
func (s *Service) DashboardSnapshot(ctx context.Context) (dashboard.Snapshot, error) {
	return s.refresher.Snapshot(ctx)
}

// VouchSummary implements dashboard.Source.
func (s *Service) VouchSummary(ctx context.Context) (vouch.Summary, error) {
	return s.vouches.Summary(ctx)
}

// Population implements dashboard.Source.
func (s *Service) Population(ctx context.Context) (int, error) {
	return s.ledger.TrackedMembers(ctx)
}

// ActiveTickets implements dashboard.Source.
func (s *Service) ActiveTickets(ctx context.Context) (int, error) {
	return s.tickets.ActiveCount(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"pointsPerLevel": s.pointsPerLevel,
		"afkMembers":     s.afkCount(),
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		if members, err := s.ledger.TrackedMembers(ctx); err == nil {
			stats["trackedMembers"] = members
			metrics.UpdateTrackedMembers(members)
		}
		if active, err := s.tickets.ActiveCount(ctx); err == nil {
			stats["activeTickets"] = active
			metrics.UpdateActiveTickets(active)
		}
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}

	return stats
}
