// Package dashboard maintains the periodically republished pulse message.
//
// State-changing operations mark the dashboard dirty instead of spawning
// their own refresh tasks; one loop drains the dirty flag and the fixed
// interval tick. The display is a cache, so overlapping refreshes resolve
// as last-write-wins.
package dashboard

import (
	"context"
	"time"

	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
	"github.com/atomicvault/vaultpulse/internal/domain/vouch"
	"github.com/atomicvault/vaultpulse/pkg/logger"
	"github.com/atomicvault/vaultpulse/pkg/metrics"
)

const (
	configCollection = "bot_config"
	configKey        = "pulse"

	defaultInterval = 60 * time.Second
)

// Snapshot is the aggregate shown on the pulse dashboard.
type Snapshot struct {
	ChannelID      string    `json:"channel_id,omitempty"`
	TotalVouches   int64     `json:"total_vouches"`
	TopContributor string    `json:"top_contributor,omitempty"`
	TopCount       int64     `json:"top_count"`
	Population     int       `json:"population"`
	ActiveTickets  int       `json:"active_tickets"`
	RecentAction   string    `json:"recent_action,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Publisher delivers the snapshot to the messaging-client collaborator.
type Publisher interface {
	// Edit updates a previously published message. An error means the
	// message is gone and the caller should publish a new one.
	Edit(ctx context.Context, channelID, messageID string, s Snapshot) error

	// Publish posts a new message and returns its identifier.
	Publish(ctx context.Context, channelID string, s Snapshot) (string, error)
}

// Source provides the aggregates the snapshot is built from.
type Source interface {
	VouchSummary(ctx context.Context) (vouch.Summary, error)
	Population(ctx context.Context) (int, error)
	ActiveTickets(ctx context.Context) (int, error)
}

// Refresher owns the dashboard config record and the refresh loop.
type Refresher struct {
	store     repository.Store
	source    Source
	publisher Publisher
	interval  time.Duration
	dirty     chan struct{}
	logger    logger.Logger
}

// Option applies a configuration option to the Refresher.
type Option func(*Refresher)

// WithInterval sets the periodic refresh interval.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Refresher) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Refresher.
func New(store repository.Store, source Source, publisher Publisher, opts ...Option) *Refresher {
	r := &Refresher{
		store:     store,
		source:    source,
		publisher: publisher,
		interval:  defaultInterval,
		dirty:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Named("dashboard")
	}
	return r
}

// Place points the dashboard at a channel and resets the published message.
func (r *Refresher) Place(ctx context.Context, channelID, actor string) error {
	err := r.store.Upsert(ctx, configCollection, configKey, repository.Record{
		"channel_id":    channelID,
		"last_msg_id":   "",
		"recent_action": "Pulse placed by " + actor,
	})
	if err != nil {
		return err
	}
	r.MarkDirty()
	return nil
}

// RecordAction updates the free-text recent activity label.
func (r *Refresher) RecordAction(ctx context.Context, text string) error {
	err := r.store.Upsert(ctx, configCollection, configKey, repository.Record{
		"recent_action": text,
	})
	if err != nil {
		return err
	}
	r.MarkDirty()
	return nil
}

// MarkDirty requests a refresh ahead of the next tick. Repeated marks
// between drains collapse into one.
func (r *Refresher) MarkDirty() {
	select {
	case r.dirty <- struct{}{}:
	default:
	}
}

// Run drives the refresh loop until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.dirty:
			r.refresh(ctx)
		}
	}
}

// Snapshot builds the current aggregate without publishing it.
func (r *Refresher) Snapshot(ctx context.Context) (Snapshot, error) {
	sum, err := r.source.VouchSummary(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	population, err := r.source.Population(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	active, err := r.source.ActiveTickets(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		TotalVouches:   sum.Total,
		TopContributor: sum.TopUser,
		TopCount:       sum.TopCount,
		Population:     population,
		ActiveTickets:  active,
		GeneratedAt:    time.Now().UTC(),
	}

	cfg, ok, err := r.store.Get(ctx, configCollection, configKey)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		snap.ChannelID = cfg["channel_id"]
		snap.RecentAction = cfg["recent_action"]
	}

	metrics.UpdateTrackedMembers(population)
	metrics.UpdateActiveTickets(active)

	return snap, nil
}

// Refresh recomputes the snapshot and republishes the dashboard message.
// Without a placed channel this is a no-op.
func (r *Refresher) Refresh(ctx context.Context) {
	r.refresh(ctx)
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now()

	cfg, ok, err := r.store.Get(ctx, configCollection, configKey)
	if err != nil {
		r.logger.Error(ctx, "failed to load dashboard config", logger.Error(err))
		return
	}
	if !ok || cfg["channel_id"] == "" {
		return
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		r.logger.Error(ctx, "failed to build dashboard snapshot", logger.Error(err))
		return
	}

	channelID := cfg["channel_id"]
	if msgID := cfg["last_msg_id"]; msgID != "" {
		if err := r.publisher.Edit(ctx, channelID, msgID, snap); err == nil {
			r.finish(start)
			return
		}
		// Edit failure means the message is gone; publish a fresh one.
	}

	msgID, err := r.publisher.Publish(ctx, channelID, snap)
	if err != nil {
		r.logger.Error(ctx, "failed to publish dashboard", logger.Error(err))
		return
	}
	err = r.store.Upsert(ctx, configCollection, configKey, repository.Record{
		"last_msg_id": msgID,
	})
	if err != nil {
		r.logger.Error(ctx, "failed to save dashboard message id", logger.Error(err))
	}
	r.finish(start)
}

func (r *Refresher) finish(start time.Time) {
	metrics.RecordDashboardRefresh()
	metrics.RecordDashboardRefreshDuration(float64(time.Since(start).Microseconds()) / 1000.0)
}
