// Package vouch implements the peer endorsement ledger and the clearance
// tiers derived from it.
package vouch

import (
	"context"

	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
)

const (
	defaultCollection = "vouches"

	// Clearance tier thresholds.
	eliteThreshold   = 25
	trustedThreshold = 10
)

// Clearance labels. Core members carry their configured display name instead.
const (
	ClearanceElite   = "ELITE"
	ClearanceTrusted = "TRUSTED"
	ClearanceMember  = "MEMBER"
)

// Summary aggregates the ledger for the dashboard.
type Summary struct {
	Total    int64
	TopUser  string
	TopCount int64
}

// Service counts endorsements against the record store.
type Service struct {
	store      repository.Store
	collection string
	core       map[string]string // identity -> display name
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCoreTeam sets the privileged allow-list used for clearance labels.
func WithCoreTeam(core map[string]string) Option {
	return func(s *Service) {
		if core != nil {
			s.core = core
		}
	}
}

// New creates a vouch Service over the given store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		collection: defaultCollection,
		core:       map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Give records one endorsement from one member to another and returns the
// recipient's new total. Self-endorsement never mutates the record.
func (s *Service) Give(ctx context.Context, from, to string) (int64, error) {
	if from == to {
		return 0, ErrSelfVouch
	}
	return s.store.Increment(ctx, s.collection, to, "count", 1)
}

// Count returns a member's endorsement total; absent records read as zero.
func (s *Service) Count(ctx context.Context, userID string) (int64, error) {
	rec, ok, err := s.store.Get(ctx, s.collection, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return rec.Int64("count"), nil
}

// Clearance derives the trust tier for a member from their vouch count.
// Core members always resolve to their configured display name.
func (s *Service) Clearance(userID string, count int64) string {
	if name, ok := s.core[userID]; ok {
		return name
	}
	switch {
	case count >= eliteThreshold:
		return ClearanceElite
	case count >= trustedThreshold:
		return ClearanceTrusted
	default:
		return ClearanceMember
	}
}

// Summary sums the ledger and finds the top contributor.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	all, err := s.store.All(ctx, s.collection)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, kr := range all {
		count := kr.Record.Int64("count")
		sum.Total += count
		if count > sum.TopCount {
			sum.TopCount = count
			sum.TopUser = kr.Key
		}
	}
	return sum, nil
}
