// Package leveling implements the experience ledger: per-member point
// accrual, level derivation and level-up detection.
package leveling

import (
	"context"
	"math/rand"

	"github.com/atomicvault/vaultpulse/internal/adapters/repository"
)

// Default accrual configuration. Points per level is a tunable, not a
// protocol value.
const (
	DefaultPointsPerLevel = 100
	defaultCollection     = "levels"

	ordinaryMin   = 5
	ordinaryMax   = 15
	privilegedMin = 50
	privilegedMax = 150
)

// Result reports the outcome of one recorded activity event.
type Result struct {
	UserID    string
	Added     int64
	Total     int64
	OldLevel  int64
	NewLevel  int64
	Title     string
	LeveledUp bool
}

// Progress is the read shape for a member's current standing.
type Progress struct {
	UserID    string
	Level     int64
	Total     int64
	IntoLevel int64
	Title     string
}

// Ledger accumulates experience points against the record store.
type Ledger struct {
	store          repository.Store
	collection     string
	pointsPerLevel int64
	roll           func(privileged bool) int64
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithPointsPerLevel overrides the level granularity.
func WithPointsPerLevel(points int64) Option {
	return func(l *Ledger) {
		if points > 0 {
			l.pointsPerLevel = points
		}
	}
}

// WithRoll overrides the point roll, used by tests for determinism.
func WithRoll(roll func(privileged bool) int64) Option {
	return func(l *Ledger) {
		if roll != nil {
			l.roll = roll
		}
	}
}

// New creates a Ledger over the given store.
func New(store repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:          store,
		collection:     defaultCollection,
		pointsPerLevel: DefaultPointsPerLevel,
		roll:           defaultRoll,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func defaultRoll(privileged bool) int64 {
	if privileged {
		return privilegedMin + rand.Int63n(privilegedMax-privilegedMin+1) //nolint:gosec // accrual jitter, not security material
	}
	return ordinaryMin + rand.Int63n(ordinaryMax-ordinaryMin+1) //nolint:gosec // accrual jitter, not security material
}

// RecordActivity adds a rolled amount to the member's total and reports the
// level transition. When several levels are crossed at once only the final
// level's title is resolved; the caller notifies once per call.
func (l *Ledger) RecordActivity(ctx context.Context, userID string, privileged bool) (Result, error) {
	added := l.roll(privileged)
	total, err := l.store.Increment(ctx, l.collection, userID, "xp", added)
	if err != nil {
		return Result{}, err
	}

	oldLevel := (total - added) / l.pointsPerLevel
	newLevel := total / l.pointsPerLevel

	res := Result{
		UserID:   userID,
		Added:    added,
		Total:    total,
		OldLevel: oldLevel,
		NewLevel: newLevel,
	}
	if newLevel > oldLevel {
		res.LeveledUp = true
		res.Title = TitleFor(newLevel)
	}
	return res, nil
}

// Progress returns the member's level, total and points into the current
// level. A member without a record reads as zero.
func (l *Ledger) Progress(ctx context.Context, userID string) (Progress, error) {
	rec, ok, err := l.store.Get(ctx, l.collection, userID)
	if err != nil {
		return Progress{}, err
	}
	var total int64
	if ok {
		total = rec.Int64("xp")
	}
	level := total / l.pointsPerLevel
	return Progress{
		UserID:    userID,
		Level:     level,
		Total:     total,
		IntoLevel: total % l.pointsPerLevel,
		Title:     TitleFor(level),
	}, nil
}

// Leaderboard returns the top n members by total points.
func (l *Ledger) Leaderboard(ctx context.Context, n int) ([]repository.Entry, error) {
	return l.store.TopN(ctx, l.collection, "xp", n)
}

// TrackedMembers returns how many members hold an experience record.
func (l *Ledger) TrackedMembers(ctx context.Context) (int, error) {
	return l.store.Count(ctx, l.collection)
}

// PointsPerLevel exposes the configured level granularity.
func (l *Ledger) PointsPerLevel() int64 {
	return l.pointsPerLevel
}
