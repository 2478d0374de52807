package dashboard

import (
	"context"

	"github.com/google/uuid"

	"github.com/atomicvault/vaultpulse/pkg/logger"
)

// LogPublisher writes snapshots to the log. It stands in for the messaging
// client when none is wired, and keeps the refresh loop exercisable in
// development.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a publisher that logs instead of messaging.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: logger.Named("pulse")}
}

// Edit logs the updated snapshot against the existing message id.
func (p *LogPublisher) Edit(ctx context.Context, channelID, messageID string, s Snapshot) error {
	p.logger.Info(ctx, "dashboard updated",
		logger.String("channel", channelID),
		logger.String("message", messageID),
		logger.Int64("totalVouches", s.TotalVouches),
		logger.String("topContributor", s.TopContributor),
		logger.Int("population", s.Population),
		logger.Int("activeTickets", s.ActiveTickets),
	)
	return nil
}

// Publish logs the snapshot and mints a new message id.
func (p *LogPublisher) Publish(ctx context.Context, channelID string, s Snapshot) (string, error) {
	id := uuid.NewString()
	p.logger.Info(ctx, "dashboard published",
		logger.String("channel", channelID),
		logger.String("message", id),
		logger.Int64("totalVouches", s.TotalVouches),
		logger.String("topContributor", s.TopContributor),
		logger.Int("population", s.Population),
		logger.Int("activeTickets", s.ActiveTickets),
	)
	return id, nil
}
