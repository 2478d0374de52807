package model

import (
	"github.com/atomicvault/vaultpulse/internal/domain/leveling"
)

// Profile aggregates a member's standing across every ledger in one read.
type Profile struct {
	Progress         leveling.Progress
	Vouches          int64
	Clearance        string
	TicketsCompleted int64
	AFK              *AFKStatus
}
