// Package model contains domain models passed between layers.
package model

import "time"

// ActivityEvent represents one qualifying message-activity event delivered
// by the messaging-client collaborator.
type ActivityEvent struct {
	EventID string    // unique id for idempotency
	UserID  string    // identity of the member who was active
	TS      time.Time // event timestamp
}

// AFKStatus records a member's away state between two activity events.
type AFKStatus struct {
	Reason string
	Since  time.Time
}
