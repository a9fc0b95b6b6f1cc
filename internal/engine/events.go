package engine

import (
	"context"
	"time"

	"go-approvals/internal/models"
)

// EventType classifies outbound engine events
type EventType string

const (
	EventAssigned  EventType = "assigned"
	EventEscalated EventType = "escalated"
	EventCompleted EventType = "completed"
	EventExhausted EventType = "escalation_exhausted"
)

// Event is the fire-and-forget payload handed to the notification
// collaborator. Delivery failures are logged there, never surfaced here.
type Event struct {
	Type        EventType
	RequestID   string
	Subject     string
	LevelOrder  int
	ApproverIDs []string
	DueAt       time.Time
	Status      models.RequestStatus
}

// Notifier is the outbound notification contract. Implementations must not
// block engine state transitions on delivery.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

// AuditSink records engine actions for the retained audit trail. Failures
// are swallowed by implementations; auditing never vetoes a transition.
type AuditSink interface {
	Record(ctx context.Context, action models.AuditAction, requestID, actorID string, changes map[string]models.Change)
}

// ApproverResolver turns a level's resolution rule into concrete approver
// identities. It may return an empty set (the level auto-approves) but a
// failed directory lookup must surface as ErrDirectoryUnavailable.
type ApproverResolver interface {
	Resolve(ctx context.Context, rule models.ApproverRule, requesterID string) ([]string, error)
}
