package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is the lifecycle state of an approval request
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusRecalled  RequestStatus = "recalled"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible
func (s RequestStatus) Terminal() bool {
	return s != RequestStatusPending
}

// SLAStatus is derived from now vs the current level's due time; it is
// recomputed on read and never persisted as a source of truth
type SLAStatus string

const (
	SLAOnTrack  SLAStatus = "on_track"
	SLAAtRisk   SLAStatus = "at_risk"
	SLABreached SLAStatus = "breached"
)

// DecisionAction is what an approver records at a level
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// SystemActorID marks decisions originated by the engine itself, e.g. the
// auto-approval of a level whose approver set resolved empty
const SystemActorID = "system"

// DecisionRecord is one approver's recorded decision at a level
type DecisionRecord struct {
	ApproverID string         `bson:"approver_id" json:"approver_id"`
	Action     DecisionAction `bson:"action" json:"action"`
	Comment    string         `bson:"comment" json:"comment"`
	System     bool           `bson:"system,omitempty" json:"system,omitempty"`
	DecidedAt  time.Time      `bson:"decided_at" json:"decided_at"`
}

// LevelState tracks one activated level group of a request
type LevelState struct {
	LevelOrder      int              `bson:"level_order" json:"level_order"`
	Name            string           `bson:"name" json:"name"`
	IsParallel      bool             `bson:"is_parallel" json:"is_parallel"`
	Approvers       []string         `bson:"approvers" json:"approvers"`
	Decisions       []DecisionRecord `bson:"decisions" json:"decisions"`
	ActivatedAt     time.Time        `bson:"activated_at" json:"activated_at"`
	DueAt           time.Time        `bson:"due_at" json:"due_at"`
	SLAHours        int              `bson:"sla_hours" json:"sla_hours"`
	EscalationCount int              `bson:"escalation_count" json:"escalation_count"`
	ExhaustedAt     *time.Time       `bson:"exhausted_at,omitempty" json:"exhausted_at,omitempty"`
}

// DecisionBy returns the decision recorded by the given approver, or nil
func (l *LevelState) DecisionBy(approverID string) *DecisionRecord {
	for i := range l.Decisions {
		if l.Decisions[i].ApproverID == approverID {
			return &l.Decisions[i]
		}
	}
	return nil
}

// AllApproved reports whether every resolved approver has approved
func (l *LevelState) AllApproved() bool {
	for _, id := range l.Approvers {
		d := l.DecisionBy(id)
		if d == nil || d.Action != ActionApprove {
			return false
		}
	}
	return true
}

// SLAStatusAt is a pure function of the stored due time and the template's
// escalation window
func (l *LevelState) SLAStatusAt(now time.Time, escalationHours int) SLAStatus {
	if now.Before(l.DueAt) {
		return SLAOnTrack
	}
	if now.Before(l.DueAt.Add(time.Duration(escalationHours) * time.Hour)) {
		return SLAAtRisk
	}
	return SLABreached
}

// TransactionRef is the caller-supplied snapshot of the business transaction.
// The engine surfaces these fields but never recomputes them.
type TransactionRef struct {
	RefID       string  `bson:"ref_id" json:"ref_id"`
	Subject     string  `bson:"subject" json:"subject"`
	Amount      float64 `bson:"amount" json:"amount"`
	Currency    string  `bson:"currency" json:"currency"`
	RequesterID string  `bson:"requester_id" json:"requester_id"`
	RiskLevel   string  `bson:"risk_level,omitempty" json:"risk_level,omitempty"`
}

// ApprovalRequest is the durable unit of work driven through a template's
// levels. All mutation goes through the engine under optimistic concurrency
// on Version.
type ApprovalRequest struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TemplateID        primitive.ObjectID `bson:"template_id" json:"template_id"`
	TemplateCode      string             `bson:"template_code" json:"template_code"`
	TemplateVersion   int                `bson:"template_version" json:"template_version"`
	TransactionType   TransactionType    `bson:"transaction_type" json:"transaction_type"`
	Transaction       TransactionRef     `bson:"transaction" json:"transaction"`
	CurrentLevelOrder int                `bson:"current_level_order" json:"current_level_order"`
	Levels            []LevelState       `bson:"levels" json:"levels"`
	Status            RequestStatus      `bson:"status" json:"status"`
	Priority          string             `bson:"priority,omitempty" json:"priority,omitempty"`
	IsUrgent          bool               `bson:"is_urgent" json:"is_urgent"`
	// Escalation parameters snapshotted from the template at submission so
	// the scheduler never depends on later template edits
	EscalationHours int        `bson:"escalation_hours" json:"escalation_hours"`
	MaxEscalations  int        `bson:"max_escalations" json:"max_escalations"`
	Version         int64      `bson:"version" json:"version"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	CompletedAt     *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`

	// Derived on read, never persisted
	SLAState SLAStatus `bson:"-" json:"sla_status,omitempty"`
}

// CurrentLevel returns the state of the active level group, or nil when no
// level matches the current order
func (r *ApprovalRequest) CurrentLevel() *LevelState {
	return r.LevelAt(r.CurrentLevelOrder)
}

// LevelAt returns the state recorded for the given order, or nil
func (r *ApprovalRequest) LevelAt(order int) *LevelState {
	for i := range r.Levels {
		if r.Levels[i].LevelOrder == order {
			return &r.Levels[i]
		}
	}
	return nil
}

// AwaitingDecisionFrom reports whether the request is pending at a level
// where the given approver is resolved and has not yet decided
func (r *ApprovalRequest) AwaitingDecisionFrom(approverID string) bool {
	if r.Status != RequestStatusPending {
		return false
	}
	lvl := r.CurrentLevel()
	if lvl == nil {
		return false
	}
	for _, id := range lvl.Approvers {
		if id == approverID {
			return lvl.DecisionBy(approverID) == nil
		}
	}
	return false
}

// SLAStatusAt computes the derived SLA state of the current level
func (r *ApprovalRequest) SLAStatusAt(now time.Time) SLAStatus {
	lvl := r.CurrentLevel()
	if lvl == nil || r.Status != RequestStatusPending {
		return ""
	}
	return lvl.SLAStatusAt(now, r.EscalationHours)
}
