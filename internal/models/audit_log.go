package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionSubmit      AuditAction = "SUBMIT"
	AuditActionDecide      AuditAction = "DECIDE"
	AuditActionAutoApprove AuditAction = "AUTO_APPROVE"
	AuditActionAdvance     AuditAction = "ADVANCE"
	AuditActionEscalate    AuditAction = "ESCALATE"
	AuditActionExhaust     AuditAction = "ESCALATION_EXHAUSTED"
	AuditActionRecall      AuditAction = "RECALL"
	AuditActionCancel      AuditAction = "CANCEL"
	AuditActionComplete    AuditAction = "COMPLETE"
	AuditActionTemplate    AuditAction = "TEMPLATE"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	RequestID string             `bson:"request_id" json:"request_id"`               // The approval request being acted on
	ActorID   string             `bson:"actor_id" json:"actor_id"`                   // User (or "system") who performed the action
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"` // field -> {old, new}
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
