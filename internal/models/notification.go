package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType mirrors the outbound event types of the engine
type NotificationType string

const (
	NotificationAssigned  NotificationType = "assigned"
	NotificationEscalated NotificationType = "escalated"
	NotificationCompleted NotificationType = "completed"
	NotificationExhausted NotificationType = "escalation_exhausted"
)

// Notification is a per-user persisted copy of an engine event
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	RequestID  string             `bson:"request_id" json:"request_id"`
	LevelOrder int                `bson:"level_order" json:"level_order"`
	Title      string             `bson:"title" json:"title"`
	Message    string             `bson:"message" json:"message"`
	Type       NotificationType   `bson:"type" json:"type"`
	DueAt      *time.Time         `bson:"due_at,omitempty" json:"due_at,omitempty"`
	Read       bool               `bson:"read" json:"read"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
