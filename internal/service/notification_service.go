package service

import (
	"context"
	"fmt"

	"go-approvals/internal/engine"
	"go-approvals/internal/models"
	"go-approvals/internal/repository"
	"go-approvals/internal/ws"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NotificationService is the notification collaborator: it persists a
// per-user copy of every engine event and pushes it to live websocket
// subscribers. Fire-and-forget by contract.
type NotificationService interface {
	engine.Notifier
	GetUserNotifications(ctx context.Context, userID string, page, limit int64) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type NotificationServiceImpl struct {
	repo   repository.NotificationRepository
	hub    *ws.Hub
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, hub *ws.Hub, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		repo:   repo,
		hub:    hub,
		logger: logger,
	}
}

// Publish fans the event out to every named approver. Delivery failures are
// logged, never propagated: engine state transitions must not block on us.
func (s *NotificationServiceImpl) Publish(ctx context.Context, event engine.Event) {
	title, message := describe(event)

	for _, userID := range event.ApproverIDs {
		if userID == models.SystemActorID {
			continue
		}
		notification := &models.Notification{
			UserID:     userID,
			RequestID:  event.RequestID,
			LevelOrder: event.LevelOrder,
			Title:      title,
			Message:    message,
			Type:       models.NotificationType(event.Type),
		}
		if !event.DueAt.IsZero() {
			due := event.DueAt
			notification.DueAt = &due
		}

		if err := s.repo.Create(ctx, notification); err != nil {
			s.logger.Error("failed to persist notification",
				zap.String("request_id", event.RequestID),
				zap.String("actor_id", userID),
				zap.Error(err))
		}

		s.hub.Send(userID, notification)
	}
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID string, page, limit int64) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.GetByUserID(ctx, userID, page, limit)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id string, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}
	return s.repo.MarkAsRead(ctx, objID, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func describe(event engine.Event) (title, message string) {
	switch event.Type {
	case engine.EventAssigned:
		title = "Approval required"
		message = fmt.Sprintf("%q is awaiting your decision at level %d", event.Subject, event.LevelOrder)
	case engine.EventEscalated:
		title = "Approval overdue"
		message = fmt.Sprintf("%q at level %d is overdue; due time extended to %s", event.Subject, event.LevelOrder, event.DueAt.Format("2006-01-02 15:04"))
	case engine.EventExhausted:
		title = "Escalations exhausted"
		message = fmt.Sprintf("%q at level %d has exhausted its escalations and needs manual intervention", event.Subject, event.LevelOrder)
	case engine.EventCompleted:
		title = "Approval completed"
		message = fmt.Sprintf("%q finished with status %s", event.Subject, event.Status)
	default:
		title = "Approval update"
		message = fmt.Sprintf("%q was updated", event.Subject)
	}
	return title, message
}
