package service

import (
	"context"
	"time"

	"go-approvals/internal/models"
	"go-approvals/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AuditService interface {
	Record(ctx context.Context, action models.AuditAction, requestID, actorID string, changes map[string]models.Change)
	ListLogs(ctx context.Context, page, limit int64) ([]models.AuditLog, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.AuditLog, error)
}

type AuditServiceImpl struct {
	Repo   repository.AuditRepository
	Logger *zap.Logger
}

func NewAuditService(repo repository.AuditRepository, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{Repo: repo, Logger: logger}
}

// Record appends an entry to the retained audit trail. Audit failures are
// logged and swallowed; they never veto an engine transition.
func (s *AuditServiceImpl) Record(ctx context.Context, action models.AuditAction, requestID, actorID string, changes map[string]models.Change) {
	entry := models.AuditLog{
		ID:        primitive.NewObjectID(),
		Action:    action,
		RequestID: requestID,
		ActorID:   actorID,
		Changes:   changes,
		Timestamp: time.Now(),
	}

	if err := s.Repo.Create(ctx, entry); err != nil {
		s.Logger.Error("failed to write audit entry",
			zap.String("request_id", requestID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, page, limit int64) ([]models.AuditLog, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, limit, offset)
}

func (s *AuditServiceImpl) ListByRequest(ctx context.Context, requestID string) ([]models.AuditLog, error) {
	return s.Repo.ListByRequest(ctx, requestID)
}
