package service

import (
	"context"
	"fmt"
	"time"

	"go-approvals/internal/engine"
	"go-approvals/internal/models"
	"go-approvals/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type TemplateService interface {
	CreateTemplate(ctx context.Context, template *models.WorkflowTemplate) error
	GetTemplate(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	ListTemplates(ctx context.Context) ([]models.WorkflowTemplate, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type TemplateServiceImpl struct {
	Repo   repository.TemplateRepository
	Audit  AuditService
	Logger *zap.Logger
}

func NewTemplateService(repo repository.TemplateRepository, audit AuditService, logger *zap.Logger) TemplateService {
	return &TemplateServiceImpl{
		Repo:   repo,
		Audit:  audit,
		Logger: logger,
	}
}

// CreateTemplate stores a new immutable version of a template code. Editing
// means creating the next version; versions already referenced by in-flight
// requests are never touched.
func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	if err := template.Validate(); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidTemplate, err)
	}

	latest, err := s.Repo.LatestVersion(ctx, template.Code)
	if err != nil {
		return err
	}

	template.ID = primitive.NewObjectID()
	template.Version = latest + 1
	template.WorkflowType = template.Classify()
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt

	if err := s.Repo.Create(ctx, template); err != nil {
		return err
	}

	s.Audit.Record(ctx, models.AuditActionTemplate, template.ID.Hex(), models.SystemActorID, map[string]models.Change{
		"template": {New: fmt.Sprintf("%s v%d", template.Code, template.Version)},
		"active":   {New: template.IsActive},
	})
	s.Logger.Info("workflow template created",
		zap.String("code", template.Code),
		zap.Int("version", template.Version),
		zap.String("workflow_type", string(template.WorkflowType)))
	return nil
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad template id %q", engine.ErrTemplateNotFound, id)
	}
	template, err := s.Repo.FindByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrTemplateNotFound, id)
	}
	return template, nil
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context) ([]models.WorkflowTemplate, error) {
	return s.Repo.List(ctx)
}

// SetActive gates new submissions only; in-flight requests stay pinned to
// their submitted version and continue unaffected
func (s *TemplateServiceImpl) SetActive(ctx context.Context, id string, active bool) error {
	template, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.SetActive(ctx, template.ID, active); err != nil {
		return err
	}
	s.Audit.Record(ctx, models.AuditActionTemplate, template.ID.Hex(), models.SystemActorID, map[string]models.Change{
		"active": {Old: template.IsActive, New: active},
	})
	return nil
}
