package repository

import (
	"context"
	"time"

	"go-approvals/internal/database"
	"go-approvals/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TemplateRepository interface {
	Create(ctx context.Context, template *models.WorkflowTemplate) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.WorkflowTemplate, error)
	FindActiveByCode(ctx context.Context, code string) (*models.WorkflowTemplate, error)
	LatestVersion(ctx context.Context, code string) (int, error)
	List(ctx context.Context) ([]models.WorkflowTemplate, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

type TemplateRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTemplateRepository(mongodb *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		Collection: mongodb.DB.Collection("workflow_templates"),
	}
}

func (r *TemplateRepositoryImpl) Create(ctx context.Context, template *models.WorkflowTemplate) error {
	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	_, err := r.Collection.InsertOne(ctx, template)
	return err
}

func (r *TemplateRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.WorkflowTemplate, error) {
	var template models.WorkflowTemplate
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

// FindActiveByCode returns the highest active version for a template code
func (r *TemplateRepositoryImpl) FindActiveByCode(ctx context.Context, code string) (*models.WorkflowTemplate, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var template models.WorkflowTemplate
	err := r.Collection.FindOne(ctx, bson.M{"code": code, "is_active": true}, opts).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

// LatestVersion returns the highest version recorded for a code, 0 if none
func (r *TemplateRepositoryImpl) LatestVersion(ctx context.Context, code string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var template models.WorkflowTemplate
	err := r.Collection.FindOne(ctx, bson.M{"code": code}, opts).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}
	return template.Version, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context) ([]models.WorkflowTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}, {Key: "version", Value: -1}})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var templates []models.WorkflowTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// SetActive flips the active flag; level structure and escalation parameters
// stay immutable once the version exists
func (r *TemplateRepositoryImpl) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	update := bson.M{
		"$set": bson.M{
			"is_active":  active,
			"updated_at": time.Now(),
		},
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
