package repository

import (
	"context"
	"errors"

	"go-approvals/internal/database"
	"go-approvals/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict signals that a compare-and-swap update lost the race
// against a concurrent writer; callers reload and retry
var ErrVersionConflict = errors.New("request version conflict")

type RequestRepository interface {
	Create(ctx context.Context, request *models.ApprovalRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ApprovalRequest, error)
	FindPending(ctx context.Context) ([]models.ApprovalRequest, error)
	FindPendingByApprover(ctx context.Context, approverID string) ([]models.ApprovalRequest, error)
	FindAll(ctx context.Context, filter bson.M, page, limit int64) ([]models.ApprovalRequest, int64, error)
	Update(ctx context.Context, request *models.ApprovalRequest) error
}

type RequestRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRequestRepository(mongodb *database.MongodbDB) RequestRepository {
	return &RequestRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_requests"),
	}
}

func (r *RequestRepositoryImpl) Create(ctx context.Context, request *models.ApprovalRequest) error {
	if request.ID.IsZero() {
		request.ID = primitive.NewObjectID()
	}
	request.Version = 1
	_, err := r.Collection.InsertOne(ctx, request)
	return err
}

func (r *RequestRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepositoryImpl) FindPending(ctx context.Context) ([]models.ApprovalRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.Collection.Find(ctx, bson.M{"status": models.RequestStatusPending}, opts)
	if err != nil {
		return nil, err
	}
	var requests []models.ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// FindPendingByApprover pre-filters on resolved approver membership; exact
// current-level membership is re-checked by the engine against each instance
func (r *RequestRepositoryImpl) FindPendingByApprover(ctx context.Context, approverID string) ([]models.ApprovalRequest, error) {
	filter := bson.M{
		"status":           models.RequestStatusPending,
		"levels.approvers": approverID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "is_urgent", Value: -1}, {Key: "created_at", Value: 1}})
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var requests []models.ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepositoryImpl) FindAll(ctx context.Context, filter bson.M, page, limit int64) ([]models.ApprovalRequest, int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var requests []models.ApprovalRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Update replaces the document guarded by the version the caller read.
// On success the in-memory version is bumped; a lost race surfaces as
// ErrVersionConflict and leaves the argument untouched.
func (r *RequestRepositoryImpl) Update(ctx context.Context, request *models.ApprovalRequest) error {
	current := request.Version
	request.Version = current + 1

	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": request.ID, "version": current}, request)
	if err != nil {
		request.Version = current
		return err
	}
	if res.MatchedCount == 0 {
		request.Version = current
		return ErrVersionConflict
	}
	return nil
}
