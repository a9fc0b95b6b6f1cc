package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-approvals/internal/models"
	"go-approvals/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SubmitInput is the caller-supplied payload for a new approval request
type SubmitInput struct {
	TemplateID  string                `json:"template_id"`
	Transaction models.TransactionRef `json:"transaction"`
	Priority    string                `json:"priority"`
	IsUrgent    bool                  `json:"is_urgent"`
}

// BulkOutcome is the independent per-item result of a bulk decision call
type BulkOutcome struct {
	RequestID string               `json:"request_id"`
	Status    models.RequestStatus `json:"status,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type Engine interface {
	Submit(ctx context.Context, input SubmitInput) (*models.ApprovalRequest, error)
	Decide(ctx context.Context, requestID, approverID string, action models.DecisionAction, comment string) (*models.ApprovalRequest, error)
	BulkDecide(ctx context.Context, requestIDs []string, approverID string, action models.DecisionAction, comment string) []BulkOutcome
	Recall(ctx context.Context, requestID, byUserID string) (*models.ApprovalRequest, error)
	Cancel(ctx context.Context, requestID, byUserID, reason string) (*models.ApprovalRequest, error)
	GetInboxFor(ctx context.Context, approverID string) ([]models.ApprovalRequest, error)
	GetStatus(ctx context.Context, requestID string) (*models.ApprovalRequest, error)
	List(ctx context.Context, status models.RequestStatus, page, limit int64) ([]models.ApprovalRequest, int64, error)
}

type EngineImpl struct {
	templates repository.TemplateRepository
	requests  repository.RequestRepository
	resolver  ApproverResolver
	notifier  Notifier
	audit     AuditSink
	logger    *zap.Logger

	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

func NewEngine(
	templates repository.TemplateRepository,
	requests repository.RequestRepository,
	resolver ApproverResolver,
	notifier Notifier,
	audit AuditSink,
	logger *zap.Logger,
	maxRetries int,
) Engine {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &EngineImpl{
		templates:  templates,
		requests:   requests,
		resolver:   resolver,
		notifier:   notifier,
		audit:      audit,
		logger:     logger,
		maxRetries: maxRetries,
		backoff:    50 * time.Millisecond,
		now:        time.Now,
	}
}

// Submit creates a request instance at the template's lowest level order.
// Levels whose approver set resolves empty are auto-approved immediately so
// an unfilled role can never deadlock a request.
func (e *EngineImpl) Submit(ctx context.Context, input SubmitInput) (*models.ApprovalRequest, error) {
	tmplID, err := primitive.ObjectIDFromHex(input.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad template id %q", ErrTemplateNotFound, input.TemplateID)
	}
	tmpl, err := e.templates.FindByID(ctx, tmplID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil || !tmpl.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, input.TemplateID)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	req := &models.ApprovalRequest{
		ID:              primitive.NewObjectID(),
		TemplateID:      tmpl.ID,
		TemplateCode:    tmpl.Code,
		TemplateVersion: tmpl.Version,
		TransactionType: tmpl.TransactionType,
		Transaction:     input.Transaction,
		Status:          models.RequestStatusPending,
		Priority:        input.Priority,
		IsUrgent:        input.IsUrgent,
		EscalationHours: tmpl.EscalationHours,
		MaxEscalations:  tmpl.MaxEscalations,
		CreatedAt:       e.now(),
	}

	if err := e.openLevel(ctx, req, tmpl, tmpl.FirstOrder()); err != nil {
		return nil, err
	}
	if err := e.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	e.audit.Record(ctx, models.AuditActionSubmit, req.ID.Hex(), input.Transaction.RequesterID, map[string]models.Change{
		"status":   {New: req.Status},
		"template": {New: fmt.Sprintf("%s v%d", tmpl.Code, tmpl.Version)},
	})
	e.logger.Info("approval request submitted",
		zap.String("request_id", req.ID.Hex()),
		zap.String("template", tmpl.Code),
		zap.Int("level", req.CurrentLevelOrder))

	if req.Status == models.RequestStatusPending {
		e.publishAssigned(ctx, req)
	} else {
		e.publishCompleted(ctx, req)
	}
	return e.decorate(req), nil
}

// Decide records one approver's decision and applies the advancement rules.
// A replay of an identical decision is a no-op success; a conflicting replay
// surfaces ErrAlreadyDecided. The unanimity check and the advancement write
// commit atomically under the request's version guard.
func (e *EngineImpl) Decide(ctx context.Context, requestID, approverID string, action models.DecisionAction, comment string) (*models.ApprovalRequest, error) {
	if action != models.ActionApprove && action != models.ActionReject {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, action)
	}
	id, err := parseRequestID(requestID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := e.requests.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		if req.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s is %s", ErrRequestNotPending, requestID, req.Status)
		}
		lvl := req.CurrentLevel()
		if lvl == nil {
			return nil, fmt.Errorf("%w: %s has no active level", ErrRequestNotPending, requestID)
		}
		if !contains(lvl.Approvers, approverID) {
			return nil, fmt.Errorf("%w: %s at level %d of %s", ErrNotAnApprover, approverID, lvl.LevelOrder, requestID)
		}
		if prev := lvl.DecisionBy(approverID); prev != nil {
			if prev.Action == action {
				// replay-safe: identical duplicate is a no-op success
				return e.decorate(req), nil
			}
			return nil, fmt.Errorf("%w: %s already recorded %s at level %d", ErrAlreadyDecided, approverID, prev.Action, lvl.LevelOrder)
		}

		now := e.now()
		prevOrder := lvl.LevelOrder
		lvl.Decisions = append(lvl.Decisions, models.DecisionRecord{
			ApproverID: approverID,
			Action:     action,
			Comment:    comment,
			DecidedAt:  now,
		})

		switch {
		case action == models.ActionReject:
			// a single rejection is terminal regardless of parallel siblings
			req.Status = models.RequestStatusRejected
			req.CompletedAt = &now
		case lvl.AllApproved():
			tmpl, err := e.templateFor(ctx, req)
			if err != nil {
				return nil, err
			}
			next, ok := tmpl.NextOrder(lvl.LevelOrder)
			if !ok {
				req.Status = models.RequestStatusApproved
				req.CompletedAt = &now
			} else if err := e.openLevel(ctx, req, tmpl, next); err != nil {
				return nil, err
			}
		}

		if err := e.requests.Update(ctx, req); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		e.audit.Record(ctx, models.AuditActionDecide, req.ID.Hex(), approverID, map[string]models.Change{
			"action": {New: action},
			"level":  {New: prevOrder},
			"status": {New: req.Status},
		})
		e.logger.Info("decision recorded",
			zap.String("request_id", req.ID.Hex()),
			zap.String("actor_id", approverID),
			zap.String("action", string(action)),
			zap.Int("level", prevOrder),
			zap.String("status", string(req.Status)))

		switch {
		case req.Status.Terminal():
			e.publishCompleted(ctx, req)
		case req.CurrentLevelOrder > prevOrder:
			e.publishAssigned(ctx, req)
		}
		return e.decorate(req), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrConcurrentModification, requestID)
}

// BulkDecide processes each request independently; one failure never rolls
// back or blocks the others
func (e *EngineImpl) BulkDecide(ctx context.Context, requestIDs []string, approverID string, action models.DecisionAction, comment string) []BulkOutcome {
	outcomes := make([]BulkOutcome, 0, len(requestIDs))
	for _, requestID := range requestIDs {
		req, err := e.Decide(ctx, requestID, approverID, action, comment)
		outcome := BulkOutcome{RequestID: requestID}
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Status = req.Status
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Recall lets the requester withdraw a pending request before anyone at the
// current level has acted
func (e *EngineImpl) Recall(ctx context.Context, requestID, byUserID string) (*models.ApprovalRequest, error) {
	id, err := parseRequestID(requestID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := e.requests.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		if req.Status != models.RequestStatusPending {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotRecallable, requestID, req.Status)
		}
		if req.Transaction.RequesterID != byUserID {
			return nil, fmt.Errorf("%w: %s is not the requester of %s", ErrNotRecallable, byUserID, requestID)
		}
		if lvl := req.CurrentLevel(); lvl != nil && humanDecisions(lvl) > 0 {
			return nil, fmt.Errorf("%w: level %d of %s already has decisions", ErrNotRecallable, lvl.LevelOrder, requestID)
		}

		now := e.now()
		req.Status = models.RequestStatusRecalled
		req.CompletedAt = &now

		if err := e.requests.Update(ctx, req); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		e.audit.Record(ctx, models.AuditActionRecall, req.ID.Hex(), byUserID, map[string]models.Change{
			"status": {Old: models.RequestStatusPending, New: models.RequestStatusRecalled},
		})
		e.logger.Info("approval request recalled",
			zap.String("request_id", req.ID.Hex()),
			zap.String("actor_id", byUserID))
		e.publishCompleted(ctx, req)
		return e.decorate(req), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrConcurrentModification, requestID)
}

// Cancel is the administrative termination path. Unlike Recall it remains
// available after decisions have been recorded at the current level.
func (e *EngineImpl) Cancel(ctx context.Context, requestID, byUserID, reason string) (*models.ApprovalRequest, error) {
	id, err := parseRequestID(requestID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := e.requests.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		if req.Status != models.RequestStatusPending {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotCancellable, requestID, req.Status)
		}

		now := e.now()
		req.Status = models.RequestStatusCancelled
		req.CompletedAt = &now

		if err := e.requests.Update(ctx, req); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		e.audit.Record(ctx, models.AuditActionCancel, req.ID.Hex(), byUserID, map[string]models.Change{
			"status": {Old: models.RequestStatusPending, New: models.RequestStatusCancelled},
			"reason": {New: reason},
		})
		e.logger.Info("approval request cancelled",
			zap.String("request_id", req.ID.Hex()),
			zap.String("actor_id", byUserID),
			zap.String("reason", reason))
		e.publishCompleted(ctx, req)
		return e.decorate(req), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrConcurrentModification, requestID)
}

// GetInboxFor lists pending requests awaiting a decision from the approver.
// Read-only; never mutates state.
func (e *EngineImpl) GetInboxFor(ctx context.Context, approverID string) ([]models.ApprovalRequest, error) {
	candidates, err := e.requests.FindPendingByApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}
	inbox := make([]models.ApprovalRequest, 0, len(candidates))
	for i := range candidates {
		if candidates[i].AwaitingDecisionFrom(approverID) {
			inbox = append(inbox, *e.decorate(&candidates[i]))
		}
	}
	return inbox, nil
}

// GetStatus returns the request snapshot with the derived SLA state attached
func (e *EngineImpl) GetStatus(ctx context.Context, requestID string) (*models.ApprovalRequest, error) {
	id, err := parseRequestID(requestID)
	if err != nil {
		return nil, err
	}
	req, err := e.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	return e.decorate(req), nil
}

// List pages through request instances, optionally filtered by status
func (e *EngineImpl) List(ctx context.Context, status models.RequestStatus, page, limit int64) ([]models.ApprovalRequest, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	requests, total, err := e.requests.FindAll(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range requests {
		e.decorate(&requests[i])
	}
	return requests, total, nil
}

// openLevel activates the level group at the given order: resolves the
// approver union across parallel siblings, stamps activation and due times,
// and cascades auto-approval over empty levels.
func (e *EngineImpl) openLevel(ctx context.Context, req *models.ApprovalRequest, tmpl *models.WorkflowTemplate, order int) error {
	for {
		approvers, err := e.resolveLevel(ctx, tmpl, order, req.Transaction.RequesterID)
		if err != nil {
			return err
		}

		siblings := tmpl.LevelsAt(order)
		now := e.now()
		slaHours := tmpl.SLAHoursAt(order)
		req.Levels = append(req.Levels, models.LevelState{
			LevelOrder:  order,
			Name:        levelName(siblings),
			IsParallel:  len(siblings) > 1,
			Approvers:   approvers,
			ActivatedAt: now,
			DueAt:       now.Add(time.Duration(slaHours) * time.Hour),
			SLAHours:    slaHours,
		})
		req.CurrentLevelOrder = order

		if len(approvers) > 0 {
			return nil
		}

		// unfilled role: auto-approve with a system decision record
		lvl := req.CurrentLevel()
		lvl.Decisions = append(lvl.Decisions, models.DecisionRecord{
			ApproverID: models.SystemActorID,
			Action:     models.ActionApprove,
			Comment:    "auto-approved: approver set resolved empty",
			System:     true,
			DecidedAt:  now,
		})
		e.audit.Record(ctx, models.AuditActionAutoApprove, req.ID.Hex(), models.SystemActorID, map[string]models.Change{
			"level": {New: order},
		})
		e.logger.Warn("level auto-approved, approver set resolved empty",
			zap.String("request_id", req.ID.Hex()),
			zap.Int("level", order))

		next, ok := tmpl.NextOrder(order)
		if !ok {
			req.Status = models.RequestStatusApproved
			completed := now
			req.CompletedAt = &completed
			return nil
		}
		order = next
	}
}

func (e *EngineImpl) resolveLevel(ctx context.Context, tmpl *models.WorkflowTemplate, order int, requesterID string) ([]string, error) {
	set := map[string]struct{}{}
	for _, def := range tmpl.LevelsAt(order) {
		ids, err := e.resolveWithRetry(ctx, def.Rule, requesterID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	approvers := make([]string, 0, len(set))
	for id := range set {
		approvers = append(approvers, id)
	}
	sort.Strings(approvers)
	return approvers, nil
}

// resolveWithRetry retries transient directory failures with exponential
// backoff; structural resolver errors surface immediately
func (e *EngineImpl) resolveWithRetry(ctx context.Context, rule models.ApproverRule, requesterID string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
		ids, err := e.resolver.Resolve(ctx, rule, requesterID)
		if err == nil {
			return ids, nil
		}
		if !errors.Is(err, ErrDirectoryUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (e *EngineImpl) templateFor(ctx context.Context, req *models.ApprovalRequest) (*models.WorkflowTemplate, error) {
	tmpl, err := e.templates.FindByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		// templates are retained for the lifetime of their instances
		return nil, fmt.Errorf("%w: %s v%d", ErrTemplateNotFound, req.TemplateCode, req.TemplateVersion)
	}
	return tmpl, nil
}

func (e *EngineImpl) publishAssigned(ctx context.Context, req *models.ApprovalRequest) {
	lvl := req.CurrentLevel()
	if lvl == nil {
		return
	}
	e.notifier.Publish(ctx, Event{
		Type:        EventAssigned,
		RequestID:   req.ID.Hex(),
		Subject:     req.Transaction.Subject,
		LevelOrder:  lvl.LevelOrder,
		ApproverIDs: lvl.Approvers,
		DueAt:       lvl.DueAt,
		Status:      req.Status,
	})
}

func (e *EngineImpl) publishCompleted(ctx context.Context, req *models.ApprovalRequest) {
	var approvers []string
	var levelOrder int
	var dueAt time.Time
	if lvl := req.CurrentLevel(); lvl != nil {
		approvers = lvl.Approvers
		levelOrder = lvl.LevelOrder
		dueAt = lvl.DueAt
	}
	// requester is always informed of terminal outcomes
	approvers = appendUnique(approvers, req.Transaction.RequesterID)
	e.notifier.Publish(ctx, Event{
		Type:        EventCompleted,
		RequestID:   req.ID.Hex(),
		Subject:     req.Transaction.Subject,
		LevelOrder:  levelOrder,
		ApproverIDs: approvers,
		DueAt:       dueAt,
		Status:      req.Status,
	})
}

func (e *EngineImpl) decorate(req *models.ApprovalRequest) *models.ApprovalRequest {
	req.SLAState = req.SLAStatusAt(e.now())
	return req
}

func (e *EngineImpl) sleep(ctx context.Context, attempt int) error {
	delay := e.backoff << (attempt - 1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func parseRequestID(requestID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: bad request id %q", ErrRequestNotFound, requestID)
	}
	return id, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func appendUnique(ids []string, id string) []string {
	if id == "" || contains(ids, id) {
		return ids
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

func humanDecisions(lvl *models.LevelState) int {
	n := 0
	for _, d := range lvl.Decisions {
		if !d.System {
			n++
		}
	}
	return n
}

func levelName(siblings []models.LevelDefinition) string {
	names := make([]string, 0, len(siblings))
	for _, s := range siblings {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return strings.Join(names, " / ")
}
