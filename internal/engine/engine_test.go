package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-approvals/internal/models"
	"go-approvals/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ---- in-memory fakes ----

type fakeTemplateRepo struct {
	templates map[primitive.ObjectID]*models.WorkflowTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[primitive.ObjectID]*models.WorkflowTemplate{}}
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *models.WorkflowTemplate) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.WorkflowTemplate, error) {
	return f.templates[id], nil
}

func (f *fakeTemplateRepo) FindActiveByCode(ctx context.Context, code string) (*models.WorkflowTemplate, error) {
	var best *models.WorkflowTemplate
	for _, t := range f.templates {
		if t.Code == code && t.IsActive && (best == nil || t.Version > best.Version) {
			best = t
		}
	}
	return best, nil
}

func (f *fakeTemplateRepo) LatestVersion(ctx context.Context, code string) (int, error) {
	latest := 0
	for _, t := range f.templates {
		if t.Code == code && t.Version > latest {
			latest = t.Version
		}
	}
	return latest, nil
}

func (f *fakeTemplateRepo) List(ctx context.Context) ([]models.WorkflowTemplate, error) {
	out := make([]models.WorkflowTemplate, 0, len(f.templates))
	for _, t := range f.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTemplateRepo) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	if t, ok := f.templates[id]; ok {
		t.IsActive = active
	}
	return nil
}

type fakeRequestRepo struct {
	requests map[primitive.ObjectID]*models.ApprovalRequest

	// failUpdates injects that many version conflicts before accepting writes
	failUpdates int
	updates     int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[primitive.ObjectID]*models.ApprovalRequest{}}
}

func cloneRequest(r *models.ApprovalRequest) *models.ApprovalRequest {
	out := *r
	out.Levels = make([]models.LevelState, len(r.Levels))
	for i, lvl := range r.Levels {
		cp := lvl
		cp.Approvers = append([]string(nil), lvl.Approvers...)
		cp.Decisions = append([]models.DecisionRecord(nil), lvl.Decisions...)
		if lvl.ExhaustedAt != nil {
			t := *lvl.ExhaustedAt
			cp.ExhaustedAt = &t
		}
		out.Levels[i] = cp
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func (f *fakeRequestRepo) Create(ctx context.Context, r *models.ApprovalRequest) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.Version = 1
	f.requests[r.ID] = cloneRequest(r)
	return nil
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ApprovalRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	return cloneRequest(r), nil
}

func (f *fakeRequestRepo) FindPending(ctx context.Context) ([]models.ApprovalRequest, error) {
	var out []models.ApprovalRequest
	for _, r := range f.requests {
		if r.Status == models.RequestStatusPending {
			out = append(out, *cloneRequest(r))
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) FindPendingByApprover(ctx context.Context, approverID string) ([]models.ApprovalRequest, error) {
	var out []models.ApprovalRequest
	for _, r := range f.requests {
		if r.Status != models.RequestStatusPending {
			continue
		}
		for _, lvl := range r.Levels {
			if contains(lvl.Approvers, approverID) {
				out = append(out, *cloneRequest(r))
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) FindAll(ctx context.Context, filter bson.M, page, limit int64) ([]models.ApprovalRequest, int64, error) {
	var out []models.ApprovalRequest
	for _, r := range f.requests {
		if status, ok := filter["status"]; ok && r.Status != status {
			continue
		}
		out = append(out, *cloneRequest(r))
	}
	return out, int64(len(out)), nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, r *models.ApprovalRequest) error {
	f.updates++
	if f.failUpdates > 0 {
		f.failUpdates--
		return repository.ErrVersionConflict
	}
	stored, ok := f.requests[r.ID]
	if !ok || stored.Version != r.Version {
		return repository.ErrVersionConflict
	}
	r.Version++
	f.requests[r.ID] = cloneRequest(r)
	return nil
}

// fakeResolver resolves roles and managers from static maps
type fakeResolver struct {
	roleMembers map[string][]string
	managers    map[string]string
	failures    int
	calls       int
}

func (f *fakeResolver) Resolve(ctx context.Context, rule models.ApproverRule, requesterID string) ([]string, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("%w: injected", ErrDirectoryUnavailable)
	}
	switch rule.Kind {
	case models.ResolveExplicitUser:
		return []string{rule.UserID}, nil
	case models.ResolveByRole:
		return f.roleMembers[rule.RoleID], nil
	case models.ResolveByPosition:
		return f.roleMembers[rule.PositionID], nil
	case models.ResolveReportingManager:
		if m, ok := f.managers[requesterID]; ok {
			return []string{m}, nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown kind %q", rule.Kind)
}

type fakeNotifier struct {
	events []Event
}

func (f *fakeNotifier) Publish(ctx context.Context, event Event) {
	f.events = append(f.events, event)
}

func (f *fakeNotifier) types() []EventType {
	out := make([]EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeAudit struct {
	actions []models.AuditAction
}

func (f *fakeAudit) Record(ctx context.Context, action models.AuditAction, requestID, actorID string, changes map[string]models.Change) {
	f.actions = append(f.actions, action)
}

// ---- fixtures ----

type fixture struct {
	engine    *EngineImpl
	templates *fakeTemplateRepo
	requests  *fakeRequestRepo
	resolver  *fakeResolver
	notifier  *fakeNotifier
	audit     *fakeAudit
	tmpl      *models.WorkflowTemplate
}

func newFixture(t *testing.T, levels []models.LevelDefinition) *fixture {
	t.Helper()
	f := &fixture{
		templates: newFakeTemplateRepo(),
		requests:  newFakeRequestRepo(),
		resolver: &fakeResolver{
			roleMembers: map[string][]string{
				"finance": {"u-fin-1", "u-fin-2"},
				"legal":   {"u-legal-1"},
				"cfo":     {"u-cfo"},
			},
			managers: map[string]string{"u-emp-1": "u-mgr-1"},
		},
		notifier: &fakeNotifier{},
		audit:    &fakeAudit{},
	}
	f.tmpl = &models.WorkflowTemplate{
		Code:            "WF-TEST-001",
		Version:         1,
		Name:            "Test Workflow",
		TransactionType: models.TransactionPurchaseOrder,
		Levels:          levels,
		EscalationHours: 12,
		MaxEscalations:  2,
		IsActive:        true,
	}
	require.NoError(t, f.templates.Create(context.Background(), f.tmpl))

	eng := NewEngine(f.templates, f.requests, f.resolver, f.notifier, f.audit, zap.NewNop(), 3)
	f.engine = eng.(*EngineImpl)
	f.engine.backoff = time.Millisecond
	return f
}

func sequentialLevels() []models.LevelDefinition {
	return []models.LevelDefinition{
		{Name: "Manager", LevelOrder: 1, Rule: models.ApproverRule{Kind: models.ResolveReportingManager}, SLAHours: 24},
		{Name: "Finance", LevelOrder: 2, Rule: models.ApproverRule{Kind: models.ResolveByRole, RoleID: "finance"}, SLAHours: 48},
	}
}

func parallelLevels() []models.LevelDefinition {
	return []models.LevelDefinition{
		{Name: "Finance", LevelOrder: 1, Rule: models.ApproverRule{Kind: models.ResolveByRole, RoleID: "finance"}, SLAHours: 48},
		{Name: "Legal", LevelOrder: 1, Rule: models.ApproverRule{Kind: models.ResolveByRole, RoleID: "legal"}, SLAHours: 24},
	}
}

func (f *fixture) submit(t *testing.T) *models.ApprovalRequest {
	t.Helper()
	req, err := f.engine.Submit(context.Background(), SubmitInput{
		TemplateID: f.tmpl.ID.Hex(),
		Transaction: models.TransactionRef{
			RefID:       "PO-1001",
			Subject:     "Laptops for onboarding",
			Amount:      4200,
			Currency:    "EUR",
			RequesterID: "u-emp-1",
		},
	})
	require.NoError(t, err)
	return req
}

// ---- submission ----

func TestSubmitOpensFirstLevel(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)

	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, 1, req.CurrentLevelOrder)
	assert.Equal(t, "WF-TEST-001", req.TemplateCode)
	assert.Equal(t, 1, req.TemplateVersion)
	assert.Equal(t, int64(1), req.Version)
	assert.Equal(t, 12, req.EscalationHours)
	assert.Equal(t, 2, req.MaxEscalations)

	lvl := req.CurrentLevel()
	require.NotNil(t, lvl)
	assert.Equal(t, []string{"u-mgr-1"}, lvl.Approvers)
	assert.Equal(t, 24, lvl.SLAHours)
	assert.Equal(t, lvl.ActivatedAt.Add(24*time.Hour), lvl.DueAt)
	assert.Equal(t, models.SLAOnTrack, req.SLAState)

	assert.Equal(t, []models.AuditAction{models.AuditActionSubmit}, f.audit.actions)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, EventAssigned, f.notifier.events[0].Type)
	assert.Equal(t, []string{"u-mgr-1"}, f.notifier.events[0].ApproverIDs)
}

func TestSubmitParallelLevelResolvesUnion(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)

	lvl := req.CurrentLevel()
	require.NotNil(t, lvl)
	assert.True(t, lvl.IsParallel)
	assert.Equal(t, []string{"u-fin-1", "u-fin-2", "u-legal-1"}, lvl.Approvers)
	// strictest sibling budget governs the shared due time
	assert.Equal(t, 24, lvl.SLAHours)
}

func TestSubmitInactiveTemplate(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	f.tmpl.IsActive = false

	_, err := f.engine.Submit(context.Background(), SubmitInput{TemplateID: f.tmpl.ID.Hex()})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestSubmitUnknownTemplate(t *testing.T) {
	f := newFixture(t, sequentialLevels())

	_, err := f.engine.Submit(context.Background(), SubmitInput{TemplateID: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestSubmitAutoApprovesEmptyLevels(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	// requester has no manager on file; level 1 resolves empty
	delete(f.resolver.managers, "u-emp-1")

	req := f.submit(t)

	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, 2, req.CurrentLevelOrder)

	first := req.LevelAt(1)
	require.NotNil(t, first)
	require.Len(t, first.Decisions, 1)
	assert.Equal(t, models.SystemActorID, first.Decisions[0].ApproverID)
	assert.True(t, first.Decisions[0].System)

	assert.Contains(t, f.audit.actions, models.AuditActionAutoApprove)
}

func TestSubmitAutoApprovalCascadesToTerminal(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	delete(f.resolver.managers, "u-emp-1")
	f.resolver.roleMembers["finance"] = nil

	req := f.submit(t)

	assert.Equal(t, models.RequestStatusApproved, req.Status)
	require.NotNil(t, req.CompletedAt)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, EventCompleted, f.notifier.events[0].Type)
}

// ---- decisions ----

func TestApproveAdvancesThenCompletes(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)
	ctx := context.Background()

	req, err := f.engine.Decide(ctx, req.ID.Hex(), "u-mgr-1", models.ActionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, 2, req.CurrentLevelOrder)
	assert.Equal(t, []string{"u-fin-1", "u-fin-2"}, req.CurrentLevel().Approvers)

	req, err = f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	req, err = f.engine.Decide(ctx, req.ID.Hex(), "u-fin-2", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, req.Status)
	require.NotNil(t, req.CompletedAt)

	assert.Equal(t, []EventType{EventAssigned, EventAssigned, EventCompleted}, f.notifier.types())
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)
	ctx := context.Background()

	// one sibling approves first; a single rejection still terminates
	_, err := f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "")
	require.NoError(t, err)

	req, err = f.engine.Decide(ctx, req.ID.Hex(), "u-legal-1", models.ActionReject, "missing contract")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, req.Status)
	require.NotNil(t, req.CompletedAt)

	_, err = f.engine.Decide(ctx, req.ID.Hex(), "u-fin-2", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrRequestNotPending)
}

func TestParallelUnanimityRequired(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)
	ctx := context.Background()
	f.notifier.events = nil

	req, err := f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, 1, req.CurrentLevelOrder)
	// a partial approval emits nothing
	assert.Empty(t, f.notifier.events)

	req, err = f.engine.Decide(ctx, req.ID.Hex(), "u-fin-2", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	req, err = f.engine.Decide(ctx, req.ID.Hex(), "u-legal-1", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, req.Status)
}

func TestIdenticalReplayIsNoOp(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)
	ctx := context.Background()

	first, err := f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "ok")
	require.NoError(t, err)

	replay, err := f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "ok again")
	require.NoError(t, err)
	assert.Equal(t, first.Version, replay.Version)
	assert.Len(t, replay.CurrentLevel().Decisions, 1)
}

func TestConflictingReplayRejected(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)
	ctx := context.Background()

	_, err := f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "")
	require.NoError(t, err)

	_, err = f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionReject, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestDecideRejectsUnknownAction(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)

	_, err := f.engine.Decide(context.Background(), req.ID.Hex(), "u-mgr-1", "escalate", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)

	// nothing was recorded
	got, err := f.engine.GetStatus(context.Background(), req.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got.CurrentLevel().Decisions)
}

func TestDecideByStranger(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)

	_, err := f.engine.Decide(context.Background(), req.ID.Hex(), "u-intruder", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrNotAnApprover)
}

func TestDecideUnknownRequest(t *testing.T) {
	f := newFixture(t, sequentialLevels())

	_, err := f.engine.Decide(context.Background(), primitive.NewObjectID().Hex(), "u-mgr-1", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = f.engine.Decide(context.Background(), "not-an-id", "u-mgr-1", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestDecideRetriesVersionConflicts(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)
	f.requests.failUpdates = 2

	got, err := f.engine.Decide(context.Background(), req.ID.Hex(), "u-mgr-1", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentLevelOrder)
	assert.Equal(t, 3, f.requests.updates)
}

func TestDecideExhaustsRetries(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)
	f.requests.failUpdates = 10

	_, err := f.engine.Decide(context.Background(), req.ID.Hex(), "u-mgr-1", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestResolverRetriesTransientFailures(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	f.resolver.failures = 2

	req := f.submit(t)
	assert.Equal(t, []string{"u-mgr-1"}, req.CurrentLevel().Approvers)
}

func TestResolverFailureSurfaces(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	f.resolver.failures = 10

	_, err := f.engine.Submit(context.Background(), SubmitInput{
		TemplateID:  f.tmpl.ID.Hex(),
		Transaction: models.TransactionRef{RequesterID: "u-emp-1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.True(t, Transient(err))
}

// ---- bulk ----

func TestBulkDecideIndependentOutcomes(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	a := f.submit(t)
	b := f.submit(t)

	outcomes := f.engine.BulkDecide(context.Background(),
		[]string{a.ID.Hex(), "bad-id", b.ID.Hex()}, "u-mgr-1", models.ActionApprove, "batch")

	require.Len(t, outcomes, 3)
	assert.Equal(t, models.RequestStatusPending, outcomes[0].Status)
	assert.Empty(t, outcomes[0].Error)
	assert.NotEmpty(t, outcomes[1].Error)
	assert.Equal(t, models.RequestStatusPending, outcomes[2].Status)
}

// ---- recall and cancel ----

func TestRecallByRequester(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)

	got, err := f.engine.Recall(context.Background(), req.ID.Hex(), "u-emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRecalled, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestRecallByStranger(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)

	_, err := f.engine.Recall(context.Background(), req.ID.Hex(), "u-other")
	assert.ErrorIs(t, err, ErrNotRecallable)
}

func TestRecallBlockedAfterDecision(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)
	ctx := context.Background()

	_, err := f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "")
	require.NoError(t, err)

	_, err = f.engine.Recall(ctx, req.ID.Hex(), "u-emp-1")
	assert.ErrorIs(t, err, ErrNotRecallable)
}

func TestRecallAllowedAfterSystemDecisionOnly(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	delete(f.resolver.managers, "u-emp-1")
	req := f.submit(t) // level 1 auto-approved, pending at level 2

	got, err := f.engine.Recall(context.Background(), req.ID.Hex(), "u-emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRecalled, got.Status)
}

func TestCancelSurvivesDecisions(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)
	ctx := context.Background()

	_, err := f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "")
	require.NoError(t, err)

	got, err := f.engine.Cancel(ctx, req.ID.Hex(), "admin-1", "duplicate submission")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, got.Status)
}

func TestCancelTerminalRequest(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)
	ctx := context.Background()

	_, err := f.engine.Cancel(ctx, req.ID.Hex(), "admin-1", "")
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, req.ID.Hex(), "admin-1", "")
	assert.ErrorIs(t, err, ErrNotCancellable)
}

// ---- reads ----

func TestGetInboxFiltersDecidedApprovers(t *testing.T) {
	f := newFixture(t, parallelLevels())
	req := f.submit(t)
	ctx := context.Background()

	inbox, err := f.engine.GetInboxFor(ctx, "u-fin-1")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, req.ID, inbox[0].ID)

	_, err = f.engine.Decide(ctx, req.ID.Hex(), "u-fin-1", models.ActionApprove, "")
	require.NoError(t, err)

	inbox, err = f.engine.GetInboxFor(ctx, "u-fin-1")
	require.NoError(t, err)
	assert.Empty(t, inbox)

	inbox, err = f.engine.GetInboxFor(ctx, "u-legal-1")
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	a := f.submit(t)
	f.submit(t)
	ctx := context.Background()

	_, err := f.engine.Cancel(ctx, a.ID.Hex(), "admin-1", "")
	require.NoError(t, err)

	pending, total, err := f.engine.List(ctx, models.RequestStatusPending, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, models.SLAOnTrack, pending[0].SLAState)

	all, total, err := f.engine.List(ctx, "", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}

func TestGetStatusDecoratesSLA(t *testing.T) {
	f := newFixture(t, sequentialLevels())
	req := f.submit(t)

	f.engine.now = func() time.Time { return time.Now().Add(30 * time.Hour) }
	got, err := f.engine.GetStatus(context.Background(), req.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.SLAAtRisk, got.SLAState)

	f.engine.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	got, err = f.engine.GetStatus(context.Background(), req.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.SLABreached, got.SLAState)
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, Transient(fmt.Errorf("wrapped: %w", ErrDirectoryUnavailable)))
	assert.True(t, Transient(ErrConcurrentModification))
	assert.False(t, Transient(ErrNotAnApprover))
	assert.False(t, Transient(errors.New("other")))
}
