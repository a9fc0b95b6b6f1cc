package engine

import (
	"context"
	"testing"
	"time"

	"go-approvals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestScheduler(requests *fakeRequestRepo, notifier *fakeNotifier, audit *fakeAudit) *Scheduler {
	s := NewScheduler(requests, notifier, audit, zap.NewNop(), "")
	s.backoff = time.Millisecond
	return s
}

func seedPendingRequest(t *testing.T, repo *fakeRequestRepo, due time.Time) *models.ApprovalRequest {
	t.Helper()
	req := &models.ApprovalRequest{
		ID:                primitive.NewObjectID(),
		TemplateCode:      "WF-TEST-001",
		TemplateVersion:   1,
		Status:            models.RequestStatusPending,
		CurrentLevelOrder: 1,
		Transaction:       models.TransactionRef{Subject: "Quarterly spend", RequesterID: "u-emp-1"},
		EscalationHours:   12,
		MaxEscalations:    2,
		Levels: []models.LevelState{
			{
				LevelOrder:  1,
				Name:        "Manager",
				Approvers:   []string{"u-mgr-1"},
				ActivatedAt: due.Add(-24 * time.Hour),
				DueAt:       due,
				SLAHours:    24,
			},
		},
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func TestSweepSkipsRequestsWithinSLA(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	s := newTestScheduler(repo, notifier, audit)

	due := time.Now().Add(time.Hour)
	req := seedPendingRequest(t, repo, due)

	require.NoError(t, s.Sweep(context.Background()))

	stored, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Levels[0].EscalationCount)
	assert.Equal(t, due, stored.Levels[0].DueAt)
	assert.Empty(t, notifier.events)
}

func TestSweepEscalatesOverdueLevel(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	s := newTestScheduler(repo, notifier, audit)

	due := time.Now().Add(-time.Hour)
	req := seedPendingRequest(t, repo, due)

	require.NoError(t, s.Sweep(context.Background()))

	stored, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	lvl := stored.Levels[0]
	assert.Equal(t, 1, lvl.EscalationCount)
	assert.Equal(t, due.Add(12*time.Hour), lvl.DueAt)
	assert.Nil(t, lvl.ExhaustedAt)

	assert.Equal(t, []models.AuditAction{models.AuditActionEscalate}, audit.actions)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventEscalated, notifier.events[0].Type)
	assert.Equal(t, []string{"u-mgr-1"}, notifier.events[0].ApproverIDs)
}

func TestSweepAppliesOneStepPerPass(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	s := newTestScheduler(repo, notifier, audit)

	// far enough overdue that every extension stays in the past
	due := time.Now().Add(-100 * time.Hour)
	req := seedPendingRequest(t, repo, due)

	require.NoError(t, s.Sweep(context.Background()))
	require.NoError(t, s.Sweep(context.Background()))

	stored, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Levels[0].EscalationCount)
	assert.Equal(t, due.Add(24*time.Hour), stored.Levels[0].DueAt)
	assert.Equal(t, []EventType{EventEscalated, EventEscalated}, notifier.types())
}

func TestSweepFlagsExhaustionOnce(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	s := newTestScheduler(repo, notifier, audit)

	due := time.Now().Add(-100 * time.Hour)
	req := seedPendingRequest(t, repo, due)

	// two escalations, then the exhaustion flag, then nothing
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Sweep(context.Background()))
	}

	stored, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	lvl := stored.Levels[0]
	assert.Equal(t, 2, lvl.EscalationCount)
	require.NotNil(t, lvl.ExhaustedAt)

	assert.Equal(t, []EventType{EventEscalated, EventEscalated, EventExhausted}, notifier.types())
	assert.Equal(t, []models.AuditAction{
		models.AuditActionEscalate,
		models.AuditActionEscalate,
		models.AuditActionExhaust,
	}, audit.actions)
}

func TestSweepIgnoresTerminalRequests(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	s := newTestScheduler(repo, notifier, audit)

	req := seedPendingRequest(t, repo, time.Now().Add(-time.Hour))
	stored, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	stored.Status = models.RequestStatusRejected
	require.NoError(t, repo.Update(context.Background(), stored))

	require.NoError(t, s.Sweep(context.Background()))
	assert.Empty(t, notifier.events)
}

func TestProcessRetriesAfterConflict(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	s := newTestScheduler(repo, notifier, audit)

	req := seedPendingRequest(t, repo, time.Now().Add(-time.Hour))
	repo.failUpdates = 1

	require.NoError(t, s.Sweep(context.Background()))

	stored, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Levels[0].EscalationCount)
}

func TestZeroMaxEscalationsGoesStraightToExhausted(t *testing.T) {
	repo := newFakeRequestRepo()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	s := newTestScheduler(repo, notifier, audit)

	req := seedPendingRequest(t, repo, time.Now().Add(-time.Hour))
	stored, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	stored.MaxEscalations = 0
	require.NoError(t, repo.Update(context.Background(), stored))

	require.NoError(t, s.Sweep(context.Background()))

	got, err := repo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Levels[0].EscalationCount)
	require.NotNil(t, got.Levels[0].ExhaustedAt)
	assert.Equal(t, []EventType{EventExhausted}, notifier.types())
}
