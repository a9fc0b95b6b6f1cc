package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-approvals/internal/models"
	"go-approvals/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler is the time-driven side process: it sweeps pending requests on a
// fixed interval, escalates overdue levels and flags exhausted escalations.
// It never changes approver sets or levels; escalation is an urgency signal.
type Scheduler struct {
	requests repository.RequestRepository
	notifier Notifier
	audit    AuditSink
	logger   *zap.Logger

	cron       *cron.Cron
	interval   string
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

func NewScheduler(
	requests repository.RequestRepository,
	notifier Notifier,
	audit AuditSink,
	logger *zap.Logger,
	interval string,
) *Scheduler {
	if interval == "" {
		interval = "@every 1m"
	}
	return &Scheduler{
		requests:   requests,
		notifier:   notifier,
		audit:      audit,
		logger:     logger,
		interval:   interval,
		maxRetries: 3,
		backoff:    50 * time.Millisecond,
		now:        time.Now,
	}
}

// Start registers the sweep with the cron runner and begins ticking
func (s *Scheduler) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("SLA sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid scheduler interval %q: %w", s.interval, err)
	}
	s.cron.Start()
	s.logger.Info("SLA scheduler started", zap.String("interval", s.interval))
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep scans every pending instance once. Failures on one instance are
// logged and never block the rest of the scan.
func (s *Scheduler) Sweep(ctx context.Context) error {
	pending, err := s.requests.FindPending(ctx)
	if err != nil {
		return err
	}
	for i := range pending {
		if err := s.process(ctx, &pending[i]); err != nil {
			s.logger.Error("escalation processing failed",
				zap.String("request_id", pending[i].ID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}

// process applies at most one escalation step to one instance per sweep.
// The decision-vs-scheduler race on the same instance resolves through the
// shared version guard: whoever commits first wins, the loser reloads.
func (s *Scheduler) process(ctx context.Context, req *models.ApprovalRequest) error {
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff << (attempt - 1)):
			}
		}

		lvl := req.CurrentLevel()
		if req.Status != models.RequestStatusPending || lvl == nil {
			return nil
		}
		now := s.now()
		if now.Before(lvl.DueAt) {
			return nil
		}

		switch {
		case lvl.EscalationCount < req.MaxEscalations:
			lvl.EscalationCount++
			lvl.DueAt = lvl.DueAt.Add(time.Duration(req.EscalationHours) * time.Hour)

			if err := s.requests.Update(ctx, req); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					if req, err = s.reload(ctx, req); err != nil {
						return err
					}
					continue
				}
				return err
			}

			s.audit.Record(ctx, models.AuditActionEscalate, req.ID.Hex(), models.SystemActorID, map[string]models.Change{
				"level":            {New: lvl.LevelOrder},
				"escalation_count": {Old: lvl.EscalationCount - 1, New: lvl.EscalationCount},
				"due_at":           {New: lvl.DueAt},
			})
			s.logger.Warn("approval level escalated",
				zap.String("request_id", req.ID.Hex()),
				zap.Int("level", lvl.LevelOrder),
				zap.Int("escalation_count", lvl.EscalationCount))
			s.notifier.Publish(ctx, Event{
				Type:        EventEscalated,
				RequestID:   req.ID.Hex(),
				Subject:     req.Transaction.Subject,
				LevelOrder:  lvl.LevelOrder,
				ApproverIDs: lvl.Approvers,
				DueAt:       lvl.DueAt,
				Status:      req.Status,
			})
			return nil

		case lvl.ExhaustedAt == nil:
			// escalations spent and still overdue: flag once for manual
			// intervention, then leave the instance breached
			exhausted := now
			lvl.ExhaustedAt = &exhausted

			if err := s.requests.Update(ctx, req); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					if req, err = s.reload(ctx, req); err != nil {
						return err
					}
					continue
				}
				return err
			}

			s.audit.Record(ctx, models.AuditActionExhaust, req.ID.Hex(), models.SystemActorID, map[string]models.Change{
				"level":            {New: lvl.LevelOrder},
				"escalation_count": {New: lvl.EscalationCount},
			})
			s.logger.Warn("escalations exhausted, manual intervention required",
				zap.String("request_id", req.ID.Hex()),
				zap.Int("level", lvl.LevelOrder))
			s.notifier.Publish(ctx, Event{
				Type:        EventExhausted,
				RequestID:   req.ID.Hex(),
				Subject:     req.Transaction.Subject,
				LevelOrder:  lvl.LevelOrder,
				ApproverIDs: lvl.Approvers,
				DueAt:       lvl.DueAt,
				Status:      req.Status,
			})
			return nil

		default:
			// already flagged; nothing further until a human decides
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrConcurrentModification, req.ID.Hex())
}

func (s *Scheduler) reload(ctx context.Context, req *models.ApprovalRequest) (*models.ApprovalRequest, error) {
	fresh, err := s.requests.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, req.ID.Hex())
	}
	return fresh, nil
}
