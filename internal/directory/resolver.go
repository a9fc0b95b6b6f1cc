// Package directory resolves approver-resolution rules against the HR
// directory (Postgres). The engine only sees the ApproverResolver contract;
// every lookup failure is classified as a transient directory outage.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	"go-approvals/internal/database"
	"go-approvals/internal/engine"
	"go-approvals/internal/models"

	"go.uber.org/zap"
)

type SQLResolver struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLResolver(directory *database.DirectoryDB, logger *zap.Logger) engine.ApproverResolver {
	return &SQLResolver{
		db:     directory.DB,
		logger: logger,
	}
}

// Resolve dispatches on the rule variant. Results are deterministic for a
// given directory snapshot (ordered queries); an empty set is a valid
// outcome and triggers auto-approval upstream.
func (r *SQLResolver) Resolve(ctx context.Context, rule models.ApproverRule, requesterID string) ([]string, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	switch rule.Kind {
	case models.ResolveExplicitUser:
		// no directory hit needed
		return []string{rule.UserID}, nil

	case models.ResolveByRole:
		return r.queryUsers(ctx,
			`SELECT user_id FROM directory_users WHERE role_id = $1 AND active ORDER BY user_id`,
			rule.RoleID)

	case models.ResolveByPosition:
		return r.queryUsers(ctx,
			`SELECT user_id FROM directory_users WHERE position_id = $1 AND active ORDER BY user_id`,
			rule.PositionID)

	case models.ResolveReportingManager:
		return r.queryManager(ctx, requesterID)

	default:
		return nil, fmt.Errorf("unknown resolution kind %q", rule.Kind)
	}
}

func (r *SQLResolver) queryUsers(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		r.logger.Warn("directory query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", engine.ErrDirectoryUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrDirectoryUnavailable, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrDirectoryUnavailable, err)
	}
	return ids, nil
}

func (r *SQLResolver) queryManager(ctx context.Context, requesterID string) ([]string, error) {
	var managerID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT manager_id FROM directory_users WHERE user_id = $1 AND active`,
		requesterID).Scan(&managerID)
	if err == sql.ErrNoRows {
		// requester unknown or off-boarded: empty set, not an outage
		return nil, nil
	}
	if err != nil {
		r.logger.Warn("directory manager lookup failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", engine.ErrDirectoryUnavailable, err)
	}
	if !managerID.Valid || managerID.String == "" {
		return nil, nil
	}
	return []string{managerID.String}, nil
}
