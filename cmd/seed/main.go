package main

import (
	"context"
	"time"

	"go-approvals/internal/config"
	"go-approvals/internal/database"
	"go-approvals/internal/logger"
	"go-approvals/internal/models"
	"go-approvals/internal/repository"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// directorySchema creates the lookup table the approver resolver queries.
const directorySchema = `
CREATE TABLE IF NOT EXISTS directory_users (
	user_id     TEXT PRIMARY KEY,
	full_name   TEXT NOT NULL,
	role_id     TEXT,
	position_id TEXT,
	manager_id  TEXT,
	active      BOOLEAN NOT NULL DEFAULT TRUE
)`

type directoryUser struct {
	UserID     string
	FullName   string
	RoleID     string
	PositionID string
	ManagerID  string
}

var directoryUsers = []directoryUser{
	{UserID: "u-ceo", FullName: "Dana Okafor", RoleID: "executive", PositionID: "ceo"},
	{UserID: "u-cfo", FullName: "Marek Lindqvist", RoleID: "finance_approver", PositionID: "cfo", ManagerID: "u-ceo"},
	{UserID: "u-legal-1", FullName: "Priya Raman", RoleID: "legal_approver", PositionID: "general_counsel", ManagerID: "u-ceo"},
	{UserID: "u-fin-1", FullName: "Tomas Herrera", RoleID: "finance_approver", PositionID: "finance_manager", ManagerID: "u-cfo"},
	{UserID: "u-mgr-1", FullName: "Aisha Bello", RoleID: "line_manager", PositionID: "engineering_manager", ManagerID: "u-ceo"},
	{UserID: "u-emp-1", FullName: "Jonas Petrov", RoleID: "employee", PositionID: "engineer", ManagerID: "u-mgr-1"},
	{UserID: "u-emp-2", FullName: "Mei Tanaka", RoleID: "employee", PositionID: "engineer", ManagerID: "u-mgr-1"},
}

func seedTemplates() []models.WorkflowTemplate {
	return []models.WorkflowTemplate{
		{
			Code:            "WF-TRV-001",
			Name:            "Travel Request Approval",
			TransactionType: models.TransactionTravelRequest,
			Levels: []models.LevelDefinition{
				{
					Name:       "Manager Approval",
					LevelOrder: 1,
					Rule:       models.ApproverRule{Kind: models.ResolveReportingManager},
					SLAHours:   24,
				},
			},
			EscalationHours: 12,
			MaxEscalations:  2,
			IsActive:        true,
		},
		{
			Code:            "WF-CAPEX-001",
			Name:            "Capital Expenditure Approval",
			TransactionType: models.TransactionCapitalExpenditure,
			Levels: []models.LevelDefinition{
				{
					Name:       "Manager Approval",
					LevelOrder: 1,
					Rule:       models.ApproverRule{Kind: models.ResolveReportingManager},
					SLAHours:   24,
				},
				{
					Name:       "Finance Review",
					LevelOrder: 2,
					Rule:       models.ApproverRule{Kind: models.ResolveByRole, RoleID: "finance_approver"},
					SLAHours:   48,
				},
				{
					Name:       "Legal Review",
					LevelOrder: 2,
					Rule:       models.ApproverRule{Kind: models.ResolveByRole, RoleID: "legal_approver"},
					SLAHours:   72,
				},
				{
					Name:       "Executive Sign-off",
					LevelOrder: 3,
					Rule:       models.ApproverRule{Kind: models.ResolveByPosition, PositionID: "cfo"},
					SLAHours:   48,
				},
			},
			EscalationHours: 24,
			MaxEscalations:  3,
			IsActive:        true,
		},
	}
}

// Seed loads the starter workflow templates and the directory lookup rows.
// Templates are only inserted when no active version exists for the code,
// so reruns are safe.
func Seed(
	lc fx.Lifecycle,
	templateRepo repository.TemplateRepository,
	directoryDB *database.DirectoryDB,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				logger.Info("Seeding workflow templates and directory users")

				for _, tpl := range seedTemplates() {
					existing, err := templateRepo.FindActiveByCode(ctx, tpl.Code)
					if err != nil {
						logger.Error("Failed to check template", zap.String("code", tpl.Code), zap.Error(err))
						continue
					}
					if existing != nil {
						logger.Info("Template exists, skipping", zap.String("code", tpl.Code), zap.Int("version", existing.Version))
						continue
					}

					if err := tpl.Validate(); err != nil {
						logger.Fatal("Seed template invalid", zap.String("code", tpl.Code), zap.Error(err))
					}

					latest, err := templateRepo.LatestVersion(ctx, tpl.Code)
					if err != nil {
						logger.Error("Failed to read latest version", zap.String("code", tpl.Code), zap.Error(err))
						continue
					}
					tpl.Version = latest + 1
					tpl.WorkflowType = tpl.Classify()
					tpl.CreatedAt = time.Now()
					tpl.UpdatedAt = time.Now()

					if err := templateRepo.Create(ctx, &tpl); err != nil {
						logger.Error("Failed to create template", zap.String("code", tpl.Code), zap.Error(err))
						continue
					}
					logger.Info("Template created",
						zap.String("code", tpl.Code),
						zap.Int("version", tpl.Version),
						zap.String("workflow_type", string(tpl.WorkflowType)))
				}

				if _, err := directoryDB.DB.ExecContext(ctx, directorySchema); err != nil {
					logger.Error("Failed to create directory_users table", zap.Error(err))
					return
				}

				const upsert = `
					INSERT INTO directory_users (user_id, full_name, role_id, position_id, manager_id, active)
					VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), TRUE)
					ON CONFLICT (user_id) DO UPDATE SET
						full_name = EXCLUDED.full_name,
						role_id = EXCLUDED.role_id,
						position_id = EXCLUDED.position_id,
						manager_id = EXCLUDED.manager_id,
						active = TRUE`

				for _, u := range directoryUsers {
					if _, err := directoryDB.DB.ExecContext(ctx, upsert,
						u.UserID, u.FullName, u.RoleID, u.PositionID, u.ManagerID); err != nil {
						logger.Error("Failed to upsert directory user", zap.String("user_id", u.UserID), zap.Error(err))
						continue
					}
				}
				logger.Info("Directory users seeded", zap.Int("count", len(directoryUsers)))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			database.NewDirectoryDB,
			logger.NewLogger,
			repository.NewTemplateRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
