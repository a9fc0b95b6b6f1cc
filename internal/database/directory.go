package database

import (
	"context"
	"database/sql"
	"log"
	"time"

	"go-approvals/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// DirectoryDB wraps the Postgres HR directory used for approver resolution
type DirectoryDB struct {
	DB *sql.DB
}

// NewDirectoryDB opens the HR directory connection with lifecycle management.
// The directory is read-only from the engine's point of view.
func NewDirectoryDB(lc fx.Lifecycle, cfg *config.Config) (*DirectoryDB, error) {
	db, err := sql.Open("postgres", cfg.DirectoryDSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		// Directory outages are a transient condition for the engine; keep
		// the handle and let the resolver classify failures per call.
		log.Printf("HR directory not reachable at startup: %v", err)
	} else {
		log.Println("Connected to HR directory (Postgres)")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing HR directory connection...")
			return db.Close()
		},
	})

	return &DirectoryDB{DB: db}, nil
}
