package logger

import (
	"context"
	"fmt"
	"time"

	"go-approvals/internal/config"
	"go-approvals/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to the async worker
type LogEntry struct {
	Level     zapcore.Level
	Message   string
	RequestID string // approval request the entry relates to, if any
	ActorID   string
	Caller    string // Function name
}

type logRecord struct {
	Message    string    `bson:"message"`
	RequestID  string    `bson:"request_id,omitempty"`
	ActorID    string    `bson:"actor_id,omitempty"`
	Caller     string    `bson:"caller,omitempty"`
	LogLevelId int       `bson:"log_level_id"`
	AppId      string    `bson:"app_id"`
	CreatedAt  time.Time `bson:"created_at"`
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	db      *mongo.Database
	logChan chan LogEntry
	appId   string
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		db:      mongodb.DB,
		logChan: make(chan LogEntry, 1000), // Buffer 1000 logs
		appId:   cfg.AppId,
	}

	// Start the background worker immediately
	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
		// Log pushed to channel
	default:
		// Channel full: drop log rather than block the engine
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

func (w *DBLogWriter) processLogs() {
	for entry := range w.logChan {
		record := logRecord{
			Message:    entry.Message,
			RequestID:  entry.RequestID,
			ActorID:    entry.ActorID,
			Caller:     entry.Caller,
			LogLevelId: mapLevelToInt(entry.Level),
			AppId:      w.appId,
			CreatedAt:  time.Now().UTC(),
		}

		// Insert into DB (errors ignored to keep the engine running)
		w.db.Collection("engine_logs").InsertOne(context.Background(), record)
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
