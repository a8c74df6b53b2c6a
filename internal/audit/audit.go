package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationExport OperationType = "EXPORT"
)

// ResourceType represents the type of resource being changed
type ResourceType string

const (
	ResourceMedication ResourceType = "medication"
	ResourceDoseLog    ResourceType = "dose_log"
	ResourceReport     ResourceType = "adherence_report"
	ResourceUser       ResourceType = "user"
)

// Entry represents a single audit trail record. Dose logs are append-only
// from the user's point of view, so explicit edits and deletes always leave
// a trace here.
type Entry struct {
	ID            string
	UserID        string
	OperationType OperationType
	ResourceType  ResourceType
	ResourceID    string
	Timestamp     time.Time
	Detail        string
}

// Logger writes audit entries to the database and the structured log
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Log creates an audit log entry
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Info("audit log entry",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
	)

	query := `
		INSERT INTO audit_logs (
			user_id, operation_type, resource_type, resource_id, timestamp, detail
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := l.db.Exec(ctx, query,
		entry.UserID,
		entry.OperationType,
		entry.ResourceType,
		entry.ResourceID,
		entry.Timestamp,
		entry.Detail,
	)

	if err != nil {
		l.logger.Error("failed to write audit log to database",
			zap.Error(err),
			zap.String("resource_id", entry.ResourceID),
		)
		return err
	}

	return nil
}
