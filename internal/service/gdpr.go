package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wellnest-io/wellnest-backend/internal/audit"
	"github.com/wellnest-io/wellnest-backend/internal/security"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
	"go.uber.org/zap"
)

// GDPRService handles GDPR compliance operations
type GDPRService struct {
	db          *pgxpool.Pool
	auditLogger *audit.Logger
	encryptor   *security.Encryptor
	logger      *zap.Logger
}

// NewGDPRService creates a new GDPR service. The encryptor is optional;
// when present, exports are encrypted at rest.
func NewGDPRService(db *pgxpool.Pool, auditLogger *audit.Logger, encryptor *security.Encryptor, logger *zap.Logger) *GDPRService {
	return &GDPRService{
		db:          db,
		auditLogger: auditLogger,
		encryptor:   encryptor,
		logger:      logger,
	}
}

// UserDataExport represents all user data for export
type UserDataExport struct {
	User        *model.User           `json:"user"`
	Medications []model.Medication    `json:"medications"`
	DoseLogs    []model.MedicationLog `json:"dose_logs"`
	Reports     []model.Report        `json:"reports"`
	ExportedAt  time.Time             `json:"exported_at"`
}

// DeleteUserData deletes all user data (GDPR right to be forgotten).
// Audit logs are retained; the user row is soft-deleted so the audit
// trail keeps a valid reference.
func (s *GDPRService) DeleteUserData(ctx context.Context, userID string) error {
	s.logger.Info("starting user data deletion (GDPR)",
		zap.String("user_id", userID),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Dose logs cascade from medications, but the explicit delete keeps the
	// order obvious and survives schema changes
	_, err = tx.Exec(ctx, `
		DELETE FROM medication_dose_logs
		WHERE medication_id IN (SELECT id FROM medications WHERE user_id = $1)
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete dose logs: %w", err)
	}

	_, err = tx.Exec(ctx, "DELETE FROM medications WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to delete medications: %w", err)
	}

	_, err = tx.Exec(ctx, "DELETE FROM reports WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to delete reports: %w", err)
	}

	_, err = tx.Exec(ctx, "UPDATE users SET deleted_at = $1 WHERE id = $2", time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to mark user as deleted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.auditLogger.Log(ctx, audit.Entry{
		UserID:        userID,
		OperationType: audit.OperationDelete,
		ResourceType:  audit.ResourceUser,
		ResourceID:    userID,
		Detail:        "GDPR data deletion",
	}); err != nil {
		s.logger.Error("failed to log audit entry for user deletion", zap.Error(err))
	}

	s.logger.Info("user data deletion completed (GDPR)",
		zap.String("user_id", userID),
	)

	return nil
}

// ExportUserData exports all user data to JSON (GDPR right to data
// portability). When an encryptor is configured, the payload is
// AES-256-GCM encrypted.
func (s *GDPRService) ExportUserData(ctx context.Context, userID string) ([]byte, error) {
	s.logger.Info("starting user data export (GDPR)",
		zap.String("user_id", userID),
	)

	export := UserDataExport{
		ExportedAt: time.Now(),
	}

	var user model.User
	err := s.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at, deleted_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	export.User = &user

	medRows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, dosage, frequency, reminder_times, constraints,
		       start_date, end_date, notes, active, created_at, updated_at
		FROM medications WHERE user_id = $1
		ORDER BY start_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get medications: %w", err)
	}
	defer medRows.Close()

	for medRows.Next() {
		var med model.Medication
		var reminderTimes, constraints []byte
		err := medRows.Scan(
			&med.ID, &med.UserID, &med.Name, &med.Dosage, &med.Frequency,
			&reminderTimes, &constraints,
			&med.StartDate, &med.EndDate, &med.Notes, &med.Active,
			&med.CreatedAt, &med.UpdatedAt,
		)
		if err != nil {
			s.logger.Error("failed to scan medication", zap.Error(err))
			continue
		}
		if len(reminderTimes) > 0 {
			if err := json.Unmarshal(reminderTimes, &med.ReminderTimes); err != nil {
				s.logger.Error("failed to decode reminder times", zap.Error(err))
			}
		}
		if len(constraints) > 0 {
			if err := json.Unmarshal(constraints, &med.Constraints); err != nil {
				s.logger.Error("failed to decode constraints", zap.Error(err))
			}
		}
		export.Medications = append(export.Medications, med)
	}

	logRows, err := s.db.Query(ctx, `
		SELECT l.id, l.medication_id, l.timestamp, l.status, l.created_at
		FROM medication_dose_logs l
		JOIN medications m ON m.id = l.medication_id
		WHERE m.user_id = $1
		ORDER BY l.timestamp DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dose logs: %w", err)
	}
	defer logRows.Close()

	for logRows.Next() {
		var log model.MedicationLog
		err := logRows.Scan(&log.ID, &log.MedicationID, &log.Timestamp, &log.Status, &log.CreatedAt)
		if err != nil {
			s.logger.Error("failed to scan dose log", zap.Error(err))
			continue
		}
		export.DoseLogs = append(export.DoseLogs, log)
	}

	reportRows, err := s.db.Query(ctx, `
		SELECT id, user_id, date_range_start, date_range_end, file_path,
		       generated_at, created_at
		FROM reports WHERE user_id = $1
		ORDER BY generated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer reportRows.Close()

	for reportRows.Next() {
		var report model.Report
		err := reportRows.Scan(
			&report.ID, &report.UserID, &report.DateRangeStart, &report.DateRangeEnd,
			&report.FilePath, &report.GeneratedAt, &report.CreatedAt,
		)
		if err != nil {
			s.logger.Error("failed to scan report", zap.Error(err))
			continue
		}
		export.Reports = append(export.Reports, report)
	}

	jsonData, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export data: %w", err)
	}

	if err := s.auditLogger.Log(ctx, audit.Entry{
		UserID:        userID,
		OperationType: audit.OperationExport,
		ResourceType:  audit.ResourceUser,
		ResourceID:    userID,
		Detail:        "GDPR data export",
	}); err != nil {
		s.logger.Error("failed to log audit entry for user export", zap.Error(err))
	}

	s.logger.Info("user data export completed (GDPR)",
		zap.String("user_id", userID),
		zap.Int("medications", len(export.Medications)),
		zap.Int("dose_logs", len(export.DoseLogs)),
		zap.Int("reports", len(export.Reports)),
	)

	if s.encryptor != nil {
		encrypted, err := s.encryptor.Encrypt(string(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt export data: %w", err)
		}
		return []byte(encrypted), nil
	}

	return jsonData, nil
}
