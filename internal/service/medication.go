package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest-io/wellnest-backend/internal/audit"
	"github.com/wellnest-io/wellnest-backend/internal/engine"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
	"go.uber.org/zap"
)

// MedicationRepositoryInterface defines the data access needed by the
// medication service
type MedicationRepositoryInterface interface {
	Create(ctx context.Context, med *model.Medication) error
	FindByUserID(ctx context.Context, userID string) ([]model.Medication, error)
	FindActiveByUserID(ctx context.Context, userID string) ([]model.Medication, error)
	FindByID(ctx context.Context, medicationID string) (*model.Medication, error)
	Update(ctx context.Context, med *model.Medication) error
	Delete(ctx context.Context, medicationID string) error
	CreateDoseLog(ctx context.Context, log *model.MedicationLog) error
	GetDoseLogs(ctx context.Context, medicationID string) ([]model.MedicationLog, error)
	GetDoseLogsInRange(ctx context.Context, medicationID string, from, to time.Time) ([]model.MedicationLog, error)
	GetUserDoseLogsBetween(ctx context.Context, userID string, from, to time.Time) ([]model.MedicationLog, error)
	DeleteDoseLog(ctx context.Context, logID string) error
}

// AuditLoggerInterface records who changed what
type AuditLoggerInterface interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// MedicationService handles medication management and dosage safety logic
type MedicationService struct {
	repo   MedicationRepositoryInterface
	audit  AuditLoggerInterface
	logger *zap.Logger
}

// NewMedicationService creates a new MedicationService
func NewMedicationService(repo MedicationRepositoryInterface, auditLogger AuditLoggerInterface, logger *zap.Logger) *MedicationService {
	return &MedicationService{
		repo:   repo,
		audit:  auditLogger,
		logger: logger,
	}
}

// DoseResult is the outcome of recording a dose. Violations are advisory:
// the log entry is written regardless, so a safety rule can warn but never
// prevent the user from recording what actually happened.
type DoseResult struct {
	Log        model.MedicationLog          `json:"log"`
	Violations []engine.ConstraintViolation `json:"violations,omitempty"`
}

// AddMedication adds a new medication for a user
func (s *MedicationService) AddMedication(ctx context.Context, userID string, med *model.Medication) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if med.Name == "" {
		return fmt.Errorf("medication name is required")
	}
	if med.Dosage == "" {
		return fmt.Errorf("medication dosage is required")
	}
	if med.Frequency == "" {
		return fmt.Errorf("medication frequency is required")
	}
	if !med.Frequency.Valid() {
		return fmt.Errorf("unknown medication frequency: %s", med.Frequency)
	}

	// Reminder times that fail to parse are tolerated everywhere downstream,
	// but they are worth a warning at the door
	for _, reminder := range med.ReminderTimes {
		if _, ok := engine.ParseClock(reminder); !ok {
			s.logger.Warn("unparseable reminder time will be ignored",
				zap.String("user_id", userID),
				zap.String("reminder_time", reminder),
			)
		}
	}

	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	med.UserID = userID

	med.Active = true
	if med.EndDate != nil && med.EndDate.Before(time.Now()) {
		med.Active = false
	}

	now := time.Now()
	med.CreatedAt = now
	med.UpdatedAt = now

	if err := s.repo.Create(ctx, med); err != nil {
		s.logger.Error("failed to add medication",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("medication_name", med.Name),
		)
		return fmt.Errorf("failed to add medication: %w", err)
	}

	s.logger.Info("medication added successfully",
		zap.String("medication_id", med.ID),
		zap.String("user_id", userID),
		zap.String("name", med.Name),
	)

	return nil
}

// ListMedications retrieves all medications for a user
func (s *MedicationService) ListMedications(ctx context.Context, userID string) ([]model.Medication, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	medications, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list medications",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	// Demote medications whose end date has passed
	now := time.Now()
	for i := range medications {
		if medications[i].EndDate != nil && medications[i].EndDate.Before(now) && medications[i].Active {
			medications[i].Active = false
			if err := s.repo.Update(ctx, &medications[i]); err != nil {
				s.logger.Warn("failed to update medication active status",
					zap.Error(err),
					zap.String("medication_id", medications[i].ID),
				)
			}
		}
	}

	return medications, nil
}

// UpdateMedication updates an existing medication
func (s *MedicationService) UpdateMedication(ctx context.Context, medID string, updates *model.Medication) error {
	if medID == "" {
		return fmt.Errorf("medication ID is required")
	}
	if updates.Frequency != "" && !updates.Frequency.Valid() {
		return fmt.Errorf("unknown medication frequency: %s", updates.Frequency)
	}

	existing, err := s.repo.FindByID(ctx, medID)
	if err != nil {
		s.logger.Error("failed to find medication for update",
			zap.Error(err),
			zap.String("medication_id", medID),
		)
		return fmt.Errorf("medication not found: %w", err)
	}

	updates.ID = existing.ID
	updates.UserID = existing.UserID

	if updates.EndDate != nil && updates.EndDate.Before(time.Now()) {
		updates.Active = false
	} else {
		updates.Active = true
	}
	updates.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, updates); err != nil {
		s.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", medID),
		)
		return fmt.Errorf("failed to update medication: %w", err)
	}

	s.logger.Info("medication updated successfully",
		zap.String("medication_id", medID),
		zap.String("name", updates.Name),
	)

	return nil
}

// DeleteMedication deletes a medication and its dose history
func (s *MedicationService) DeleteMedication(ctx context.Context, medID string) error {
	if medID == "" {
		return fmt.Errorf("medication ID is required")
	}

	existing, err := s.repo.FindByID(ctx, medID)
	if err != nil {
		return fmt.Errorf("medication not found: %w", err)
	}

	if err := s.repo.Delete(ctx, medID); err != nil {
		s.logger.Error("failed to delete medication",
			zap.Error(err),
			zap.String("medication_id", medID),
		)
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, audit.Entry{
			UserID:        existing.UserID,
			OperationType: audit.OperationDelete,
			ResourceType:  audit.ResourceMedication,
			ResourceID:    medID,
			Detail:        existing.Name,
		}); err != nil {
			s.logger.Warn("failed to write audit entry", zap.Error(err))
		}
	}

	s.logger.Info("medication deleted successfully",
		zap.String("medication_id", medID),
	)

	return nil
}

// RecordDose appends a dose event for a medication and returns the safety
// violations in effect at that instant. Violations never block the write:
// refusing to record a dose that was physically taken would only make the
// history wrong.
func (s *MedicationService) RecordDose(ctx context.Context, medID string, status model.DoseStatus, at time.Time) (*DoseResult, error) {
	if medID == "" {
		return nil, fmt.Errorf("medication ID is required")
	}
	if status != model.DoseTaken && status != model.DoseSkipped {
		return nil, fmt.Errorf("invalid dose status: %s", status)
	}
	if at.IsZero() {
		at = time.Now()
	}

	med, err := s.repo.FindByID(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("medication not found: %w", err)
	}

	history, err := s.repo.GetDoseLogs(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dose history: %w", err)
	}

	violations := engine.Evaluate(*med, history, at)

	log := model.MedicationLog{
		ID:           uuid.New().String(),
		MedicationID: medID,
		Timestamp:    at,
		Status:       status,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateDoseLog(ctx, &log); err != nil {
		s.logger.Error("failed to record dose",
			zap.Error(err),
			zap.String("medication_id", medID),
		)
		return nil, fmt.Errorf("failed to record dose: %w", err)
	}

	if len(violations) > 0 {
		s.logger.Warn("dose recorded against active safety violations",
			zap.String("medication_id", medID),
			zap.Int("violation_count", len(violations)),
		)
	} else {
		s.logger.Info("dose recorded",
			zap.String("medication_id", medID),
			zap.String("status", string(status)),
		)
	}

	return &DoseResult{Log: log, Violations: violations}, nil
}

// GetDoseLogs retrieves a medication's dose history, most recent first
func (s *MedicationService) GetDoseLogs(ctx context.Context, medID string) ([]model.MedicationLog, error) {
	if medID == "" {
		return nil, fmt.Errorf("medication ID is required")
	}

	logs, err := s.repo.GetDoseLogs(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dose logs: %w", err)
	}
	return logs, nil
}

// DeleteDoseLog removes a dose log entry, leaving an audit trail
func (s *MedicationService) DeleteDoseLog(ctx context.Context, userID, logID string) error {
	if logID == "" {
		return fmt.Errorf("dose log ID is required")
	}

	if err := s.repo.DeleteDoseLog(ctx, logID); err != nil {
		s.logger.Error("failed to delete dose log",
			zap.Error(err),
			zap.String("log_id", logID),
		)
		return fmt.Errorf("failed to delete dose log: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, audit.Entry{
			UserID:        userID,
			OperationType: audit.OperationDelete,
			ResourceType:  audit.ResourceDoseLog,
			ResourceID:    logID,
		}); err != nil {
			s.logger.Warn("failed to write audit entry", zap.Error(err))
		}
	}

	return nil
}

// CheckConstraints evaluates a medication's safety rules at the given
// instant without recording anything
func (s *MedicationService) CheckConstraints(ctx context.Context, medID string, at time.Time) ([]engine.ConstraintViolation, error) {
	if medID == "" {
		return nil, fmt.Errorf("medication ID is required")
	}
	if at.IsZero() {
		at = time.Now()
	}

	med, err := s.repo.FindByID(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("medication not found: %w", err)
	}

	history, err := s.repo.GetDoseLogs(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dose history: %w", err)
	}

	return engine.Evaluate(*med, history, at), nil
}

// CanTakeNow reports whether a dose taken right now would violate any
// constraint
func (s *MedicationService) CanTakeNow(ctx context.Context, medID string) (bool, error) {
	violations, err := s.CheckConstraints(ctx, medID, time.Now())
	if err != nil {
		return false, err
	}
	return len(violations) == 0, nil
}

// NextAvailableTime computes when the next dose becomes allowed. A nil time
// with no error means no time is computable: a violation without a wait
// duration (a time-window or cumulative-amount rule) blocks until external
// state changes.
func (s *MedicationService) NextAvailableTime(ctx context.Context, medID string) (*time.Time, error) {
	if medID == "" {
		return nil, fmt.Errorf("medication ID is required")
	}

	med, err := s.repo.FindByID(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("medication not found: %w", err)
	}

	history, err := s.repo.GetDoseLogs(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dose history: %w", err)
	}

	next, ok := engine.NextAvailableAt(*med, history, time.Now())
	if !ok {
		return nil, nil
	}
	return &next, nil
}

// GetAdherenceSummary aggregates a medication's dose logs against its
// expected schedule over [startDate, endDate]
func (s *MedicationService) GetAdherenceSummary(ctx context.Context, medID string, startDate, endDate time.Time) (*engine.AdherenceSummary, error) {
	if medID == "" {
		return nil, fmt.Errorf("medication ID is required")
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date must not be before start date")
	}

	med, err := s.repo.FindByID(ctx, medID)
	if err != nil {
		return nil, fmt.Errorf("medication not found: %w", err)
	}

	logs, err := s.repo.GetDoseLogsInRange(ctx, medID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load dose logs: %w", err)
	}

	summary := engine.SummarizeAdherence(med.Frequency, logs, startDate, endDate)

	s.logger.Info("adherence summary computed",
		zap.String("medication_id", medID),
		zap.Int("total_expected", summary.TotalExpected),
		zap.Int("total_taken", summary.TotalTaken),
	)

	return &summary, nil
}

// GetOverdueMedications returns the user's currently overdue medications,
// most overdue first
func (s *MedicationService) GetOverdueMedications(ctx context.Context, userID string, now time.Time) ([]engine.OverdueMedication, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if now.IsZero() {
		now = time.Now()
	}

	medications, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active medications: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todaysLogs, err := s.repo.GetUserDoseLogsBetween(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load today's dose logs: %w", err)
	}

	overdue := engine.DetectOverdue(medications, todaysLogs, now)

	s.logger.Info("overdue check completed",
		zap.String("user_id", userID),
		zap.Int("medication_count", len(medications)),
		zap.Int("overdue_count", len(overdue)),
	)

	return overdue, nil
}
