package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
	"go.uber.org/zap"
)

// MedicationRepository manages medication and dose log data
type MedicationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewMedicationRepository creates a new MedicationRepository
func NewMedicationRepository(db *pgxpool.Pool, logger *zap.Logger) *MedicationRepository {
	return &MedicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new medication record
func (r *MedicationRepository) Create(ctx context.Context, med *model.Medication) error {
	reminderTimes, constraints, err := marshalScheduleFields(med)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO medications (
			id, user_id, name, dosage, frequency,
			reminder_times, constraints,
			start_date, end_date, notes, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`

	_, err = r.db.Exec(ctx, query,
		med.ID,
		med.UserID,
		med.Name,
		med.Dosage,
		med.Frequency,
		reminderTimes,
		constraints,
		med.StartDate,
		med.EndDate,
		med.Notes,
		med.Active,
	)

	if err != nil {
		r.logger.Error("failed to create medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
			zap.String("user_id", med.UserID),
		)
		return fmt.Errorf("failed to create medication: %w", err)
	}

	return nil
}

// FindByUserID retrieves all medications for a user, sorted by start date
func (r *MedicationRepository) FindByUserID(ctx context.Context, userID string) ([]model.Medication, error) {
	query := medicationSelect + `
		WHERE user_id = $1
		ORDER BY start_date DESC
	`
	return r.queryMedications(ctx, query, userID)
}

// FindActiveByUserID retrieves the user's active medications
func (r *MedicationRepository) FindActiveByUserID(ctx context.Context, userID string) ([]model.Medication, error) {
	query := medicationSelect + `
		WHERE user_id = $1 AND active = TRUE
		ORDER BY start_date DESC
	`
	return r.queryMedications(ctx, query, userID)
}

// FindByID retrieves a medication by ID
func (r *MedicationRepository) FindByID(ctx context.Context, medicationID string) (*model.Medication, error) {
	query := medicationSelect + ` WHERE id = $1`

	row := r.db.QueryRow(ctx, query, medicationID)
	med, err := scanMedication(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("medication not found: %s", medicationID)
		}
		r.logger.Error("failed to find medication", zap.Error(err), zap.String("medication_id", medicationID))
		return nil, fmt.Errorf("failed to find medication: %w", err)
	}

	return med, nil
}

// Update updates an existing medication record
func (r *MedicationRepository) Update(ctx context.Context, med *model.Medication) error {
	reminderTimes, constraints, err := marshalScheduleFields(med)
	if err != nil {
		return err
	}

	query := `
		UPDATE medications
		SET name = $1, dosage = $2, frequency = $3,
		    reminder_times = $4, constraints = $5,
		    start_date = $6, end_date = $7, notes = $8,
		    active = $9, updated_at = NOW()
		WHERE id = $10
	`

	result, err := r.db.Exec(ctx, query,
		med.Name,
		med.Dosage,
		med.Frequency,
		reminderTimes,
		constraints,
		med.StartDate,
		med.EndDate,
		med.Notes,
		med.Active,
		med.ID,
	)

	if err != nil {
		r.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
		return fmt.Errorf("failed to update medication: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("medication not found: %s", med.ID)
	}

	return nil
}

// Delete deletes a medication record and its dose logs
func (r *MedicationRepository) Delete(ctx context.Context, medicationID string) error {
	query := `DELETE FROM medications WHERE id = $1`

	result, err := r.db.Exec(ctx, query, medicationID)
	if err != nil {
		r.logger.Error("failed to delete medication",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("medication not found: %s", medicationID)
	}

	return nil
}

// CreateDoseLog appends a dose event for a medication
func (r *MedicationRepository) CreateDoseLog(ctx context.Context, log *model.MedicationLog) error {
	query := `
		INSERT INTO medication_dose_logs (id, medication_id, timestamp, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		log.ID,
		log.MedicationID,
		log.Timestamp,
		log.Status,
	)

	if err != nil {
		r.logger.Error("failed to create dose log",
			zap.Error(err),
			zap.String("medication_id", log.MedicationID),
		)
		return fmt.Errorf("failed to create dose log: %w", err)
	}

	return nil
}

// GetDoseLogs retrieves all dose logs for a medication, most recent first
func (r *MedicationRepository) GetDoseLogs(ctx context.Context, medicationID string) ([]model.MedicationLog, error) {
	query := `
		SELECT id, medication_id, timestamp, status, created_at
		FROM medication_dose_logs
		WHERE medication_id = $1
		ORDER BY timestamp DESC
	`
	return r.queryDoseLogs(ctx, query, medicationID)
}

// GetDoseLogsInRange retrieves a medication's dose logs within [from, to],
// most recent first
func (r *MedicationRepository) GetDoseLogsInRange(ctx context.Context, medicationID string, from, to time.Time) ([]model.MedicationLog, error) {
	query := `
		SELECT id, medication_id, timestamp, status, created_at
		FROM medication_dose_logs
		WHERE medication_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
	`
	return r.queryDoseLogs(ctx, query, medicationID, from, to)
}

// GetUserDoseLogsBetween retrieves dose logs across all of a user's
// medications within [from, to), most recent first
func (r *MedicationRepository) GetUserDoseLogsBetween(ctx context.Context, userID string, from, to time.Time) ([]model.MedicationLog, error) {
	query := `
		SELECT l.id, l.medication_id, l.timestamp, l.status, l.created_at
		FROM medication_dose_logs l
		JOIN medications m ON m.id = l.medication_id
		WHERE m.user_id = $1 AND l.timestamp >= $2 AND l.timestamp < $3
		ORDER BY l.timestamp DESC
	`
	return r.queryDoseLogs(ctx, query, userID, from, to)
}

// DeleteDoseLog removes a single dose log entry
func (r *MedicationRepository) DeleteDoseLog(ctx context.Context, logID string) error {
	query := `DELETE FROM medication_dose_logs WHERE id = $1`

	result, err := r.db.Exec(ctx, query, logID)
	if err != nil {
		r.logger.Error("failed to delete dose log",
			zap.Error(err),
			zap.String("log_id", logID),
		)
		return fmt.Errorf("failed to delete dose log: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("dose log not found: %s", logID)
	}

	return nil
}

// SaveReport records metadata for a generated adherence report
func (r *MedicationRepository) SaveReport(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (id, user_id, date_range_start, date_range_end, file_path, generated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		report.ID,
		report.UserID,
		report.DateRangeStart,
		report.DateRangeEnd,
		report.FilePath,
		report.GeneratedAt,
	)

	if err != nil {
		r.logger.Error("failed to save report metadata",
			zap.Error(err),
			zap.String("report_id", report.ID),
		)
		return fmt.Errorf("failed to save report metadata: %w", err)
	}

	return nil
}

// GetReportByID retrieves report metadata by ID
func (r *MedicationRepository) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	query := `
		SELECT id, user_id, date_range_start, date_range_end, file_path, generated_at, created_at
		FROM reports
		WHERE id = $1
	`

	var report model.Report
	err := r.db.QueryRow(ctx, query, reportID).Scan(
		&report.ID,
		&report.UserID,
		&report.DateRangeStart,
		&report.DateRangeEnd,
		&report.FilePath,
		&report.GeneratedAt,
		&report.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("report not found: %s", reportID)
		}
		r.logger.Error("failed to find report", zap.Error(err), zap.String("report_id", reportID))
		return nil, fmt.Errorf("failed to find report: %w", err)
	}

	return &report, nil
}

// GetReportsByUserID retrieves all report metadata for a user, newest first
func (r *MedicationRepository) GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error) {
	query := `
		SELECT id, user_id, date_range_start, date_range_end, file_path, generated_at, created_at
		FROM reports
		WHERE user_id = $1
		ORDER BY generated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to query reports", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var report model.Report
		err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.DateRangeStart,
			&report.DateRangeEnd,
			&report.FilePath,
			&report.GeneratedAt,
			&report.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan report", zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating reports", zap.Error(err))
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

const medicationSelect = `
	SELECT
		id, user_id, name, dosage, frequency,
		reminder_times, constraints,
		start_date, end_date, notes, active,
		created_at, updated_at
	FROM medications
`

func (r *MedicationRepository) queryMedications(ctx context.Context, query string, args ...any) ([]model.Medication, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query medications", zap.Error(err))
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	var medications []model.Medication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			r.logger.Error("failed to scan medication", zap.Error(err))
			continue
		}
		medications = append(medications, *med)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating medications", zap.Error(err))
		return nil, fmt.Errorf("error iterating medications: %w", err)
	}

	return medications, nil
}

func (r *MedicationRepository) queryDoseLogs(ctx context.Context, query string, args ...any) ([]model.MedicationLog, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query dose logs", zap.Error(err))
		return nil, fmt.Errorf("failed to query dose logs: %w", err)
	}
	defer rows.Close()

	var logs []model.MedicationLog
	for rows.Next() {
		var log model.MedicationLog
		err := rows.Scan(
			&log.ID,
			&log.MedicationID,
			&log.Timestamp,
			&log.Status,
			&log.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan dose log", zap.Error(err))
			continue
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating dose logs", zap.Error(err))
		return nil, fmt.Errorf("error iterating dose logs: %w", err)
	}

	return logs, nil
}

func scanMedication(row pgx.Row) (*model.Medication, error) {
	var med model.Medication
	var reminderTimes, constraints []byte

	err := row.Scan(
		&med.ID,
		&med.UserID,
		&med.Name,
		&med.Dosage,
		&med.Frequency,
		&reminderTimes,
		&constraints,
		&med.StartDate,
		&med.EndDate,
		&med.Notes,
		&med.Active,
		&med.CreatedAt,
		&med.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(reminderTimes) > 0 {
		if err := json.Unmarshal(reminderTimes, &med.ReminderTimes); err != nil {
			return nil, fmt.Errorf("failed to decode reminder times: %w", err)
		}
	}
	if len(constraints) > 0 {
		if err := json.Unmarshal(constraints, &med.Constraints); err != nil {
			return nil, fmt.Errorf("failed to decode constraints: %w", err)
		}
	}

	return &med, nil
}

func marshalScheduleFields(med *model.Medication) ([]byte, []byte, error) {
	reminderTimes, err := json.Marshal(med.ReminderTimes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode reminder times: %w", err)
	}
	constraints, err := json.Marshal(med.Constraints)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode constraints: %w", err)
	}
	return reminderTimes, constraints, nil
}
