package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wellnest-io/wellnest-backend/internal/audit"
	"github.com/wellnest-io/wellnest-backend/internal/security"
	"go.uber.org/zap"
)

// setupTestDB creates a PostgreSQL testcontainer and returns the connection pool
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("wellnest_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	runMigrations(t, pool)

	cleanup := func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return pool, cleanup
}

// runMigrations creates the schema used by the GDPR tests
func runMigrations(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS medications (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			dosage VARCHAR(255) NOT NULL,
			frequency VARCHAR(50) NOT NULL,
			reminder_times JSONB,
			constraints JSONB,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP,
			notes TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS medication_dose_logs (
			id UUID PRIMARY KEY,
			medication_id UUID NOT NULL REFERENCES medications(id) ON DELETE CASCADE,
			timestamp TIMESTAMP NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			date_range_start TIMESTAMP NOT NULL,
			date_range_end TIMESTAMP NOT NULL,
			file_path TEXT NOT NULL,
			generated_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			operation_type VARCHAR(50) NOT NULL,
			resource_type VARCHAR(50) NOT NULL,
			resource_id UUID NOT NULL,
			timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
			detail TEXT
		)`,
	}

	for _, migration := range migrations {
		_, err := pool.Exec(ctx, migration)
		require.NoError(t, err)
	}
}

type testDataCounts struct {
	Medications int
	DoseLogs    int
	Reports     int
}

// seedUserData inserts a user with medications, dose logs, and reports
func seedUserData(t *testing.T, db *pgxpool.Pool, userID string, counts testDataCounts) {
	ctx := context.Background()

	_, err := db.Exec(ctx, `
		INSERT INTO users (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`, userID, "Test User", userID+"@example.com")
	require.NoError(t, err)

	logsPerMed := 0
	if counts.Medications > 0 {
		logsPerMed = counts.DoseLogs / counts.Medications
	}

	for i := 0; i < counts.Medications; i++ {
		medID := uuid.New().String()
		_, err = db.Exec(ctx, `
			INSERT INTO medications (id, user_id, name, dosage, frequency, reminder_times, constraints, start_date, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		`, medID, userID, "Ibuprofen", "400mg", "as_needed",
			[]byte(`["08:00","20:00"]`),
			[]byte(`[{"type":"min_time_between","min_time_between":{"duration_minutes":240}}]`),
			time.Now().AddDate(0, 0, -30))
		require.NoError(t, err)

		for j := 0; j < logsPerMed; j++ {
			_, err = db.Exec(ctx, `
				INSERT INTO medication_dose_logs (id, medication_id, timestamp, status)
				VALUES ($1, $2, $3, $4)
			`, uuid.New().String(), medID, time.Now().AddDate(0, 0, -j), "taken")
			require.NoError(t, err)
		}
	}

	for i := 0; i < counts.Reports; i++ {
		_, err = db.Exec(ctx, `
			INSERT INTO reports (id, user_id, date_range_start, date_range_end, file_path, generated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, uuid.New().String(), userID, time.Now().AddDate(0, 0, -7), time.Now(), "reports/test.pdf")
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, db *pgxpool.Pool, query string, args ...any) int {
	var count int
	err := db.QueryRow(context.Background(), query, args...).Scan(&count)
	require.NoError(t, err)
	return count
}

// Deleting a user removes every medication, dose log, and report while the
// user row survives as a soft-deleted tombstone for the audit trail
func TestProperty_DataDeletionCompleteness(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	auditLogger := audit.NewLogger(db, zap.NewNop())
	service := NewGDPRService(db, auditLogger, nil, zap.NewNop())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("data deletion removes all user data and leaves an audit entry", prop.ForAll(
		func(medications int, reports int) bool {
			userID := uuid.New().String()
			seedUserData(t, db, userID, testDataCounts{
				Medications: medications,
				DoseLogs:    medications * 2,
				Reports:     reports,
			})

			if err := service.DeleteUserData(ctx, userID); err != nil {
				t.Logf("DeleteUserData failed: %v", err)
				return false
			}

			if countRows(t, db, "SELECT COUNT(*) FROM medications WHERE user_id = $1", userID) != 0 {
				t.Logf("medications not deleted for user %s", userID)
				return false
			}

			doseLogs := countRows(t, db, `
				SELECT COUNT(*) FROM medication_dose_logs l
				JOIN medications m ON m.id = l.medication_id
				WHERE m.user_id = $1
			`, userID)
			if doseLogs != 0 {
				t.Logf("dose logs not deleted for user %s", userID)
				return false
			}

			if countRows(t, db, "SELECT COUNT(*) FROM reports WHERE user_id = $1", userID) != 0 {
				t.Logf("reports not deleted for user %s", userID)
				return false
			}

			var deletedAt *time.Time
			if err := db.QueryRow(ctx, "SELECT deleted_at FROM users WHERE id = $1", userID).Scan(&deletedAt); err != nil {
				t.Logf("user row missing after deletion: %v", err)
				return false
			}
			if deletedAt == nil {
				t.Logf("user %s not marked as deleted", userID)
				return false
			}

			auditEntries := countRows(t, db, `
				SELECT COUNT(*) FROM audit_logs
				WHERE user_id = $1 AND operation_type = 'DELETE' AND resource_type = 'user'
			`, userID)
			if auditEntries != 1 {
				t.Logf("expected 1 deletion audit entry for user %s, got %d", userID, auditEntries)
				return false
			}

			return true
		},
		gen.IntRange(1, 4),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Exports include every medication, dose log, and report the user owns
func TestProperty_DataExportCompleteness(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	auditLogger := audit.NewLogger(db, zap.NewNop())
	service := NewGDPRService(db, auditLogger, nil, zap.NewNop())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("data export includes all user data", prop.ForAll(
		func(medications int, reports int) bool {
			userID := uuid.New().String()
			counts := testDataCounts{
				Medications: medications,
				DoseLogs:    medications * 2,
				Reports:     reports,
			}
			seedUserData(t, db, userID, counts)

			jsonData, err := service.ExportUserData(ctx, userID)
			if err != nil {
				t.Logf("ExportUserData failed: %v", err)
				return false
			}

			var export UserDataExport
			if err := json.Unmarshal(jsonData, &export); err != nil {
				t.Logf("failed to parse export JSON: %v", err)
				return false
			}

			if export.User == nil || export.User.ID != userID {
				t.Logf("user data missing from export")
				return false
			}

			if len(export.Medications) != counts.Medications {
				t.Logf("medications count mismatch: expected %d, got %d", counts.Medications, len(export.Medications))
				return false
			}

			if len(export.DoseLogs) != counts.DoseLogs {
				t.Logf("dose logs count mismatch: expected %d, got %d", counts.DoseLogs, len(export.DoseLogs))
				return false
			}

			if len(export.Reports) != counts.Reports {
				t.Logf("reports count mismatch: expected %d, got %d", counts.Reports, len(export.Reports))
				return false
			}

			if export.ExportedAt.IsZero() {
				t.Logf("ExportedAt timestamp not set")
				return false
			}

			auditEntries := countRows(t, db, `
				SELECT COUNT(*) FROM audit_logs
				WHERE user_id = $1 AND operation_type = 'EXPORT' AND resource_type = 'user'
			`, userID)
			if auditEntries != 1 {
				t.Logf("expected 1 export audit entry for user %s, got %d", userID, auditEntries)
				return false
			}

			return true
		},
		gen.IntRange(1, 4),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// An encrypted export decrypts back to the same payload a plain export
// would have produced
func TestGDPRService_EncryptedExport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	auditLogger := audit.NewLogger(db, zap.NewNop())

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	encryptor, err := security.NewEncryptor(key)
	require.NoError(t, err)

	service := NewGDPRService(db, auditLogger, encryptor, zap.NewNop())

	userID := uuid.New().String()
	seedUserData(t, db, userID, testDataCounts{Medications: 2, DoseLogs: 4, Reports: 1})

	encrypted, err := service.ExportUserData(ctx, userID)
	require.NoError(t, err)

	// The ciphertext must not be readable as JSON directly
	var direct UserDataExport
	require.Error(t, json.Unmarshal(encrypted, &direct))

	decrypted, err := encryptor.Decrypt(string(encrypted))
	require.NoError(t, err)

	var export UserDataExport
	require.NoError(t, json.Unmarshal([]byte(decrypted), &export))
	require.NotNil(t, export.User)
	require.Equal(t, userID, export.User.ID)
	require.Len(t, export.Medications, 2)
	require.Len(t, export.DoseLogs, 4)
	require.Len(t, export.Reports, 1)
}
