package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
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

// runMigrations creates the schema used by the repository
func runMigrations(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	migrations := []string{
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
	}

	for _, migration := range migrations {
		_, err := pool.Exec(ctx, migration)
		require.NoError(t, err)
	}
}

func testMedication(userID string) *model.Medication {
	notBefore := "08:00"
	return &model.Medication{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          "Ibuprofen",
		Dosage:        "400mg",
		Frequency:     model.FrequencyThreeTimesDaily,
		ReminderTimes: []string{"08:00", "2:30 PM", "20:00"},
		Constraints: []model.DosageConstraint{
			{
				Type:           model.ConstraintMinTimeBetween,
				MinTimeBetween: &model.MinTimeBetweenParams{DurationMinutes: 240},
			},
			{
				Type:       model.ConstraintTimeWindow,
				TimeWindow: &model.TimeWindowParams{NotBefore: &notBefore},
			},
		},
		StartDate: time.Now().AddDate(0, 0, -7).Truncate(time.Second),
		Active:    true,
	}
}

func TestMedicationRepository_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMedicationRepository(pool, zap.NewNop())

	userID := uuid.New().String()
	med := testMedication(userID)
	require.NoError(t, repo.Create(ctx, med))

	found, err := repo.FindByID(ctx, med.ID)
	require.NoError(t, err)
	assert.Equal(t, med.Name, found.Name)
	assert.Equal(t, med.Dosage, found.Dosage)
	assert.Equal(t, med.Frequency, found.Frequency)
	assert.Equal(t, med.ReminderTimes, found.ReminderTimes)
	require.Len(t, found.Constraints, 2)
	assert.Equal(t, model.ConstraintMinTimeBetween, found.Constraints[0].Type)
	require.NotNil(t, found.Constraints[0].MinTimeBetween)
	assert.Equal(t, 240, found.Constraints[0].MinTimeBetween.DurationMinutes)
	require.NotNil(t, found.Constraints[1].TimeWindow)
	require.NotNil(t, found.Constraints[1].TimeWindow.NotBefore)
	assert.Equal(t, "08:00", *found.Constraints[1].TimeWindow.NotBefore)

	listed, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	found.Dosage = "200mg"
	found.Active = false
	require.NoError(t, repo.Update(ctx, found))

	active, err := repo.FindActiveByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, repo.Delete(ctx, med.ID))
	_, err = repo.FindByID(ctx, med.ID)
	assert.Error(t, err)
}

func TestMedicationRepository_DoseLogOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMedicationRepository(pool, zap.NewNop())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("dose logs always come back most recent first", prop.ForAll(
		func(offsets []int) bool {
			med := testMedication(uuid.New().String())
			if err := repo.Create(ctx, med); err != nil {
				return false
			}

			base := time.Now().Truncate(time.Second)
			for _, offset := range offsets {
				log := &model.MedicationLog{
					ID:           uuid.New().String(),
					MedicationID: med.ID,
					Timestamp:    base.Add(-time.Duration(offset) * time.Minute),
					Status:       model.DoseTaken,
				}
				if err := repo.CreateDoseLog(ctx, log); err != nil {
					return false
				}
			}

			logs, err := repo.GetDoseLogs(ctx, med.ID)
			if err != nil || len(logs) != len(offsets) {
				return false
			}
			for i := 1; i < len(logs); i++ {
				if logs[i].Timestamp.After(logs[i-1].Timestamp) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.IntRange(0, 100000)),
	))

	properties.TestingRun(t)
}

func TestMedicationRepository_UserDoseLogsBetween(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMedicationRepository(pool, zap.NewNop())

	userID := uuid.New().String()
	medA := testMedication(userID)
	medB := testMedication(userID)
	require.NoError(t, repo.Create(ctx, medA))
	require.NoError(t, repo.Create(ctx, medB))

	otherUserMed := testMedication(uuid.New().String())
	require.NoError(t, repo.Create(ctx, otherUserMed))

	dayStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	addLog := func(medID string, at time.Time) {
		require.NoError(t, repo.CreateDoseLog(ctx, &model.MedicationLog{
			ID:           uuid.New().String(),
			MedicationID: medID,
			Timestamp:    at,
			Status:       model.DoseTaken,
		}))
	}

	addLog(medA.ID, dayStart.Add(8*time.Hour))
	addLog(medB.ID, dayStart.Add(9*time.Hour))
	addLog(medA.ID, dayStart.Add(-2*time.Hour))            // previous day
	addLog(otherUserMed.ID, dayStart.Add(10*time.Hour))    // other user
	addLog(medB.ID, dayStart.Add(24*time.Hour))            // next day, excluded by half-open range

	logs, err := repo.GetUserDoseLogsBetween(ctx, userID, dayStart, dayStart.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, medB.ID, logs[0].MedicationID)
	assert.Equal(t, medA.ID, logs[1].MedicationID)
}

func TestMedicationRepository_SaveReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMedicationRepository(pool, zap.NewNop())

	report := &model.Report{
		ID:             uuid.New().String(),
		UserID:         uuid.New().String(),
		DateRangeStart: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DateRangeEnd:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		FilePath:       "reports/adherence-2025-03.pdf",
		GeneratedAt:    time.Now(),
	}
	require.NoError(t, repo.SaveReport(ctx, report))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE id = $1`, report.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
