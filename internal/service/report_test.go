package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wellnest-io/wellnest-backend/internal/azure"
	"github.com/wellnest-io/wellnest-backend/internal/pdf"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
	"go.uber.org/zap"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) FindByUserID(ctx context.Context, userID string) ([]model.Medication, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Medication), args.Error(1)
}

func (m *MockReportRepository) GetDoseLogsInRange(ctx context.Context, medID string, from, to time.Time) ([]model.MedicationLog, error) {
	args := m.Called(ctx, medID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MedicationLog), args.Error(1)
}

func (m *MockReportRepository) SaveReport(ctx context.Context, report *model.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func TestGenerateReport_RoundTrip(t *testing.T) {
	repo := new(MockReportRepository)
	blob := azure.NewMockBlobStorageClient(zap.NewNop())
	service := NewReportService(repo, blob, pdf.NewPDFGenerator(zap.NewNop()), zap.NewNop())

	startDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	meds := []model.Medication{
		{
			ID:        "med-1",
			UserID:    "user-1",
			Name:      "Aspirin",
			Dosage:    "100mg",
			Frequency: model.FrequencyOnceDaily,
			StartDate: startDate,
			Active:    true,
		},
	}

	repo.On("FindByUserID", mock.Anything, "user-1").Return(meds, nil)
	repo.On("GetDoseLogsInRange", mock.Anything, "med-1", startDate, endDate).Return([]model.MedicationLog{
		{ID: "log-1", MedicationID: "med-1", Timestamp: startDate.Add(8 * time.Hour), Status: model.DoseTaken},
	}, nil)

	var saved *model.Report
	repo.On("SaveReport", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*model.Report)
	}).Return(nil)

	reportID, err := service.GenerateReport(context.Background(), "user-1", "Test User", startDate, endDate)
	require.NoError(t, err)
	assert.NotEmpty(t, reportID)

	require.NotNil(t, saved)
	assert.Equal(t, reportID, saved.ID)
	assert.Equal(t, "user-1", saved.UserID)

	// the uploaded blob is downloadable via the stored path
	repo.On("GetReportByID", mock.Anything, reportID).Return(saved, nil)
	pdfBytes, err := service.GetReport(context.Background(), reportID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestGenerateReport_ValidationErrors(t *testing.T) {
	service := NewReportService(nil, nil, pdf.NewPDFGenerator(zap.NewNop()), zap.NewNop())

	start := time.Now()

	_, err := service.GenerateReport(context.Background(), "", "Test User", start, start.AddDate(0, 1, 0))
	assert.ErrorContains(t, err, "user ID is required")

	_, err = service.GenerateReport(context.Background(), "user-1", "Test User", start, start.Add(-time.Hour))
	assert.ErrorContains(t, err, "end date must not be before start date")
}

func TestGetReport_MissingBlob(t *testing.T) {
	repo := new(MockReportRepository)
	blob := azure.NewMockBlobStorageClient(zap.NewNop())
	service := NewReportService(repo, blob, pdf.NewPDFGenerator(zap.NewNop()), zap.NewNop())

	repo.On("GetReportByID", mock.Anything, "report-1").Return(&model.Report{
		ID:       "report-1",
		UserID:   "user-1",
		FilePath: "reports/gone.pdf",
	}, nil)

	_, err := service.GetReport(context.Background(), "report-1")
	assert.ErrorContains(t, err, "failed to download PDF")
}

func TestGetReportsByUserID(t *testing.T) {
	repo := new(MockReportRepository)
	service := NewReportService(repo, nil, nil, zap.NewNop())

	reports := []model.Report{
		{ID: "report-2", UserID: "user-1"},
		{ID: "report-1", UserID: "user-1"},
	}
	repo.On("GetReportsByUserID", mock.Anything, "user-1").Return(reports, nil)

	got, err := service.GetReportsByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, reports, got)
}
