package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest-io/wellnest-backend/internal/azure"
	"github.com/wellnest-io/wellnest-backend/internal/engine"
	"github.com/wellnest-io/wellnest-backend/internal/pdf"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
	"go.uber.org/zap"
)

// ReportRepositoryInterface defines the data access needed by the report
// service
type ReportRepositoryInterface interface {
	FindByUserID(ctx context.Context, userID string) ([]model.Medication, error)
	GetDoseLogsInRange(ctx context.Context, medicationID string, from, to time.Time) ([]model.MedicationLog, error)
	SaveReport(ctx context.Context, report *model.Report) error
	GetReportByID(ctx context.Context, reportID string) (*model.Report, error)
	GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error)
}

// ReportService manages adherence report generation
type ReportService struct {
	repo       ReportRepositoryInterface
	blobClient azure.BlobStorage
	pdfGen     *pdf.PDFGenerator
	logger     *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	repo ReportRepositoryInterface,
	blobClient azure.BlobStorage,
	pdfGen *pdf.PDFGenerator,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		repo:       repo,
		blobClient: blobClient,
		pdfGen:     pdfGen,
		logger:     logger,
	}
}

// GenerateReport builds an adherence report PDF over [startDate, endDate],
// uploads it, and records its metadata. Returns the report ID.
func (s *ReportService) GenerateReport(ctx context.Context, userID string, userName string, startDate, endDate time.Time) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}
	if endDate.Before(startDate) {
		return "", fmt.Errorf("end date must not be before start date")
	}

	s.logger.Info("generating adherence report",
		zap.String("user_id", userID),
		zap.Time("start_date", startDate),
		zap.Time("end_date", endDate),
	)

	reportID := uuid.New().String()

	medications, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get medications for report",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return "", fmt.Errorf("failed to get medications: %w", err)
	}

	adherence := make([]pdf.MedicationAdherence, 0, len(medications))
	for _, med := range medications {
		logs, err := s.repo.GetDoseLogsInRange(ctx, med.ID, startDate, endDate)
		if err != nil {
			s.logger.Error("failed to get dose logs for report",
				zap.Error(err),
				zap.String("medication_id", med.ID),
			)
			return "", fmt.Errorf("failed to get dose logs: %w", err)
		}

		adherence = append(adherence, pdf.MedicationAdherence{
			Medication:  med,
			Summary:     engine.SummarizeAdherence(med.Frequency, logs, startDate, endDate),
			RecentDoses: logs,
		})
	}

	dateRange := fmt.Sprintf("%s to %s", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	reportData := &pdf.ReportData{
		UserName:  userName,
		DateRange: dateRange,
		Adherence: adherence,
	}

	pdfBytes, err := s.pdfGen.Generate(reportData)
	if err != nil {
		s.logger.Error("failed to generate PDF",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to generate PDF: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.pdf", reportID, time.Now().Format("20060102"))
	blobPath, err := s.blobClient.UploadPDF(ctx, filename, pdfBytes)
	if err != nil {
		s.logger.Error("failed to upload PDF to blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to upload PDF: %w", err)
	}

	report := &model.Report{
		ID:             reportID,
		UserID:         userID,
		DateRangeStart: startDate,
		DateRangeEnd:   endDate,
		FilePath:       blobPath,
		GeneratedAt:    time.Now(),
	}

	err = s.repo.SaveReport(ctx, report)
	if err != nil {
		s.logger.Error("failed to save report record",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return "", fmt.Errorf("failed to save report record: %w", err)
	}

	s.logger.Info("adherence report generated successfully",
		zap.String("report_id", reportID),
		zap.String("user_id", userID),
		zap.String("blob_path", blobPath),
	)

	return reportID, nil
}

// GetReport retrieves a report PDF for download
func (s *ReportService) GetReport(ctx context.Context, reportID string) ([]byte, error) {
	if reportID == "" {
		return nil, fmt.Errorf("report ID is required")
	}

	report, err := s.repo.GetReportByID(ctx, reportID)
	if err != nil {
		s.logger.Error("failed to get report record",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return nil, fmt.Errorf("failed to get report record: %w", err)
	}

	pdfBytes, err := s.blobClient.DownloadPDF(ctx, report.FilePath)
	if err != nil {
		s.logger.Error("failed to download PDF from blob storage",
			zap.Error(err),
			zap.String("report_id", reportID),
			zap.String("blob_path", report.FilePath),
		)
		return nil, fmt.Errorf("failed to download PDF: %w", err)
	}

	s.logger.Info("report retrieved successfully",
		zap.String("report_id", reportID),
		zap.Int("size_bytes", len(pdfBytes)),
	)

	return pdfBytes, nil
}

// GetReportsByUserID retrieves all report metadata for a user
func (s *ReportService) GetReportsByUserID(ctx context.Context, userID string) ([]model.Report, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	reports, err := s.repo.GetReportsByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get reports for user",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}

	return reports, nil
}
