package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/wellnest-io/wellnest-backend/internal/engine"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
	"go.uber.org/zap"
)

// PDFGenerator generates medication adherence reports
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// MedicationAdherence pairs a medication with its adherence summary and
// recent dose history for the report period
type MedicationAdherence struct {
	Medication  model.Medication
	Summary     engine.AdherenceSummary
	RecentDoses []model.MedicationLog
}

// ReportData contains all data needed for report generation
type ReportData struct {
	UserName  string
	DateRange string
	Adherence []MedicationAdherence
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("user_name", data.UserName),
		zap.String("date_range", data.DateRange),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	pdf.AddPage()

	g.addTitle(pdf, "Medication Adherence Report", data.UserName, data.DateRange)
	g.addMedicationList(pdf, data.Adherence)
	g.addAdherenceSummaries(pdf, data.Adherence)
	g.addDoseHistory(pdf, data.Adherence)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the report title and header information
func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, title, userName, dateRange string) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Patient: %s", userName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s", dateRange), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addMedicationList adds the medication list section
func (g *PDFGenerator) addMedicationList(pdf *gofpdf.Fpdf, adherence []MedicationAdherence) {
	g.addSectionHeader(pdf, "Medication List")

	if len(adherence) == 0 {
		pdf.CellFormat(0, 8, "No medications recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, entry := range adherence {
		med := entry.Medication
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, med.Name, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Dosage: %s", med.Dosage), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Frequency: %s", med.Frequency), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Start Date: %s", med.StartDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
		if med.EndDate != nil {
			pdf.CellFormat(0, 5, fmt.Sprintf("  End Date: %s", med.EndDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
		}
		if med.Notes != nil && *med.Notes != "" {
			pdf.CellFormat(0, 5, fmt.Sprintf("  Notes: %s", *med.Notes), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}
	pdf.Ln(5)
}

// addAdherenceSummaries adds the per-medication adherence section
func (g *PDFGenerator) addAdherenceSummaries(pdf *gofpdf.Fpdf, adherence []MedicationAdherence) {
	g.addSectionHeader(pdf, "Adherence Summary")

	if len(adherence) == 0 {
		pdf.CellFormat(0, 8, "No adherence data recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, entry := range adherence {
		summary := entry.Summary

		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, entry.Medication.Name, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)

		if summary.TotalExpected == 0 {
			pdf.CellFormat(0, 5, fmt.Sprintf("  Taken as needed: %d dose(s) recorded", summary.TotalTaken), "", 1, "L", false, 0, "")
			pdf.Ln(3)
			continue
		}

		pdf.CellFormat(0, 5, fmt.Sprintf("  Expected: %d, Taken: %d, Skipped: %d, Missed: %d",
			summary.TotalExpected, summary.TotalTaken, summary.TotalSkipped, summary.TotalMissed), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Adherence rate: %.0f%%", summary.Rate()*100), "", 1, "L", false, 0, "")
		pdf.Ln(3)
	}
	pdf.Ln(5)
}

// addDoseHistory adds the recent dose history section
func (g *PDFGenerator) addDoseHistory(pdf *gofpdf.Fpdf, adherence []MedicationAdherence) {
	g.addSectionHeader(pdf, "Dose History")

	dosesFound := false
	for _, entry := range adherence {
		if len(entry.RecentDoses) == 0 {
			continue
		}
		dosesFound = true

		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, entry.Medication.Name, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)

		maxDoses := 10
		if len(entry.RecentDoses) < maxDoses {
			maxDoses = len(entry.RecentDoses)
		}

		for i := 0; i < maxDoses; i++ {
			dose := entry.RecentDoses[i]
			dateStr := dose.Timestamp.Format("2006-01-02 15:04")
			pdf.CellFormat(0, 5, fmt.Sprintf("  %s: %s", dateStr, dose.Status), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	if !dosesFound {
		pdf.CellFormat(0, 8, "No doses recorded during this period.", "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}
