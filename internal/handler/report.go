package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellnest-io/wellnest-backend/internal/service"
	"go.uber.org/zap"
)

// ReportHandler implements report API endpoints
type ReportHandler struct {
	service *service.ReportService
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger,
	}
}

// GenerateReportRequest is the request body for generating an adherence report
type GenerateReportRequest struct {
	UserID    string  `json:"user_id" binding:"required"`
	UserName  *string `json:"user_name"`
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
}

// PostReportsGenerate generates an adherence report
func (h *ReportHandler) PostReportsGenerate(c *gin.Context) {
	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	endDate, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	if startDate.After(endDate) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Start date must be before or equal to end date",
		})
		return
	}

	userName := "User"
	if req.UserName != nil && *req.UserName != "" {
		userName = *req.UserName
	}

	reportID, err := h.service.GenerateReport(c.Request.Context(), req.UserID, userName, startDate, endDate)
	if err != nil {
		h.logger.Error("failed to generate report",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to generate report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.logger.Info("report generated",
		zap.String("report_id", reportID),
		zap.String("user_id", req.UserID),
	)

	c.JSON(http.StatusOK, gin.H{
		"report_id": reportID,
		"message":   "Report generated successfully",
	})
}

// GetReportsID downloads a report PDF
func (h *ReportHandler) GetReportsID(c *gin.Context) {
	reportID := c.Param("id")

	pdfBytes, err := h.service.GetReport(c.Request.Context(), reportID)
	if err != nil {
		h.logger.Error("failed to get report",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Report not found",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=adherence_report_%s.pdf", reportID))
	c.Header("Content-Length", fmt.Sprintf("%d", len(pdfBytes)))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)

	h.logger.Info("report downloaded",
		zap.String("report_id", reportID),
		zap.Int("size_bytes", len(pdfBytes)),
	)
}

// GetReports lists a user's report metadata
func (h *ReportHandler) GetReports(c *gin.Context) {
	userID := c.Query("user_id")

	reports, err := h.service.GetReportsByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list reports",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to list reports",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, reports)
}
