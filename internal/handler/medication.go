package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellnest-io/wellnest-backend/internal/service"
	"github.com/wellnest-io/wellnest-backend/pkg/model"
	"go.uber.org/zap"
)

// MedicationHandler implements medication API endpoints
type MedicationHandler struct {
	service *service.MedicationService
	logger  *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler
func NewMedicationHandler(service *service.MedicationService, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{
		service: service,
		logger:  logger,
	}
}

// CreateMedicationRequest is the request body for adding a medication
type CreateMedicationRequest struct {
	UserID        string                   `json:"user_id" binding:"required"`
	Name          string                   `json:"name" binding:"required"`
	Dosage        string                   `json:"dosage" binding:"required"`
	Frequency     model.Frequency          `json:"frequency" binding:"required"`
	ReminderTimes []string                 `json:"reminder_times"`
	Constraints   []model.DosageConstraint `json:"constraints"`
	StartDate     string                   `json:"start_date" binding:"required"`
	EndDate       *string                  `json:"end_date"`
	Notes         *string                  `json:"notes"`
}

// UpdateMedicationRequest is the request body for updating a medication
type UpdateMedicationRequest struct {
	Name          string                   `json:"name" binding:"required"`
	Dosage        string                   `json:"dosage" binding:"required"`
	Frequency     model.Frequency          `json:"frequency" binding:"required"`
	ReminderTimes []string                 `json:"reminder_times"`
	Constraints   []model.DosageConstraint `json:"constraints"`
	StartDate     string                   `json:"start_date" binding:"required"`
	EndDate       *string                  `json:"end_date"`
	Notes         *string                  `json:"notes"`
}

// RecordDoseRequest is the request body for logging a dose event
type RecordDoseRequest struct {
	Status    model.DoseStatus `json:"status" binding:"required"`
	Timestamp *string          `json:"timestamp"`
}

// PostMedications adds a new medication
func (h *MedicationHandler) PostMedications(c *gin.Context) {
	var req CreateMedicationRequest
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

	medication := &model.Medication{
		Name:          req.Name,
		Dosage:        req.Dosage,
		Frequency:     req.Frequency,
		ReminderTimes: req.ReminderTimes,
		Constraints:   req.Constraints,
		StartDate:     startDate,
		Notes:         req.Notes,
	}

	if req.EndDate != nil {
		endDate, err := parseDate(*req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			})
			return
		}
		medication.EndDate = &endDate
	}

	if err := h.service.AddMedication(c.Request.Context(), req.UserID, medication); err != nil {
		h.logger.Error("failed to add medication",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	h.logger.Info("medication added",
		zap.String("medication_id", medication.ID),
		zap.String("user_id", req.UserID),
	)

	c.JSON(http.StatusOK, medication)
}

// GetMedications lists all medications for a user
func (h *MedicationHandler) GetMedications(c *gin.Context) {
	userID := c.Query("user_id")

	medications, err := h.service.ListMedications(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list medications",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to list medications",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.logger.Info("medications listed",
		zap.String("user_id", userID),
		zap.Int("count", len(medications)),
	)

	c.JSON(http.StatusOK, medications)
}

// PutMedicationsID updates a medication
func (h *MedicationHandler) PutMedicationsID(c *gin.Context) {
	medicationID := c.Param("id")

	var req UpdateMedicationRequest
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

	medication := &model.Medication{
		Name:          req.Name,
		Dosage:        req.Dosage,
		Frequency:     req.Frequency,
		ReminderTimes: req.ReminderTimes,
		Constraints:   req.Constraints,
		StartDate:     startDate,
		Notes:         req.Notes,
	}

	if req.EndDate != nil {
		endDate, err := parseDate(*req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			})
			return
		}
		medication.EndDate = &endDate
	}

	if err := h.service.UpdateMedication(c.Request.Context(), medicationID, medication); err != nil {
		h.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to update medication",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.logger.Info("medication updated",
		zap.String("medication_id", medicationID),
	)

	c.JSON(http.StatusOK, medication)
}

// DeleteMedicationsID deletes a medication
func (h *MedicationHandler) DeleteMedicationsID(c *gin.Context) {
	medicationID := c.Param("id")

	if err := h.service.DeleteMedication(c.Request.Context(), medicationID); err != nil {
		h.logger.Error("failed to delete medication",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to delete medication",
			Details: stringPtr(err.Error()),
		})
		return
	}

	h.logger.Info("medication deleted",
		zap.String("medication_id", medicationID),
	)

	c.Status(http.StatusNoContent)
}

// PostMedicationsIDDoses records a dose event. The response carries any
// safety violations in effect when the dose was logged.
func (h *MedicationHandler) PostMedicationsIDDoses(c *gin.Context) {
	medicationID := c.Param("id")

	var req RecordDoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	at := time.Now()
	if req.Timestamp != nil {
		parsed, err := parseTimestamp(*req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			})
			return
		}
		at = parsed
	}

	result, err := h.service.RecordDose(c.Request.Context(), medicationID, req.Status, at)
	if err != nil {
		h.logger.Error("failed to record dose",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	h.logger.Info("dose recorded",
		zap.String("medication_id", medicationID),
		zap.Int("violation_count", len(result.Violations)),
	)

	c.JSON(http.StatusOK, result)
}

// GetMedicationsIDDoses retrieves a medication's dose history
func (h *MedicationHandler) GetMedicationsIDDoses(c *gin.Context) {
	medicationID := c.Param("id")

	logs, err := h.service.GetDoseLogs(c.Request.Context(), medicationID)
	if err != nil {
		h.logger.Error("failed to get dose logs",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get dose logs",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// DeleteMedicationsIDDosesLogID removes a single dose log entry
func (h *MedicationHandler) DeleteMedicationsIDDosesLogID(c *gin.Context) {
	logID := c.Param("logId")
	userID := c.Query("user_id")

	if err := h.service.DeleteDoseLog(c.Request.Context(), userID, logID); err != nil {
		h.logger.Error("failed to delete dose log",
			zap.Error(err),
			zap.String("log_id", logID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to delete dose log",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMedicationsIDConstraintsCheck evaluates a medication's safety rules
// at a given instant without recording anything
func (h *MedicationHandler) GetMedicationsIDConstraintsCheck(c *gin.Context) {
	medicationID := c.Param("id")

	at := time.Now()
	if atParam := c.Query("at"); atParam != "" {
		parsed, err := parseTimestamp(atParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			})
			return
		}
		at = parsed
	}

	violations, err := h.service.CheckConstraints(c.Request.Context(), medicationID, at)
	if err != nil {
		h.logger.Error("failed to check constraints",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to check constraints",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"can_take":   len(violations) == 0,
		"violations": violations,
	})
}

// GetMedicationsIDNextAvailable computes when the next dose becomes allowed
func (h *MedicationHandler) GetMedicationsIDNextAvailable(c *gin.Context) {
	medicationID := c.Param("id")

	next, err := h.service.NextAvailableTime(c.Request.Context(), medicationID)
	if err != nil {
		h.logger.Error("failed to compute next available time",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to compute next available time",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"next_available_at": next,
		"computable":        next != nil,
	})
}

// GetMedicationsIDAdherence summarizes a medication's adherence over a
// date range
func (h *MedicationHandler) GetMedicationsIDAdherence(c *gin.Context) {
	medicationID := c.Param("id")

	startDate, err := parseDate(c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	endDate, err := parseDate(c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	summary, err := h.service.GetAdherenceSummary(c.Request.Context(), medicationID, startDate, endDate)
	if err != nil {
		h.logger.Error("failed to get adherence summary",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetMedicationsOverdue returns the user's currently overdue medications
func (h *MedicationHandler) GetMedicationsOverdue(c *gin.Context) {
	userID := c.Query("user_id")

	overdue, err := h.service.GetOverdueMedications(c.Request.Context(), userID, time.Now())
	if err != nil {
		h.logger.Error("failed to get overdue medications",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get overdue medications",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, overdue)
}
