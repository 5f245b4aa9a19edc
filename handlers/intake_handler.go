package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tenantdocs-backend/models"
	"tenantdocs-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IntakeHandler handles HTTP requests for intake submissions
type IntakeHandler struct {
	submissionService *service.SubmissionService
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(submissionService *service.SubmissionService) *IntakeHandler {
	return &IntakeHandler{
		submissionService: submissionService,
	}
}

// SubmitIntakeRequest represents the request body for submitting an intake
type SubmitIntakeRequest struct {
	Intake   *models.IntakeRecord      `json:"intake" binding:"required"`
	Landlord *models.LandlordInfo      `json:"landlord"`
	Members  []models.HouseholdMember  `json:"household_members"`
	Options  service.SubmissionOptions `json:"options"`
}

// SubmitIntake handles POST /api/intakes
func (h *IntakeHandler) SubmitIntake(c *gin.Context) {
	var req SubmitIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	serviceReq := service.SubmissionRequest{
		Intake:   req.Intake,
		Landlord: req.Landlord,
		Members:  req.Members,
		Options:  req.Options,
	}

	result, err := h.submissionService.ProcessSubmission(c.Request.Context(), serviceReq)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_FAILED",
					"message": vErr.Error(),
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SUBMISSION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result,
	})
}

// GetIntake handles GET /api/intakes/:id
func (h *IntakeHandler) GetIntake(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid intake ID format",
			},
		})
		return
	}

	serviceReq := service.GetIntakeRequest{
		ID: id,
	}

	result, err := h.submissionService.GetIntake(c.Request.Context(), serviceReq)
	if err != nil {
		if errors.Is(err, service.ErrIntakeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Intake record not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GET_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"intake":            result.Intake,
			"landlord":          result.Landlord,
			"household_members": result.Members,
		},
	})
}

// ListIntakes handles GET /api/intakes
func (h *IntakeHandler) ListIntakes(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var status *models.IntakeStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := models.IntakeStatus(statusStr)
		status = &s
	}

	serviceReq := service.ListIntakesRequest{
		Status: status,
		Limit:  limit,
		Offset: offset,
	}

	result, err := h.submissionService.ListIntakes(c.Request.Context(), serviceReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Intakes,
		"count":   len(result.Intakes),
	})
}

// DeleteIntake handles DELETE /api/intakes/:id
func (h *IntakeHandler) DeleteIntake(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid intake ID format",
			},
		})
		return
	}

	serviceReq := service.DeleteIntakeRequest{
		ID: id,
	}

	_, err = h.submissionService.DeleteIntake(c.Request.Context(), serviceReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DELETE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Intake record deleted successfully",
	})
}
