package handlers

import (
	"errors"
	"net/http"

	"tenantdocs-backend/models"
	"tenantdocs-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CaseHandler handles HTTP requests for cases and their document sets
type CaseHandler struct {
	caseService *service.CaseService
	attorneys   *service.AttorneyDirectory
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseService *service.CaseService, attorneys *service.AttorneyDirectory) *CaseHandler {
	if attorneys == nil {
		attorneys = service.DefaultAttorneyDirectory()
	}
	return &CaseHandler{
		caseService: caseService,
		attorneys:   attorneys,
	}
}

// CreateCaseRequest represents the request body for creating a case
type CreateCaseRequest struct {
	IntakeID   *string        `json:"intake_id"`
	CaseNumber string         `json:"case_number"`
	Parties    []models.Party `json:"parties"`
}

// CreateCase handles POST /api/cases
func (h *CaseHandler) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
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

	serviceReq := service.CreateCaseRequest{
		CaseNumber: req.CaseNumber,
		Parties:    req.Parties,
	}
	if req.IntakeID != nil {
		intakeID, err := uuid.Parse(*req.IntakeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_INTAKE_ID",
					"message": "Invalid intake_id format",
				},
			})
			return
		}
		serviceReq.IntakeID = &intakeID
	}

	result, err := h.caseService.CreateCase(c.Request.Context(), serviceReq)
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
				"code":    "CREATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result.Case,
	})
}

// GetCase handles GET /api/cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid case ID format",
			},
		})
		return
	}

	serviceReq := service.GetCaseRequest{
		ID: id,
	}

	result, err := h.caseService.GetCase(c.Request.Context(), serviceReq)
	if err != nil {
		if errors.Is(err, service.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Case not found",
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
		"data":    result.Case,
	})
}

// GenerateDocumentsRequest represents the request body for a fan-out run
type GenerateDocumentsRequest struct {
	DocType     string `json:"doc_type" binding:"required"`
	AttorneyKey string `json:"attorney_key"`
}

// GenerateDocuments handles POST /api/cases/:id/generate
func (h *CaseHandler) GenerateDocuments(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid case ID format",
			},
		})
		return
	}

	var req GenerateDocumentsRequest
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

	serviceReq := service.GenerateDocumentsRequest{
		CaseID:      id,
		DocType:     req.DocType,
		AttorneyKey: req.AttorneyKey,
	}

	result, err := h.caseService.GenerateDocuments(c.Request.Context(), serviceReq)
	if err != nil {
		if errors.Is(err, service.ErrCaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Case not found",
				},
			})
			return
		}
		if errors.Is(err, service.ErrNoPlaintiffs) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NO_PLAINTIFFS",
					"message": "Case has no plaintiff parties",
				},
			})
			return
		}
		if result == nil || result.Report == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GENERATION_FAILED",
					"message": err.Error(),
				},
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GENERATION_FAILED",
				"message": err.Error(),
			},
			"caseId":         result.Report.CaseID,
			"docType":        result.Report.DocType,
			"status":         result.Report.Status,
			"agreementCount": result.Report.SucceededCount,
			"files":          result.Report.Documents,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"caseId":         result.Report.CaseID,
		"docType":        result.Report.DocType,
		"status":         result.Report.Status,
		"agreementCount": result.Report.SucceededCount,
		"coverage":       result.Coverage,
		"warnings":       result.Warnings,
		"files":          result.Report.Documents,
	})
}

// GetDocuments handles GET /api/cases/:id/documents
func (h *CaseHandler) GetDocuments(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid case ID format",
			},
		})
		return
	}

	serviceReq := service.GetLatestDocumentsRequest{
		CaseID: id,
	}

	result, err := h.caseService.GetLatestDocuments(c.Request.Context(), serviceReq)
	if err != nil {
		if errors.Is(err, service.ErrSetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "No generated documents found for case",
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
		"data":    result.Set,
	})
}

// ListAttorneys handles GET /api/attorneys
func (h *CaseHandler) ListAttorneys(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.attorneys.All(),
	})
}
