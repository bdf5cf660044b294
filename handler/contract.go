package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Srijanomar3094/parser-server/model"
	"github.com/Srijanomar3094/parser-server/pkg/logger"
	"github.com/Srijanomar3094/parser-server/service"
)

type ContractHandler struct {
	lifecycle *service.Lifecycle
}

func NewContractHandler(lifecycle *service.Lifecycle) *ContractHandler {
	return &ContractHandler{lifecycle: lifecycle}
}

// Upload accepts a multipart PDF, creates a pending record and
// schedules the background parse.
func (h *ContractHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file provided"})
		return
	}
	defer file.Close()

	contract, err := h.lifecycle.Submit(c.Request.Context(), header.Filename, header.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "File too large"})
		case errors.Is(err, service.ErrUnsupportedType):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Unsupported file type"})
		default:
			logger.Error(c.Request.Context(), "upload failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store file"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"contract_id": contract.ID})
}

// GetStatus returns the processing status of a contract.
func (h *ContractHandler) GetStatus(c *gin.Context) {
	info, err := h.lifecycle.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
			return
		}
		logger.Error(c.Request.Context(), "status lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	var errValue any
	if info.Error != "" {
		errValue = info.Error
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   info.Status,
		"progress": info.Progress,
		"error":    errValue,
	})
}

// GetDetail returns the full record with extracted data once
// processing finished.
func (h *ContractHandler) GetDetail(c *gin.Context) {
	contract, err := h.lifecycle.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		case errors.Is(err, service.ErrNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"detail": "Processing not complete"})
		default:
			logger.Error(c.Request.Context(), "detail lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		}
		return
	}

	var fileRef any
	if contract.ObjectName != "" {
		fileRef = fmt.Sprintf("/api/contracts/%s/download", contract.ID)
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                     contract.ID,
		"file":                   fileRef,
		"uploaded_at":            contract.UploadedAt,
		"status":                 contract.Status,
		"score":                  contract.Score,
		"parties":                contract.Parties,
		"account_info":           contract.AccountInfo,
		"financial_details":      contract.FinancialDetails,
		"payment_structure":      contract.PaymentStructure,
		"revenue_classification": contract.RevenueClassification,
		"sla":                    contract.SLA,
		"gaps":                   contract.Gaps,
	})
}

// List returns a page of contracts, newest upload first.
func (h *ContractHandler) List(c *gin.Context) {
	status := model.Status(c.Query("status"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	result, err := h.lifecycle.List(c.Request.Context(), status, page, pageSize)
	if err != nil {
		logger.Error(c.Request.Context(), "list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	items := make([]gin.H, len(result.Items))
	for i, contract := range result.Items {
		items[i] = gin.H{
			"id":                contract.ID,
			"original_filename": contract.OriginalFilename,
			"status":            contract.Status,
			"progress":          contract.Progress,
			"score":             contract.Score,
			"uploaded_at":       contract.UploadedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results": items,
		"page":    result.Page,
		"pages":   result.Pages,
		"count":   result.Count,
	})
}

// Download streams the stored PDF bytes.
func (h *ContractHandler) Download(c *gin.Context) {
	reader, contract, err := h.lifecycle.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
			return
		}
		logger.Error(c.Request.Context(), "download failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", contract.OriginalFilename))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		logger.Error(c.Request.Context(), "download stream interrupted", "contract_id", contract.ID, "error", err)
	}
}
