// Package handler exposes the extraction runs and evaluation over HTTP.
package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chanmujie/ner-using-llms/internal/dataset"
	"github.com/chanmujie/ner-using-llms/internal/models"
	"github.com/chanmujie/ner-using-llms/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	pipeline *service.Pipeline
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(pipeline *service.Pipeline, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Run lifecycle
		api.POST("/runs", h.StartRun)
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
		api.GET("/runs/:id/instances", h.GetInstanceResults)
		api.GET("/runs/:id/labels", h.GetLabelResults)

		// Standalone evaluation of pre-computed predictions
		api.POST("/evaluate", h.Evaluate)

		// Export
		api.GET("/runs/:id/export/csv", h.ExportCSV)
		api.GET("/runs/:id/export/json", h.ExportJSON)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// StartRun kicks off an async extraction run over a gold dataset.
func (h *Handler) StartRun(c *gin.Context) {
	var req models.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := h.pipeline.StartRun(c.Request.Context(), req)
	if err != nil {
		var formatErr *dataset.FormatError
		if errors.As(err, &formatErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to start run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  runID,
		"status":  models.RunPending,
		"message": "Run started. Check /api/v1/runs/" + runID + " for status",
	})
}

// ListRuns returns all recorded runs.
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.pipeline.ListRuns()
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// GetRun returns run status and summary metrics.
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.pipeline.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetInstanceResults returns per-instance scores for a run.
func (h *Handler) GetInstanceResults(c *gin.Context) {
	runID := c.Param("id")
	results, err := h.pipeline.GetInstanceResults(runID)
	if err != nil {
		h.logger.Error("Failed to get instance results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get instance results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    runID,
		"instances": results,
		"total":     len(results),
	})
}

// GetLabelResults returns per-label scores for a run.
func (h *Handler) GetLabelResults(c *gin.Context) {
	runID := c.Param("id")
	results, err := h.pipeline.GetLabelResults(runID)
	if err != nil {
		h.logger.Error("Failed to get label results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get label results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"labels": results,
		"total":  len(results),
	})
}

// Evaluate scores caller-supplied predictions against a gold dataset
// without calling any model.
func (h *Handler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.EvaluateOnly(req)
	if err != nil {
		var formatErr *dataset.FormatError
		if errors.As(err, &formatErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to evaluate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportCSV exports per-instance scores for a run as CSV.
func (h *Handler) ExportCSV(c *gin.Context) {
	runID := c.Param("id")
	results, err := h.pipeline.GetInstanceResults(runID)
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=per_instance.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{
		"instance_id", "precision", "recall", "f1",
		"partial_precision", "partial_recall", "partial_f1",
	})

	for _, res := range results {
		writer.Write([]string{
			strconv.Itoa(res.InstanceID),
			strconv.FormatFloat(res.Precision, 'f', 4, 64),
			strconv.FormatFloat(res.Recall, 'f', 4, 64),
			strconv.FormatFloat(res.F1, 'f', 4, 64),
			strconv.FormatFloat(res.PartialPrecision, 'f', 4, 64),
			strconv.FormatFloat(res.PartialRecall, 'f', 4, 64),
			strconv.FormatFloat(res.PartialF1, 'f', 4, 64),
		})
	}
}

// ExportJSON exports the full result rows for a run as JSON.
func (h *Handler) ExportJSON(c *gin.Context) {
	runID := c.Param("id")

	instances, err := h.pipeline.GetInstanceResults(runID)
	if err != nil {
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	labels, err := h.pipeline.GetLabelResults(runID)
	if err != nil {
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=results.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	encoder.Encode(gin.H{
		"run_id":    runID,
		"instances": instances,
		"labels":    labels,
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "ner-eval-service",
		"version": "1.0.0",
	})
}
