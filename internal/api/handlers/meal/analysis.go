package meal

import (
	"context"
	"errors"
	"net/http"

	"meal-analysis-api/internal/core/inference"
	"meal-analysis-api/internal/core/pipeline"
	"meal-analysis-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisRequest is the media entry point: a base64 image or audio
// clip, optionally with a free-text hint. At least one field must be
// present.
type AnalysisRequest struct {
	Image    string `json:"image,omitempty"`
	Audio    string `json:"audio,omitempty"`
	TextHint string `json:"text_hint,omitempty"`
}

// AnalysisResponse wraps the session record for the API surface.
type AnalysisResponse struct {
	SessionID string                  `json:"session_id"`
	Meal      interface{}             `json:"meal"`
	Decisions []pipeline.DishDecision `json:"decisions"`
	Summary   AnalysisSummary         `json:"summary"`
	Timings   []pipeline.StageTiming  `json:"timings"`
	Warnings  []pipeline.Warning      `json:"warnings,omitempty"`
}

// AnalysisSummary is the resolution overview clients act on.
type AnalysisSummary struct {
	Dishes            int      `json:"dishes"`
	Ingredients       int      `json:"ingredients"`
	MatchedItems      int      `json:"matched_items"`
	UnresolvedItems   int      `json:"unresolved_items"`
	UnresolvedNames   []string `json:"unresolved_names,omitempty"`
	PartialResolution bool     `json:"partial_resolution"`
}

// HandleMealAnalysis handles POST /meal/analyze: media goes upstream
// for recognition, the structured result runs through the pipeline.
func HandleMealAnalysis(client *inference.Client, orchestrator *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		common.LogInfo("meal analysis request received",
			zap.String("request_id", requestID),
			zap.String("client_ip", c.ClientIP()),
		)

		var req AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			common.LogError("invalid request format",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
			return
		}
		if req.Image == "" && req.Audio == "" && req.TextHint == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "One of image, audio or text_hint is required",
				"code":  common.ErrCodeValidationFailed,
			})
			return
		}

		payload, err := client.Analyze(c.Request.Context(), &inference.Request{
			ImageData: req.Image,
			AudioData: req.Audio,
			TextHint:  req.TextHint,
		})
		if err != nil {
			common.LogError("inference service call failed",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Recognition service did not return a usable result",
				"code":  common.ErrCodeInferenceService,
			})
			return
		}

		runPipeline(c, orchestrator, payload, requestID)
	}
}

// HandleItemAnalysis handles POST /meal/analyze/items: the caller
// supplies the structured dish list directly, skipping recognition.
func HandleItemAnalysis(orchestrator *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ensureRequestID(c)

		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body", "code": common.ErrCodeInvalidRequest})
			return
		}

		payload, err := inference.ParsePayload(raw)
		if err != nil {
			common.LogError("invalid item payload",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": common.ErrCodeValidationFailed})
			return
		}

		runPipeline(c, orchestrator, payload, requestID)
	}
}

// runPipeline executes one analysis session and writes the response,
// mapping pipeline failures onto HTTP statuses.
func runPipeline(c *gin.Context, orchestrator *pipeline.Orchestrator, payload *inference.Payload, requestID string) {
	result, err := orchestrator.Analyze(c.Request.Context(), payload)
	if err != nil {
		if common.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": common.ErrCodeValidationFailed})
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Analysis session timed out", "code": common.ErrCodeRequestTimeout})
			return
		}
		var ce *common.CustomError
		if errors.As(err, &ce) && ce.Code == common.ErrCodeBackendUnavailable {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search backend unavailable", "code": ce.Code})
			return
		}
		common.LogError("analysis session failed",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed", "code": common.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, AnalysisResponse{
		SessionID: result.SessionID,
		Meal:      result.Meal,
		Decisions: result.Decisions,
		Summary: AnalysisSummary{
			Dishes:            result.DishCount,
			Ingredients:       result.IngredientCount,
			MatchedItems:      result.MatchedItems,
			UnresolvedItems:   result.UnresolvedItems,
			UnresolvedNames:   result.UnresolvedNames,
			PartialResolution: result.PartialResolution,
		},
		Timings:  result.Timings,
		Warnings: result.Warnings,
	})
}

func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}
