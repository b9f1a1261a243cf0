package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/upb/model-router/models"
	"github.com/upb/model-router/utils"
	"go.uber.org/zap"
)

// RecommenderService is the slice of the recommendation engine the HTTP
// layer needs.
type RecommenderService interface {
	RecommendModel(ctx context.Context, tctx models.TaskContext, availableModels []string) (models.Recommendation, error)
	UpdateModelPerformance(model string, latencyMs float64, success bool, costPerToken *float64)
	GetPerformance(model string) *models.ModelPerformance
	Snapshot() (map[string]models.ModelPerformance, time.Time)
}

// RecommendRequest is the body of POST /api/v1/recommendations
type RecommendRequest struct {
	models.TaskContext
	AvailableModels []string `json:"available_models,omitempty"`
}

// TelemetryRequest is the body of POST /api/v1/telemetry
type TelemetryRequest struct {
	ModelName    string   `json:"model_name" validate:"required"`
	LatencyMs    float64  `json:"latency_ms" validate:"gte=0"`
	Success      bool     `json:"success"`
	CostPerToken *float64 `json:"cost_per_token,omitempty"`
}

// RecommendationHandler serves the recommendation and telemetry endpoints
type RecommendationHandler struct {
	recommender RecommenderService
	logger      *zap.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler
func NewRecommendationHandler(recommender RecommenderService, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		logger:      logger,
	}
}

// HandleRecommend handles POST /api/v1/recommendations
func (h *RecommendationHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	recommendation, err := h.recommender.RecommendModel(r.Context(), req.TaskContext, req.AvailableModels)
	if err != nil {
		if utils.IsValidationError(err) {
			_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
			return
		}
		h.logger.Error("recommendation failed",
			zap.String("task_type", string(req.TaskType)),
			zap.Error(err))
		_ = utils.WriteUnprocessableEntity(w, err.Error(), nil)
		return
	}

	_ = utils.WriteOK(w, recommendation)
}

// HandleTelemetry handles POST /api/v1/telemetry
// The smoothing update is in-memory and the raw event is written in the
// background, so this always returns 202 on a valid body.
func (h *RecommendationHandler) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	var req TelemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	h.recommender.UpdateModelPerformance(req.ModelName, req.LatencyMs, req.Success, req.CostPerToken)

	_ = utils.WriteAccepted(w, map[string]string{"model_name": req.ModelName})
}

// HandleModelPerformance handles GET /api/v1/models/{name}/performance
func (h *RecommendationHandler) HandleModelPerformance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	perf := h.recommender.GetPerformance(name)
	if perf == nil {
		_ = utils.WriteNotFound(w, "model not found: "+name)
		return
	}

	_ = utils.WriteOK(w, perf)
}

func toDetails(fields map[string]string) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
