package recommender

import (
	"time"

	"github.com/upb/model-router/models"
)

// SmoothObservation folds one invocation into a performance record using
// exponential smoothing: new = alpha*observed + (1-alpha)*previous. The
// first observation of a metric seeds it directly.
func SmoothObservation(perf *models.ModelPerformance, latencyMs float64, success bool, costPerToken *float64, alpha float64, now time.Time) {
	if perf.AvgLatencyMs == nil {
		perf.AvgLatencyMs = ptr(latencyMs)
	} else {
		perf.AvgLatencyMs = ptr(alpha*latencyMs + (1-alpha)*(*perf.AvgLatencyMs))
	}

	observed := 0.0
	if success {
		observed = 1.0
	}
	perf.SuccessRate = alpha*observed + (1-alpha)*perf.SuccessRate

	if costPerToken != nil {
		perf.CostPer1KTokens = ptr(*costPerToken * 1000)
	}

	perf.LastUpdated = &now
}

// SmoothTelemetry folds an aggregated telemetry window into a performance
// record with the same smoothing rule. Windows with no calls leave the
// record untouched.
func SmoothTelemetry(perf *models.ModelPerformance, stats models.TelemetryStats, alpha float64, now time.Time) {
	if stats.TotalCalls == 0 {
		return
	}

	if perf.AvgLatencyMs == nil {
		perf.AvgLatencyMs = ptr(stats.AvgLatencyMs)
	} else {
		perf.AvgLatencyMs = ptr(alpha*stats.AvgLatencyMs + (1-alpha)*(*perf.AvgLatencyMs))
	}

	perf.SuccessRate = alpha*stats.SuccessRate + (1-alpha)*perf.SuccessRate

	if stats.AvgCostPerToken > 0 {
		perf.CostPer1KTokens = ptr(stats.AvgCostPerToken * 1000)
	}

	perf.LastUpdated = &now
}

func ptr(v float64) *float64 { return &v }
