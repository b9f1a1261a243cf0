package models

import "time"

// TaskType identifies the kind of work a model is being selected for
type TaskType string

const (
	TaskTypeChat          TaskType = "chat"
	TaskTypeEmbed         TaskType = "embed"
	TaskTypeReasoning     TaskType = "reasoning"
	TaskTypeSummarization TaskType = "summarization"
)

// Complexity buckets used by the cascade strategy
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// ModelPerformance holds the per-model metrics the scorer consumes.
// Benchmark-derived fields (ArenaElo, MTEBScore, InternalScore) are
// overwritten wholesale by external refreshes; telemetry-derived fields
// (AvgLatencyMs, CostPer1KTokens, SuccessRate) are only touched by
// exponential smoothing from live usage.
type ModelPerformance struct {
	ModelName       string     `json:"model_name" db:"model_name"`
	ArenaElo        *float64   `json:"arena_elo,omitempty" db:"arena_elo"`
	MTEBScore       *float64   `json:"mteb_score,omitempty" db:"mteb_score"`
	InternalScore   *float64   `json:"internal_score,omitempty" db:"internal_score"`
	AvgLatencyMs    *float64   `json:"avg_latency_ms,omitempty" db:"avg_latency_ms"`
	CostPer1KTokens *float64   `json:"cost_per_1k_tokens,omitempty" db:"cost_per_1k_tokens"`
	SuccessRate     float64    `json:"success_rate" db:"success_rate"`
	LastUpdated     *time.Time `json:"last_updated,omitempty" db:"last_updated"`
}

// NewModelPerformance creates a record for a model seen for the first time.
// SuccessRate starts at 1.0 so an unobserved model is not penalized.
func NewModelPerformance(modelName string) ModelPerformance {
	return ModelPerformance{
		ModelName:   modelName,
		SuccessRate: 1.0,
	}
}

// TaskContext describes a single recommendation request. It is never
// persisted.
type TaskContext struct {
	TaskType         TaskType `json:"task_type" validate:"required"`
	TenantID         string   `json:"tenant_id" validate:"required"`
	Complexity       string   `json:"complexity" validate:"omitempty,oneof=low medium high"`
	LatencyCritical  bool     `json:"latency_critical"`
	CostSensitive    bool     `json:"cost_sensitive"`
	QualityThreshold float64  `json:"quality_threshold" validate:"gte=0,lte=1"`
}

// NewTaskContext returns a context with the same defaults the router uses
// when callers omit optional fields.
func NewTaskContext(taskType TaskType, tenantID string) TaskContext {
	return TaskContext{
		TaskType:         taskType,
		TenantID:         tenantID,
		Complexity:       ComplexityMedium,
		QualityThreshold: 0.7,
	}
}

// Recommendation is the result of a RecommendModel call.
type Recommendation struct {
	Primary   string   `json:"primary"`
	Fallbacks []string `json:"fallbacks"`
}
