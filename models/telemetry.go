package models

import "time"

// TelemetryEvent is one observed model invocation, reported by the gateway
// after each real call. Rows are append-only and pruned by the retention job.
type TelemetryEvent struct {
	ID           int64     `json:"id" db:"id"`
	ModelName    string    `json:"model_name" db:"model_name"`
	TenantID     *string   `json:"tenant_id,omitempty" db:"tenant_id"`
	LatencyMs    float64   `json:"latency_ms" db:"latency_ms"`
	Success      bool      `json:"success" db:"success"`
	CostPerToken *float64  `json:"cost_per_token,omitempty" db:"cost_per_token"`
	TaskType     *string   `json:"task_type,omitempty" db:"task_type"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// TelemetryStats is the aggregate over a rolling time window for one model.
type TelemetryStats struct {
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	SuccessRate     float64 `json:"success_rate"`
	AvgCostPerToken float64 `json:"avg_cost_per_token"`
	TotalCalls      int64   `json:"total_calls"`
}

// DatabaseStats holds row counts for monitoring.
type DatabaseStats struct {
	ModelPerformanceRecords  int64 `json:"model_performance_records"`
	ExternalDataCacheRecords int64 `json:"external_data_cache_records"`
	RecentTelemetryEvents    int64 `json:"recent_telemetry_events"`
}
