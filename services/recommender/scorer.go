package recommender

import "github.com/upb/model-router/models"

// Signal weights. The final score divides by the sum of the weights that
// actually contributed, so a model missing a signal is not silently
// deflated toward zero.
const (
	weightQuality     = 0.4
	weightInternal    = 0.3
	weightCost        = 0.2
	weightLatency     = 0.1
	weightReliability = 0.1
)

// Score rates a model for a task context in [0, 1]. Deterministic given its
// inputs. A model with no cached performance scores 0.
func Score(perf *models.ModelPerformance, tctx models.TaskContext) float64 {
	if perf == nil {
		return 0.0
	}

	var weighted, totalWeight float64

	// Quality signal depends on the task family
	switch tctx.TaskType {
	case models.TaskTypeEmbed:
		if perf.MTEBScore != nil {
			weighted += clamp01(*perf.MTEBScore/100.0) * weightQuality
			totalWeight += weightQuality
		}
	case models.TaskTypeChat, models.TaskTypeReasoning:
		if perf.ArenaElo != nil {
			// Typical Arena Elo range is 1000-1300
			weighted += clamp01((*perf.ArenaElo-1000)/300.0) * weightQuality
			totalWeight += weightQuality
		}
	}

	if perf.InternalScore != nil {
		weighted += *perf.InternalScore * weightInternal
		totalWeight += weightInternal
	}

	if tctx.CostSensitive && perf.CostPer1KTokens != nil {
		weighted += 1.0 / (1.0 + *perf.CostPer1KTokens) * weightCost
		totalWeight += weightCost
	}

	if tctx.LatencyCritical && perf.AvgLatencyMs != nil {
		weighted += 1.0 / (1.0 + *perf.AvgLatencyMs/1000.0) * weightLatency
		totalWeight += weightLatency
	}

	// Reliability always contributes
	weighted += perf.SuccessRate * weightReliability
	totalWeight += weightReliability

	if totalWeight == 0 {
		return 0.0
	}

	return weighted / totalWeight
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
