package recommender

import (
	"errors"

	"github.com/upb/model-router/models"
)

// ErrNoCandidateModels is returned when a recommendation is requested with
// an empty candidate list. Callers are expected to hold their own static
// default for this case.
var ErrNoCandidateModels = errors.New("no candidate models available")

const maxFallbacks = 2

// scoredModel pairs a candidate with its computed score. The slice order is
// the stable tie-break order: equal scores keep the caller's candidate
// ordering.
type scoredModel struct {
	name  string
	score float64
}

// selectCascade turns a ranked candidate list into a primary model and at
// most two fallbacks.
//
// High-complexity tasks get the best model first, with the next two ranked
// models as escalation targets. Everything else tries the efficient tier
// first: models whose cached cost per 1k tokens is under the configured
// threshold, in rank order, backed by the top premium models. When no
// efficient model exists the high-complexity policy applies.
func selectCascade(ranked []scoredModel, tctx models.TaskContext, lookup func(string) *models.ModelPerformance, efficientCostPer1K float64) (models.Recommendation, error) {
	if len(ranked) == 0 {
		return models.Recommendation{}, ErrNoCandidateModels
	}

	if tctx.Complexity == models.ComplexityHigh {
		return bestFirst(ranked), nil
	}

	var efficient, premium []string
	for _, candidate := range ranked {
		perf := lookup(candidate.name)
		if perf != nil && perf.CostPer1KTokens != nil && *perf.CostPer1KTokens < efficientCostPer1K {
			efficient = append(efficient, candidate.name)
		} else {
			premium = append(premium, candidate.name)
		}
	}

	if len(efficient) == 0 {
		return bestFirst(ranked), nil
	}

	fallbacks := make([]string, 0, maxFallbacks)
	if len(efficient) > 1 {
		fallbacks = append(fallbacks, efficient[1])
	}
	for _, name := range premium {
		if len(fallbacks) == maxFallbacks {
			break
		}
		fallbacks = append(fallbacks, name)
	}

	return models.Recommendation{
		Primary:   efficient[0],
		Fallbacks: fallbacks,
	}, nil
}

func bestFirst(ranked []scoredModel) models.Recommendation {
	fallbacks := make([]string, 0, maxFallbacks)
	for _, candidate := range ranked[1:] {
		if len(fallbacks) == maxFallbacks {
			break
		}
		fallbacks = append(fallbacks, candidate.name)
	}
	return models.Recommendation{
		Primary:   ranked[0].name,
		Fallbacks: fallbacks,
	}
}
