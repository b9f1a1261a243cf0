package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelsPolicy holds the deployment-owned routing policy: which candidate
// models are eligible per task type, plus optional alias overrides applied
// on top of the fetchers' built-in tables.
type ModelsPolicy struct {
	// DefaultModels maps a task type to its candidate list, in preference
	// order. The order is the tie-break order for equal scores.
	DefaultModels map[string][]string `yaml:"default_models"`

	// ChatAliases and EmbeddingAliases map upstream leaderboard names to
	// canonical model names.
	ChatAliases      map[string]string `yaml:"chat_aliases"`
	EmbeddingAliases map[string]string `yaml:"embedding_aliases"`
}

// DefaultModelsPolicy returns the built-in policy used when no policy file
// is deployed.
func DefaultModelsPolicy() *ModelsPolicy {
	return &ModelsPolicy{
		DefaultModels: map[string][]string{
			"embed": {
				"text-embedding-3-large",
				"text-embedding-3-small",
				"bge-large-en-v1.5",
			},
			"chat": {
				"gpt-4o",
				"gpt-4o-mini",
				"claude-3-5-sonnet",
				"llama-3.1-70b",
				"llama-3.1-8b",
			},
		},
		ChatAliases:      map[string]string{},
		EmbeddingAliases: map[string]string{},
	}
}

// LoadModelsPolicy reads the policy file at path. A missing file is not an
// error: the built-in defaults are returned so the engine works out of the
// box.
func LoadModelsPolicy(path string) (*ModelsPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelsPolicy(), nil
		}
		return nil, fmt.Errorf("failed to read models policy %s: %w", path, err)
	}

	policy := DefaultModelsPolicy()
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("failed to parse models policy %s: %w", path, err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid models policy %s: %w", path, err)
	}

	return policy, nil
}

// Validate checks the policy for structural problems.
func (p *ModelsPolicy) Validate() error {
	for taskType, candidates := range p.DefaultModels {
		if len(candidates) == 0 {
			return fmt.Errorf("task type %q has an empty candidate list", taskType)
		}
		seen := make(map[string]bool, len(candidates))
		for _, model := range candidates {
			if model == "" {
				return fmt.Errorf("task type %q contains an empty model name", taskType)
			}
			if seen[model] {
				return fmt.Errorf("task type %q lists %q twice", taskType, model)
			}
			seen[model] = true
		}
	}
	return nil
}

// CandidatesFor returns the candidate list for a task type. Task types
// without an explicit list fall back to the chat list, matching how the
// gateway treats unknown task types as general chat.
func (p *ModelsPolicy) CandidatesFor(taskType string) []string {
	if candidates, ok := p.DefaultModels[taskType]; ok {
		return candidates
	}
	return p.DefaultModels["chat"]
}
