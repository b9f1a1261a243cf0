package benchmarks

import (
	"sort"
	"strings"
)

// Leaderboards publish model names with vendor prefixes, date suffixes, and
// inconsistent casing. The alias tables map known upstream spellings to the
// canonical names the rest of the engine uses. Lookup is exact match first,
// then substring.

var chatAliases = map[string]string{
	"gpt-4o":            "gpt-4o",
	"gpt-4o-mini":       "gpt-4o-mini",
	"claude-3-5-sonnet": "claude-3-5-sonnet",
	"llama-3.1-70b":     "llama-3.1-70b",
	"llama-3.1-8b":      "llama-3.1-8b",
	"mixtral-8x7b":      "mixtral-8x7b-instruct",
	"gemini-1.5-pro":    "gemini-1.5-pro",
}

var embeddingAliases = map[string]string{
	"text-embedding-3-large": "text-embedding-3-large",
	"text-embedding-3-small": "text-embedding-3-small",
	"all-mpnet-base-v2":      "all-mpnet-base-v2",
	"bge-large-en-v1.5":      "bge-large-en-v1.5",
}

// normalizeName resolves an upstream model name against an alias table.
// Returns "" when no alias matches; callers drop such rows.
func normalizeName(name string, aliases map[string]string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))

	if canonical, ok := aliases[lowered]; ok {
		return canonical
	}

	// Substring matching walks the aliases longest first, so a name
	// containing both "gpt-4o-mini" and "gpt-4o" always resolves to the
	// more specific alias. Iterating the map directly would make the
	// pick depend on iteration order.
	ordered := make([]string, 0, len(aliases))
	for alias := range aliases {
		ordered = append(ordered, alias)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})

	for _, alias := range ordered {
		if strings.Contains(lowered, alias) {
			return aliases[alias]
		}
	}

	return ""
}

// mergeAliases layers deployment-policy overrides over the built-in table.
func mergeAliases(builtin, overrides map[string]string) map[string]string {
	if len(overrides) == 0 {
		return builtin
	}
	merged := make(map[string]string, len(builtin)+len(overrides))
	for alias, canonical := range builtin {
		merged[alias] = canonical
	}
	for alias, canonical := range overrides {
		merged[strings.ToLower(alias)] = canonical
	}
	return merged
}
