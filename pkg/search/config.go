package search

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// EnvSearchWeights overrides tier weights with a JSON object, for example
//
//	BEANWORK_SEARCH_WEIGHTS='{"body": 40, "tag": 30}'
//
// Keys that are absent keep their default.
const EnvSearchWeights = "BEANWORK_SEARCH_WEIGHTS"

// WeightsFromEnv returns the default weights with any overrides from
// EnvSearchWeights applied.
func WeightsFromEnv() (Weights, error) {
	raw := strings.TrimSpace(os.Getenv(EnvSearchWeights))
	if raw == "" {
		return DefaultWeights(), nil
	}
	return ParseWeightsJSON(raw)
}

// ParseWeightsJSON applies a JSON object of overrides on top of the defaults.
// Unknown keys and negative weights are rejected.
func ParseWeightsJSON(raw string) (Weights, error) {
	var payload map[string]int
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Weights{}, fmt.Errorf("invalid weights JSON: %w", err)
	}

	w := DefaultWeights()
	fields := map[string]*int{
		"identity_exact":     &w.IdentityExact,
		"identity_prefix":    &w.IdentityPrefix,
		"identity_substring": &w.IdentitySubstring,
		"title_exact":        &w.TitleExact,
		"title_prefix":       &w.TitlePrefix,
		"title_substring":    &w.TitleSubstring,
		"body":               &w.Body,
		"tag":                &w.Tag,
		"metadata":           &w.Metadata,
	}
	for key, v := range payload {
		dst, ok := fields[key]
		if !ok {
			return Weights{}, fmt.Errorf("weights JSON has unknown key %q", key)
		}
		if v < 0 {
			return Weights{}, fmt.Errorf("weight %q must not be negative", key)
		}
		*dst = v
	}
	return w, nil
}
