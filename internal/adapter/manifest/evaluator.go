package manifest

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Compile-time check: StaticEvaluator implements domain.DecisionEvaluator.
var _ domain.DecisionEvaluator = StaticEvaluator{}

// StaticEvaluator treats decision content as a YAML map of outputs. A string
// output of the form "=name" is replaced by the input variable name.
type StaticEvaluator struct{}

func (StaticEvaluator) Evaluate(_ context.Context, def domain.Definition, vars map[string]any) (map[string]any, error) {
	outputs := map[string]any{}
	if len(def.Content) > 0 {
		if err := yaml.Unmarshal(def.Content, &outputs); err != nil {
			return nil, fmt.Errorf("decision %s: content is not an output map: %w", def.Key, err)
		}
	}

	for k, v := range outputs {
		ref, ok := v.(string)
		if !ok || !strings.HasPrefix(ref, "=") {
			continue
		}
		name := strings.TrimPrefix(ref, "=")
		val, ok := vars[name]
		if !ok {
			return nil, fmt.Errorf("decision %s: output %q refers to missing variable %q", def.Key, k, name)
		}
		outputs[k] = val
	}
	return outputs, nil
}
