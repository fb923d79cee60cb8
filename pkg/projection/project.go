// Package projection projects a source module's flat parameter bag onto the nested
// parameter object an n8n node expects.
package projection

import (
	"fmt"

	"github.com/dukex/flowbridge/pkg/expression"
	"github.com/dukex/flowbridge/pkg/models"
)

// RoutesKey is the reserved parameter map key that turns router branches into rules.
const RoutesKey = "routes"

// OperationKey is the top-level parameter receiving a mapping's fixed operation.
const OperationKey = "operation"

// Projection is the projected parameter object plus what could not be carried over.
type Projection struct {
	Parameters    map[string]any
	Unconvertible []string
	Warnings      []string
}

// Project builds the n8n parameters of a module from its mapping descriptor.
func Project(module *models.SourceModule, mapping *models.ModuleMapping) Projection {
	projection := Projection{Parameters: map[string]any{}}
	inputs := module.Inputs()

	for _, sourceKey := range mapping.SourceKeys() {
		targetPath := mapping.ParameterMap[sourceKey]

		var value any

		if raw, ok := inputs[sourceKey]; ok {
			result := expression.Rewrite(raw)
			projection.Unconvertible = append(projection.Unconvertible, result.Unconvertible...)
			value = result.Value
		} else if sourceKey == RoutesKey && module.HasBranches() {
			rules, unconvertible := Rules(module.Branches)
			projection.Unconvertible = append(projection.Unconvertible, unconvertible...)
			value = rules
		} else {
			continue
		}

		if err := SetPath(projection.Parameters, targetPath, value); err != nil {
			projection.Warnings = append(projection.Warnings, fmt.Sprintf(
				"Could not assign parameter '%s' of module '%s' (ID: %s): %v",
				sourceKey, module.DisplayName, module.ID, err,
			))
		}
	}

	if mapping.Operation != "" {
		projection.Parameters[OperationKey] = mapping.Operation
	}

	return projection
}

// Rules turns router branches into switch rules, one per branch in branch order.
func Rules(branches []*models.Branch) ([]any, []string) {
	rules := make([]any, 0, len(branches))

	var unconvertible []string

	for i, branch := range branches {
		conditions := []any{}

		if branch.Condition != nil {
			value1 := expression.Rewrite(branch.Condition.Operand1)
			value2 := expression.Rewrite(branch.Condition.Operand2)

			unconvertible = append(unconvertible, value1.Unconvertible...)
			unconvertible = append(unconvertible, value2.Unconvertible...)

			conditions = append(conditions, map[string]any{
				"id":        fmt.Sprintf("condition_%d", len(conditions)),
				"value1":    value1.Value,
				"operation": TranslateOperator(branch.Condition.Operator),
				"value2":    value2.Value,
			})
		}

		rules = append(rules, map[string]any{
			"outputKey": fmt.Sprintf("output_%d", i),
			"conditions": map[string]any{
				"conditions": conditions,
			},
		})
	}

	return rules, unconvertible
}
