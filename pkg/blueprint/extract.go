// Package blueprint reads Make.com blueprint documents into flat, ordered module sequences.
package blueprint

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dukex/flowbridge/pkg/models"
)

// Blueprint document keys.
const (
	FlowKey   = "flow"
	RoutesKey = "routes"
	NameKey   = "name"
)

// Extract walks the blueprint's module list depth-first and returns every module,
// including the contents of router branches, as flat siblings in document order.
// A document without a module list yields an empty sequence.
func Extract(document any) ([]*models.SourceModule, error) {
	root, ok := document.(map[string]any)
	if !ok {
		return nil, NewStructureError("", fmt.Sprintf("expected a JSON object, got %s", kindOf(document)))
	}

	flow, ok := root[FlowKey].([]any)
	if !ok {
		return []*models.SourceModule{}, nil
	}

	modules := make([]*models.SourceModule, 0, len(flow))
	for _, entry := range flow {
		modules = walk(entry, modules)
	}

	return modules, nil
}

// Name returns the blueprint's declared name, or an empty string.
func Name(document any) string {
	root, ok := document.(map[string]any)
	if !ok {
		return ""
	}

	name, _ := root[NameKey].(string)

	return name
}

func walk(entry any, out []*models.SourceModule) []*models.SourceModule {
	data, ok := entry.(map[string]any)
	if !ok {
		return out
	}

	module := newSourceModule(data)
	out = append(out, module)

	routes, _ := data[RoutesKey].([]any)
	for _, r := range routes {
		route, ok := r.(map[string]any)
		if !ok {
			continue
		}

		routeFlow, _ := route[FlowKey].([]any)
		branch := &models.Branch{
			Modules:   make([]*models.SourceModule, 0, len(routeFlow)),
			Condition: routeCondition(route, routeFlow),
		}

		for _, nested := range routeFlow {
			before := len(out)
			out = walk(nested, out)

			if len(out) > before {
				branch.Modules = append(branch.Modules, out[before])
			}
		}

		module.Branches = append(module.Branches, branch)
	}

	return out
}

func newSourceModule(data map[string]any) *models.SourceModule {
	id := formatID(data["id"])
	designer := nestedMap(data, "metadata", "designer")

	name, _ := designer[NameKey].(string)
	if name == "" {
		name = "Module " + id
	}

	moduleType, _ := data["module"].(string)

	return &models.SourceModule{
		ID:           id,
		ModuleType:   moduleType,
		DisplayName:  name,
		Parameters:   asMap(data["parameters"]),
		MapperValues: asMap(data["mapper"]),
		Position: models.Position{
			X: toFloat(designer["x"]),
			Y: toFloat(designer["y"]),
		},
	}
}

func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}

		return f
	default:
		return 0
	}
}

func asMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return m
}

func nestedMap(data map[string]any, keys ...string) map[string]any {
	current := data
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return map[string]any{}
		}

		current = next
	}

	return current
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
