// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/flowbridge/pkg/models"
)

// CreateTestModule creates a blueprint module entry with default values that can be overridden.
func CreateTestModule(id int, moduleType string, overrides ...func(map[string]any)) map[string]any {
	module := map[string]any{
		"id":     id,
		"module": moduleType,
		"metadata": map[string]any{
			"designer": map[string]any{
				"x":    id * 300,
				"y":    0,
				"name": fmt.Sprintf("Step %d", id),
			},
		},
	}

	for _, override := range overrides {
		override(module)
	}

	return module
}

// WithName sets the designer name of the module.
func WithName(name string) func(map[string]any) {
	return func(m map[string]any) {
		designer(m)["name"] = name
	}
}

// WithPosition sets the designer position of the module.
func WithPosition(x, y float64) func(map[string]any) {
	return func(m map[string]any) {
		designer(m)["x"] = x
		designer(m)["y"] = y
	}
}

// WithParameters sets the static parameters of the module.
func WithParameters(parameters map[string]any) func(map[string]any) {
	return func(m map[string]any) {
		m["parameters"] = parameters
	}
}

// WithMapper sets the mapped (expression) inputs of the module.
func WithMapper(mapper map[string]any) func(map[string]any) {
	return func(m map[string]any) {
		m["mapper"] = mapper
	}
}

// WithRoutes turns the module into a router with the given routes.
func WithRoutes(routes ...map[string]any) func(map[string]any) {
	return func(m map[string]any) {
		m["module"] = models.RouterModuleType

		list := make([]any, 0, len(routes))
		for _, route := range routes {
			list = append(list, route)
		}

		m["routes"] = list
	}
}

// CreateTestRoute creates a router route. condition may be nil.
func CreateTestRoute(condition map[string]any, modules ...map[string]any) map[string]any {
	route := map[string]any{"flow": moduleList(modules)}
	if condition != nil {
		route["condition"] = condition
	}

	return route
}

// CreateTestCondition creates a canonical route condition.
func CreateTestCondition(operand1, operator string, operand2 any) map[string]any {
	return map[string]any{
		"operand1": operand1,
		"operator": operator,
		"operand2": operand2,
	}
}

// CreateTestBlueprint creates a blueprint document.
func CreateTestBlueprint(name string, modules ...map[string]any) map[string]any {
	return map[string]any{
		"name": name,
		"flow": moduleList(modules),
	}
}

// MustJSON encodes a document, panicking on failure.
func MustJSON(document any) []byte {
	data, err := json.Marshal(document)
	if err != nil {
		panic(err)
	}

	return data
}

func moduleList(modules []map[string]any) []any {
	list := make([]any, 0, len(modules))
	for _, module := range modules {
		list = append(list, module)
	}

	return list
}

func designer(m map[string]any) map[string]any {
	metadata, ok := m["metadata"].(map[string]any)
	if !ok {
		metadata = map[string]any{}
		m["metadata"] = metadata
	}

	d, ok := metadata["designer"].(map[string]any)
	if !ok {
		d = map[string]any{}
		metadata["designer"] = d
	}

	return d
}
