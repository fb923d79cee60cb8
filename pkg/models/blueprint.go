// Package models defines the source blueprint, mapping and target workflow models
// shared by every stage of the conversion pipeline.
package models

// RouterModuleType is the source module type whose routes fan out into branches.
const RouterModuleType = "builtin:BasicRouter"

// Position is a designer coordinate pair.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SourceModule is one step of a Make.com blueprint, captured once during extraction.
type SourceModule struct {
	ID           string         `json:"id"`
	ModuleType   string         `json:"module"`
	DisplayName  string         `json:"name"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	MapperValues map[string]any `json:"mapper,omitempty"`
	Position     Position       `json:"position"`
	Branches     []*Branch      `json:"branches,omitempty"`
}

// IsRouter reports whether the module fans out into branches.
func (m *SourceModule) IsRouter() bool {
	return m.ModuleType == RouterModuleType
}

// HasBranches reports whether the module carries at least one branch.
func (m *SourceModule) HasBranches() bool {
	return len(m.Branches) > 0
}

// Inputs merges parameters and mapper values into one lookup bag.
// Mapper values win on key collision.
func (m *SourceModule) Inputs() map[string]any {
	merged := make(map[string]any, len(m.Parameters)+len(m.MapperValues))

	for k, v := range m.Parameters {
		merged[k] = v
	}

	for k, v := range m.MapperValues {
		merged[k] = v
	}

	return merged
}

// Branch is one route of a router module. Modules holds the route's own top-level
// modules, which also appear as flat siblings in the extracted sequence.
type Branch struct {
	Modules   []*SourceModule `json:"modules"`
	Condition *Condition      `json:"condition,omitempty"`
}

// First returns the first module of the branch, or nil for an empty route.
func (b *Branch) First() *SourceModule {
	if len(b.Modules) == 0 {
		return nil
	}

	return b.Modules[0]
}

// Condition is a single binary branch predicate.
type Condition struct {
	Operand1 any    `json:"operand1"`
	Operator string `json:"operator"`
	Operand2 any    `json:"operand2"`
}
