package models

import "sort"

// ModuleMapping describes how one source module type projects onto one n8n node type.
type ModuleMapping struct {
	NodeType     string            `json:"n8n_type"              yaml:"n8n_type"              validate:"required"`
	TypeVersion  float64           `json:"typeVersion,omitempty" yaml:"typeVersion,omitempty" validate:"omitempty,gt=0"`
	Operation    string            `json:"operation,omitempty"   yaml:"operation,omitempty"`
	Credentials  map[string]any    `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	ParameterMap map[string]string `json:"parameters,omitempty"  yaml:"parameters,omitempty"  validate:"dive,keys,required,endkeys,required"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// Version returns the target type version, defaulting to 1.
func (m *ModuleMapping) Version() float64 {
	if m.TypeVersion <= 0 {
		return 1
	}

	return m.TypeVersion
}

// SourceKeys returns the parameter map keys in a stable order.
func (m *ModuleMapping) SourceKeys() []string {
	keys := make([]string, 0, len(m.ParameterMap))
	for k := range m.ParameterMap {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// MappingTable is keyed by source module type. It is loaded once and only read afterwards.
type MappingTable map[string]*ModuleMapping

// Lookup returns the mapping for a module type.
func (t MappingTable) Lookup(moduleType string) (*ModuleMapping, bool) {
	mapping, ok := t[moduleType]
	if !ok || mapping == nil {
		return nil, false
	}

	return mapping, true
}

// ModuleTypes returns the mapped source module types sorted alphabetically.
func (t MappingTable) ModuleTypes() []string {
	types := make([]string, 0, len(t))
	for k := range t {
		types = append(types, k)
	}

	sort.Strings(types)

	return types
}
