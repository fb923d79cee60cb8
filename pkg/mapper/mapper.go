// Package mapper turns an extracted module sequence into n8n nodes and connections.
package mapper

import (
	"fmt"
	"maps"
	"strings"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/dukex/flowbridge/pkg/projection"
)

// Annotation node identity.
const (
	AnnotationNodeID   = "unconvertible-expressions-warning"
	AnnotationNodeName = "Unconvertible Expressions"
)

// UnmappedNamePrefix prefixes the name of placeholder nodes.
const UnmappedNamePrefix = "UNMAPPED: "

// Annotation placement relative to the top-left node.
const (
	annotationOffsetX = -300
	annotationOffsetY = -200
)

// ReviewWarning is the consolidated warning emitted when expressions need manual review.
const ReviewWarning = "Some Make.com expressions could not be converted. Please check the '" +
	AnnotationNodeName + "' sticky note in the generated n8n workflow for details."

// Result is the node list and connection graph of one run, with its diagnostics.
type Result struct {
	Nodes         []models.Node
	Connections   models.Connections
	Warnings      []string
	Unconvertible []string
	UnmappedCount int
}

// Mapper maps modules against a read-only mapping table. It is safe for concurrent use.
type Mapper struct {
	table models.MappingTable
}

// New creates a mapper over a mapping table.
func New(table models.MappingTable) *Mapper {
	if table == nil {
		table = models.MappingTable{}
	}

	return &Mapper{table: table}
}

// Map synthesizes one node per module, then the sequential and router edges between them.
func (m *Mapper) Map(modules []*models.SourceModule) *Result {
	result := &Result{
		Nodes:       make([]models.Node, 0, len(modules)+1),
		Connections: models.Connections{},
		Warnings:    []string{},
	}

	ids := newIDAllocator(AnnotationNodeID)
	nodeIDs := make([]string, len(modules))
	byModule := make(map[*models.SourceModule]string, len(modules))

	for i, module := range modules {
		nodeID := ids.allocate(module.DisplayName, module.ID)
		nodeIDs[i] = nodeID
		byModule[module] = nodeID

		result.Nodes = append(result.Nodes, m.node(module, nodeID, result))
	}

	for i, module := range modules {
		if i+1 < len(modules) {
			result.Connections.Add(nodeIDs[i], nodeIDs[i+1], 0)
		}

		if !module.IsRouter() {
			continue
		}

		for branchIndex, branch := range module.Branches {
			first := branch.First()
			if first == nil {
				continue
			}

			// keyed by module, since source ids may be missing or repeated
			if target, ok := byModule[first]; ok {
				result.Connections.Add(nodeIDs[i], target, branchIndex)
			}
		}
	}

	if len(result.Unconvertible) > 0 {
		result.Nodes = append([]models.Node{annotationNode(result.Nodes, result.Unconvertible)}, result.Nodes...)
		result.Warnings = append(result.Warnings, ReviewWarning)
	}

	return result
}

func (m *Mapper) node(module *models.SourceModule, nodeID string, result *Result) models.Node {
	mapping, ok := m.table.Lookup(module.ModuleType)
	if !ok {
		result.UnmappedCount++
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Could not map Make.com module '%s' (ID: %s, Name: '%s'). A placeholder node has been created.",
			module.ModuleType, module.ID, module.DisplayName,
		))

		return placeholderNode(module, nodeID)
	}

	projected := projection.Project(module, mapping)
	result.Unconvertible = append(result.Unconvertible, projected.Unconvertible...)
	result.Warnings = append(result.Warnings, projected.Warnings...)

	return models.Node{
		ID:          nodeID,
		Name:        module.DisplayName,
		Type:        mapping.NodeType,
		TypeVersion: mapping.Version(),
		Position:    [2]float64{module.Position.X, module.Position.Y},
		Parameters:  projected.Parameters,
		Credentials: cloneMap(mapping.Credentials),
	}
}

// cloneMap deep-copies a JSON object so nodes never alias the mapping table.
func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := maps.Clone(in)
	for key, value := range out {
		out[key] = cloneValue(value)
	}

	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}

func placeholderNode(module *models.SourceModule, nodeID string) models.Node {
	notes := fmt.Sprintf(
		"Original Make.com Module Type: %s\nOriginal Make.com Module ID: %s\n"+
			"This module could not be automatically converted. Manual adjustment is required.",
		module.ModuleType, module.ID,
	)

	return models.Node{
		ID:          nodeID,
		Name:        UnmappedNamePrefix + module.DisplayName,
		Type:        models.NoOpNodeType,
		TypeVersion: 1,
		Position:    [2]float64{module.Position.X, module.Position.Y},
		Parameters:  map[string]any{"notes": notes},
	}
}

func annotationNode(nodes []models.Node, unconvertible []string) models.Node {
	var b strings.Builder

	b.WriteString("## Unconvertible Expressions Warning\n\n")
	b.WriteString("The following expressions from the Make.com workflow could not be directly converted to n8n ")
	b.WriteString("expressions and have been removed or replaced with placeholders. Manual review and adjustment are required:\n\n")

	seen := make(map[string]bool, len(unconvertible))
	for _, entry := range unconvertible {
		if seen[entry] {
			continue
		}

		seen[entry] = true

		b.WriteString("- ")
		b.WriteString(entry)
		b.WriteString("\n")
	}

	var minX, minY float64

	for i, node := range nodes {
		if i == 0 || node.Position[0] < minX {
			minX = node.Position[0]
		}

		if i == 0 || node.Position[1] < minY {
			minY = node.Position[1]
		}
	}

	return models.Node{
		ID:          AnnotationNodeID,
		Name:        AnnotationNodeName,
		Type:        models.StickyNoteNodeType,
		TypeVersion: 1,
		Position:    [2]float64{minX + annotationOffsetX, minY + annotationOffsetY},
		Parameters: map[string]any{
			"color":   "6",
			"width":   400,
			"height":  200,
			"content": b.String(),
		},
	}
}
