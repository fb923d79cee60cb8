package models

import "time"

// Built-in n8n node types produced by the converter itself.
const (
	NoOpNodeType       = "n8n-nodes-base.noOp"
	StickyNoteNodeType = "n8n-nodes-base.stickyNote"
)

// MainConnectionType is the only connection type the converter emits.
const MainConnectionType = "main"

// Node is one step of the generated n8n workflow.
type Node struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion"`
	Position    [2]float64     `json:"position"`
	Parameters  map[string]any `json:"parameters"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// ConnectionTarget is one entry of an output slot.
type ConnectionTarget struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// NodeConnections holds the output slots of one node. Main[i] lists the targets of output i.
type NodeConnections struct {
	Main [][]ConnectionTarget `json:"main"`
}

// Connections is keyed by source node id.
type Connections map[string]*NodeConnections

// Add records an edge from -> to on the given output index. Slots below the index are
// created empty; an identical edge is recorded only once.
func (c Connections) Add(from, to string, outputIndex int) {
	conns, ok := c[from]
	if !ok {
		conns = &NodeConnections{Main: [][]ConnectionTarget{}}
		c[from] = conns
	}

	for len(conns.Main) <= outputIndex {
		conns.Main = append(conns.Main, []ConnectionTarget{})
	}

	for _, existing := range conns.Main[outputIndex] {
		if existing.Node == to {
			return
		}
	}

	conns.Main[outputIndex] = append(conns.Main[outputIndex], ConnectionTarget{
		Node:  to,
		Type:  MainConnectionType,
		Index: 0,
	})
}

// Targets returns the node ids connected to the given output of a node.
func (c Connections) Targets(from string, outputIndex int) []string {
	conns, ok := c[from]
	if !ok || outputIndex >= len(conns.Main) {
		return nil
	}

	targets := make([]string, 0, len(conns.Main[outputIndex]))
	for _, t := range conns.Main[outputIndex] {
		targets = append(targets, t.Node)
	}

	return targets
}

// WorkflowSettings is the fixed execution settings block.
type WorkflowSettings struct {
	ExecutionOrder         string `json:"executionOrder"`
	SaveManualExecutions   bool   `json:"saveManualExecutions"`
	CallerPolicy           string `json:"callerPolicy"`
	SaveDataErrorExecution string `json:"saveDataErrorExecution"`
}

// WorkflowMeta carries identity metadata of the generated document.
type WorkflowMeta struct {
	InstanceID                 string    `json:"instanceId"`
	TemplateCredsSetupComplete bool      `json:"templateCredsSetupCompleted"`
	ConvertedFromMakeCom       bool      `json:"convertedFromMakeCom"`
	ConversionDate             time.Time `json:"conversionDate"`
}

// Workflow is the assembled n8n workflow document.
type Workflow struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Nodes        []Node           `json:"nodes"`
	Connections  Connections      `json:"connections"`
	Active       bool             `json:"active"`
	Settings     WorkflowSettings `json:"settings"`
	VersionID    string           `json:"versionId"`
	Meta         WorkflowMeta     `json:"meta"`
	Tags         []string         `json:"tags"`
	PinData      map[string]any   `json:"pinData"`
	StaticData   any              `json:"staticData"`
	TriggerCount int              `json:"triggerCount"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	Description  string           `json:"description"`
}
