package mapper_test

import (
	"fmt"
	"testing"

	"github.com/dukex/flowbridge/pkg/mapper"
	"github.com/dukex/flowbridge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() models.MappingTable {
	return models.MappingTable{
		"webhook:CustomWebhook": {
			NodeType:     "n8n-nodes-base.webhook",
			ParameterMap: map[string]string{"path": "path"},
		},
		"http:ActionSendData": {
			NodeType:     "n8n-nodes-base.httpRequest",
			TypeVersion:  4,
			ParameterMap: map[string]string{"url": "url"},
			Credentials:  map[string]any{"httpBasicAuth": map[string]any{"id": "1"}},
		},
		models.RouterModuleType: {
			NodeType:     "n8n-nodes-base.switch",
			ParameterMap: map[string]string{"routes": "rules.values"},
		},
	}
}

func module(id, moduleType, name string, x, y float64) *models.SourceModule {
	return &models.SourceModule{
		ID:          id,
		ModuleType:  moduleType,
		DisplayName: name,
		Position:    models.Position{X: x, Y: y},
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, out string
	}{
		{"Webhook", "webhook"},
		{"Send HTTP Request", "send-http-request"},
		{"Fetch  --  data!", "fetch-data-"},
		{"snake_case stays", "snake_case-stays"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.out, mapper.Slugify(tt.in), tt.in)
	}
}

func TestMap_LinearChain(t *testing.T) {
	t.Parallel()

	a := module("1", "webhook:CustomWebhook", "Hook", 0, 0)
	a.Parameters = map[string]any{"path": "incoming"}
	b := module("2", "http:ActionSendData", "Send", 300, 0)
	b.MapperValues = map[string]any{"url": "{{1.url}}"}
	c := module("3", "webhook:CustomWebhook", "Done", 600, 0)

	result := mapper.New(testTable()).Map([]*models.SourceModule{a, b, c})

	require.Len(t, result.Nodes, 3)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.Unconvertible)
	assert.Zero(t, result.UnmappedCount)

	assert.Equal(t, "hook", result.Nodes[0].ID)
	assert.Equal(t, "Hook", result.Nodes[0].Name)
	assert.Equal(t, map[string]any{"path": "incoming"}, result.Nodes[0].Parameters)
	assert.Equal(t, 1.0, result.Nodes[0].TypeVersion)

	send := result.Nodes[1]
	assert.Equal(t, "n8n-nodes-base.httpRequest", send.Type)
	assert.Equal(t, 4.0, send.TypeVersion)
	assert.Equal(t, [2]float64{300, 0}, send.Position)
	assert.Equal(t, map[string]any{"url": "={{ 1.url }}"}, send.Parameters)
	assert.Equal(t, map[string]any{"httpBasicAuth": map[string]any{"id": "1"}}, send.Credentials)

	assert.Equal(t, []string{"send"}, result.Connections.Targets("hook", 0))
	assert.Equal(t, []string{"done"}, result.Connections.Targets("send", 0))
	assert.NotContains(t, result.Connections, "done")
}

func TestMap_RouterFanOut(t *testing.T) {
	t.Parallel()

	router := module("1", models.RouterModuleType, "Router", 0, 0)
	n := module("2", "http:ActionSendData", "N", 300, -100)
	x := module("3", "http:ActionSendData", "X", 300, 0)
	y := module("4", "http:ActionSendData", "Y", 300, 100)
	router.Branches = []*models.Branch{
		{Modules: []*models.SourceModule{n, x}},
		{Modules: []*models.SourceModule{y}},
	}

	// flattened order: R, N, X, Y
	result := mapper.New(testTable()).Map([]*models.SourceModule{router, n, x, y})

	require.Len(t, result.Nodes, 4)

	routes := result.Connections["router"]
	require.NotNil(t, routes)
	require.Len(t, routes.Main, 2)
	assert.Equal(t, []string{"n"}, result.Connections.Targets("router", 0))
	assert.Equal(t, []string{"y"}, result.Connections.Targets("router", 1))
	assert.Equal(t, []string{"x"}, result.Connections.Targets("n", 0))
	assert.Equal(t, []string{"y"}, result.Connections.Targets("x", 0))

	rules := result.Nodes[0].Parameters["rules"].(map[string]any)["values"].([]any)
	assert.Len(t, rules, 2)
}

func TestMap_RouterSequentialAndBranchEdgesShareOutputZero(t *testing.T) {
	t.Parallel()

	router := module("1", models.RouterModuleType, "R", 0, 0)
	n := module("2", "http:ActionSendData", "N", 300, -100)
	x := module("3", "http:ActionSendData", "X", 300, 0)
	y := module("4", "http:ActionSendData", "Y", 300, 100)
	router.Branches = []*models.Branch{
		{Modules: []*models.SourceModule{x}},
		{Modules: []*models.SourceModule{y}},
	}

	result := mapper.New(testTable()).Map([]*models.SourceModule{router, n, x, y})

	assert.Equal(t, []string{"n", "x"}, result.Connections.Targets("r", 0))
	assert.Equal(t, []string{"y"}, result.Connections.Targets("r", 1))
	assert.Equal(t, []string{"x"}, result.Connections.Targets("n", 0))
	assert.Equal(t, []string{"y"}, result.Connections.Targets("x", 0))
}

func TestMap_BranchEdgesWithoutSourceIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ids  [3]string
	}{
		{name: "missing ids", ids: [3]string{"", "", ""}},
		{name: "repeated ids", ids: [3]string{"7", "7", "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := module(tt.ids[0], models.RouterModuleType, "Router", 0, 0)
			x := module(tt.ids[1], "http:ActionSendData", "X", 300, 0)
			y := module(tt.ids[2], "http:ActionSendData", "Y", 300, 100)
			router.Branches = []*models.Branch{
				{Modules: []*models.SourceModule{x}},
				{Modules: []*models.SourceModule{y}},
			}

			result := mapper.New(testTable()).Map([]*models.SourceModule{router, x, y})

			assert.Equal(t, []string{"x"}, result.Connections.Targets("router", 0))
			assert.Equal(t, []string{"y"}, result.Connections.Targets("router", 1))
			assert.Equal(t, []string{"y"}, result.Connections.Targets("x", 0))
		})
	}
}

func TestMap_NodesDoNotShareTableCredentials(t *testing.T) {
	t.Parallel()

	table := testTable()
	modules := []*models.SourceModule{
		module("1", "http:ActionSendData", "First", 0, 0),
		module("2", "http:ActionSendData", "Second", 300, 0),
	}

	result := mapper.New(table).Map(modules)
	require.Len(t, result.Nodes, 2)

	result.Nodes[0].Credentials["httpBasicAuth"].(map[string]any)["id"] = "changed"
	result.Nodes[0].Credentials["extra"] = true

	want := map[string]any{"httpBasicAuth": map[string]any{"id": "1"}}
	assert.Equal(t, want, table["http:ActionSendData"].Credentials)
	assert.Equal(t, want, result.Nodes[1].Credentials)
}

func TestMap_NonRouterBranchesAreIgnored(t *testing.T) {
	t.Parallel()

	parent := module("1", "webhook:CustomWebhook", "Parent", 0, 0)
	child := module("2", "http:ActionSendData", "Child", 0, 0)
	other := module("3", "http:ActionSendData", "Other", 0, 0)
	parent.Branches = []*models.Branch{{}, {Modules: []*models.SourceModule{child}}}

	result := mapper.New(testTable()).Map([]*models.SourceModule{parent, other, child})

	assert.Equal(t, []string{"other"}, result.Connections.Targets("parent", 0))
	assert.Len(t, result.Connections["parent"].Main, 1)
}

func TestMap_UnmappedModulesBecomePlaceholders(t *testing.T) {
	t.Parallel()

	known := module("1", "webhook:CustomWebhook", "Hook", 0, 0)
	unknown := module("7", "slack:PostMessage", "Post to Slack", 300, 0)
	unknown.Parameters = map[string]any{"text": "{{1.body}}"}

	result := mapper.New(testTable()).Map([]*models.SourceModule{known, unknown})

	require.Len(t, result.Nodes, 2)
	assert.Equal(t, 1, result.UnmappedCount)
	assert.Equal(t, []string{
		"Could not map Make.com module 'slack:PostMessage' (ID: 7, Name: 'Post to Slack'). A placeholder node has been created.",
	}, result.Warnings)

	placeholder := result.Nodes[1]
	assert.Equal(t, models.NoOpNodeType, placeholder.Type)
	assert.Equal(t, "UNMAPPED: Post to Slack", placeholder.Name)
	assert.Equal(t, "post-to-slack", placeholder.ID)
	assert.Equal(t, [2]float64{300, 0}, placeholder.Position)

	notes, ok := placeholder.Parameters["notes"].(string)
	require.True(t, ok)
	assert.Contains(t, notes, "slack:PostMessage")
	assert.Contains(t, notes, "Original Make.com Module ID: 7")

	assert.Equal(t, []string{"post-to-slack"}, result.Connections.Targets("hook", 0))
}

func TestMap_EveryModuleUnmapped(t *testing.T) {
	t.Parallel()

	modules := []*models.SourceModule{
		module("1", "a:One", "One", 0, 0),
		module("2", "b:Two", "Two", 0, 0),
	}

	result := mapper.New(nil).Map(modules)

	require.Len(t, result.Nodes, 2)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, 2, result.UnmappedCount)

	for _, node := range result.Nodes {
		assert.Equal(t, models.NoOpNodeType, node.Type)
	}
}

func TestMap_AnnotationComesFirst(t *testing.T) {
	t.Parallel()

	a := module("1", "http:ActionSendData", "A", 100, 50)
	a.MapperValues = map[string]any{"url": "{{weird}}"}
	b := module("2", "http:ActionSendData", "B", 400, 20)
	b.MapperValues = map[string]any{"url": "{{weird}}"}
	c := module("3", "http:ActionSendData", "C", 700, 80)
	c.MapperValues = map[string]any{"url": "prefix {{other}}"}

	result := mapper.New(testTable()).Map([]*models.SourceModule{a, b, c})

	require.Len(t, result.Nodes, 4)

	note := result.Nodes[0]
	assert.Equal(t, mapper.AnnotationNodeID, note.ID)
	assert.Equal(t, mapper.AnnotationNodeName, note.Name)
	assert.Equal(t, models.StickyNoteNodeType, note.Type)
	assert.Equal(t, [2]float64{-200, -180}, note.Position)

	content, ok := note.Parameters["content"].(string)
	require.True(t, ok)
	assert.Equal(t, 1, countOf(content, "- Potentially unconvertible expression: {{weird}}\n"))
	assert.Equal(t, 1, countOf(content, "- Potentially unconvertible expression: {{other}}\n"))

	assert.Equal(t, []string{mapper.ReviewWarning}, result.Warnings)
	assert.Len(t, result.Unconvertible, 3)
	assert.NotContains(t, result.Connections, mapper.AnnotationNodeID)
}

func TestMap_NoAnnotationWithoutDiagnostics(t *testing.T) {
	t.Parallel()

	result := mapper.New(testTable()).Map(nil)

	assert.Empty(t, result.Nodes)
	assert.Empty(t, result.Connections)
	assert.Empty(t, result.Warnings)
}

func TestMap_NodeIDsArePairwiseUnique(t *testing.T) {
	t.Parallel()

	names := []string{"Send", "Send", "send", "Send!", "", "", "unconvertible expressions warning", "Send"}
	modules := make([]*models.SourceModule, 0, len(names))

	for i, name := range names {
		modules = append(modules, module(fmt.Sprint(i%3), "http:ActionSendData", name, 0, 0))
	}

	modules[0].MapperValues = map[string]any{"url": "{{weird}}"}

	result := mapper.New(testTable()).Map(modules)

	seen := map[string]bool{}
	for _, node := range result.Nodes {
		assert.False(t, seen[node.ID], "duplicate id %q", node.ID)
		seen[node.ID] = true
	}

	assert.Len(t, seen, len(names)+1)
	assert.Equal(t, "send", result.Nodes[1].ID)
	assert.Equal(t, "send-1", result.Nodes[2].ID)
}

func TestMap_IsDeterministic(t *testing.T) {
	t.Parallel()

	build := func() []*models.SourceModule {
		router := module("1", models.RouterModuleType, "Router", 0, 0)
		left := module("2", "http:ActionSendData", "Left", 300, 0)
		left.MapperValues = map[string]any{"url": "{{odd}}"}
		right := module("3", "unknown:Thing", "Right", 300, 100)
		router.Branches = []*models.Branch{
			{Modules: []*models.SourceModule{left}, Condition: &models.Condition{Operand1: "{{1.a}}", Operator: "equal", Operand2: "b"}},
			{Modules: []*models.SourceModule{right}},
		}

		return []*models.SourceModule{router, left, right}
	}

	m := mapper.New(testTable())
	first := m.Map(build())
	second := m.Map(build())

	assert.Equal(t, first, second)
}

func countOf(s, substr string) int {
	count := 0

	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}

	return count
}
