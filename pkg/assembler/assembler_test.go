package assembler_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/flowbridge/pkg/assembler"
	"github.com/dukex/flowbridge/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_Defaults(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	counter := 0
	a := assembler.New(
		assembler.WithClock(func() time.Time { return fixed }),
		assembler.WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("id-%d", counter)
		}),
	)

	connections := models.Connections{}
	connections.Add("a", "b", 0)

	wf := a.Assemble("", []models.Node{{ID: "a"}, {ID: "b"}}, connections)

	assert.Equal(t, "id-1", wf.ID)
	assert.Equal(t, "id-2", wf.VersionID)
	assert.Equal(t, "id-3", wf.Meta.InstanceID)
	assert.Equal(t, assembler.DefaultName, wf.Name)
	assert.False(t, wf.Active)
	assert.Equal(t, "v1", wf.Settings.ExecutionOrder)
	assert.Equal(t, "any", wf.Settings.CallerPolicy)
	assert.Equal(t, "all", wf.Settings.SaveDataErrorExecution)
	assert.True(t, wf.Settings.SaveManualExecutions)
	assert.True(t, wf.Meta.ConvertedFromMakeCom)
	assert.True(t, wf.Meta.TemplateCredsSetupComplete)
	assert.Equal(t, fixed, wf.CreatedAt)
	assert.Equal(t, wf.CreatedAt, wf.UpdatedAt)
	assert.Equal(t, fixed, wf.Meta.ConversionDate)
	assert.Equal(t, []string{"converted", "make.com"}, wf.Tags)
	assert.Equal(t, assembler.Description, wf.Description)
	assert.Equal(t, connections, wf.Connections)
	assert.Len(t, wf.Nodes, 2)
}

func TestAssemble_FreshIdentifiers(t *testing.T) {
	t.Parallel()

	a := assembler.New()

	first := a.Assemble("Orders", nil, nil)
	second := a.Assemble("Orders", nil, nil)

	assert.Equal(t, "Orders", first.Name)

	ids := map[string]bool{}
	for _, wf := range []*models.Workflow{first, second} {
		for _, id := range []string{wf.ID, wf.VersionID, wf.Meta.InstanceID} {
			_, err := uuid.Parse(id)
			require.NoError(t, err)
			assert.False(t, ids[id], "identifier reused: %s", id)
			ids[id] = true
		}
	}
}

func TestAssemble_JSONShape(t *testing.T) {
	t.Parallel()

	wf := assembler.New().Assemble("Empty", nil, nil)

	raw, err := json.Marshal(wf)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, []any{}, doc["nodes"])
	assert.Equal(t, map[string]any{}, doc["connections"])
	assert.Equal(t, map[string]any{}, doc["pinData"])
	assert.Nil(t, doc["staticData"])
	assert.Contains(t, doc, "staticData")
	assert.Equal(t, false, doc["active"])
	assert.Equal(t, 0.0, doc["triggerCount"])
	assert.Equal(t, doc["createdAt"], doc["updatedAt"])
}
