package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const blueprint = `{
  "name": "CLI flow",
  "flow": [
    {"id": 1, "module": "webhook:CustomWebhook", "parameters": {"path": "in"}},
    {"id": 2, "module": "unknown:Thing"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	err := newCommand(&stdout, &stderr).Run(t.Context(), append([]string{"flowbridge"}, args...))

	return stdout.String(), stderr.String(), err
}

func TestConvert_ToStdout(t *testing.T) {
	t.Parallel()

	input := writeFile(t, "flow.json", blueprint)

	stdout, stderr, err := run(t, "convert", input)
	require.NoError(t, err)

	var workflow map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &workflow))
	assert.Equal(t, "CLI flow", workflow["name"])
	assert.Len(t, workflow["nodes"], 2)

	assert.Contains(t, stderr, "warning: Could not map Make.com module 'unknown:Thing'")
}

func TestConvert_YAMLToFile(t *testing.T) {
	t.Parallel()

	input := writeFile(t, "flow.json", blueprint)
	output := filepath.Join(t.TempDir(), "workflow.yaml")

	stdout, stderr, err := run(t, "convert", "--format", "yaml", "-o", output, input)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "wrote "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var workflow map[string]any
	require.NoError(t, yaml.Unmarshal(data, &workflow))
	assert.Equal(t, "CLI flow", workflow["name"])
	assert.Equal(t, false, workflow["active"])
	assert.Contains(t, workflow, "pinData")
}

func TestConvert_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    func(t *testing.T) []string
		wantErr error
		message string
	}{
		{
			name:    "missing input",
			args:    func(_ *testing.T) []string { return []string{"convert"} },
			wantErr: ErrMissingArgument,
		},
		{
			name: "unknown format",
			args: func(t *testing.T) []string {
				t.Helper()

				return []string{"convert", "--format", "xml", writeFile(t, "flow.json", blueprint)}
			},
			wantErr: ErrUnknownFormat,
		},
		{
			name: "html export",
			args: func(t *testing.T) []string {
				t.Helper()

				return []string{"convert", writeFile(t, "flow.json", "<!DOCTYPE html><html></html>")}
			},
			message: converter.HTMLContentMessage,
		},
		{
			name: "broken json",
			args: func(t *testing.T) []string {
				t.Helper()

				return []string{"convert", writeFile(t, "flow.json", "{")}
			},
			wantErr: converter.ErrInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := run(t, tt.args(t)...)
			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestMappingsValidate(t *testing.T) {
	t.Parallel()

	valid := filepath.Join("..", "..", "pkg", "mappings", "testdata", "mappings.yaml")

	stdout, _, err := run(t, "mappings", "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, stdout, "module types OK")

	invalid := writeFile(t, "bad.json", `{"slack:CreateMessage": {"parameters": {}}}`)

	_, _, err = run(t, "mappings", "validate", invalid)
	require.Error(t, err)

	_, _, err = run(t, "mappings", "validate")
	require.ErrorIs(t, err, ErrMissingArgument)
}

func TestMappingsList(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, "mappings", "list")
	require.NoError(t, err)

	assert.Contains(t, stdout, "MODULE TYPE")
	assert.Contains(t, stdout, "builtin:BasicRouter")
	assert.Contains(t, stdout, "n8n-nodes-base.switch")
}
