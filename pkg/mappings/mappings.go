// Package mappings loads and validates module mapping tables.
//
// A table is a JSON or YAML object keyed by Make.com module type. Every file is checked
// against an embedded JSON Schema before decoding and every entry is struct-validated
// afterwards. A built-in table ships with the binary and is used whenever no valid file
// is available.
package mappings

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a mapping file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	//go:embed schema.json
	schemaJSON []byte

	//go:embed default.json
	defaultJSON []byte

	tableSchema = mustCompileSchema()
	validate    = validator.New(validator.WithRequiredStructEnabled())
)

// Summary describes one table entry for listings.
type Summary struct {
	ModuleType  string  `json:"module_type"           yaml:"module_type"`
	NodeType    string  `json:"n8n_type"              yaml:"n8n_type"`
	TypeVersion float64 `json:"type_version"          yaml:"type_version"`
	Operation   string  `json:"operation,omitempty"   yaml:"operation,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// FormatOf picks the format from a file extension. Anything but .yaml and .yml is JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates a mapping table file.
func Load(path string) (models.MappingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	table, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping file %s: %w", path, err)
	}

	return table, nil
}

// LoadOrDefault loads the table at path, falling back to the built-in table when path is
// empty or the file cannot be loaded. It never fails.
func LoadOrDefault(path string, logger *slog.Logger) models.MappingTable {
	if path == "" {
		return Default()
	}

	table, err := Load(path)
	if err != nil {
		logger.Warn("Using built-in mapping table", "path", path, "error", err)

		return Default()
	}

	logger.Info("Loaded mapping table", "path", path, "module_types", len(table))

	return table
}

// Default returns a fresh copy of the built-in mapping table.
func Default() models.MappingTable {
	table, err := Parse(defaultJSON, FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("built-in mapping table is invalid: %v", err))
	}

	return table
}

// Parse decodes and validates a mapping table.
func Parse(data []byte, format Format) (models.MappingTable, error) {
	var (
		document any
		table    models.MappingTable
	)

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("failed to parse YAML mapping table: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("failed to parse JSON mapping table: %w", err)
		}
	}

	if err := validateSchema(document); err != nil {
		return nil, err
	}

	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &table)
	default:
		err = json.Unmarshal(data, &table)
	}

	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	if err := Validate(table); err != nil {
		return nil, err
	}

	return table, nil
}

// Validate struct-validates every entry of a table.
func Validate(table models.MappingTable) error {
	for _, moduleType := range table.ModuleTypes() {
		mapping := table[moduleType]
		if mapping == nil {
			return &ValidationError{ModuleType: moduleType, Err: fmt.Errorf("mapping is empty")}
		}

		if err := validate.Struct(mapping); err != nil {
			return &ValidationError{ModuleType: moduleType, Err: err}
		}
	}

	return nil
}

// Describe lists the entries of a table sorted by module type.
func Describe(table models.MappingTable) []Summary {
	summaries := make([]Summary, 0, len(table))

	for _, moduleType := range table.ModuleTypes() {
		mapping, ok := table.Lookup(moduleType)
		if !ok {
			continue
		}

		summaries = append(summaries, Summary{
			ModuleType:  moduleType,
			NodeType:    mapping.NodeType,
			TypeVersion: mapping.Version(),
			Operation:   mapping.Operation,
			Description: mapping.Description,
		})
	}

	return summaries
}

func validateSchema(document any) error {
	result, err := tableSchema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return &ValidationError{Err: err}
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return &ValidationError{Err: fmt.Errorf("schema violations: %s", strings.Join(problems, "; "))}
	}

	return nil
}

func mustCompileSchema() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("mapping schema does not compile: %v", err))
	}

	return schema
}
