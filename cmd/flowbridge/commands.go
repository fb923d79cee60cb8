package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/dukex/flowbridge/pkg/log"
	"github.com/dukex/flowbridge/pkg/mappings"
	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Output formats of the convert command.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrUnknownFormat   = errors.New("unknown output format")
)

func mappingsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "mappings",
		Aliases: []string{"m"},
		Usage:   "Mapping table file (.json, .yaml or .yml); the built-in table is used when empty or invalid",
		Sources: cli.EnvVars("MAPPINGS_PATH"),
	}
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  "flowbridge",
		Usage:                 "Convert Make.com blueprints into n8n workflows",
		EnableShellCompletion: true,
		Writer:                stdout,
		ErrWriter:             stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			convertCommand(),
			{
				Name:  "mappings",
				Usage: "Inspect mapping tables",
				Commands: []*cli.Command{
					validateMappingsCommand(),
					listMappingsCommand(),
				},
			},
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Aliases:   []string{"c"},
		Usage:     "Convert a blueprint file",
		ArgsUsage: "<blueprint.json>",
		Flags: []cli.Flag{
			mappingsFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the workflow to this file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (json, yaml)",
				Value: FormatJSON,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			input := command.Args().First()
			if input == "" {
				return fmt.Errorf("%w: blueprint file", ErrMissingArgument)
			}

			format := command.String("format")
			if format != FormatJSON && format != FormatYAML {
				return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read blueprint: %w", err)
			}

			table := mappings.LoadOrDefault(command.String("mappings"), log.WithModule("mappings"))

			result, err := converter.New(table, converter.WithLogger(log.WithModule("converter"))).ConvertBytes(ctx, data)
			if errors.Is(err, converter.ErrHTMLContent) {
				return errors.New(converter.HTMLContentMessage)
			}

			if err != nil {
				return err
			}

			for _, warning := range result.Warnings {
				fmt.Fprintln(command.Root().ErrWriter, "warning:", warning)
			}

			encoded, err := encodeWorkflow(result.Workflow, format)
			if err != nil {
				return err
			}

			if output := command.String("output"); output != "" {
				if err := os.WriteFile(output, encoded, 0o600); err != nil {
					return fmt.Errorf("failed to write workflow: %w", err)
				}

				fmt.Fprintf(command.Root().ErrWriter, "wrote %s (%d nodes, %d warnings)\n",
					output, result.Stats.NodeCount, len(result.Warnings))

				return nil
			}

			_, err = command.Root().Writer.Write(encoded)

			return err
		},
	}
}

// encodeWorkflow renders the workflow with its JSON field names in either format.
func encodeWorkflow(workflow any, format string) ([]byte, error) {
	encoded, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}

	if format == FormatJSON {
		return append(encoded, '\n'), nil
	}

	var document any
	if err := json.Unmarshal(encoded, &document); err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}

	return yaml.Marshal(document)
}

func validateMappingsCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a mapping table file",
		ArgsUsage: "<mappings.json|mappings.yaml>",
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("%w: mapping file", ErrMissingArgument)
			}

			table, err := mappings.Load(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(command.Root().Writer, "%s: %d module types OK\n", path, len(table))

			return nil
		},
	}
}

func listMappingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the module types of a mapping table",
		Flags: []cli.Flag{mappingsFlag()},
		Action: func(_ context.Context, command *cli.Command) error {
			table := mappings.LoadOrDefault(command.String("mappings"), log.WithModule("mappings"))

			w := tabwriter.NewWriter(command.Root().Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODULE TYPE\tN8N TYPE\tVERSION\tOPERATION")

			for _, summary := range mappings.Describe(table) {
				fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", summary.ModuleType, summary.NodeType, summary.TypeVersion, summary.Operation)
			}

			return w.Flush()
		},
	}
}
