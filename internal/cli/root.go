// Package cli implements the variantctl command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	variants "github.com/goliatone/go-variants"
	"github.com/goliatone/go-variants/pkg/source"
	"github.com/spf13/cobra"
)

// app carries the flags and dependencies shared by every subcommand.
type app struct {
	files   []string
	verbose bool
	logger  *slog.Logger
}

// NewRootCommand builds the variantctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "variantctl",
		Short: "Inspect variant assignments, rules and schemas",
		Long: `Inspect variant assignments, rules and schemas.

Assignment files are JSON or YAML documents mapping variant keys to values.
When --file is repeated, later files override earlier ones.

Examples:
  variantctl list --file base.yaml --file user.json
  variantctl get button_color --file base.yaml --type color --default "#0000FF"
  variantctl trace button_color --file base.yaml --file user.json
  variantctl eval --rules rules.yaml --unit u42 --attr country=DE
  variantctl schema --file base.yaml --format openapi`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	root.PersistentFlags().StringArrayVarP(&a.files, "file", "f", nil, "Assignment file (JSON or YAML), repeatable; later files win")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newGetCommand(a),
		newListCommand(a),
		newTraceCommand(a),
		newEvalCommand(a),
		newSchemaCommand(a),
	)
	return root
}

// source stacks the assignment files, strongest last.
func (a *app) source() (*source.Layered, error) {
	if len(a.files) == 0 {
		return nil, fmt.Errorf("at least one --file is required")
	}

	layers := make([]source.Layer, 0, len(a.files))
	for i, path := range a.files {
		file, err := source.NewFile(path, source.WithFileLogger(a.logger))
		if err != nil {
			return nil, err
		}
		scope := variants.NewScope(
			fmt.Sprintf("file%d", i+1),
			i+1,
			variants.WithScopeLabel(filepath.Base(path)),
			variants.WithScopeMetadata(map[string]any{"path": path}),
		)
		layers = append(layers, source.NewLayer(scope, file))
		a.logger.Debug("assignment file loaded", "path", path, "keys", file.Assignments().Len())
	}
	return source.NewLayered(layers)
}

func (a *app) resolver() (*variants.Resolver, *source.Layered, error) {
	layered, err := a.source()
	if err != nil {
		return nil, nil, err
	}
	resolver := variants.NewResolver(layered, variants.WithLogger(variants.SlogLogger(a.logger)))
	return resolver, layered, nil
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
