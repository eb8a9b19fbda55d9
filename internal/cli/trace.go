package cli

import (
	"encoding/json"
	"fmt"

	variants "github.com/goliatone/go-variants"
	"github.com/spf13/cobra"
)

func newTraceCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "trace KEY",
		Short: "Show which file contributes a key, strongest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layered, err := a.source()
			if err != nil {
				return err
			}
			trace := layered.Trace(variants.Key(args[0]))
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), trace)
			}

			out := cmd.OutOrStdout()
			winner, found := trace.Winner()
			for _, layer := range trace.Layers {
				marker := " "
				if found && layer.Scope.Name == winner.Scope.Name {
					marker = "*"
				}
				if !layer.Found {
					fmt.Fprintf(out, "%s %s: <unset>\n", marker, layer.Scope.Label)
					continue
				}
				value, err := json.Marshal(layer.Value)
				if err != nil {
					value = []byte(fmt.Sprint(layer.Value))
				}
				fmt.Fprintf(out, "%s %s: %s\n", marker, layer.Scope.Label, value)
			}
			if !found {
				fmt.Fprintf(out, "%s is not assigned\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the trace as JSON")
	return cmd
}
