package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the merged assignments, sorted by key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layered, err := a.source()
			if err != nil {
				return err
			}
			view := layered.Assignments()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view.Values())
			}
			for _, key := range view.Keys() {
				value, _ := view.Lookup(key)
				encoded, err := json.Marshal(value)
				if err != nil {
					encoded = []byte(fmt.Sprint(value))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, encoded)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the assignments as a JSON object")
	return cmd
}
