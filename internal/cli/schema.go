package cli

import (
	"fmt"

	variants "github.com/goliatone/go-variants"
	"github.com/goliatone/go-variants/schema/openapi"
	"github.com/spf13/cobra"
)

// assigned describes one top-level assignment as a catalog entry.
type assigned variants.Descriptor

func (a assigned) Descriptor() variants.Descriptor { return variants.Descriptor(a) }

func newSchemaCommand(a *app) *cobra.Command {
	var (
		format string
		group  string
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Describe the merged assignments as a schema document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layered, err := a.source()
			if err != nil {
				return err
			}
			view := layered.Assignments()

			switch variants.SchemaFormat(format) {
			case variants.SchemaFormatDescriptors:
				return writeJSON(cmd.OutOrStdout(), variants.DescribeAssignments(view))
			case variants.SchemaFormatOpenAPI:
				vars := make([]variants.Describer, 0, view.Len())
				for _, key := range view.Keys() {
					value, _ := view.Lookup(key)
					vars = append(vars, assigned{Key: key, Type: fmt.Sprintf("%T", value), Default: value})
				}
				catalog, err := variants.NewCatalog(group, vars...)
				if err != nil {
					return err
				}
				doc, err := catalog.Schema(openapi.NewGenerator())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), doc.Document)
			default:
				return fmt.Errorf("unsupported --format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", string(variants.SchemaFormatDescriptors), "Schema format: descriptors, openapi")
	cmd.Flags().StringVarP(&group, "group", "g", "variants", "Group name used for the openapi component")
	return cmd
}
