package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	variants "github.com/goliatone/go-variants"
	"github.com/spf13/cobra"
)

type getOptions struct {
	kind         string
	defaultValue string
	asJSON       bool
}

// getResult is the printed outcome of one lookup.
type getResult struct {
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Reason   string `json:"reason"`
	Revision uint64 `json:"revision"`
	Error    string `json:"error,omitempty"`
}

func newGetCommand(a *app) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Resolve one variant as a type, falling back to --default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, _, err := a.resolver()
			if err != nil {
				return err
			}
			result, err := resolveAs(resolver, variants.Key(args[0]), opts.kind, opts.defaultValue)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			value, err := json.Marshal(result.Value)
			if err != nil {
				value = []byte(fmt.Sprint(result.Value))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s, revision %d)\n", result.Key, value, result.Reason, result.Revision)
			if result.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", result.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.kind, "type", "t", "any", "Type to read: any, string, int, float, bool, color")
	cmd.Flags().StringVarP(&opts.defaultValue, "default", "d", "", "Default value, parsed as --type")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func resolveAs(r *variants.Resolver, key variants.Key, kind, raw string) (getResult, error) {
	switch kind {
	case "any", "":
		var def any
		if raw != "" {
			def = raw
		}
		return result(variants.ResolveDetail(r, key, def)), nil
	case "string":
		return result(variants.ResolveDetail(r, key, raw)), nil
	case "int":
		def, err := parseDefault(raw, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err != nil {
			return getResult{}, err
		}
		return result(variants.ResolveDetail(r, key, def)), nil
	case "float":
		def, err := parseDefault(raw, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
		if err != nil {
			return getResult{}, err
		}
		return result(variants.ResolveDetail(r, key, def)), nil
	case "bool":
		def, err := parseDefault(raw, strconv.ParseBool)
		if err != nil {
			return getResult{}, err
		}
		return result(variants.ResolveDetail(r, key, def)), nil
	case "color":
		def, err := parseDefault(raw, variants.ParseColor)
		if err != nil {
			return getResult{}, err
		}
		detail := variants.ResolveDetail(r, key, def)
		res := result(detail)
		res.Value = detail.Value.String()
		return res, nil
	default:
		return getResult{}, fmt.Errorf("unsupported --type %q", kind)
	}
}

func parseDefault[T any](raw string, parse func(string) (T, error)) (T, error) {
	var zero T
	if raw == "" {
		return zero, nil
	}
	value, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("invalid --default %q: %w", raw, err)
	}
	return value, nil
}

func result[T any](res variants.Resolution[T]) getResult {
	out := getResult{
		Key:      string(res.Key),
		Value:    res.Value,
		Reason:   string(res.Reason),
		Revision: res.Revision,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}
