package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-variants/pkg/rules"
	"github.com/spf13/cobra"
)

type evalOptions struct {
	rulesPath string
	unit      string
	attrs     []string
	engine    string
	asJSON    bool
}

func newEvalCommand(a *app) *cobra.Command {
	opts := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a rules file for one unit",
		Long: `Evaluate a rules file for one unit and print the resulting assignments.

Attributes are passed as --attr key=value. Values that parse as JSON
(numbers, booleans, quoted strings, lists) keep their JSON type; anything
else is a string. Rules that fail to evaluate are left out of the output and
the command exits with their errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.rulesPath == "" {
				return fmt.Errorf("--rules is required")
			}
			parsed, err := rules.LoadRules(opts.rulesPath)
			if err != nil {
				return err
			}
			attributes, err := parseAttributes(opts.attrs)
			if err != nil {
				return err
			}

			ruleCtx := rules.RuleContext{
				Unit:       opts.unit,
				Attributes: attributes,
			}
			src, err := rules.NewSource(parsed, ruleCtx,
				rules.WithDefaultEngine(opts.engine),
				rules.WithEvaluatorLogger(rules.SlogEvaluatorLogger(a.logger)),
			)
			if err != nil {
				return err
			}
			evalErr := src.Refresh(ruleCtx)

			view := src.Assignments()
			if opts.asJSON {
				if err := writeJSON(cmd.OutOrStdout(), view.Values()); err != nil {
					return err
				}
			} else {
				for _, key := range view.Keys() {
					value, _ := view.Lookup(key)
					encoded, err := json.Marshal(value)
					if err != nil {
						encoded = []byte(fmt.Sprint(value))
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, encoded)
				}
			}
			if evalErr != nil {
				return fmt.Errorf("evaluate rules: %w", evalErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.rulesPath, "rules", "r", "", "Rules file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.unit, "unit", "u", "", "Experiment unit id used for bucketing")
	cmd.Flags().StringArrayVarP(&opts.attrs, "attr", "a", nil, "Attribute as key=value, repeatable")
	cmd.Flags().StringVarP(&opts.engine, "engine", "e", rules.EngineExpr, "Default engine for rules without one: expr, cel, js")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the assignments as a JSON object")
	return cmd
}

func parseAttributes(pairs []string) (map[string]any, error) {
	attributes := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --attr %q, want key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		attributes[key] = value
	}
	return attributes, nil
}
