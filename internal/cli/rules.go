package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/specreview/internal/config"
	"github.com/dshills/specreview/internal/override"
	"github.com/dshills/specreview/internal/rulespec"
)

var (
	flagRulesJSON bool
	flagRulesFile string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the loaded rule documents",
}

func loadSnapshot() (*rulespec.Snapshot, error) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	return rulespec.Load(cfg.SpecDirs, log)
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every rule with its effective severity and includes",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if flagRulesJSON {
			data, err := json.MarshalIndent(snap.Documents(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		var refs []rulespec.RuleRef
		if flagRulesFile != "" {
			refs = snap.RulesForFile(flagRulesFile)
		} else {
			for _, d := range snap.Documents() {
				for _, r := range d.Rules {
					refs = append(refs, rulespec.RuleRef{Doc: d, Rule: r})
				}
			}
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSEVERITY\tINCLUDES\tDOCUMENT\tTITLE")
		for _, ref := range refs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				ref.Rule.ID, ref.Severity(), strings.Join(ref.Includes(), ","), ref.Doc.Filename, ref.Rule.Title)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		overrides := override.Collect(snap)
		if len(overrides) > 0 && flagRulesFile == "" {
			fmt.Fprintln(out, "\nOverrides:")
			for _, o := range overrides {
				scope := "global"
				if !o.Global() {
					scope = strings.Join(o.Scope, ",")
				}
				fmt.Fprintf(out, "  %s suppresses %s (%s)\n", o.SourceID, o.Target, scope)
			}
		}
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <rule-id>",
	Short: "Show the rule that owns an id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		ref, ok := snap.FindRule(args[0])
		if !ok {
			return fmt.Errorf("no rule matches %q", args[0])
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", ref.Rule.ID, ref.Rule.Title)
		fmt.Fprintf(out, "Document: %s\n", ref.Doc.Filename)
		fmt.Fprintf(out, "Severity: %s\n", ref.Severity())
		if inc := ref.Includes(); len(inc) > 0 {
			fmt.Fprintf(out, "Includes: %s\n", strings.Join(inc, ", "))
		}
		if len(ref.Rule.Overrides) > 0 {
			fmt.Fprintf(out, "Overrides: %s\n", strings.Join(ref.Rule.Overrides, ", "))
		}
		if ref.Rule.Description != "" {
			fmt.Fprintf(out, "\n%s\n", ref.Rule.Description)
		}
		for _, ex := range ref.Rule.Examples {
			fmt.Fprintf(out, "\n[%s] %s\n%s\n", ex.Type, ex.Lang, ex.Code)
		}
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.PersistentFlags().StringVar(&flagSpecDirs, "spec-dirs", "", "Rule document directories (comma-separated)")
	rulesListCmd.Flags().BoolVar(&flagRulesJSON, "json", false, "Print parsed documents as JSON")
	rulesListCmd.Flags().StringVar(&flagRulesFile, "file", "", "Only list rules that apply to this file")
}
