package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/de-tools/access-atlas/pkg/services/review"
)

type FactorsCmd struct {
	rulesPath string
}

func NewFactorsCmd() *cobra.Command {
	fc := &FactorsCmd{}
	cmd := &cobra.Command{
		Use:   "factors",
		Short: "List registered risk factors and their weights",
		RunE:  fc.run,
	}

	cmd.Flags().StringVar(&fc.rulesPath, "rules", "", "Path to a custom factor rules file")

	return cmd
}

func (fc *FactorsCmd) run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := review.DefaultConfig()

	for _, f := range review.BuiltinFactors() {
		fmt.Fprintf(out, "%-28s %4d  %s\n", f.Name, cfg.FactorWeights[f.Name], f.Description)
	}

	if fc.rulesPath == "" {
		return nil
	}

	rules, err := review.LoadRules(fc.rulesPath)
	if err != nil {
		return err
	}
	for _, rule := range rules.Factors {
		fmt.Fprintf(out, "%-28s %4d  %s\n", rule.Name, rule.Weight, rule.Description)
	}

	return nil
}
