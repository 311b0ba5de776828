package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/cleanout-estimator/internal/bootstrap"
	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
)

func tableCmd() *cobra.Command {
	var rules string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the multiplier table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := bootstrap.LoadTable(rulesPath(rules))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "version\t%s\n", table.Version())
			fmt.Fprintf(w, "base_rate\t%s\n\n", table.BaseRate().StringFixed(2))
			fmt.Fprintln(w, "SIZE\tMULTIPLIER")
			for _, class := range domain.SizeClasses {
				fmt.Fprintf(w, "%s\t%s\n", class, table.SizeMultiplier(class).String())
			}
			fmt.Fprintln(w, "\nWORKLOAD\tMULTIPLIER")
			for _, class := range domain.WorkloadClasses {
				fmt.Fprintf(w, "%s\t%s\n", class, table.WorkloadMultiplier(class).String())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&rules, "rules", "", "rate card YAML (default: PRICING_RULES_PATH or built-in table)")
	return cmd
}
