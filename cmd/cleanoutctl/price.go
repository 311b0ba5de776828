package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kirillkom/cleanout-estimator/internal/bootstrap"
	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/pricing"
)

func priceCmd() *cobra.Command {
	var (
		size             string
		workload         string
		overrideSize     string
		overrideWorkload string
		adjustments      []string
		rules            string
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a single room",
		Long: `Price one room from its classified size and workload. Optional overrides
show how a human correction changes the final cost.`,
		Example: `  cleanoutctl price --size large --workload heavy
  cleanoutctl price --size medium --workload moderate --override-workload extreme --adjust "Stairs=25"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			automated, err := parseClassification(size, workload)
			if err != nil {
				return err
			}
			override, err := parseOverride(overrideSize, overrideWorkload)
			if err != nil {
				return err
			}
			adjs, err := parseAdjustments(adjustments)
			if err != nil {
				return err
			}
			table, err := bootstrap.LoadTable(rulesPath(rules))
			if err != nil {
				return err
			}

			engine := pricing.NewEngine(table)
			final := pricing.Reconcile(automated, override)
			automatedCost, _ := engine.CalculateRoomCost(automated.Size, automated.Workload, adjs)
			finalCost, _ := engine.CalculateRoomCost(final.Size, final.Workload, adjs)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "TABLE\t%s\n", table.Version())
			fmt.Fprintf(w, "SIZE\t%s (%s)\n", final.Size, final.SizeSource)
			fmt.Fprintf(w, "WORKLOAD\t%s (%s)\n", final.Workload, final.WorkloadSource)
			fmt.Fprintf(w, "ADJUSTMENTS\t%s\n", domain.SumAdjustments(adjs).StringFixed(2))
			fmt.Fprintf(w, "AUTOMATED COST\t%s\n", automatedCost.StringFixed(2))
			fmt.Fprintf(w, "FINAL COST\t%s\n", finalCost.StringFixed(2))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&size, "size", "", "size class (small, medium, large, extra_large)")
	cmd.Flags().StringVar(&workload, "workload", "", "workload class (light, moderate, heavy, extreme)")
	cmd.Flags().StringVar(&overrideSize, "override-size", "", "human size override")
	cmd.Flags().StringVar(&overrideWorkload, "override-workload", "", "human workload override")
	cmd.Flags().StringArrayVar(&adjustments, "adjust", nil, `adjustment as "label=amount", repeatable`)
	cmd.Flags().StringVar(&rules, "rules", "", "rate card YAML (default: PRICING_RULES_PATH or built-in table)")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("workload")

	return cmd
}

func parseClassification(size, workload string) (domain.Classification, error) {
	s, err := domain.ParseSizeClass(size)
	if err != nil {
		return domain.Classification{}, err
	}
	w, err := domain.ParseWorkloadClass(workload)
	if err != nil {
		return domain.Classification{}, err
	}
	return domain.Classification{Size: s, Workload: w, Confidence: 1}, nil
}

func parseOverride(size, workload string) (domain.Override, error) {
	var out domain.Override
	if strings.TrimSpace(size) != "" {
		s, err := domain.ParseSizeClass(size)
		if err != nil {
			return out, err
		}
		out.Size = s
	}
	if strings.TrimSpace(workload) != "" {
		w, err := domain.ParseWorkloadClass(workload)
		if err != nil {
			return out, err
		}
		out.Workload = w
	}
	return out, nil
}

func parseAdjustments(raw []string) ([]domain.Adjustment, error) {
	out := make([]domain.Adjustment, 0, len(raw))
	for _, item := range raw {
		label, amount, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("adjustment %q must look like label=amount", item)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("adjustment %q: invalid amount: %w", item, err)
		}
		out = append(out, domain.Adjustment{Label: strings.TrimSpace(label), Amount: value})
	}
	if err := domain.ValidateAdjustments("price room", out); err != nil {
		return nil, err
	}
	return out, nil
}
