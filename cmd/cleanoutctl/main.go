package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/cleanout-estimator/internal/config"
	"github.com/kirillkom/cleanout-estimator/internal/observability/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "cleanoutctl",
		Short: "Operator tooling for the cleanout estimator",
		Long: `cleanoutctl prices rooms offline against a rate card, prints the active
multiplier table and applies database migrations.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logging.Install("cleanoutctl", logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd())
	root.AddCommand(tableCmd())
	root.AddCommand(migrateCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rulesPath prefers the flag and falls back to PRICING_RULES_PATH.
func rulesPath(flag string) string {
	if flag != "" {
		return flag
	}
	return config.Load().PricingRulesPath
}
