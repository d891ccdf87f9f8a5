package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/ordercache/pkg/app/core/cache"
	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/scenario"
)

const (
	verifyFlagName   = "verify"
	strategyFlagName = "strategy"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool(verifyFlagName, false, "Check ledger invariants after every mutation")
	runCmd.Flags().String(strategyFlagName, "", "Matching strategy for scenarios that do not set one: optimal,greedy")
}

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>...",
	Short: "Replay scenario files against a fresh cache and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verify, err := cmd.Flags().GetBool(verifyFlagName)
		if err != nil {
			return err
		}
		verify = verify || cfg.Cache.VerifyInvariants

		strategy := cfg.Cache.Strategy
		if cmd.Flags().Changed(strategyFlagName) {
			v, _ := cmd.Flags().GetString(strategyFlagName)
			if strategy, err = ledger.ParseStrategy(v); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			s, err := scenario.Load(path)
			if err != nil {
				return err
			}
			c := cache.New(
				cache.WithLogger(logger.Named("cache")),
				cache.WithStrategy(s.StrategyOr(strategy)),
				cache.WithInvariantChecks(verify),
			)
			res, err := scenario.Run(cmd.Context(), c, s)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if res.Passed() {
				fmt.Fprintf(out, "PASS %s (%d steps, %s)\n", res.Name, res.Steps, c.Strategy())
				continue
			}
			failed++
			fmt.Fprintf(out, "FAIL %s (%d steps, %s)\n", res.Name, res.Steps, c.Strategy())
			for _, f := range res.Failures {
				fmt.Fprintf(out, "    %s\n", f)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
		}
		return nil
	},
}
