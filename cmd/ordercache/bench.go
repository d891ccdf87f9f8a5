package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/uhyunpark/ordercache/pkg/app/core/cache"
	"github.com/uhyunpark/ordercache/pkg/app/core/ledger"
	"github.com/uhyunpark/ordercache/pkg/app/loadgen"
	"github.com/uhyunpark/ordercache/pkg/metrics"
)

const (
	iterationsFlagName    = "iterations"
	profileFlagName       = "profile"
	cancelPercentFlagName = "cancel-percent"
	metricsFlagName       = "metrics"
)

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().Int(iterationsFlagName, 0, "Number of batches (default from BENCH_ITERATIONS)")
	benchCmd.Flags().String(profileFlagName, "", "Load profile: reference,random (default from BENCH_PROFILE)")
	benchCmd.Flags().Int(cancelPercentFlagName, -1, "Share of actions that cancel a live order (default from BENCH_CANCEL_PERCENT)")
	benchCmd.Flags().Bool(metricsFlagName, false, "Print the collected prometheus metrics after the run")
	benchCmd.Flags().String(strategyFlagName, "", "Matching strategy: optimal,greedy")
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Drive generated load through the cache and report throughput",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bcfg := cfg.Bench
		flags := cmd.Flags()

		if flags.Changed(profileFlagName) {
			v, _ := flags.GetString(profileFlagName)
			p, err := loadgen.ParseProfile(v)
			if err != nil {
				return err
			}
			if p == loadgen.ProfileRandom && bcfg.Profile != loadgen.ProfileRandom {
				iterations := bcfg.Iterations
				bcfg = loadgen.HighLoadConfig()
				bcfg.Iterations = iterations
			}
			bcfg.Profile = p
			if p == loadgen.ProfileReference {
				bcfg.CancelPercent = 0
			}
		}
		if flags.Changed(iterationsFlagName) {
			bcfg.Iterations, _ = flags.GetInt(iterationsFlagName)
		}
		if flags.Changed(cancelPercentFlagName) {
			bcfg.CancelPercent, _ = flags.GetInt(cancelPercentFlagName)
		}

		strategy := cfg.Cache.Strategy
		if flags.Changed(strategyFlagName) {
			v, _ := flags.GetString(strategyFlagName)
			s, err := ledger.ParseStrategy(v)
			if err != nil {
				return err
			}
			strategy = s
		}

		opts := []cache.Option{
			cache.WithLogger(logger.Named("cache")),
			cache.WithStrategy(strategy),
			cache.WithInvariantChecks(cfg.Cache.VerifyInvariants),
		}

		withMetrics, _ := flags.GetBool(metricsFlagName)
		reg := prometheus.NewRegistry()
		if withMetrics {
			rec, err := metrics.NewRecorder(reg)
			if err != nil {
				return err
			}
			opts = append(opts, cache.WithObserver(rec))
		}

		c := cache.New(opts...)
		rep, runErr := loadgen.NewRunner(c, bcfg, logger.Named("loadgen")).Run(cmd.Context())
		if runErr != nil && !errors.Is(runErr, cmd.Context().Err()) {
			return runErr
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "strategy:  %s\n", strategy)
		if err := rep.Format(out); err != nil {
			return err
		}

		if withMetrics {
			families, err := reg.Gather()
			if err != nil {
				return fmt.Errorf("gather metrics: %w", err)
			}
			fmt.Fprintln(out)
			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
					return err
				}
			}
		}
		return runErr
	},
}
