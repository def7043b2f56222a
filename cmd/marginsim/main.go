// Command marginsim loads a scenario file describing perp/spot markets, an
// oracle snapshot, and a user's positions, then runs the funding and
// margin engines against it and logs the result. It is the sole ambient
// entry point of this module: flag parsing, logger construction, and
// process exit codes live here, while scenario loading and per-step logging
// live in internal/scenario, which it drives.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/margined-protocol/perp-margin-core/internal/scenario"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a scenario TOML file")
	verbose := flag.Bool("verbose", false, "enable development-mode (human-readable) logging")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "marginsim: -scenario is required")
		os.Exit(2)
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marginsim: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*scenarioPath, logger); err != nil {
		logger.Error("scenario run failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(scenarioPath string, logger *zap.Logger) error {
	file, err := scenario.Load(scenarioPath)
	if err != nil {
		return fmt.Errorf("loading scenario: %w", err)
	}

	built, err := scenario.Build(file)
	if err != nil {
		return fmt.Errorf("building scenario: %w", err)
	}

	report, err := scenario.Run(built, logger)
	if err != nil {
		return fmt.Errorf("running scenario: %w", err)
	}

	logger.Info("scenario complete",
		zap.Int("funding_settlements", len(report.FundingSettlements)),
		zap.String("margin_requirement", report.Requirement),
		zap.String("total_collateral", report.Collateral),
	)
	return nil
}
