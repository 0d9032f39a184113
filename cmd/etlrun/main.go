// Command etlrun executes a single ETL pass and exits. Configuration comes
// from the environment, or from a YAML file when -config is given.
package main

import (
	"context"
	"flag"
	"os"

	"epl_v4/etl/internal/config"
	"epl_v4/etl/internal/etl"
	"epl_v4/etl/internal/logging"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config file (defaults to environment)")
	flag.Parse()

	var cfg *config.Config
	if configPath != "" {
		cfg = config.MustLoadFile(configPath)
	} else {
		cfg = config.MustLoad()
	}

	logger := logging.Setup(cfg)
	logger.Info().
		Str("competition", cfg.Competition).
		Int("season", cfg.Season).
		Str("store", cfg.StoreKind).
		Msg("Starting ETL run")

	report, err := etl.Run(context.Background(), cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("ETL run could not start")
		os.Exit(1)
	}

	evt := logger.Info()
	if report.State != etl.StateDone {
		evt = logger.Warn().Err(report.Err)
	}
	evt.
		Str("state", report.State.String()).
		Int("teams", report.Teams).
		Int("matches", report.Matches).
		Int("players", report.Players).
		Ints("failed_team_ids", report.FailedTeamIDs).
		Dur("duration", report.Duration).
		Msg("ETL run finished")
}
