package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "paystubd",
	Short: "California pay stub wage-violation analyzer",
	Long: `paystubd reads pay stubs (PDF, JPEG or PNG), extracts their fields with
one or more OCR providers and checks them against California wage and hour
law.

Each analysis produces:
  - the violations found, with statutory references
  - a penalty estimate over the requested look-back period
  - a compliance score and grade`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./paystub.yaml or ~/.paystub/paystub.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "override log.level (debug, info, warn, error)",
	)
}

// loadConfig reads the configuration and builds the process logger from
// its log section.
func loadConfig() (*common.Manager, *slog.Logger, *slog.LevelVar, error) {
	mgr, err := common.NewManager(cfgFile, slog.Default())
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := mgr.Get()
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, level := common.NewLeveledLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return mgr, logger, level, nil
}
