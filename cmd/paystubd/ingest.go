package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/ingest"
)

var (
	ingestOutDir     string
	ingestWatch      bool
	ingestSkipHidden bool
	ingestDebounce   time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Analyze every pay stub under a directory",
	Long: `Walk a directory and analyze each PDF, JPEG and PNG file. Files with
identical content are analyzed once. One JSON line is printed per file.

With --watch the directory is then watched and new or rewritten files are
analyzed as they appear, until interrupted.

Examples:
  paystubd ingest ./stubs --out ./reports
  paystubd ingest ./inbox --watch --city Oakland`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr, logger, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(ctx, mgr.Get(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ing := ingest.New(a.proc, ingest.Config{
			OutputDir:  ingestOutDir,
			SkipHidden: ingestSkipHidden,
			Location:   entity.LocationInfo{City: analyzeCity, ZipCode: analyzeZip},
			Options:    core.AnalysisOptions{PeriodMonths: analyzePeriodMonths},
		}, logger)

		enc := json.NewEncoder(cmd.OutOrStdout())
		emit := func(r ingest.Result) { _ = enc.Encode(r) }

		root := args[0]
		if ingestWatch {
			err := ing.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{root},
				InitialScan: true,
				Debounce:    ingestDebounce,
			}, emit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		results, stats, err := ing.IngestDirectory(ctx, root)
		for _, r := range results {
			emit(r)
		}
		logger.Info("ingest finished",
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"succeeded", stats.Succeeded,
			"deduplicated", stats.Deduplicated,
			"failed", stats.Failed,
		)
		return err
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOutDir, "out", "", "write <name>.report.json files here")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep watching for new files")
	ingestCmd.Flags().BoolVar(&ingestSkipHidden, "skip-hidden", true, "skip dot files and directories")
	ingestCmd.Flags().DurationVar(&ingestDebounce, "debounce", 500*time.Millisecond, "wait this long after the last write before analyzing")
	ingestCmd.Flags().StringVar(&analyzeCity, "city", "", "work city, for local minimum wage")
	ingestCmd.Flags().StringVar(&analyzeZip, "zip", "", "work ZIP code")
	ingestCmd.Flags().IntVar(&analyzePeriodMonths, "period-months", 0, "penalty look-back in months")

	rootCmd.AddCommand(ingestCmd)
}
