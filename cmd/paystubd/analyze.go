package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skalingclouds/naitive-engage-suite-sub000/constants"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/entity"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/export"
)

var (
	analyzeCity         string
	analyzeZip          string
	analyzeContentType  string
	analyzePeriodMonths int
	analyzeMethod       string
	analyzeEmployerSize string
	analyzeIndustry     string
	analyzeXLSX         string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one pay stub and print the report as JSON",
	Long: `Run the full pipeline on a single pay stub without starting a server.

The content type is taken from the file extension unless --content-type is
given. The report is written to stdout; --xlsx also writes a workbook.

Examples:
  paystubd analyze stub.pdf
  paystubd analyze stub.png --city "San Francisco" --period-months 12 --xlsx report.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr, logger, _, err := loadConfig()
		if err != nil {
			return err
		}

		path := args[0]
		doc, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		ct := analyzeContentType
		if ct == "" {
			ct = constants.NormalizeExt(filepath.Ext(path))
		}

		opts := core.AnalysisOptions{PeriodMonths: analyzePeriodMonths, Industry: analyzeIndustry}
		if analyzeMethod != "" {
			m, ok := constants.ParsePenaltyMethod(analyzeMethod)
			if !ok {
				return fmt.Errorf("unknown penalty method %q", analyzeMethod)
			}
			opts.Method = m
		}
		if analyzeEmployerSize != "" {
			s, ok := constants.ParseEmployerSize(analyzeEmployerSize)
			if !ok {
				return fmt.Errorf("unknown employer size %q", analyzeEmployerSize)
			}
			opts.EmployerSize = s
		}

		a, err := newApp(ctx, mgr.Get(), logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.proc.Analyze(ctx, core.AnalyzeRequest{
			Document:    doc,
			ContentType: ct,
			Location:    entity.LocationInfo{City: analyzeCity, ZipCode: analyzeZip}.WithDefaults(),
			Options:     opts,
		})
		if err != nil {
			logger.Error("analysis failed", "file", path, "error", err)
			return err
		}

		if analyzeXLSX != "" {
			b, err := export.NewService(a.store, a.archive, logger).RenderReport(report)
			if err != nil {
				return err
			}
			if err := os.WriteFile(analyzeXLSX, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", analyzeXLSX, err)
			}
			logger.Info("workbook written", "path", analyzeXLSX)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCity, "city", "", "work city, for local minimum wage")
	analyzeCmd.Flags().StringVar(&analyzeZip, "zip", "", "work ZIP code")
	analyzeCmd.Flags().StringVar(&analyzeContentType, "content-type", "", "pdf, jpeg or png (default: from extension)")
	analyzeCmd.Flags().IntVar(&analyzePeriodMonths, "period-months", 0, "penalty look-back in months (default: analysis.period_months)")
	analyzeCmd.Flags().StringVar(&analyzeMethod, "method", "", "conservative, moderate or maximum")
	analyzeCmd.Flags().StringVar(&analyzeEmployerSize, "employer-size", "", "small, medium, large or enterprise")
	analyzeCmd.Flags().StringVar(&analyzeIndustry, "industry", "", "industry for compliance weighting")
	analyzeCmd.Flags().StringVar(&analyzeXLSX, "xlsx", "", "also write the report workbook to this path")

	rootCmd.AddCommand(analyzeCmd)
}
