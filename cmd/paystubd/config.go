package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Long: `Write the default configuration as YAML.

Examples:
  paystubd config init                 # writes ./paystub.yaml
  paystubd config init /etc/paystub.yaml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "paystub.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := common.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr, _, _, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "ok: ocr.primary=%s queue.backend=%s database.driver=%q\n",
			cfg.OCR.Primary, cfg.Queue.Backend, cfg.Database.Driver)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
