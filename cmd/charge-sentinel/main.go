package main

import (
	"context"
	"fmt"
	"os"

	"charge-sentinel/internal/utils"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	configFile string
	rulesFile  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "charge-sentinel",
	Short: "Anomaly detection and incident tracking for OCPP charge points",
	Long: `Charge Sentinel watches the OCPP operations of a charge point, flags bursts of
state-changing actions and keeps a capped incident history for operators and
classifier training.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", utils.DefaultConfigPath, "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "Rules file (YAML or JSON) replacing the configured rules")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(monitorCmd, serveCmd, statsCmd, exportCmd, incidentsCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("Charge Sentinel version %s\n", version))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
