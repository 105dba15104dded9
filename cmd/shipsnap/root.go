package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shipsnap/pkg/config"
	"shipsnap/pkg/logger"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shipsnap",
	Short: "Vessel photo scraper with object storage persistence",
	Long: `shipsnap discovers photographs of vessels on a photo-sharing site and
persists them to S3-compatible object storage, skipping vessels that were
already captured in a previous run.

Vessel identifiers come either from a live tracking API (vessels currently
inside a configured radius) or from a static list in the configuration.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .shipsnap.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig builds the effective configuration from flags, env and file.
func loadConfig(extraFlags map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	for k, v := range extraFlags {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}
