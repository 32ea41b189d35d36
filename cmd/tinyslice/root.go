package main

import (
	"github.com/spf13/cobra"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/server"
)

var (
	configFile string
	configDir  string
)

var rootCmd = &cobra.Command{
	Use:   "tinyslice",
	Short: "tinyslice - slice metrics by time and dimension",
	Long: `tinyslice stores labelled metric points and serves them back sliced by
time grain and dimension, as JSON, JSON-API or CSV.`,
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("tinyslice version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: ./tinyslice.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory searched for tinyslice.yaml")
}

// loadConfig resolves file, environment and defaults
func loadConfig() (*config.Config, error) {
	return config.Load(configDir, configFile)
}
