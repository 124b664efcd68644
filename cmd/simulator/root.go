package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "IoT resource simulator",
	Long: `Hosts simulated IoT resources on an MQTT broker and automates
traffic against them.

  simulator serve               # host resources and run automation
  simulator validate            # check config and definitions
  simulator token --subject ci  # issue a control API token`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file path (default $SIMULATOR_CONFIG or "+defaultConfigPath+")")
}

// configPath returns the --config flag, then SIMULATOR_CONFIG, then the
// default path.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if path := os.Getenv("SIMULATOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func loadConfig() (*config.Config, error) {
	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}
