package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-simulator/internal/definition"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and resource definitions",
	Long: `Loads the configuration file and the definitions file it names,
and reports every problem found without connecting to anything.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "config ok: %s (simulator %s)\n", configPath(), cfg.Simulator.ID)

	defs, err := definition.Load(cfg.Simulator.Definitions)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "definitions ok: %s (%d resources, %d remotes)\n",
		cfg.Simulator.Definitions, len(defs.Resources), len(defs.Remotes))
	return nil
}
