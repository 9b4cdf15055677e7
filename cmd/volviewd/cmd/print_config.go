package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/volview-xnat/volviewd/internal/config"
)

var printConfigCmd = &cobra.Command{
	Use:   "print-config",
	Short: "Print the effective configuration as YAML",
	Long: `Load the configuration the same way "serve" does (file, environment,
defaults and dev mode defaults), validate it and print the result as YAML.

Examples:
  volviewd print-config
  VOLVIEWD_SERVER_CONTEXT_PATH=/xnat volviewd print-config`,
	RunE: runPrintConfig,
}

var printConfigDev bool

func init() {
	printConfigCmd.Flags().BoolVar(&printConfigDev, "dev", false, "apply development mode defaults")
	rootCmd.AddCommand(printConfigCmd)
}

func runPrintConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(printConfigDev)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// loadServeConfig loads, completes and validates the configuration.
func loadServeConfig(dev bool) (*config.AppConfig, error) {
	// Load without validation so CLI flags can override first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dev {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
