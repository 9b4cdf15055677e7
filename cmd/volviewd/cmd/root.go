// Package cmd provides the CLI commands for volviewd.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/volview-xnat/volviewd/internal/config"
)

var cfgFile string
var stateFilePath string

var rootCmd = &cobra.Command{
	Use:   "volviewd",
	Short: "volviewd - VolView configuration server for XNAT",
	Long: `volviewd tells a browser-hosted VolView viewer where an XNAT project's
DICOMweb endpoint lives and how to launch the viewer, with URLs built from
the origin the browser actually sees, including behind reverse proxies.

Quick start:
  1. Create a config file: volviewd.yaml
  2. Run: volviewd serve

Configuration:
  Config is loaded from volviewd.yaml in the current directory,
  $HOME/.volviewd/, or /etc/volviewd/.

  Environment variables can override config values with the VOLVIEWD_ prefix.
  Example: VOLVIEWD_SERVER_HTTP_ADDR=:9090

Commands:
  serve         Start the HTTP server
  stop          Stop the running server
  identity      Manage identities in state.json
  key           Manage API keys in state.json
  session       Manage imaging session records in state.json
  hash-key      Generate a hash for an API key
  print-config  Print the effective configuration as YAML
  version       Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./volviewd.yaml)")
	rootCmd.PersistentFlags().StringVar(&stateFilePath, "state", "", "path to state.json file (default: state.path from config)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
