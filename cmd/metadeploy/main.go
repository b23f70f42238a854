// Package main provides the metadeploy CLI.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/internal/config"
	"github.com/mrhapile/metadeploy/internal/logging"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// configFile is set by the --config flag.
	configFile string
	verbose    bool

	// Initialized by PersistentPreRunE.
	vcfg     *viper.Viper
	settings *config.Settings
	logger   *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "metadeploy",
	Short: "Turn change requests into deployable metadata packages",
	Long: `metadeploy asks an AI assistant to describe the metadata a change request
needs, renders it into source files with a package.xml manifest, zips the
result and deploys it to the org or pushes it to a git branch.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./metadeploy.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads configuration and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == versionCmd.Name() {
		return nil
	}

	var err error
	vcfg, err = config.New(configFile)
	if err != nil {
		return err
	}
	settings, err = config.Decode(vcfg)
	if err != nil {
		return err
	}

	logger, err = logging.New(settings.Log.Level, settings.Log.Encoding, verbose)
	if err != nil {
		return err
	}
	return nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: settings.Timeout}
}
