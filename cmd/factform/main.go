// Package main provides the factform CLI: render, lint and replay form
// pages offline, or serve them over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dlovans/factform/internal/config"
	"github.com/dlovans/factform/internal/logging"
)

var (
	// Global flags
	configPath     string
	verbose        bool
	pageFlag       string
	dictionaryFlag string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factform",
	Short: "factform - fact-backed interview forms",
	Long: `factform binds an HTML page to a fact graph.

Fields (fg-set) read and write one fact each, collections (fg-collection)
repeat their template per item, displays (fg-show) print facts, and any
element with condition and operator attributes hides itself while its
condition does not hold.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if pageFlag != "" {
			cfg.Page = pageFlag
		}
		if dictionaryFlag != "" {
			cfg.Dictionary = dictionaryFlag
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "factform.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&pageFlag, "page", "", "Form page (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dictionaryFlag, "dictionary", "", "Fact dictionary (overrides config)")

	renderCmd.Flags().StringVar(&factsFile, "facts", "", "Serialized fact graph to load before rendering")

	lintCmd.Flags().BoolVar(&lintJSON, "json", false, "Print issues as JSON")

	playCmd.Flags().StringSliceVarP(&playQueries, "query", "q", nil, "gjson path over the final fact graph to print (repeatable)")
	playCmd.Flags().BoolVar(&playJSON, "json", false, "Print the report as JSON")

	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&watchFlag, "watch", false, "Reload the page when it changes")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
