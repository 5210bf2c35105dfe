// Package cli provides the command-line interface for flowcanvas.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/client"
	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/logging"
)

// Version is stamped at build time.
var Version = "0.1.0"

var (
	cfgFile string
	apiURL  string
	verbose bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "flowcanvas",
	Short: "FlowCanvas - visual workflow builder backend and tools",
	Long: `FlowCanvas stores and validates workflows built from a small catalog of
components (user query, knowledge base, LLM engine, output) wired into a
directed graph.

Run "flowcanvas serve" to start the API, then manage workflows against it.

Examples:
  flowcanvas serve                          # Start the API server
  flowcanvas catalog ls                     # List component types
  flowcanvas workflow import canvas.yaml    # Save a canvas file as a workflow
  flowcanvas workflow ls                    # List stored workflows
  flowcanvas workflow set <id> <node> temperature 0.3
  flowcanvas workflow validate <id>         # Check a stored workflow
  flowcanvas workflow export <id> -o out.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/flowcanvas/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API server URL (overrides client.base_url)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print JSON output")
	rootCmd.PersistentFlags().BoolVar(&outputYAML, "yaml", false, "print YAML output")

	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowcanvas version %s\n", Version)
	},
}

// loadConfig loads configuration, honoring --config.
func loadConfig() *config.Config {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		exitError("failed to load config: %v", err)
	}
	return cfg
}

// newLogger builds the logger for cfg; --verbose forces debug.
func newLogger(cfg *config.Config) logging.Logger {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Logging.Format, os.Stderr)
}

// newClient returns an API client for the configured server.
func newClient(cfg *config.Config) *client.Client {
	base := cfg.Client.BaseURL
	if apiURL != "" {
		base = apiURL
	}
	return client.NewClient(base,
		client.WithAPIKey(cfg.Client.APIKey),
		client.WithTimeout(cfg.Client.Timeout),
	)
}

// exitError prints an error message and exits.
func exitError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
