package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fentz26/dagsmith/internal/config"
	"github.com/fentz26/dagsmith/internal/controlplane"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dagsmith",
	Short: "dagsmith - pipeline project generator and release cockpit",
	Long: `dagsmith turns a pipeline project definition into the orchestration graph,
business-logic module and metadata descriptor of an Airflow project, and walks
the project through its git release workflow.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	cfgPath   string
	dbPath    string
	logLevel  string
	logFormat string
	apiAddr   string

	appCfg *config.Config
	logger *slog.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "Path to the settings file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides db_path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7467", "API server address")

	// Add subcommands
	rootCmd.AddCommand(compileCmd, validateCmd, graphCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(daemonCmd, statusCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(configCmd, versionCmd)
}

// setup loads settings and builds the logger. Flags win over the file.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appCfg = cfg
	logger = newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dagsmith", controlplane.Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
