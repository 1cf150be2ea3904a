// Package main provides the training-audit CLI, which reconciles a safety
// training roster and reports completions and expirations.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"safety-training-audit/internal/config"
	"safety-training-audit/internal/logger"
	"safety-training-audit/internal/training"
)

var rootCmd = &cobra.Command{
	Use:           "training-audit",
	Short:         "Safety training roster audit",
	Long:          "Deduplicates a roster of safety training completions and reports course tallies, fiscal year completions and expiring trainings.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	logMode    string

	inputPath   string
	outputDir   string
	fiscalYear  int
	courses     []string
	asOf        string
	windowDays  int
	alertsPath  string
	minStatus   string
	dbEnabled   bool
	dbSchema    string
	dbTag       string
	cacheEnable bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "Log mode (development, production)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		exitWithError(err)
	}
}

// addRosterFlags registers the flags shared by commands that build reports.
func addRosterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&inputPath, "input", "i", "", "Path to roster JSON (default data/trainings.txt)")
	flags.IntVar(&fiscalYear, "fiscal-year", 0, "Fiscal year for the completion report (default 2024)")
	flags.StringArrayVar(&courses, "course", nil, "Course to include in the fiscal year report (repeatable)")
	flags.StringVar(&asOf, "as-of", "", "Reference date for expirations (MM/DD/YYYY, default today)")
	flags.IntVar(&windowDays, "window", 0, "Days before the reference date that count as expiring soon (default 30)")
}

// addDBFlags registers the Postgres flags.
func addDBFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&dbSchema, "db-schema", "", "Postgres schema for audit tables (default training_audit)")
	flags.StringVar(&dbTag, "db-tag", "", "Optional label for this audit run")
}

// loadConfig layers the config file, the environment and the flags that were
// set on cmd, then validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-mode") {
		cfg.LogMode = logMode
	}
	if flags.Changed("input") {
		cfg.Input = inputPath
	}
	if flags.Changed("out") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("fiscal-year") {
		cfg.FiscalYear = fiscalYear
	}
	if flags.Changed("course") {
		cfg.Courses = courses
	}
	if flags.Changed("as-of") {
		cfg.AsOf = asOf
	}
	if flags.Changed("window") {
		cfg.WindowDays = windowDays
	}
	if flags.Changed("alerts") {
		cfg.AlertsPath = alertsPath
	}
	if flags.Changed("min-status") {
		cfg.MinStatus = minStatus
	}
	if flags.Changed("db") {
		cfg.Database.Enabled = dbEnabled
	}
	if flags.Changed("db-schema") {
		cfg.Database.Schema = dbSchema
	}
	if flags.Changed("db-tag") {
		cfg.Database.Tag = dbTag
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled = cacheEnable
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *logger.Logger {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: falling back to silent logger:", err)
		return logger.Nop()
	}
	return log
}

// reportParams turns configuration into report parameters. An empty as-of
// date resolves to the calendar date of now.
func reportParams(cfg config.Config, now time.Time) (training.Params, error) {
	reference := training.DateOf(now)
	if cfg.AsOf != "" {
		parsed, err := training.ParseDate(cfg.AsOf)
		if err != nil {
			return training.Params{}, fmt.Errorf("invalid --as-of date: %w", err)
		}
		reference = parsed
	}
	return training.Params{
		FiscalYear: cfg.FiscalYear,
		Courses:    cfg.Courses,
		Reference:  reference,
		WindowDays: cfg.WindowDays,
	}, nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
