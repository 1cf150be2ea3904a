package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"safety-training-audit/internal/config"
	"safety-training-audit/internal/logger"
	"safety-training-audit/internal/roster"
	"safety-training-audit/internal/store"
	"safety-training-audit/internal/training"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile the roster and write the completion and expiration reports",
	Long: "Loads the roster, keeps the most recent completion per person and course, " +
		"then writes the completion tally, the fiscal year completion list and the expiration report.",
	RunE: runAudit,
}

func init() {
	addRosterFlags(runCmd)
	addDBFlags(runCmd)
	flags := runCmd.Flags()
	flags.StringVarP(&outputDir, "out", "o", "", "Directory for JSON reports (default results)")
	flags.StringVar(&alertsPath, "alerts", "", "Optional CSV output for expiration alerts")
	flags.StringVar(&minStatus, "min-status", "", "Minimum status for alerts (expires soon, expired)")
	flags.BoolVar(&dbEnabled, "db", false, "Store the audit run in Postgres (requires TRAINING_AUDIT_DB_URL or DATABASE_URL)")
	flags.BoolVar(&cacheEnable, "cache", false, "Publish reports to Redis (requires TRAINING_AUDIT_REDIS_URL or REDIS_URL)")

	rootCmd.AddCommand(runCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Sync()

	reports, err := buildAudit(cfg, time.Now(), log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printReport(out, reports, cfg.Input)

	artifacts, err := roster.Artifacts(reports)
	if err != nil {
		return err
	}
	paths, err := roster.WriteArtifacts(cfg.OutputDir, artifacts)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nReports saved:")
	for _, path := range paths {
		fmt.Fprintf(out, "  %s\n", path)
	}

	if cfg.AlertsPath != "" {
		threshold, err := training.ParseStatus(cfg.MinStatus)
		if err != nil {
			return fmt.Errorf("invalid --min-status value: %w", err)
		}
		if err := writeAlertsCSV(reports, cfg.AlertsPath, threshold); err != nil {
			return err
		}
		fmt.Fprintf(out, "Alert CSV saved to %s\n", cfg.AlertsPath)
	}

	runID := ""
	if cfg.Database.Enabled {
		runID, err = storeRun(cmd.Context(), cfg, reports, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nStored audit run in Postgres (run_id=%s)\n", runID)
	}

	if cfg.Cache.Enabled {
		if runID == "" {
			runID = uuid.NewString()
		}
		if err := publishArtifacts(cmd.Context(), cfg, runID, artifacts, log); err != nil {
			return err
		}
		fmt.Fprintf(out, "Published %d reports to Redis under %s\n", len(artifacts), cfg.Cache.Prefix)
	}
	return nil
}

// buildAudit loads the configured roster and builds all reports from it.
func buildAudit(cfg config.Config, now time.Time, log *logger.Logger) (training.Reports, error) {
	params, err := reportParams(cfg, now)
	if err != nil {
		return training.Reports{}, err
	}

	raw, err := roster.Load(cfg.Input)
	if err != nil {
		return training.Reports{}, err
	}
	log.Debug("roster loaded", "input", cfg.Input, "people", len(raw), "completions", raw.CompletionCount())

	reports, err := training.BuildReports(raw, params)
	if err != nil {
		return training.Reports{}, err
	}
	log.Info("audit built",
		"reference_date", params.Reference.String(),
		"fiscal_year", params.FiscalYear,
		"duplicates_removed", reports.Stats.DuplicatesRemoved(),
		"flagged_people", len(reports.Expiring),
	)
	return reports, nil
}

func openPostgres(ctx context.Context, cfg config.Config, log *logger.Logger) (*store.Postgres, error) {
	log.Debug("connecting to postgres", "db_url", cfg.Database.URL, "schema", cfg.Database.Schema)
	return store.OpenPostgres(ctx, store.PostgresConfig{
		URL:    cfg.Database.URL,
		Schema: cfg.Database.Schema,
		Tag:    cfg.Database.Tag,
	})
}

func storeRun(ctx context.Context, cfg config.Config, reports training.Reports, log *logger.Logger) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()

	pg, err := openPostgres(ctx, cfg, log)
	if err != nil {
		return "", err
	}
	defer pg.Close()

	runID, err := pg.StoreRun(ctx, reports)
	if err != nil {
		return "", err
	}
	log.Info("audit run stored", "run_id", runID, "schema", cfg.Database.Schema)
	return runID, nil
}

func openCache(ctx context.Context, cfg config.Config, log *logger.Logger) (*store.Cache, error) {
	log.Debug("connecting to redis", "redis_url", cfg.Cache.URL, "prefix", cfg.Cache.Prefix)
	return store.NewCache(ctx, store.CacheConfig{
		URL:    cfg.Cache.URL,
		Prefix: cfg.Cache.Prefix,
		TTL:    cfg.Cache.TTL,
	})
}

func publishArtifacts(ctx context.Context, cfg config.Config, runID string, artifacts []roster.Artifact, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Cache.Timeout)
	defer cancel()

	cache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cache.Close()

	if err := cache.Publish(ctx, runID, artifacts); err != nil {
		return err
	}
	log.Info("reports published", "run_id", runID, "prefix", cfg.Cache.Prefix, "count", len(artifacts))
	return nil
}
