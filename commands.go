package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"safety-training-audit/internal/roster"
	"safety-training-audit/internal/store"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a roster file against the roster schema",
	RunE:  runValidate,
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the Postgres audit tables and seed them with the current run if empty",
	RunE:  runInitDB,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent audit runs stored in Postgres",
	RunE:  runListRuns,
}

var cachedCmd = &cobra.Command{
	Use:   "cached [artifact]",
	Short: "List the reports published to Redis, or print one of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCached,
}

var runsLimit int

func init() {
	validateCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Path to roster JSON (default data/trainings.txt)")

	addRosterFlags(initDBCmd)
	addDBFlags(initDBCmd)

	addDBFlags(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "Number of runs to show")

	rootCmd.AddCommand(validateCmd, initDBCmd, runsCmd, cachedCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to read roster %s: %w", cfg.Input, err)
	}

	out := cmd.OutOrStdout()
	if err := roster.Validate(data); err != nil {
		var validationErr *roster.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Fprint(out, validationErr.Error())
			return fmt.Errorf("%s has %d problem(s)", cfg.Input, len(validationErr.Errors))
		}
		return err
	}
	if _, err := roster.Decode(data); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is a valid roster\n", cfg.Input)
	return nil
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Database.Enabled = true
	if cfg.Database.URL == "" {
		return errors.New("database URL missing; set TRAINING_AUDIT_DB_URL or DATABASE_URL")
	}
	log := newLogger(cfg)
	defer log.Sync()

	reports, err := buildAudit(cfg, time.Now(), log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Database.Timeout)
	defer cancel()

	pg, err := openPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	runID, err := pg.Seed(ctx, reports)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if runID == "" {
		fmt.Fprintln(out, "Audit data already present; skipping seed.")
		return nil
	}
	fmt.Fprintf(out, "Seeded Postgres with initial audit run (run_id=%s)\n", runID)
	return nil
}

func runListRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("database URL missing; set TRAINING_AUDIT_DB_URL or DATABASE_URL")
	}
	log := newLogger(cfg)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Database.Timeout)
	defer cancel()

	pg, err := openPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	runs, err := pg.RecentRuns(ctx, runsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No audit runs stored.")
		return nil
	}
	for _, run := range runs {
		tag := run.Tag
		if tag == "" {
			tag = "-"
		}
		fmt.Fprintf(out, "%s | %s | as of %s | FY%d | people %d | expired %d | expires soon %d | %s\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04"),
			run.ReferenceDate.Format("01/02/2006"),
			run.FiscalYear,
			run.People,
			run.ExpiredCount,
			run.ExpiresSoonCount,
			tag,
		)
	}
	return nil
}

func runCached(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Cache.URL == "" {
		return errors.New("redis URL missing; set TRAINING_AUDIT_REDIS_URL or REDIS_URL")
	}
	log := newLogger(cfg)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Cache.Timeout)
	defer cancel()

	cache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cache.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		data, err := cache.Artifact(ctx, args[0])
		if errors.Is(err, store.ErrCacheMiss) {
			return fmt.Errorf("report %s is not cached", args[0])
		}
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	names, err := cache.LatestArtifacts(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No reports published.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}
