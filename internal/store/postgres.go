// Package store persists audit runs to Postgres and publishes report
// artifacts to Redis.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"safety-training-audit/internal/training"
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig locates the database and names the schema holding audit tables.
type PostgresConfig struct {
	URL    string
	Schema string
	Tag    string
}

// Postgres stores audit runs through the pgx database/sql driver.
type Postgres struct {
	db     *sql.DB
	schema string
	tag    string
}

// SanitizeSchema trims value and rejects anything that is not a plain SQL identifier.
func SanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !schemaPattern.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

// OpenPostgres connects, pings and makes sure the audit tables exist.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	schema, err := SanitizeSchema(cfg.Schema)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("database URL missing; set TRAINING_AUDIT_DB_URL or DATABASE_URL")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{db: db, schema: schema, tag: cfg.Tag}
	if err := p.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare schema %s: %w", schema, err)
	}
	return p, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// Seed stores reports as the first audit run if the runs table is empty. It
// returns an empty run ID when data was already present.
func (p *Postgres) Seed(ctx context.Context, reports training.Reports) (string, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s.audit_runs`, p.schema)).Scan(&count); err != nil {
		return "", fmt.Errorf("failed to count audit runs: %w", err)
	}
	if count > 0 {
		return "", nil
	}
	return p.StoreRun(ctx, reports)
}

// StoreRun writes the run summary and every report row in one transaction.
func (p *Postgres) StoreRun(ctx context.Context, reports training.Reports) (runID string, err error) {
	id := uuid.New()
	statusCounts := reports.Expiring.CountByStatus()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.audit_runs (
			id, reference_date, fiscal_year, window_days, people,
			raw_completions, clean_completions, duplicates_removed,
			expired_count, expires_soon_count, run_tag
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,
			$9,$10,$11
		)`, p.schema),
		id,
		reports.Params.Reference.Time(),
		reports.Params.FiscalYear,
		reports.Params.WindowDays,
		reports.Stats.People,
		reports.Stats.RawCompletions,
		reports.Stats.CleanCompletions,
		reports.Stats.DuplicatesRemoved(),
		statusCounts[training.StatusExpired],
		statusCounts[training.StatusExpiresSoon],
		nullString(p.tag),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert audit run: %w", err)
	}

	insertTallySQL := fmt.Sprintf(`
		INSERT INTO %s.audit_course_tally (
			id, run_id, course, completion_count
		) VALUES ($1,$2,$3,$4)`, p.schema)

	for _, course := range reports.Tally.Courses() {
		_, err = tx.ExecContext(ctx, insertTallySQL, uuid.New(), id, course, reports.Tally[course])
		if err != nil {
			return "", fmt.Errorf("failed to insert tally for %s: %w", course, err)
		}
	}

	insertFiscalSQL := fmt.Sprintf(`
		INSERT INTO %s.audit_fiscal_year_completions (
			id, run_id, fiscal_year, course, person_name
		) VALUES ($1,$2,$3,$4,$5)`, p.schema)

	for _, course := range reports.Params.Courses {
		for _, person := range reports.FiscalYear[course] {
			_, err = tx.ExecContext(ctx, insertFiscalSQL, uuid.New(), id, reports.Params.FiscalYear, course, person)
			if err != nil {
				return "", fmt.Errorf("failed to insert fiscal year completion for %s: %w", person, err)
			}
		}
	}

	insertExpirationSQL := fmt.Sprintf(`
		INSERT INTO %s.audit_expirations (
			id, run_id, person_name, training, status
		) VALUES ($1,$2,$3,$4,$5)`, p.schema)

	for _, person := range reports.Expiring.People() {
		entry := reports.Expiring[person]
		_, err = tx.ExecContext(ctx, insertExpirationSQL, uuid.New(), id, person, entry.Training, string(entry.Expiration))
		if err != nil {
			return "", fmt.Errorf("failed to insert expiration for %s: %w", person, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit audit run: %w", err)
	}
	return id.String(), nil
}

// RunSummary is a stored audit run as listed by RecentRuns.
type RunSummary struct {
	ID               string
	ReferenceDate    time.Time
	FiscalYear       int
	People           int
	ExpiredCount     int
	ExpiresSoonCount int
	Tag              string
	CreatedAt        time.Time
}

// RecentRuns returns up to limit runs, newest first.
func (p *Postgres) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, reference_date, fiscal_year, people, expired_count,
			expires_soon_count, COALESCE(run_tag, ''), created_at
		FROM %s.audit_runs
		ORDER BY created_at DESC
		LIMIT $1`, p.schema), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(
			&run.ID,
			&run.ReferenceDate,
			&run.FiscalYear,
			&run.People,
			&run.ExpiredCount,
			&run.ExpiresSoonCount,
			&run.Tag,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, p.schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.audit_runs (
			id uuid PRIMARY KEY,
			reference_date date NOT NULL,
			fiscal_year integer NOT NULL,
			window_days integer NOT NULL,
			people integer NOT NULL,
			raw_completions integer NOT NULL,
			clean_completions integer NOT NULL,
			duplicates_removed integer NOT NULL,
			expired_count integer NOT NULL,
			expires_soon_count integer NOT NULL,
			run_tag text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, p.schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.audit_course_tally (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.audit_runs(id) ON DELETE CASCADE,
			course text NOT NULL,
			completion_count integer NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, p.schema, p.schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.audit_fiscal_year_completions (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.audit_runs(id) ON DELETE CASCADE,
			fiscal_year integer NOT NULL,
			course text NOT NULL,
			person_name text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, p.schema, p.schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.audit_expirations (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.audit_runs(id) ON DELETE CASCADE,
			person_name text NOT NULL,
			training text NOT NULL,
			status text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, p.schema, p.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_audit_course_tally_run_idx ON %s.audit_course_tally (run_id)`, p.schema, p.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_audit_fiscal_year_completions_run_idx ON %s.audit_fiscal_year_completions (run_id)`, p.schema, p.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_audit_expirations_run_idx ON %s.audit_expirations (run_id)`, p.schema, p.schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_audit_expirations_status_idx ON %s.audit_expirations (status)`, p.schema, p.schema),
	}

	for _, statement := range statements {
		if _, err := p.db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
