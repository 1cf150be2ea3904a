package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safety-training-audit/internal/config"
	"safety-training-audit/internal/logger"
	"safety-training-audit/internal/roster"
	"safety-training-audit/internal/training"
)

const rosterJSON = `[
  {
    "name": "Ada Lovelace",
    "completions": [
      {"name": "Laboratory Safety Training", "timestamp": "01/01/2023", "expires": ""},
      {"name": "Laboratory Safety Training", "timestamp": "08/01/2023", "expires": "09/15/2023"},
      {"name": "X-Ray Safety", "timestamp": "09/01/2023", "expires": "11/01/2023"}
    ]
  },
  {
    "name": "Grace Hopper",
    "completions": [
      {"name": "X-Ray Safety", "timestamp": "06/30/2023", "expires": "09/20/2023"},
      {"name": "Electrical Safety for Labs", "timestamp": "02/14/2024", "expires": ""}
    ]
  },
  {
    "name": "Linus Pauling",
    "completions": [
      {"name": "Fire Safety", "timestamp": "03/01/2022", "expires": "03/01/2023"}
    ]
  }
]`

func writeRosterFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trainings.txt")
	require.NoError(t, os.WriteFile(path, []byte(rosterJSON), 0644))
	return path
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Input = writeRosterFile(t)
	cfg.OutputDir = filepath.Join(t.TempDir(), "results")
	cfg.AsOf = "10/01/2023"
	return cfg
}

func TestBuildAudit(t *testing.T) {
	reports, err := buildAudit(testConfig(t), time.Now(), logger.Nop())
	require.NoError(t, err)

	assert.Equal(t, 3, reports.Stats.People)
	assert.Equal(t, 1, reports.Stats.DuplicatesRemoved())
	assert.Equal(t, training.CompletionTally{
		"Laboratory Safety Training": 1,
		"X-Ray Safety":               2,
		"Electrical Safety for Labs": 1,
		"Fire Safety":                1,
	}, reports.Tally)
	assert.Equal(t, training.FiscalYearReport{
		"Electrical Safety for Labs": {"Grace Hopper"},
		"X-Ray Safety":               {"Ada Lovelace"},
		"Laboratory Safety Training": {"Ada Lovelace"},
	}, reports.FiscalYear)
	assert.Equal(t, training.ExpirationReport{
		"Ada Lovelace": {Training: "X-Ray Safety", Expiration: training.StatusExpired},
		"Grace Hopper": {Training: "X-Ray Safety", Expiration: training.StatusExpiresSoon},
	}, reports.Expiring)
}

func TestReportParams_DefaultsToToday(t *testing.T) {
	cfg := config.Default()
	now := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	params, err := reportParams(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, "03/01/2024", params.Reference.String())
	assert.Equal(t, config.DefaultCourses, params.Courses)

	cfg.AsOf = "2024-03-01"
	_, err = reportParams(cfg, now)
	assert.Error(t, err)
}

func TestWriteAlertsCSV(t *testing.T) {
	reports, err := buildAudit(testConfig(t), time.Now(), logger.Nop())
	require.NoError(t, err)

	tests := []struct {
		name      string
		minStatus training.Status
		want      [][]string
	}{
		{
			name:      "expires soon and above",
			minStatus: training.StatusExpiresSoon,
			want: [][]string{
				{"person", "training", "expiration", "reference_date"},
				{"Ada Lovelace", "X-Ray Safety", "expired", "10/01/2023"},
				{"Grace Hopper", "X-Ray Safety", "expires soon", "10/01/2023"},
			},
		},
		{
			name:      "expired only",
			minStatus: training.StatusExpired,
			want: [][]string{
				{"person", "training", "expiration", "reference_date"},
				{"Ada Lovelace", "X-Ray Safety", "expired", "10/01/2023"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "alerts.csv")
			require.NoError(t, writeAlertsCSV(reports, path, tt.minStatus))

			file, err := os.Open(path)
			require.NoError(t, err)
			defer file.Close()
			rows, err := csv.NewReader(file).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}

	assert.Error(t, writeAlertsCSV(reports, filepath.Join(t.TempDir(), "x.csv"), training.Status("overdue")))
}

func TestPrintReport(t *testing.T) {
	cfg := testConfig(t)
	reports, err := buildAudit(cfg, time.Now(), logger.Nop())
	require.NoError(t, err)

	var buf bytes.Buffer
	printReport(&buf, reports, cfg.Input)
	out := buf.String()

	assert.Contains(t, out, "Input: trainings.txt")
	assert.Contains(t, out, "As of: 10/01/2023 (expiring window 30 days, from 09/01/2023)")
	assert.Contains(t, out, "Fiscal year: 2024 (07/01/2023 - 06/30/2024)")
	assert.Contains(t, out, "Duplicates removed: 1")
	assert.Contains(t, out, "X-Ray Safety: 2")
	assert.Contains(t, out, "Electrical Safety for Labs (1): Grace Hopper")
	assert.Contains(t, out, "Expired: 1 | Expires soon: 1")
	assert.Contains(t, out, "Grace Hopper | X-Ray Safety | expires soon")
}

func TestRunCommand(t *testing.T) {
	rosterPath := writeRosterFile(t)
	outDir := filepath.Join(t.TempDir(), "results")
	alerts := filepath.Join(t.TempDir(), "alerts.csv")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{
		"run",
		"--input", rosterPath,
		"--out", outDir,
		"--as-of", "10/01/2023",
		"--fiscal-year", "2024",
		"--course", "X-Ray Safety",
		"--course", "Electrical Safety for Labs",
		"--alerts", alerts,
		"--min-status", "expired",
		"--log-mode", "production",
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(outDir, "people_who_completed_trainings_in_2024.json"))
	require.NoError(t, err)
	var fiscal map[string][]string
	require.NoError(t, json.Unmarshal(data, &fiscal))
	assert.Equal(t, map[string][]string{
		"X-Ray Safety":               {"Ada Lovelace"},
		"Electrical Safety for Labs": {"Grace Hopper"},
	}, fiscal)

	assert.FileExists(t, filepath.Join(outDir, roster.TallyFile))
	assert.FileExists(t, filepath.Join(outDir, "expiring_trainings_10-01-2023.json"))
	assert.FileExists(t, alerts)
	assert.Contains(t, buf.String(), "Alert CSV saved to")
}
