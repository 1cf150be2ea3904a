package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"safety-training-audit/internal/training"
)

// DefaultOutputDir is where report artifacts are written when no directory is configured.
const DefaultOutputDir = "results"

// TallyFile is the artifact name of the completion tally.
const TallyFile = "number_of_completed_trainings.json"

// FiscalYearFile is the artifact name of the fiscal year report.
func FiscalYearFile(fiscalYear int) string {
	return fmt.Sprintf("people_who_completed_trainings_in_%d.json", fiscalYear)
}

// ExpirationFile is the artifact name of the expiration report, e.g.
// expiring_trainings_10-01-2023.json.
func ExpirationFile(reference training.Date) string {
	return fmt.Sprintf("expiring_trainings_%s.json", strings.ReplaceAll(reference.String(), "/", "-"))
}

// Artifact is a serialized report ready to be written or cached.
type Artifact struct {
	Name string
	Data []byte
}

// Artifacts serializes the three reports in a fixed order: tally, fiscal year, expiration.
func Artifacts(reports training.Reports) ([]Artifact, error) {
	entries := []struct {
		name  string
		value any
	}{
		{name: TallyFile, value: reports.Tally},
		{name: FiscalYearFile(reports.Params.FiscalYear), value: reports.FiscalYear},
		{name: ExpirationFile(reports.Params.Reference), value: reports.Expiring},
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		data, err := json.MarshalIndent(entry.value, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", entry.name, err)
		}
		artifacts = append(artifacts, Artifact{Name: entry.name, Data: append(data, '\n')})
	}
	return artifacts, nil
}

// WriteArtifacts writes each artifact into dir, creating it if needed, and
// returns the written paths.
func WriteArtifacts(dir string, artifacts []Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		path := filepath.Join(dir, artifact.Name)
		if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
