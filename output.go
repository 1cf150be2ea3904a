package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"safety-training-audit/internal/training"
)

//nolint:errcheck // writing the console report; errors are not recoverable
func printReport(w io.Writer, reports training.Reports, inputPath string) {
	params := reports.Params
	start, end := training.FiscalYearBounds(params.FiscalYear)

	fmt.Fprintln(w, "Safety Training Audit")
	fmt.Fprintln(w, strings.Repeat("=", 38))
	fmt.Fprintf(w, "Input: %s\n", filepath.Base(inputPath))
	fmt.Fprintf(w, "As of: %s (expiring window %d days, from %s)\n",
		params.Reference, params.WindowDays, training.WindowStart(params.Reference, params.WindowDays))
	fmt.Fprintf(w, "Fiscal year: %d (%s - %s)\n", params.FiscalYear, start, end)
	fmt.Fprintf(w, "People: %d | Completions: %d | Duplicates removed: %d\n",
		reports.Stats.People, reports.Stats.CleanCompletions, reports.Stats.DuplicatesRemoved())

	fmt.Fprintln(w, "\nCompleted trainings")
	fmt.Fprintln(w, strings.Repeat("-", 38))
	if len(reports.Tally) == 0 {
		fmt.Fprintln(w, "No completions found.")
	}
	for _, course := range reports.Tally.Courses() {
		fmt.Fprintf(w, "%s: %d\n", course, reports.Tally[course])
	}

	fmt.Fprintf(w, "\nCompleted in FY%d\n", params.FiscalYear)
	fmt.Fprintln(w, strings.Repeat("-", 38))
	for _, course := range params.Courses {
		people := reports.FiscalYear[course]
		if len(people) == 0 {
			fmt.Fprintf(w, "%s: none\n", course)
			continue
		}
		fmt.Fprintf(w, "%s (%d): %s\n", course, len(people), strings.Join(people, ", "))
	}

	fmt.Fprintln(w, "\nExpired or expiring")
	fmt.Fprintln(w, strings.Repeat("-", 38))
	if len(reports.Expiring) == 0 {
		fmt.Fprintln(w, "No expiring trainings.")
		return
	}
	counts := reports.Expiring.CountByStatus()
	fmt.Fprintf(w, "Expired: %d | Expires soon: %d\n", counts[training.StatusExpired], counts[training.StatusExpiresSoon])
	for _, person := range reports.Expiring.People() {
		entry := reports.Expiring[person]
		fmt.Fprintf(w, "%s | %s | %s\n", person, entry.Training, entry.Expiration)
	}
}

// writeAlertsCSV writes one row per flagged person whose status is at least minStatus.
func writeAlertsCSV(reports training.Reports, path string, minStatus training.Status) error {
	threshold := minStatus.Rank()
	if threshold == 0 {
		return fmt.Errorf("invalid minimum status: %q", minStatus)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"person",
		"training",
		"expiration",
		"reference_date",
	}); err != nil {
		return err
	}

	for _, person := range reports.Expiring.People() {
		entry := reports.Expiring[person]
		if entry.Expiration.Rank() < threshold {
			continue
		}
		record := []string{
			person,
			entry.Training,
			string(entry.Expiration),
			reports.Params.Reference.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
