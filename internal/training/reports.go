package training

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CompletionTally maps a course name to the number of people who completed it.
type CompletionTally map[string]int

// FiscalYearReport maps a course name to the people who completed it in the fiscal year.
type FiscalYearReport map[string][]string

// ExpirationEntry is the single expiring training kept for a person.
type ExpirationEntry struct {
	Training   string `json:"training"`
	Expiration Status `json:"expiration"`
}

// ExpirationReport maps a person name to their expiring or expired training.
type ExpirationReport map[string]ExpirationEntry

// TallyCompletions counts completions per course across the roster.
func TallyCompletions(roster Roster) CompletionTally {
	tally := CompletionTally{}
	for _, person := range roster {
		for _, completion := range person.Completions {
			tally[completion.Name]++
		}
	}
	return tally
}

// Courses returns the tallied course names sorted alphabetically.
func (t CompletionTally) Courses() []string {
	courses := make([]string, 0, len(t))
	for course := range t {
		courses = append(courses, course)
	}
	sort.Strings(courses)
	return courses
}

// CompletionsInFiscalYear lists, for each requested course, the people whose
// completion of that course falls inside fiscalYear. Every requested course is
// present in the result, with an empty list when nobody matched.
func CompletionsInFiscalYear(roster Roster, courses []string, fiscalYear int) FiscalYearReport {
	report := make(FiscalYearReport, len(courses))
	for _, course := range courses {
		report[course] = []string{}
	}
	for _, person := range roster {
		for _, completion := range person.Completions {
			if _, wanted := report[completion.Name]; !wanted {
				continue
			}
			if InFiscalYear(fiscalYear, completion.Timestamp) {
				report[completion.Name] = append(report[completion.Name], person.Name)
			}
		}
	}
	return report
}

// ExpiringTrainings flags people with a training that is expired or expires
// within windowDays of reference. When a person has several flagged trainings
// only the last one in roster order is kept.
func ExpiringTrainings(roster Roster, reference Date, windowDays int) ExpirationReport {
	report := ExpirationReport{}
	for _, person := range roster {
		for _, completion := range person.Completions {
			if completion.Expires.IsZero() {
				continue
			}
			status, ok := ExpirationStatus(reference, completion.Expires, windowDays)
			if !ok {
				continue
			}
			report[person.Name] = ExpirationEntry{
				Training:   completion.Name,
				Expiration: status,
			}
		}
	}
	return report
}

// People returns the people in the report sorted alphabetically.
func (r ExpirationReport) People() []string {
	people := make([]string, 0, len(r))
	for name := range r {
		people = append(people, name)
	}
	sort.Strings(people)
	return people
}

// CountByStatus returns how many entries carry each status.
func (r ExpirationReport) CountByStatus() map[Status]int {
	counts := map[Status]int{}
	for _, entry := range r {
		counts[entry.Expiration]++
	}
	return counts
}

// Params are the caller-supplied inputs of a report run.
type Params struct {
	FiscalYear int      `json:"fiscal_year"`
	Courses    []string `json:"courses"`
	Reference  Date     `json:"reference_date"`
	WindowDays int      `json:"window_days"`
}

// Validate checks that the parameters can produce meaningful reports.
func (p Params) Validate() error {
	var errs []error
	if p.FiscalYear < 1 || p.FiscalYear > 9999 {
		errs = append(errs, fmt.Errorf("fiscal year must be a four digit year, got %d", p.FiscalYear))
	}
	if p.Reference.IsZero() {
		errs = append(errs, errors.New("reference date is required"))
	}
	if p.WindowDays <= 0 {
		errs = append(errs, fmt.Errorf("window length must be positive, got %d", p.WindowDays))
	}
	for _, course := range p.Courses {
		if strings.TrimSpace(course) == "" {
			errs = append(errs, errors.New("course names must not be blank"))
			break
		}
	}
	return errors.Join(errs...)
}

// Reports bundles the reconciled roster with the three reports built from it.
type Reports struct {
	Params     Params           `json:"params"`
	Stats      ReconcileStats   `json:"stats"`
	Roster     Roster           `json:"-"`
	Tally      CompletionTally  `json:"tally"`
	FiscalYear FiscalYearReport `json:"fiscal_year"`
	Expiring   ExpirationReport `json:"expiring"`
}

// BuildReports reconciles the roster and then runs each reporter over the
// cleaned result.
func BuildReports(raw Roster, params Params) (Reports, error) {
	if err := params.Validate(); err != nil {
		return Reports{}, fmt.Errorf("invalid report parameters: %w", err)
	}

	cleaned := Reconcile(raw)

	return Reports{
		Params:     params,
		Stats:      statsFor(raw, cleaned),
		Roster:     cleaned,
		Tally:      TallyCompletions(cleaned),
		FiscalYear: CompletionsInFiscalYear(cleaned, params.Courses, params.FiscalYear),
		Expiring:   ExpiringTrainings(cleaned, params.Reference, params.WindowDays),
	}, nil
}
