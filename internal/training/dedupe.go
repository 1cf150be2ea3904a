package training

// Dedupe collapses completions to one record per course, keeping the record
// with the latest timestamp. A replacing record moves to the end of the
// output. On a timestamp tie the record seen first is kept. The input slice
// is not modified.
func Dedupe(completions []CompletionRecord) []CompletionRecord {
	out := make([]CompletionRecord, 0, len(completions))
	for _, record := range completions {
		idx := indexOfCourse(out, record.Name)
		if idx < 0 {
			out = append(out, record)
			continue
		}

		existing := out[idx]
		if existing.Equal(record) {
			continue
		}
		if existing.Timestamp.Before(record.Timestamp) {
			out = append(out[:idx], out[idx+1:]...)
			out = append(out, record)
		}
	}
	return out
}

func indexOfCourse(records []CompletionRecord, course string) int {
	for i, record := range records {
		if record.Name == course {
			return i
		}
	}
	return -1
}

// Reconcile returns a copy of roster in which every person's completions have
// been deduplicated. People keep their order.
func Reconcile(roster Roster) Roster {
	cleaned := make(Roster, len(roster))
	for i, person := range roster {
		cleaned[i] = Person{
			Name:        person.Name,
			Completions: Dedupe(person.Completions),
		}
	}
	return cleaned
}

// ReconcileStats summarizes what Reconcile removed.
type ReconcileStats struct {
	People           int `json:"people"`
	RawCompletions   int `json:"raw_completions"`
	CleanCompletions int `json:"clean_completions"`
}

// DuplicatesRemoved is the number of records dropped by reconciliation.
func (s ReconcileStats) DuplicatesRemoved() int {
	return s.RawCompletions - s.CleanCompletions
}

func statsFor(raw Roster, cleaned Roster) ReconcileStats {
	return ReconcileStats{
		People:           len(cleaned),
		RawCompletions:   raw.CompletionCount(),
		CleanCompletions: cleaned.CompletionCount(),
	}
}
