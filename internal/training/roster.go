// Package training holds the roster model and the reconciliation and report
// logic for safety-training completions.
package training

// CompletionRecord states that a person finished a course on Timestamp.
// A zero Expires means the training does not expire.
type CompletionRecord struct {
	Name      string `json:"name"`
	Timestamp Date   `json:"timestamp"`
	Expires   Date   `json:"expires"`
}

// Equal reports whether both records carry the same course, timestamp and expiration.
func (r CompletionRecord) Equal(other CompletionRecord) bool {
	return r.Name == other.Name &&
		r.Timestamp.Equal(other.Timestamp) &&
		r.Expires.Equal(other.Expires)
}

// Person is a roster entry. Names are unique within a roster and case-sensitive.
type Person struct {
	Name        string             `json:"name"`
	Completions []CompletionRecord `json:"completions"`
}

// Roster is the full list of people in input order.
type Roster []Person

// CompletionCount returns the number of completion records across all people.
func (r Roster) CompletionCount() int {
	total := 0
	for _, person := range r {
		total += len(person.Completions)
	}
	return total
}
