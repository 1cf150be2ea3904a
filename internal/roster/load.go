// Package roster loads training rosters from JSON documents and writes the
// report artifacts produced from them.
package roster

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"safety-training-audit/internal/training"
)

// DefaultPath is where the roster document is read from when no path is configured.
const DefaultPath = "data/trainings.txt"

//go:embed roster.schema.json
var rosterSchema string

// ValidationError lists every problem found in a roster document.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single problem at a field path such as "0.completions.1.timestamp".
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("roster validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Load reads, validates and decodes the roster at path.
func Load(path string) (training.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster %s: %w", path, err)
	}
	return Decode(data)
}

// Decode validates data against the roster schema and decodes it.
func Decode(data []byte) (training.Roster, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var roster training.Roster
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}
	return roster, nil
}

// Validate checks data against the embedded roster schema and that person
// names are unique. It returns a *ValidationError for schema violations.
func Validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(rosterSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("malformed roster document: %w", err)
	}

	validationErr := &ValidationError{}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	if result.Valid() {
		validationErr.Errors = append(validationErr.Errors, duplicateNames(data)...)
	}

	if len(validationErr.Errors) == 0 {
		return nil
	}
	return validationErr
}

func duplicateNames(data []byte) []FieldError {
	var people []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &people); err != nil {
		return nil
	}

	seen := make(map[string]int, len(people))
	var errs []FieldError
	for i, person := range people {
		if first, ok := seen[person.Name]; ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%d.name", i),
				Message: fmt.Sprintf("duplicate person %q (first seen at %d)", person.Name, first),
			})
			continue
		}
		seen[person.Name] = i
	}
	return errs
}
