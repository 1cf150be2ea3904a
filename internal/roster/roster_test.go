package roster

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safety-training-audit/internal/training"
)

const sampleRoster = `[
  {
    "name": "Ada Lovelace",
    "completions": [
      {"name": "Lab Safety", "timestamp": "01/01/2023", "expires": ""},
      {"name": "Lab Safety", "timestamp": "06/01/2023", "expires": "06/01/2024"},
      {"name": "X-Ray Safety", "timestamp": "8/15/2023"}
    ]
  },
  {
    "name": "Grace Hopper",
    "completions": []
  }
]`

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trainings.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	roster, err := Load(writeRoster(t, sampleRoster))
	require.NoError(t, err)

	require.Len(t, roster, 2)
	assert.Equal(t, "Ada Lovelace", roster[0].Name)
	require.Len(t, roster[0].Completions, 3)
	assert.True(t, roster[0].Completions[0].Expires.IsZero())
	assert.Equal(t, "06/01/2024", roster[0].Completions[1].Expires.String())
	assert.Equal(t, "08/15/2023", roster[0].Completions[2].Timestamp.String())
	assert.Empty(t, roster[1].Completions)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDecode_MalformedDocument(t *testing.T) {
	_, err := Decode([]byte(`[{"name": "Ada"`))
	require.Error(t, err)

	var validationErr *ValidationError
	assert.False(t, errors.As(err, &validationErr))
}

func TestValidate_SchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains string
	}{
		{
			name:     "bad timestamp format",
			doc:      `[{"name":"Ada","completions":[{"name":"Lab Safety","timestamp":"2023-01-01"}]}]`,
			contains: "timestamp",
		},
		{
			name:     "bad expires format",
			doc:      `[{"name":"Ada","completions":[{"name":"Lab Safety","timestamp":"01/01/2023","expires":"never"}]}]`,
			contains: "expires",
		},
		{
			name:     "missing completions",
			doc:      `[{"name":"Ada"}]`,
			contains: "completions",
		},
		{
			name:     "not an array",
			doc:      `{"name":"Ada","completions":[]}`,
			contains: "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.doc))
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			require.NotEmpty(t, validationErr.Errors)
			first := validationErr.Errors[0]
			assert.Contains(t, first.Field+" "+first.Message, tt.contains)
		})
	}
}

func TestValidate_DuplicatePeople(t *testing.T) {
	err := Validate([]byte(`[{"name":"Ada","completions":[]},{"name":"Ada","completions":[]}]`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "1.name", validationErr.Errors[0].Field)
}

func TestDecode_ImpossibleDate(t *testing.T) {
	_, err := Decode([]byte(`[{"name":"Ada","completions":[{"name":"Lab Safety","timestamp":"02/30/2023"}]}]`))
	assert.Error(t, err)
}

func TestArtifactNames(t *testing.T) {
	assert.Equal(t, "people_who_completed_trainings_in_2024.json", FiscalYearFile(2024))
	assert.Equal(t, "expiring_trainings_10-01-2023.json", ExpirationFile(training.NewDate(2023, 10, 1)))
}

func TestWriteArtifacts(t *testing.T) {
	raw, err := Decode([]byte(sampleRoster))
	require.NoError(t, err)

	reports, err := training.BuildReports(raw, training.Params{
		FiscalYear: 2023,
		Courses:    []string{"Lab Safety", "Electrical Safety for Labs"},
		Reference:  training.NewDate(2024, 6, 10),
		WindowDays: training.DefaultWindowDays,
	})
	require.NoError(t, err)

	artifacts, err := Artifacts(reports)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	dir := filepath.Join(t.TempDir(), "results")
	paths, err := WriteArtifacts(dir, artifacts)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	var tally map[string]int
	readJSON(t, filepath.Join(dir, TallyFile), &tally)
	assert.Equal(t, map[string]int{"Lab Safety": 1, "X-Ray Safety": 1}, tally)

	var fiscal map[string][]string
	readJSON(t, filepath.Join(dir, "people_who_completed_trainings_in_2023.json"), &fiscal)
	assert.Equal(t, map[string][]string{
		"Lab Safety":                 {"Ada Lovelace"},
		"Electrical Safety for Labs": {},
	}, fiscal)

	var expiring map[string]map[string]string
	readJSON(t, filepath.Join(dir, "expiring_trainings_06-10-2024.json"), &expiring)
	assert.Equal(t, map[string]map[string]string{
		"Ada Lovelace": {"training": "Lab Safety", "expiration": "expires soon"},
	}, expiring)
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
