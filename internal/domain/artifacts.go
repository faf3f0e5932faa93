package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Artifact file names. They double as the Kafka message key.
const (
	ReportFileName      = "data.json"
	TestsPerDayFileName = "testsPerDay.json"
)

// Artifacts are the encoded documents of one successful run.
type Artifacts struct {
	RunID       string
	UpdatedOn   string
	Report      []byte
	TestsPerDay []byte
}

// Encode renders the report and its tests-per-day projection. HTML escaping
// is disabled so county names such as "Lääne-Viru" stay readable.
func Encode(runID string, r Report) (Artifacts, error) {
	report, err := encodeJSON(r)
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode %s: %w", ReportFileName, err)
	}
	tests, err := encodeJSON(r.TestsPerDay())
	if err != nil {
		return Artifacts{}, fmt.Errorf("encode %s: %w", TestsPerDayFileName, err)
	}
	return Artifacts{RunID: runID, UpdatedOn: r.UpdatedOn, Report: report, TestsPerDay: tests}, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
