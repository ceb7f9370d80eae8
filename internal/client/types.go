package client

// Health is the GET /health body.
type Health struct {
	OK            bool   `json:"ok"`
	Version       string `json:"version"`
	SchemaVersion string `json:"schema_version"`
}

// SourceTestResult is the POST /v1/sources/{name}:test body. A failed check
// is OK=false with Error set, not an HTTP error.
type SourceTestResult struct {
	OK      bool           `json:"ok"`
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// IngestRunResult is the POST /v1/ingests/{name}:run body.
type IngestRunResult struct {
	New     int      `json:"new"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// JobRunResult is the POST /v1/jobs/{name}:run body. Status carries the run
// outcome; Error is set only for failed runs.
type JobRunResult struct {
	RunID   string         `json:"run_id"`
	Status  string         `json:"status"`
	Outputs map[string]any `json:"outputs"`
	Error   string         `json:"error,omitempty"`
}
