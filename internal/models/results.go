package models

// Draft statuses reported per batch entry.
const (
	StatusInserted = "inserted"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// DraftResult is the per-draft outcome carried in the batch response.
// Failures are result values, not errors; the batch continues past them.
type DraftResult struct {
	Status          string  `json:"status"`
	EventID         string  `json:"event_id,omitempty"`
	ExistingEventID string  `json:"existing_event_id,omitempty"`
	DedupeKey       *string `json:"dedupe_key,omitempty"`
	Hash            string  `json:"hash,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// BatchResult aggregates a batch ingest. New mirrors Inserted; Errors
// collects the failed drafts' messages; IDs lists inserted event ids in
// insertion order.
type BatchResult struct {
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Results  []DraftResult `json:"results"`
	New      int           `json:"new"`
	Errors   []string      `json:"errors"`
	IDs      []string      `json:"ids"`
}

// Add folds one draft result into the aggregate.
func (b *BatchResult) Add(r DraftResult) {
	b.Results = append(b.Results, r)
	switch r.Status {
	case StatusInserted:
		b.Inserted++
		b.New++
		if r.EventID != "" {
			b.IDs = append(b.IDs, r.EventID)
		}
	case StatusSkipped:
		b.Skipped++
	case StatusFailed:
		b.Failed++
		if r.Error != "" {
			b.Errors = append(b.Errors, r.Error)
		}
	}
}

// NewBatchResult returns an aggregate with non-nil slices so JSON renders
// arrays, not nulls.
func NewBatchResult() *BatchResult {
	return &BatchResult{
		Results: []DraftResult{},
		Errors:  []string{},
		IDs:     []string{},
	}
}

// RebuildCounts reports an index_rebuild replay.
type RebuildCounts struct {
	Processed   int `json:"processed"`
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
	ParseErrors int `json:"parse_errors"`
}

// PackResult reports an artifact_pack run.
type PackResult struct {
	PackPath   string   `json:"pack_path"`
	ReadmePath string   `json:"readme_path"`
	Assets     []string `json:"assets"`
}
