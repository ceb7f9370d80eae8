package models

// Query formats.
const (
	FormatSummary = "summary"
	FormatFull    = "full"
)

// Sort orders over ts.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// DefaultQueryLimit applies when a request names none; MaxQueryLimit caps
// any request.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// EventFilters is the query engine input.
type EventFilters struct {
	Q      string   `json:"q,omitempty"`
	Types  []string `json:"type,omitempty"`
	Tags   []string `json:"tag,omitempty"`
	After  string   `json:"after,omitempty"`
	Before string   `json:"before,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Format string   `json:"format,omitempty"`
	Order  string   `json:"order,omitempty"`
}

// EventSummary is the summary row shape returned by queries.
type EventSummary struct {
	ID      string   `json:"id"`
	TS      string   `json:"ts"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags"`
	Snippet string   `json:"snippet"`
	Refs    []Ref    `json:"refs"`
}

// Artifact is the /v1/artifacts item shape, derived from artifact.created
// events.
type Artifact struct {
	Path      string `json:"path"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
	Refs      []Ref  `json:"refs"`
	EventID   string `json:"event_id"`
}
