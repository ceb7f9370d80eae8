package models

import "encoding/json"

// StringOrList accepts a JSON string or array of strings; stored view
// filters use either form interchangeably.
type StringOrList []string

func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringOrList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = StringOrList(many)
	return nil
}

// ViewFilters is the partial query stored on a view.
type ViewFilters struct {
	Type   StringOrList `json:"type,omitempty"`
	Tag    StringOrList `json:"tag,omitempty"`
	After  string       `json:"after,omitempty"`
	Before string       `json:"before,omitempty"`
}

// ViewQuery is the stored query of a saved view.
type ViewQuery struct {
	Kind    string      `json:"kind"`
	Filters ViewFilters `json:"filters"`
	Order   string      `json:"order,omitempty"`
}

// View is a named saved query merged with request filters at query time.
type View struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Query       ViewQuery `json:"query"`
	CreatedAt   string    `json:"created_at"`
}

// ViewQueryKindEvents is the only stored query kind.
const ViewQueryKindEvents = "events_query"
