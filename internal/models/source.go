package models

// Source is a named adapter configuration. Config carries the adapter's
// settings; for chat_json_file that is {"path": ..., "copy": bool}.
type Source struct {
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Config    map[string]any `json:"config"`
	Tags      []string       `json:"tags"`
	CreatedAt string         `json:"created_at"`
}

// SourceKindChatJSONFile is the only registered source adapter kind.
const SourceKindChatJSONFile = "chat_json_file"

// SourceKindJob marks events emitted by the job engine itself.
const SourceKindJob = "job"
