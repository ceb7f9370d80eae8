package models

// Hash identifies the content digest of an event core.
type Hash struct {
	Algo  string `json:"algo"`
	Value string `json:"value"`
}

// Digest carries an optional content digest on a ref.
type Digest struct {
	Algo  string `json:"algo"`
	Value string `json:"value"`
}

// SourceInfo names where an event came from. Kind is the adapter name
// (chat_json_file, job, ...); Locator is a canonical path or URI.
type SourceInfo struct {
	Kind    string         `json:"kind"`
	Locator string         `json:"locator"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Ref points at source material backing an event. Span may carry
// {"idx": N} to locate the record inside the source file.
type Ref struct {
	Kind   string         `json:"kind"`
	URI    string         `json:"uri"`
	Span   map[string]any `json:"span,omitempty"`
	Digest *Digest        `json:"digest,omitempty"`
}

// Event is the single first-class entity. Events are created by the ingest
// pipeline and never mutated; the canonical log line carries exactly this
// shape.
type Event struct {
	SchemaVersion string         `json:"schema_version"`
	ID            string         `json:"id"`
	TS            string         `json:"ts"`
	Type          string         `json:"type"`
	Tags          []string       `json:"tags"`
	Text          string         `json:"text"`
	Payload       map[string]any `json:"payload"`
	Source        SourceInfo     `json:"source"`
	Refs          []Ref          `json:"refs"`
	Hash          Hash           `json:"hash"`
	DedupeKey     *string        `json:"dedupe_key"`
	CreatedAt     string         `json:"created_at"`
}

// Draft is a validated event draft: every event field except id, hash,
// dedupe_key and created_at. DedupeKey holds a caller-supplied key when the
// draft carried one.
type Draft struct {
	SchemaVersion string
	TS            string
	Type          string
	Tags          []string
	Text          string
	Payload       map[string]any
	Source        SourceInfo
	Refs          []Ref
	DedupeKey     string
}

// NormalizeTags de-duplicates tags by first occurrence, preserving order.
// A nil input yields an empty, non-nil slice.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// EventTypeChatMessage is the chat record event type; chat events must carry
// a dedupe key.
const EventTypeChatMessage = "chat.message"

// EventTypeArtifactCreated marks job outputs referring to files on disk.
const EventTypeArtifactCreated = "artifact.created"

// IsChatType reports whether an event type belongs to the chat family.
func IsChatType(eventType string) bool {
	return eventType == EventTypeChatMessage ||
		len(eventType) > 5 && eventType[:5] == "chat."
}
