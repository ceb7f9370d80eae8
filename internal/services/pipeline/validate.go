package pipeline

import (
	"github.com/ternarybob/opsbrain/internal/models"
)

// validateRawDraft checks an undecoded draft for the required fields and
// field types. Returns the failure message, or "" when the draft is valid.
func validateRawDraft(raw map[string]any) string {
	for _, key := range []string{"schema_version", "ts", "type", "source", "refs", "text", "payload"} {
		if _, ok := raw[key]; !ok {
			return "Missing " + key
		}
	}
	for _, key := range []string{"schema_version", "ts", "type"} {
		if _, ok := raw[key].(string); !ok {
			return key + " must be a string"
		}
	}

	source, ok := raw["source"].(map[string]any)
	if !ok {
		return "source must be an object"
	}
	if kind, _ := source["kind"].(string); kind == "" {
		return "source.kind and source.locator are required"
	}
	if locator, _ := source["locator"].(string); locator == "" {
		return "source.kind and source.locator are required"
	}

	refs, ok := raw["refs"].([]any)
	if !ok {
		return "refs must be a list"
	}
	for _, ref := range refs {
		if _, ok := ref.(map[string]any); !ok {
			return "refs entries must be objects"
		}
	}

	if _, ok := raw["text"].(string); !ok {
		return "text must be a string"
	}
	if _, ok := raw["payload"].(map[string]any); !ok {
		return "payload must be an object"
	}

	if tags, present := raw["tags"]; present {
		if _, ok := tags.([]any); !ok {
			return "tags must be a list"
		}
	}

	return ""
}

// validateDraft checks a typed draft. Builders always populate these fields;
// the check guards direct callers.
func validateDraft(d *models.Draft) string {
	switch {
	case d == nil:
		return "Event draft must be an object"
	case d.SchemaVersion == "":
		return "Missing schema_version"
	case d.TS == "":
		return "Missing ts"
	case d.Type == "":
		return "Missing type"
	case d.Source.Kind == "" || d.Source.Locator == "":
		return "source.kind and source.locator are required"
	}
	return ""
}

// draftFromRaw converts a validated raw draft to its typed form. Payload,
// meta and span values stay type-erased; numbers remain json.Number.
func draftFromRaw(raw map[string]any) *models.Draft {
	draft := &models.Draft{
		SchemaVersion: raw["schema_version"].(string),
		TS:            raw["ts"].(string),
		Type:          raw["type"].(string),
		Text:          raw["text"].(string),
		Payload:       raw["payload"].(map[string]any),
	}

	source := raw["source"].(map[string]any)
	draft.Source = models.SourceInfo{
		Kind:    source["kind"].(string),
		Locator: source["locator"].(string),
	}
	if meta, ok := source["meta"].(map[string]any); ok {
		draft.Source.Meta = meta
	}

	for _, entry := range raw["refs"].([]any) {
		draft.Refs = append(draft.Refs, refFromRaw(entry.(map[string]any)))
	}

	if tags, ok := raw["tags"].([]any); ok {
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				draft.Tags = append(draft.Tags, s)
			}
		}
	}

	if key, ok := raw["dedupe_key"].(string); ok {
		draft.DedupeKey = key
	}

	return draft
}

func refFromRaw(raw map[string]any) models.Ref {
	ref := models.Ref{}
	if kind, ok := raw["kind"].(string); ok {
		ref.Kind = kind
	}
	if uri, ok := raw["uri"].(string); ok {
		ref.URI = uri
	}
	if span, ok := raw["span"].(map[string]any); ok {
		ref.Span = span
	}
	if digest, ok := raw["digest"].(map[string]any); ok {
		algo, _ := digest["algo"].(string)
		value, _ := digest["value"].(string)
		if algo != "" || value != "" {
			ref.Digest = &models.Digest{Algo: algo, Value: value}
		}
	}
	return ref
}
