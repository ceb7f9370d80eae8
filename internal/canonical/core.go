package canonical

import (
	"github.com/ternarybob/opsbrain/internal/models"
)

// CoreFromDraft builds the event core: the stable field set that gets hashed
// and later persisted. Everything except id, hash, dedupe_key and
// created_at.
func CoreFromDraft(d *models.Draft) map[string]any {
	meta := d.Source.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	payload := d.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return map[string]any{
		"schema_version": d.SchemaVersion,
		"ts":             d.TS,
		"type":           d.Type,
		"source": map[string]any{
			"kind":    d.Source.Kind,
			"locator": d.Source.Locator,
			"meta":    meta,
		},
		"refs":    refsToAny(d.Refs),
		"tags":    models.NormalizeTags(d.Tags),
		"text":    d.Text,
		"payload": payload,
	}
}

// FullEventMap renders a complete event in the map form canonical log lines
// use: the core fields plus id, hash, dedupe_key and created_at.
func FullEventMap(ev *models.Event) map[string]any {
	meta := ev.Source.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	payload := ev.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	var dedupeKey any
	if ev.DedupeKey != nil {
		dedupeKey = *ev.DedupeKey
	}
	return map[string]any{
		"schema_version": ev.SchemaVersion,
		"id":             ev.ID,
		"ts":             ev.TS,
		"type":           ev.Type,
		"source": map[string]any{
			"kind":    ev.Source.Kind,
			"locator": ev.Source.Locator,
			"meta":    meta,
		},
		"refs":       refsToAny(ev.Refs),
		"tags":       models.NormalizeTags(ev.Tags),
		"text":       ev.Text,
		"payload":    payload,
		"hash":       map[string]any{"algo": ev.Hash.Algo, "value": ev.Hash.Value},
		"dedupe_key": dedupeKey,
		"created_at": ev.CreatedAt,
	}
}

func refsToAny(refs []models.Ref) []any {
	out := make([]any, 0, len(refs))
	for _, r := range refs {
		m := map[string]any{
			"kind": r.Kind,
			"uri":  r.URI,
		}
		if r.Span != nil {
			m["span"] = r.Span
		}
		if r.Digest != nil {
			m["digest"] = map[string]any{
				"algo":  r.Digest.Algo,
				"value": r.Digest.Value,
			}
		}
		out = append(out, m)
	}
	return out
}
