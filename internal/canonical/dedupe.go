package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/opsbrain/internal/models"
)

var spaceRuns = regexp.MustCompile(`[ \t]+`)

// NormalizeText folds a text body to its dedupe form: CRLF/CR become LF,
// trailing spaces and tabs are stripped per line, and runs of spaces and
// tabs collapse to a single space.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		lines[i] = spaceRuns.ReplaceAllString(line, " ")
	}
	return strings.Join(lines, "\n")
}

// DedupeKey fingerprints one record of a source file:
// sha256 hex over "<adapter>|<locator>|idx:<N>|<normalized-content>".
func DedupeKey(adapter, locator string, idx int, content string) string {
	material := adapter + "|" + locator + "|idx:" + strconv.Itoa(idx) + "|" + NormalizeText(content)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// DedupeKeyForDraft computes the dedupe key for a chat-kind draft. ok is
// false when the draft is not chat-kind or its first ref does not locate the
// record with a span idx.
func DedupeKeyForDraft(d *models.Draft) (key string, ok bool) {
	if !models.IsChatType(d.Type) {
		return "", false
	}
	if len(d.Refs) == 0 {
		return "", false
	}
	idx, ok := SpanIdx(d.Refs[0].Span)
	if !ok {
		return "", false
	}
	return DedupeKey(d.Source.Kind, d.Source.Locator, idx, dedupeContent(d.Payload, d.Text)), true
}

// DedupeKeyForEvent resolves the key for a replayed event. An event that
// already carries a key keeps it; otherwise the key is recomputed so that
// log lines predating the dedupe_key field still populate the dedupe table.
func DedupeKeyForEvent(ev *models.Event) (key string, ok bool) {
	if ev.DedupeKey != nil && *ev.DedupeKey != "" {
		return *ev.DedupeKey, true
	}
	if !models.IsChatType(ev.Type) {
		return "", false
	}
	if ev.Source.Kind == "" || ev.Source.Locator == "" {
		return "", false
	}
	if len(ev.Refs) == 0 {
		return "", false
	}
	idx, ok := SpanIdx(ev.Refs[0].Span)
	if !ok {
		return "", false
	}
	content := dedupeContent(ev.Payload, ev.Text)
	if content == "" {
		return "", false
	}
	return DedupeKey(ev.Source.Kind, ev.Source.Locator, idx, content), true
}

// dedupeContent picks the body the key is derived from. Chat payloads carry
// the original message under "content"; the event text may have been
// normalized or annotated, so the payload copy wins when present.
func dedupeContent(payload map[string]any, text string) string {
	if payload != nil {
		if v, ok := payload["content"].(string); ok && v != "" {
			return v
		}
	}
	return text
}

// SpanIdx extracts the record index from a ref span.
func SpanIdx(span map[string]any) (int, bool) {
	if span == nil {
		return 0, false
	}
	switch v := span["idx"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
