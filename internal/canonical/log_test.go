package canonical

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/opsbrain/internal/models"
)

func testEvent(id, text string) *models.Event {
	return &models.Event{
		SchemaVersion: "0.2",
		ID:            id,
		TS:            "2026-01-21T10:00:00+09:00",
		Type:          models.EventTypeChatMessage,
		Tags:          []string{"t1"},
		Text:          text,
		Payload:       map[string]any{"content": text},
		Source:        models.SourceInfo{Kind: "chat_json_file", Locator: "/tmp/a.json", Meta: map[string]any{}},
		Refs:          []models.Ref{{Kind: "file", URI: "file:/tmp/a.json"}},
		Hash:          models.Hash{Algo: HashAlgo, Value: strings.Repeat("0", 64)},
		CreatedAt:     "2026-01-21T10:00:01+09:00",
	}
}

func TestLogAppendAndScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := NewLog(path)

	require.NoError(t, log.Append(testEvent("01ARZ3NDEKTSV4RRFFQ69G5FAA", "第一条")))
	require.NoError(t, log.Append(testEvent("01ARZ3NDEKTSV4RRFFQ69G5FAB", "第二条")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rawLines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, rawLines, 2)
	assert.Contains(t, rawLines[0], "第一条", "utf-8 should be stored unescaped")
	assert.True(t, strings.HasPrefix(rawLines[0], `{"created_at":`), "log lines use sorted keys")
	assert.Contains(t, rawLines[0], `"dedupe_key":null`, "keyless events record an explicit null")

	var got []*models.Event
	lines, parseErrors, err := log.Scan(func(ev *models.Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, lines)
	assert.Equal(t, 0, parseErrors)
	require.Len(t, got, 2)
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAA", got[0].ID)
	assert.Equal(t, "第二条", got[1].Text)
}

func TestLogScanTolerant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := NewLog(path)
	require.NoError(t, log.Append(testEvent("01ARZ3NDEKTSV4RRFFQ69G5FAA", "ok")))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\nnot json at all\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, log.Append(testEvent("01ARZ3NDEKTSV4RRFFQ69G5FAB", "also ok")))

	var ids []string
	lines, parseErrors, err := log.Scan(func(ev *models.Event) error {
		ids = append(ids, ev.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, lines, "blank lines are skipped, bad lines counted")
	assert.Equal(t, 1, parseErrors)
	assert.Equal(t, []string{"01ARZ3NDEKTSV4RRFFQ69G5FAA", "01ARZ3NDEKTSV4RRFFQ69G5FAB"}, ids)
}

func TestLogScanMissingFile(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "missing.jsonl"))
	lines, parseErrors, err := log.Scan(func(*models.Event) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, lines)
	assert.Zero(t, parseErrors)
}
