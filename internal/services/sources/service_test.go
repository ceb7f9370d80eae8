package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
	"github.com/ternarybob/opsbrain/internal/storage/sqlite"
)

const chatExport = `[
  {"ts": "2026-01-21T09:00:00+09:00", "speaker": "me", "content": "买了 memobird 打印机"},
  {"ts": "2026-01-21T09:05:00+09:00", "speaker": "me", "content": "连上了, 能打印了"}
]`

type sourcesFixture struct {
	svc     *Service
	storage interfaces.StorageManager
	paths   common.Paths
}

func setupSources(t *testing.T) *sourcesFixture {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Workspace = t.TempDir()
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureWorkspace())

	logger := arbor.NewLogger()
	storage, err := sqlite.NewManager(logger, paths.IndexDB)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	log := canonical.NewLog(paths.CanonicalLog)
	pipelineSvc := pipeline.NewService(log, storage, cfg, paths, logger)

	return &sourcesFixture{
		svc:     NewService(storage, pipelineSvc, cfg, logger),
		storage: storage,
		paths:   paths,
	}
}

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCreateSourceValidation(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		source  *models.Source
		wantErr string
	}{
		{"missing name", &models.Source{Kind: "chat_json_file"}, "name is required"},
		{"missing kind", &models.Source{Name: "a"}, "kind is required"},
		{"unknown kind", &models.Source{Name: "a", Kind: "imap"}, "Unsupported source kind: imap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.CreateSource(ctx, tt.source)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestCreateSourceNormalizesConfig(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "chats",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": "/tmp/export.json"},
	}))

	stored, err := f.svc.GetSource(ctx, "chats")
	require.NoError(t, err)
	assert.Equal(t, true, stored.Config["copy"], "copy defaults on")
	assert.Equal(t, []string{}, stored.Tags)
	assert.NotEmpty(t, stored.CreatedAt)

	err = f.svc.CreateSource(ctx, &models.Source{
		Name:   "chats",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": "/tmp/other.json"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDeleteSourceIdempotent(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "chats",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": "/tmp/export.json"},
	}))
	require.NoError(t, f.svc.DeleteSource(ctx, "chats"))
	require.NoError(t, f.svc.DeleteSource(ctx, "chats"), "second delete is a no-op")

	_, err := f.svc.GetSource(ctx, "chats")
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
}

func TestTestSource(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	path := writeExport(t, chatExport)
	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "good",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": path},
	}))
	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "bad",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": filepath.Join(t.TempDir(), "gone.json")},
	}))

	details, err := f.svc.TestSource(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, path, details["path"])
	assert.EqualValues(t, len(chatExport), details["size"])

	_, err = f.svc.TestSource(ctx, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Path does not exist")

	_, err = f.svc.TestSource(ctx, "nope")
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
}

func TestRunIngestDedupes(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	path := writeExport(t, chatExport)
	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "chats",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": path, "copy": false},
		Tags:   []string{"memobird"},
	}))

	first, err := f.svc.RunIngest(ctx, "chats", []string{"t2"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, first.New)
	assert.Equal(t, 0, first.Skipped)

	again, err := f.svc.RunIngest(ctx, "chats", nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0, again.New)
	assert.Equal(t, 2, again.Skipped)

	events, err := f.storage.EventStorage().QueryFull(context.Background(),
		&models.EventFilters{Tags: []string{"t2"}, Limit: 10, Order: models.OrderAsc}, false)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"memobird", "t2"}, events[0].Tags)
}

func TestRunIngestCopiesSourceFile(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	path := writeExport(t, chatExport)
	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "chats",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": path},
	}))

	result, err := f.svc.RunIngest(ctx, "chats", nil, false)
	require.NoError(t, err)
	require.Equal(t, 2, result.New)

	copies, err := filepath.Glob(filepath.Join(f.paths.RawChatJSON, "*_export.json"))
	require.NoError(t, err)
	require.Len(t, copies, 1, "source archived under raw/chat_json")

	event, err := f.storage.EventStorage().GetEvent(ctx, result.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, copies[0], event.Source.Locator, "locator points at the archived copy")
}

func TestRunIngestDryRun(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	path := writeExport(t, chatExport)
	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "chats",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": path, "copy": false},
	}))

	result, err := f.svc.RunIngest(ctx, "chats", nil, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.New, "dry run reports what would insert")

	count, err := f.storage.EventStorage().CountEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "dry run writes nothing")
}

func TestRunIngestBadFile(t *testing.T) {
	f := setupSources(t)
	ctx := context.Background()

	require.NoError(t, f.svc.CreateSource(ctx, &models.Source{
		Name:   "chats",
		Kind:   "chat_json_file",
		Config: map[string]any{"path": filepath.Join(t.TempDir(), "gone.json"), "copy": false},
	}))

	_, err := f.svc.RunIngest(ctx, "chats", nil, false)
	require.Error(t, err)
	assert.Equal(t, common.ExitAdapter, common.ExitCode(err))
}
