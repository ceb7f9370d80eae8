package jobs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/opsbrain/internal/models"
)

func TestArtifactPackBundlesTaggedEvents(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	ingestChat(t, f, 0, "记录 memobird 打印 <test>", "t2")
	ingestChat(t, f, 1, "second note", "t2")

	assetPath := filepath.Join(t.TempDir(), "asset.txt")
	require.NoError(t, os.WriteFile(assetPath, []byte("asset-body"), 0o644))
	_, err := f.pipeline.EmitArtifact(ctx,
		[]models.Ref{{Kind: "file", URI: "file:" + assetPath}},
		[]string{"t2"},
		map[string]any{"path": assetPath},
	)
	require.NoError(t, err)

	result, err := f.svc.RunArtifactPack(ctx, "t2", "packs")
	require.NoError(t, err)

	packDir := filepath.Join(f.paths.Workspace, "packs")
	assert.Equal(t, filepath.Join(packDir, "pack.json"), result.PackPath)
	assert.Equal(t, filepath.Join(packDir, "README.md"), result.ReadmePath)
	require.Len(t, result.Assets, 1)
	assert.Regexp(t, `^[0-9a-f]{12}_asset\.txt$`, filepath.Base(result.Assets[0]))

	copied, err := os.ReadFile(result.Assets[0])
	require.NoError(t, err)
	assert.Equal(t, "asset-body", string(copied))

	raw, err := os.ReadFile(result.PackPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "打印", "non-ASCII stays unescaped")
	assert.NotContains(t, string(raw), `\u003c`, "HTML characters stay unescaped")

	var pack struct {
		Tag    string         `json:"tag"`
		Items  []models.Event `json:"items"`
		Assets []string       `json:"assets"`
	}
	require.NoError(t, json.Unmarshal(raw, &pack))
	assert.Equal(t, "t2", pack.Tag)
	require.Len(t, pack.Items, 3, "two chat events plus the asset artifact")
	assert.Equal(t, models.EventTypeArtifactCreated, pack.Items[0].Type, "newest first")
	assert.Equal(t, result.Assets, pack.Assets)

	readme, err := os.ReadFile(result.ReadmePath)
	require.NoError(t, err)
	lines := strings.Split(string(readme), "\n")
	assert.Equal(t, "# Artifact Pack t2", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "Total items: 3", lines[2])
	assert.True(t, strings.HasPrefix(lines[4], "- "+pack.Items[0].ID))

	// The pack emits its own artifact event, after the queried set.
	events, err := f.query.Events(ctx, &models.EventFilters{Tags: []string{"artifact-pack"}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"t2", "artifact-pack"}, events[0].Tags)
	assert.Equal(t, "file:"+result.PackPath, events[0].Refs[0].URI)
	assert.Equal(t, "file:"+result.ReadmePath, events[0].Refs[1].URI)
	assert.Equal(t, "t2", events[0].Payload["tag"])
}

func TestArtifactPackSkipsMissingAssets(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	_, err := f.pipeline.EmitArtifact(ctx,
		[]models.Ref{{Kind: "file", URI: "file:" + filepath.Join(t.TempDir(), "gone.txt")}},
		[]string{"t2"},
		map[string]any{},
	)
	require.NoError(t, err)

	result, err := f.svc.RunArtifactPack(ctx, "t2", "packs")
	require.NoError(t, err)
	assert.Empty(t, result.Assets)

	readme, err := os.ReadFile(result.ReadmePath)
	require.NoError(t, err)
	assert.Contains(t, string(readme), "Total items: 1")
}

func TestArtifactPackIgnoresNonFileRefs(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	_, err := f.pipeline.EmitArtifact(ctx,
		[]models.Ref{{Kind: "url", URI: "https://example.com/report"}},
		[]string{"t2"},
		map[string]any{},
	)
	require.NoError(t, err)

	result, err := f.svc.RunArtifactPack(ctx, "t2", "packs")
	require.NoError(t, err)
	assert.Empty(t, result.Assets)
}

func TestArtifactPackJobRequiresConfig(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	createJob(t, f, "pack", models.JobKindArtifactPack, map[string]any{"tag": "t2"})

	run, err := f.svc.Run(ctx, "pack")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, "artifact_pack config requires tag and out_dir", *run.Error)
}

func TestArtifactPackViaJobRun(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	ingestChat(t, f, 0, "packed", "t2")
	createJob(t, f, "pack", models.JobKindArtifactPack, map[string]any{"tag": "t2", "out_dir": "packs"})

	run, err := f.svc.Run(ctx, "pack")
	require.NoError(t, err)
	require.Equal(t, models.RunStatusOK, run.Status, "pack failed: %v", run.Error)

	packPath, ok := run.Output["pack_path"].(string)
	require.True(t, ok)
	assert.FileExists(t, packPath)
	readmePath, ok := run.Output["readme_path"].(string)
	require.True(t, ok)
	assert.FileExists(t, readmePath)
}
