package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/opsbrain/internal/models"
)

func writeDefinition(t *testing.T, f *jobsFixture, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.paths.JobDefsDir, name), []byte(content), 0o644))
}

func TestLoadDefinitionsUpserts(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	writeDefinition(t, f, "digest.toml", `
name = "daily-digest"
kind = "daily_digest"
schedule = "0 7 * * *"
enabled = false

[config]
view = "timeline"
day = "2026-01-21"
out_dir = "artifacts"
`)
	writeDefinition(t, f, "pack.toml", `
name = "weekly-pack"
kind = "artifact_pack"

[config]
tag = "t2"
out_dir = "packs"
`)

	loaded, err := f.svc.LoadDefinitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	digest, err := f.svc.GetJob(ctx, "daily-digest")
	require.NoError(t, err)
	assert.Equal(t, models.JobKindDailyDigest, digest.Kind)
	assert.False(t, digest.Enabled)
	assert.Equal(t, "timeline", digest.Config["view"])
	assert.Equal(t, "0 7 * * *", digest.Config["schedule"], "schedule merges into config")
	assert.Equal(t, "0 7 * * *", digest.Schedule())

	pack, err := f.svc.GetJob(ctx, "weekly-pack")
	require.NoError(t, err)
	assert.True(t, pack.Enabled, "enabled defaults to true when unset")
	assert.Equal(t, "", pack.Schedule())
	assert.Equal(t, "t2", pack.Config["tag"])
}

func TestLoadDefinitionsPreservesCreatedAt(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	require.NoError(t, f.storage.JobStorage().UpsertJob(ctx, &models.Job{
		Name:      "daily-digest",
		Kind:      models.JobKindDailyDigest,
		Config:    map[string]any{"out_dir": "old"},
		Enabled:   true,
		CreatedAt: "2026-01-01T00:00:00+09:00",
	}))

	writeDefinition(t, f, "digest.toml", `
name = "daily-digest"
kind = "daily_digest"

[config]
out_dir = "new"
`)

	loaded, err := f.svc.LoadDefinitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	job, err := f.svc.GetJob(ctx, "daily-digest")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00+09:00", job.CreatedAt)
	assert.Equal(t, "new", job.Config["out_dir"])
}

func TestLoadDefinitionsSkipsBrokenFiles(t *testing.T) {
	f := setupJobs(t)
	ctx := context.Background()

	writeDefinition(t, f, "bad.toml", "= not toml =")
	writeDefinition(t, f, "unnamed.toml", `kind = "daily_digest"`)
	writeDefinition(t, f, "good.toml", `
name = "ok"
kind = "index_rebuild"
`)

	loaded, err := f.svc.LoadDefinitions(ctx)
	require.NoError(t, err, "broken files are skipped, not fatal")
	assert.Equal(t, 1, loaded)

	_, err = f.svc.GetJob(ctx, "ok")
	assert.NoError(t, err)
}

func TestLoadDefinitionsEmptyDir(t *testing.T) {
	f := setupJobs(t)

	loaded, err := f.svc.LoadDefinitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, loaded)
}

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(`
name = "daily-digest"
kind = "daily_digest"
schedule = "@daily"

[config]
view = "timeline"
pdf = true
`))
	require.NoError(t, err)
	assert.Equal(t, "daily-digest", def.Name)
	assert.Equal(t, "@daily", def.Schedule)
	assert.Nil(t, def.Enabled)
	assert.Equal(t, true, def.Config["pdf"])

	_, err = ParseDefinition([]byte(`name = [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid TOML syntax")
}

func TestDefinitionToJob(t *testing.T) {
	enabled := false
	def := &DefinitionFile{
		Name:     "daily-digest",
		Kind:     "daily_digest",
		Schedule: "0 7 * * *",
		Enabled:  &enabled,
		Config:   map[string]any{"view": "timeline"},
	}

	job, err := def.ToJob("2026-01-21T00:00:00+09:00")
	require.NoError(t, err)
	assert.False(t, job.Enabled)
	assert.Equal(t, "0 7 * * *", job.Config["schedule"])
	assert.Equal(t, "timeline", job.Config["view"])
	assert.Equal(t, "2026-01-21T00:00:00+09:00", job.CreatedAt)

	_, err = (&DefinitionFile{Kind: "daily_digest"}).ToJob("")
	require.Error(t, err)
	assert.Equal(t, "name is required", err.Error())

	_, err = (&DefinitionFile{Name: "x"}).ToJob("")
	require.Error(t, err)
	assert.Equal(t, "kind is required", err.Error())
}
