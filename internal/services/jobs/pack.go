package jobs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

// RunArtifactPack bundles the newest 500 events carrying tag into
// <out_dir>/pack.json plus a README, copying the files behind
// artifact.created refs into <out_dir>/assets/. Exported because
// /v1/artifacts:pack calls it directly, outside a job run.
func (s *Service) RunArtifactPack(ctx context.Context, tag, outDir string) (*models.PackResult, error) {
	events, err := s.query.Events(ctx, &models.EventFilters{
		Tags:   []string{tag},
		Limit:  models.MaxQueryLimit,
		Format: models.FormatFull,
		Order:  models.OrderDesc,
	})
	if err != nil {
		return nil, err
	}

	dir := s.resolveOutDir(outDir)
	assetsDir := filepath.Join(dir, "assets")
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return nil, common.IOError(err, "cannot create pack directory %s", assetsDir)
	}

	assets := s.copyPackAssets(events, assetsDir)

	packPath := filepath.Join(dir, "pack.json")
	pack := map[string]any{"tag": tag, "items": events, "assets": assets}
	if err := writePrettyJSON(packPath, pack); err != nil {
		return nil, err
	}

	readmePath := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readmePath, []byte(packReadme(tag, events)), 0o644); err != nil {
		return nil, common.IOError(err, "cannot write pack README %s", readmePath)
	}

	refs := []models.Ref{
		{Kind: "file", URI: "file:" + packPath},
		{Kind: "file", URI: "file:" + readmePath},
	}
	payload := map[string]any{"paths": []string{packPath, readmePath}, "tag": tag}
	if _, err := s.pipeline.EmitArtifact(ctx, refs, []string{tag, "artifact-pack"}, payload); err != nil {
		return nil, err
	}

	return &models.PackResult{PackPath: packPath, ReadmePath: readmePath, Assets: assets}, nil
}

// copyPackAssets copies the files behind artifact.created file refs into the
// assets directory, named <first-12-of-sha256>_<basename>. Missing or
// unreadable files are skipped, not fatal.
func (s *Service) copyPackAssets(events []*models.Event, assetsDir string) []string {
	assets := make([]string, 0)
	for _, event := range events {
		if event.Type != models.EventTypeArtifactCreated {
			continue
		}
		for _, ref := range event.Refs {
			if !strings.HasPrefix(ref.URI, "file:") {
				continue
			}
			src := strings.TrimPrefix(ref.URI, "file:")
			data, err := os.ReadFile(src)
			if err != nil {
				continue
			}
			digest := sha256.Sum256(data)
			name := hex.EncodeToString(digest[:])[:12] + "_" + filepath.Base(src)
			dest := filepath.Join(assetsDir, name)
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				s.logger.Warn().Str("src", src).Err(err).Msg("Asset copy failed, skipping")
				continue
			}
			assets = append(assets, dest)
		}
	}
	return assets
}

// packReadme renders the pack summary: total count plus up to 20 item lines.
func packReadme(tag string, events []*models.Event) string {
	lines := []string{
		"# Artifact Pack " + tag,
		"",
		fmt.Sprintf("Total items: %d", len(events)),
		"",
	}
	for i, event := range events {
		if i == 20 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s %s %s", event.ID, event.Type, event.TS))
	}
	return strings.Join(lines, "\n") + "\n"
}

// writePrettyJSON writes v as 2-space indented JSON with non-ASCII and HTML
// characters left unescaped.
func writePrettyJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return common.IOError(err, "cannot serialize %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return common.IOError(err, "cannot write %s", path)
	}
	return nil
}
