package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/query"
)

// runDailyDigest queries one day of events through a saved view and writes a
// markdown summary, optionally rendered to PDF as well. The day is
// interpreted in the workspace timezone.
func (s *Service) runDailyDigest(ctx context.Context, job *models.Job) (map[string]any, error) {
	viewName := configString(job.Config, "view")
	day := configString(job.Config, "day")
	outDir := configString(job.Config, "out_dir")
	if viewName == "" || day == "" || outDir == "" {
		return nil, common.ValidationError("daily_digest requires view, day, and out_dir")
	}

	after, before, err := common.DayWindow(day, s.config.Location())
	if err != nil {
		return nil, err
	}

	view, err := s.storage.ViewStorage().GetView(ctx, viewName)
	if err != nil {
		return nil, err
	}
	filters := query.MergeViewFilters(view, &models.EventFilters{After: after, Before: before})
	filters.Q = ""
	filters.Limit = models.MaxQueryLimit
	filters.Format = models.FormatSummary

	summaries, err := s.query.Summaries(ctx, filters)
	if err != nil {
		return nil, err
	}

	markdown := digestMarkdown(day, summaries)

	dir := s.resolveOutDir(outDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, common.IOError(err, "cannot create digest directory %s", dir)
	}
	digestPath := filepath.Join(dir, "daily_digest.md")
	if err := os.WriteFile(digestPath, []byte(markdown), 0o644); err != nil {
		return nil, common.IOError(err, "cannot write digest %s", digestPath)
	}

	refs := []models.Ref{{Kind: "file", URI: "file:" + digestPath}}
	artifactPaths := []string{digestPath}

	if configBool(job.Config, "pdf") {
		pdfPath := filepath.Join(dir, "daily_digest.pdf")
		if err := s.renderer.RenderMarkdown([]byte(markdown), pdfPath); err != nil {
			return nil, err
		}
		refs = append(refs, models.Ref{Kind: "file", URI: "file:" + pdfPath})
		artifactPaths = append(artifactPaths, pdfPath)
	}

	tags := models.NormalizeTags(append([]string{"digest"}, configStrings(job.Config, "tags")...))
	payload := map[string]any{"path": digestPath, "job": job.Name}
	if _, err := s.pipeline.EmitArtifact(ctx, refs, tags, payload); err != nil {
		return nil, err
	}

	return map[string]any{"artifact_paths": artifactPaths}, nil
}

// digestMarkdown renders the digest body: counts by type, the ten most
// frequent tags, and up to ten sample snippets.
func digestMarkdown(day string, summaries []*models.EventSummary) string {
	types := newCounter()
	tags := newCounter()
	for _, item := range summaries {
		types.add(item.Type)
		for _, tag := range item.Tags {
			tags.add(tag)
		}
	}

	lines := []string{
		"# Daily Digest " + day,
		"",
		"## Counts by type",
	}
	for _, typ := range types.mostCommon(0) {
		lines = append(lines, fmt.Sprintf("- %s: %d", typ, types.count(typ)))
	}
	lines = append(lines, "", "## Top tags")
	for _, tag := range tags.mostCommon(10) {
		lines = append(lines, fmt.Sprintf("- %s: %d", tag, tags.count(tag)))
	}
	lines = append(lines, "", "## Sample snippets")
	taken := 0
	for _, item := range summaries {
		if item.Snippet == "" {
			continue
		}
		lines = append(lines, "- "+item.Snippet)
		taken++
		if taken == 10 {
			break
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// counter tallies keys preserving first-seen order, so equal counts render
// in encounter order.
type counter struct {
	keys   []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key]++
}

func (c *counter) count(key string) int {
	return c.counts[key]
}

// mostCommon returns keys by count descending, first-seen order breaking
// ties. A non-positive n returns all keys.
func (c *counter) mostCommon(n int) []string {
	out := append([]string(nil), c.keys...)
	sort.SliceStable(out, func(i, j int) bool {
		return c.counts[out[i]] > c.counts[out[j]]
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
