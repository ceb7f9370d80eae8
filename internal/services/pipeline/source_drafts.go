package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/opsbrain/internal/adapters"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

// BuildSourceDrafts reads a source's chat-JSON file and builds one
// chat.message draft per record, in file order.
func (s *Service) BuildSourceDrafts(source *models.Source, extraTags []string) ([]*models.Draft, error) {
	drafts, _, err := BuildSourceDrafts(s.config, s.paths, source, extraTags)
	return drafts, err
}

// BuildSourceDrafts reads a source's chat-JSON file and builds one
// chat.message draft per record, in file order. When config.copy is true
// (the default) the file is archived under raw/chat_json first and the copy
// becomes the locator, so the log keeps pointing at immutable bytes. The
// resolved locator is returned for reporting. A free function so the offline
// CLI can build drafts without the daemon's storage open.
func BuildSourceDrafts(config *common.Config, paths common.Paths, source *models.Source, extraTags []string) ([]*models.Draft, string, error) {
	pathValue, _ := source.Config["path"].(string)
	if pathValue == "" {
		return nil, "", common.ValidationError("config.path is required")
	}
	sourcePath, err := filepath.Abs(pathValue)
	if err != nil {
		return nil, "", common.IOError(err, "cannot resolve source path %s", pathValue)
	}

	locator := sourcePath
	if sourceCopyEnabled(source.Config) {
		copied, err := CopySource(sourcePath, paths.RawChatJSON)
		if err != nil {
			return nil, "", err
		}
		locator = copied
	}

	records, err := adapters.LoadChatJSON(locator)
	if err != nil {
		return nil, locator, err
	}

	tags := models.NormalizeTags(append(append([]string{}, source.Tags...), extraTags...))

	var mtimeTS string
	drafts := make([]*models.Draft, 0, len(records))
	for idx, record := range records {
		content, ok := record["content"].(string)
		if !ok {
			return nil, locator, common.ValidationError("Missing content at idx %d", idx)
		}

		ts, _ := record["ts"].(string)
		if ts == "" {
			if mtimeTS == "" {
				info, err := os.Stat(locator)
				if err != nil {
					return nil, locator, common.IOError(err, "cannot stat source %s", locator)
				}
				mtimeTS = common.FormatISO(info.ModTime().In(config.Location()))
			}
			ts = mtimeTS
		}

		text := strings.ReplaceAll(content, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")

		payload := map[string]any{
			"speaker": record["speaker"],
			"content": content,
		}
		if threadID, present := record["thread_id"]; present && threadID != nil {
			payload["thread_id"] = threadID
		}

		drafts = append(drafts, &models.Draft{
			SchemaVersion: common.SchemaVersion,
			TS:            ts,
			Type:          models.EventTypeChatMessage,
			Tags:          tags,
			Text:          text,
			Payload:       payload,
			Source: models.SourceInfo{
				Kind:    source.Kind,
				Locator: locator,
				Meta:    map[string]any{},
			},
			Refs: []models.Ref{
				{
					Kind: "file",
					URI:  "file:" + locator,
					Span: map[string]any{"idx": idx},
				},
			},
		})
	}

	return drafts, locator, nil
}

// TestSource checks a source's config.path: exists, is a file, is readable.
// The failure message is the :test response error.
func TestSource(source *models.Source) (map[string]any, error) {
	pathValue, _ := source.Config["path"].(string)
	if pathValue == "" {
		return nil, common.ValidationError("config.path is required")
	}
	abs, err := filepath.Abs(pathValue)
	if err != nil {
		return nil, common.IOError(err, "cannot resolve path %s", pathValue)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ValidationError("Path does not exist: %s", abs)
		}
		return nil, common.IOError(err, "unable to read file")
	}
	if info.IsDir() {
		return nil, common.ValidationError("Path is not a file: %s", abs)
	}

	return map[string]any{"path": abs, "size": info.Size()}, nil
}

// CopySource archives a source file under destDir as
// <first12-of-sha256>_<basename>, preserving the original mtime so
// timestamp fallback stays stable across copies.
func CopySource(path, destDir string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", common.AdapterError(err, "failed to read input")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", common.AdapterError(err, "failed to read input")
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", common.IOError(err, "cannot create raw directory %s", destDir)
	}

	sum := sha256.Sum256(data)
	dest := filepath.Join(destDir, hex.EncodeToString(sum[:])[:12]+"_"+filepath.Base(path))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", common.IOError(err, "cannot copy source to %s", dest)
	}
	if err := os.Chtimes(dest, time.Now(), info.ModTime()); err != nil {
		return "", common.IOError(err, "cannot preserve mtime on %s", dest)
	}

	return dest, nil
}

// sourceCopyEnabled reads config.copy, defaulting to true.
func sourceCopyEnabled(config map[string]any) bool {
	if v, ok := config["copy"].(bool); ok {
		return v
	}
	return true
}
