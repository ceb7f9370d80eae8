package jobs

import (
	"context"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/models"
)

// RunIndexRebuild replays the canonical log into the index. An empty logPath
// replays the workspace log; wipe clears the index first; fts resyncs the
// FTS table afterwards. Lines whose id is already indexed are skipped.
// Malformed lines and failed inserts are counted as parse errors, not fatal.
// Chat events whose lines predate the dedupe_key field get their key
// recomputed so replayed logs still populate the dedupe table.
func (s *Service) RunIndexRebuild(ctx context.Context, logPath string, wipe, fts bool) (*models.RebuildCounts, error) {
	if logPath == "" {
		logPath = s.paths.CanonicalLog
	}

	if wipe {
		if err := s.storage.EventStorage().Wipe(ctx); err != nil {
			return nil, err
		}
	}

	counts := &models.RebuildCounts{}
	eventLog := canonical.NewLog(logPath)
	lines, parseErrors, err := eventLog.Scan(func(ev *models.Event) error {
		exists, err := s.storage.EventStorage().EventExists(ctx, ev.ID)
		if err != nil {
			return err
		}
		if exists {
			counts.Skipped++
			return nil
		}

		if ev.DedupeKey == nil {
			if key, ok := canonical.DedupeKeyForEvent(ev); ok {
				ev.DedupeKey = &key
			}
		}

		if err := s.storage.EventStorage().InsertEvent(ctx, ev); err != nil {
			s.logger.Warn().
				Str("event_id", ev.ID).
				Err(err).
				Msg("Replay insert failed, skipping line")
			counts.ParseErrors++
			return nil
		}
		counts.Inserted++
		return nil
	})
	if err != nil {
		return nil, err
	}
	counts.Processed = lines
	counts.ParseErrors += parseErrors

	if fts {
		if err := s.storage.EventStorage().RebuildFTS(ctx); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Str("log", logPath).
		Int("processed", counts.Processed).
		Int("inserted", counts.Inserted).
		Int("skipped", counts.Skipped).
		Int("parse_errors", counts.ParseErrors).
		Msg("Index rebuild complete")

	return counts, nil
}
