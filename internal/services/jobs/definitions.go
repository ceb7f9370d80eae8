package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

// DefinitionFile is the TOML shape of <workspace>/jobs/*.toml. A schedule
// merges into the job config so the scheduler finds it alongside ad-hoc
// jobs; Enabled is a pointer to distinguish "unset" (defaults to true) from
// an explicit false.
type DefinitionFile struct {
	Name     string         `toml:"name"`
	Kind     string         `toml:"kind"`
	Schedule string         `toml:"schedule"`
	Enabled  *bool          `toml:"enabled"`
	Config   map[string]any `toml:"config"`
}

// ParseDefinition parses one TOML job definition file.
func ParseDefinition(content []byte) (*DefinitionFile, error) {
	var def DefinitionFile
	if err := toml.Unmarshal(content, &def); err != nil {
		return nil, common.ValidationError("invalid TOML syntax: %v", err)
	}
	return &def, nil
}

// ToJob converts the file shape to the registry model.
func (f *DefinitionFile) ToJob(createdAt string) (*models.Job, error) {
	if f.Name == "" {
		return nil, common.ValidationError("name is required")
	}
	if f.Kind == "" {
		return nil, common.ValidationError("kind is required")
	}

	config := map[string]any{}
	for k, v := range f.Config {
		config[k] = v
	}
	if f.Schedule != "" {
		config["schedule"] = f.Schedule
	}

	enabled := true
	if f.Enabled != nil {
		enabled = *f.Enabled
	}

	return &models.Job{
		Name:      f.Name,
		Kind:      f.Kind,
		Config:    config,
		Enabled:   enabled,
		CreatedAt: createdAt,
	}, nil
}

// LoadDefinitions upserts every <workspace>/jobs/*.toml definition into the
// registry, in filename order. Called at daemon startup. A broken file is
// logged and skipped so one bad definition cannot keep the daemon down;
// created_at survives re-loads of an existing name.
func (s *Service) LoadDefinitions(ctx context.Context) (int, error) {
	pattern := filepath.Join(s.paths.JobDefsDir, "*.toml")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, common.IOError(err, "cannot scan job definitions %s", pattern)
	}
	sort.Strings(matches)

	loaded := 0
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn().Str("path", path).Err(err).Msg("Job definition unreadable, skipping")
			continue
		}
		def, err := ParseDefinition(content)
		if err != nil {
			s.logger.Warn().Str("path", path).Err(err).Msg("Job definition unparseable, skipping")
			continue
		}
		job, err := def.ToJob(common.ISONow(s.config.Location()))
		if err != nil {
			s.logger.Warn().Str("path", path).Err(err).Msg("Job definition invalid, skipping")
			continue
		}
		if err := s.storage.JobStorage().UpsertJob(ctx, job); err != nil {
			return loaded, err
		}
		s.logger.Info().
			Str("name", job.Name).
			Str("kind", job.Kind).
			Str("path", path).
			Msg("Job definition loaded")
		loaded++
	}
	return loaded, nil
}
