// Package scheduler runs enabled jobs that carry a cron schedule in their
// config. The daemon starts one scheduler at boot and reloads it after job
// CRUD so the cron table mirrors the registry.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/services/jobs"
)

// Service owns the cron runner. Scheduled runs take the daemon write mutex,
// the same lock the mutating HTTP handlers hold, so a cron firing cannot
// interleave with a request-driven write.
type Service struct {
	jobs    *jobs.Service
	writeMu *sync.Mutex
	logger  arbor.ILogger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	running bool
}

// NewService creates the scheduler. Cron expressions evaluate in the
// workspace timezone.
func NewService(jobsSvc *jobs.Service, config *common.Config, writeMu *sync.Mutex, logger arbor.ILogger) *Service {
	return &Service{
		jobs:    jobsSvc,
		writeMu: writeMu,
		logger:  logger,
		cron:    cron.New(cron.WithLocation(config.Location())),
		entries: map[string]cron.EntryID{},
	}
}

// Start registers every enabled job carrying a schedule and starts the
// runner.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return common.GenericError(nil, "scheduler already running")
	}
	if err := s.register(ctx); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("jobs", len(s.entries)).Msg("Scheduler started")
	return nil
}

// Stop halts the runner, waiting for an in-flight run to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// Reload re-reads the registry and swaps the cron table. Called after job
// create/delete and definition loads.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	return s.register(ctx)
}

// Scheduled lists the job names with a live cron entry, sorted by nothing in
// particular.
func (s *Service) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// register must be called with s.mu held.
func (s *Service) register(ctx context.Context) error {
	list, err := s.jobs.ListJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range list {
		if !job.Enabled {
			continue
		}
		expr := job.Schedule()
		if expr == "" {
			continue
		}
		name := job.Name
		id, err := s.cron.AddFunc(expr, func() { s.runJob(name) })
		if err != nil {
			s.logger.Warn().
				Str("job", name).
				Str("schedule", expr).
				Err(err).
				Msg("Invalid schedule, job not registered")
			continue
		}
		s.entries[name] = id
		s.logger.Info().
			Str("job", name).
			Str("schedule", expr).
			Msg("Job scheduled")
	}
	return nil
}

func (s *Service) runJob(name string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	run, err := s.jobs.Run(context.Background(), name)
	if err != nil {
		s.logger.Warn().Str("job", name).Err(err).Msg("Scheduled run could not start")
		return
	}
	s.logger.Info().
		Str("job", name).
		Str("run_id", run.ID).
		Str("status", run.Status).
		Msg("Scheduled run finished")
}
