package sqlite

import (
	"context"
	"database/sql"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
)

// JobStorage implements interfaces.JobStorage for SQLite
type JobStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// CreateJob registers a job definition. Duplicate names are a validation
// error; use UpsertJob to refresh file-defined jobs.
func (s *JobStorage) CreateJob(ctx context.Context, job *models.Job) error {
	var exists int
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT 1 FROM jobs WHERE name = ?`, job.Name).Scan(&exists)
	if err == nil {
		return common.ValidationError("job already exists: %s", job.Name)
	}
	if err != sql.ErrNoRows {
		return common.DatabaseError(err, "check job %s", job.Name)
	}

	return s.writeJob(ctx, job, false)
}

// UpsertJob creates or refreshes a job definition, keeping the original
// created_at on update.
func (s *JobStorage) UpsertJob(ctx context.Context, job *models.Job) error {
	return s.writeJob(ctx, job, true)
}

func (s *JobStorage) writeJob(ctx context.Context, job *models.Job, upsert bool) error {
	config := job.Config
	if config == nil {
		config = map[string]any{}
	}
	configJSON, err := encodeJSON(config)
	if err != nil {
		return common.DatabaseError(err, "marshal config for job %s", job.Name)
	}

	enabled := 0
	if job.Enabled {
		enabled = 1
	}

	query := `
		INSERT INTO jobs (name, kind, config_json, enabled, created_at)
		VALUES (?, ?, ?, ?, ?)`
	if upsert {
		query += `
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			config_json = excluded.config_json,
			enabled = excluded.enabled`
	}

	if _, err := s.db.DB().ExecContext(ctx, query,
		job.Name, job.Kind, configJSON, enabled, job.CreatedAt,
	); err != nil {
		return common.DatabaseError(err, "save job %s", job.Name)
	}

	s.logger.Info().
		Str("name", job.Name).
		Str("kind", job.Kind).
		Bool("enabled", job.Enabled).
		Msg("Job saved")

	return nil
}

// GetJob retrieves a job definition by name
func (s *JobStorage) GetJob(ctx context.Context, name string) (*models.Job, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT name, kind, config_json, enabled, created_at
		FROM jobs WHERE name = ?`, name)

	job, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.NotFoundError("job not found: %s", name)
	}
	if err != nil {
		return nil, common.DatabaseError(err, "get job %s", name)
	}

	return job, nil
}

// ListJobs retrieves all job definitions in name order
func (s *JobStorage) ListJobs(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT name, kind, config_json, enabled, created_at
		FROM jobs ORDER BY name`)
	if err != nil {
		return nil, common.DatabaseError(err, "list jobs")
	}
	defer rows.Close()

	jobs := make([]*models.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, common.DatabaseError(err, "scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(err, "iterate jobs")
	}

	return jobs, nil
}

// DeleteJob removes a job definition and its run history
func (s *JobStorage) DeleteJob(ctx context.Context, name string) error {
	result, err := s.db.DB().ExecContext(ctx, `DELETE FROM jobs WHERE name = ?`, name)
	if err != nil {
		return common.DatabaseError(err, "delete job %s", name)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return common.DatabaseError(err, "delete job %s", name)
	}
	if affected == 0 {
		return common.NotFoundError("job not found: %s", name)
	}

	s.logger.Info().Str("name", name).Msg("Job deleted")
	return nil
}

// InsertRun records the start of a job run
func (s *JobStorage) InsertRun(ctx context.Context, run *models.JobRun) error {
	if _, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO job_runs (id, job_name, started_at, status)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.JobName, run.StartedAt, run.Status,
	); err != nil {
		return common.DatabaseError(err, "insert run for job %s", run.JobName)
	}
	return nil
}

// FinishRun records the terminal state of a job run
func (s *JobStorage) FinishRun(ctx context.Context, run *models.JobRun) error {
	var outputJSON sql.NullString
	if run.Output != nil {
		encoded, err := encodeJSON(run.Output)
		if err != nil {
			return common.DatabaseError(err, "marshal output for run %s", run.ID)
		}
		outputJSON = sql.NullString{String: encoded, Valid: true}
	}

	var finishedAt, errMsg sql.NullString
	if run.FinishedAt != nil {
		finishedAt = sql.NullString{String: *run.FinishedAt, Valid: true}
	}
	if run.Error != nil {
		errMsg = sql.NullString{String: *run.Error, Valid: true}
	}

	if _, err := s.db.DB().ExecContext(ctx, `
		UPDATE job_runs
		SET finished_at = ?, status = ?, output_json = ?, error = ?
		WHERE id = ?`,
		finishedAt, run.Status, outputJSON, errMsg, run.ID,
	); err != nil {
		return common.DatabaseError(err, "finish run %s", run.ID)
	}

	return nil
}

// GetRun retrieves one job run by id
func (s *JobStorage) GetRun(ctx context.Context, id string) (*models.JobRun, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, job_name, started_at, finished_at, status, output_json, error
		FROM job_runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.NotFoundError("job run not found: %s", id)
	}
	if err != nil {
		return nil, common.DatabaseError(err, "get run %s", id)
	}

	return run, nil
}

// ListRuns retrieves the most recent runs for a job, newest first
func (s *JobStorage) ListRuns(ctx context.Context, jobName string, limit int) ([]*models.JobRun, error) {
	if limit <= 0 {
		limit = models.DefaultQueryLimit
	}

	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, job_name, started_at, finished_at, status, output_json, error
		FROM job_runs WHERE job_name = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`, jobName, limit)
	if err != nil {
		return nil, common.DatabaseError(err, "list runs for job %s", jobName)
	}
	defer rows.Close()

	runs := make([]*models.JobRun, 0)
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, common.DatabaseError(err, "scan run for job %s", jobName)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(err, "iterate runs for job %s", jobName)
	}

	return runs, nil
}

func scanJob(scan func(...any) error) (*models.Job, error) {
	var job models.Job
	var configJSON string
	var enabled int

	if err := scan(&job.Name, &job.Kind, &configJSON, &enabled, &job.CreatedAt); err != nil {
		return nil, err
	}

	if err := decodeJSON(configJSON, &job.Config); err != nil {
		return nil, err
	}
	job.Enabled = enabled == 1

	return &job, nil
}

func scanRun(scan func(...any) error) (*models.JobRun, error) {
	var run models.JobRun
	var finishedAt, outputJSON, errMsg sql.NullString

	if err := scan(&run.ID, &run.JobName, &run.StartedAt, &finishedAt, &run.Status, &outputJSON, &errMsg); err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.String
	}
	if outputJSON.Valid && outputJSON.String != "" {
		if err := decodeJSON(outputJSON.String, &run.Output); err != nil {
			return nil, err
		}
	}
	if errMsg.Valid {
		run.Error = &errMsg.String
	}

	return &run, nil
}
