package models

// Job is a named job configuration dispatched by kind. Config may carry a
// cron "schedule"; enabled scheduled jobs are registered with the daemon
// scheduler.
type Job struct {
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Config    map[string]any `json:"config"`
	Enabled   bool           `json:"enabled"`
	CreatedAt string         `json:"created_at"`
}

// Registered job kinds.
const (
	JobKindDailyDigest  = "daily_digest"
	JobKindArtifactPack = "artifact_pack"
	JobKindIndexRebuild = "index_rebuild"
)

// Job run statuses.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusFailed  = "failed"
)

// JobRun records one execution of a job. Inserted with status running before
// execution and updated exactly once on completion.
type JobRun struct {
	ID         string         `json:"id"`
	JobName    string         `json:"job_name"`
	StartedAt  string         `json:"started_at"`
	FinishedAt *string        `json:"finished_at"`
	Status     string         `json:"status"`
	Output     map[string]any `json:"outputs"`
	Error      *string        `json:"error"`
}

// Schedule returns the cron expression from config, if any.
func (j *Job) Schedule() string {
	if j.Config == nil {
		return ""
	}
	if s, ok := j.Config["schedule"].(string); ok {
		return s
	}
	return ""
}
