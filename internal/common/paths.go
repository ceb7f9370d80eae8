package common

import (
	"os"
	"path/filepath"
)

// Paths is the resolved workspace layout. All values are absolute.
type Paths struct {
	Workspace    string
	RawChatJSON  string
	CanonicalDir string
	CanonicalLog string
	DaemonLock   string
	WriteLock    string
	IndexDir     string
	IndexDB      string
	ArtifactsDir string
	JobDefsDir   string
	LogsDir      string
}

// ResolvePaths resolves the workspace layout from config.
func (c *Config) ResolvePaths() (Paths, error) {
	ws, err := filepath.Abs(c.Workspace)
	if err != nil {
		return Paths{}, IOError(err, "cannot resolve workspace %s", c.Workspace)
	}
	canonicalDir := filepath.Join(ws, "canonical")
	indexDir := filepath.Join(ws, "index")
	return Paths{
		Workspace:    ws,
		RawChatJSON:  filepath.Join(ws, "raw", "chat_json"),
		CanonicalDir: canonicalDir,
		CanonicalLog: filepath.Join(canonicalDir, "events.jsonl"),
		DaemonLock:   filepath.Join(canonicalDir, ".opsd.lock"),
		WriteLock:    filepath.Join(canonicalDir, ".ops.lock"),
		IndexDir:     indexDir,
		IndexDB:      filepath.Join(indexDir, "brain.sqlite"),
		ArtifactsDir: filepath.Join(ws, "artifacts"),
		JobDefsDir:   filepath.Join(ws, c.Jobs.DefinitionsDir),
		LogsDir:      filepath.Join(ws, "logs"),
	}, nil
}

// EnsureWorkspace creates the workspace directories and an empty canonical
// log if missing.
func (p Paths) EnsureWorkspace() error {
	for _, dir := range []string{p.RawChatJSON, p.CanonicalDir, p.IndexDir, p.ArtifactsDir, p.JobDefsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return IOError(err, "cannot create workspace directory %s", dir)
		}
	}
	f, err := os.OpenFile(p.CanonicalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return IOError(err, "cannot create canonical log %s", p.CanonicalLog)
	}
	return f.Close()
}
