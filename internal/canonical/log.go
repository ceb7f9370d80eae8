package canonical

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

// Log is the append-only JSONL canonical event log. The fsynced append is
// the commit point of record; the index is regenerable from it.
type Log struct {
	path string
}

// NewLog returns a log over path. The file is created on first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append serializes the complete event as one canonical JSON line (sorted
// keys, UTF-8 unescaped), appends it and fsyncs before returning.
func (l *Log) Append(ev *models.Event) error {
	line, err := MarshalCanonical(FullEventMap(ev))
	if err != nil {
		return common.IOError(err, "cannot serialize event %s", ev.ID)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return common.IOError(err, "cannot open canonical log %s", l.path)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return common.IOError(err, "cannot append to canonical log %s", l.path)
	}
	if err := f.Sync(); err != nil {
		return common.IOError(err, "cannot fsync canonical log %s", l.path)
	}
	return nil
}

// Scan replays the log in file order, calling fn for each well-formed event
// line. Blank lines are tolerated; malformed lines are counted, not fatal.
// Returns the number of non-blank lines and the number of parse failures.
func (l *Log) Scan(fn func(ev *models.Event) error) (lines int, parseErrors int, err error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, common.IOError(err, "cannot open canonical log %s", l.path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines++

		var ev models.Event
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&ev); err != nil {
			parseErrors++
			continue
		}
		if err := fn(&ev); err != nil {
			return lines, parseErrors, err
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, parseErrors, common.IOError(err, "cannot read canonical log %s", l.path)
	}
	return lines, parseErrors, nil
}

// LineCount reports the number of non-blank lines. Used by dedupe
// idempotence checks.
func (l *Log) LineCount() (int, error) {
	n, _, err := l.Scan(func(*models.Event) error { return nil })
	return n, err
}
