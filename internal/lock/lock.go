// Package lock provides the cross-process advisory locks guarding the
// canonical directory: the daemon instance lock and the offline-CLI write
// lock.
package lock

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/ternarybob/opsbrain/internal/common"
)

const (
	// writeLockPollInterval is how often the offline CLI retries the write
	// lock while the daemon or another CLI holds it.
	writeLockPollInterval = 100 * time.Millisecond

	// defaultWriteTimeout bounds the offline wait when OPS_LOCK_TIMEOUT is
	// not set.
	defaultWriteTimeout = 10 * time.Second

	timeoutEnvVar = "OPS_LOCK_TIMEOUT"
)

// FileLock holds an exclusive advisory lock on a path until released.
type FileLock struct {
	flock *flock.Flock
}

// AcquireInstance takes the daemon instance lock without waiting and stamps
// the holder's pid into the file. A second daemon on the same workspace
// fails immediately instead of queueing behind the first.
func AcquireInstance(path string) (*FileLock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, common.IOError(err, "failed to acquire opsd lock %s", path)
	}
	if !locked {
		return nil, common.IOError(nil, "failed to acquire opsd lock %s: held by another process", path)
	}

	if err := os.WriteFile(path, []byte(fmt.Sprintf("pid=%d\n", os.Getpid())), 0o644); err != nil {
		fl.Unlock()
		return nil, common.IOError(err, "failed to write pid to opsd lock %s", path)
	}

	return &FileLock{flock: fl}, nil
}

// AcquireWrite takes the offline write lock, polling until timeout. The
// daemon and offline CLI writers contend on this path so log appends stay
// single-writer across processes.
func AcquireWrite(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	fl := flock.New(path)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, writeLockPollInterval)
	if err != nil {
		if ctx.Err() != nil {
			return nil, common.IOError(nil, "timeout acquiring lock %s", path)
		}
		return nil, common.IOError(err, "failed to acquire lock %s", path)
	}
	if !locked {
		return nil, common.IOError(nil, "timeout acquiring lock %s", path)
	}

	return &FileLock{flock: fl}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *FileLock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Unlock()
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.flock.Path()
}

// WriteTimeout returns the offline write-lock timeout: OPS_LOCK_TIMEOUT in
// seconds when set, 10s otherwise.
func WriteTimeout() time.Duration {
	if v := os.Getenv(timeoutEnvVar); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultWriteTimeout
}
