package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".opsd.lock")

	l, err := AcquireInstance(path)
	require.NoError(t, err)
	defer l.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("pid=%d\n", os.Getpid()), string(data))
}

func TestAcquireInstanceFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".opsd.lock")

	first, err := AcquireInstance(path)
	require.NoError(t, err)
	defer first.Release()

	start := time.Now()
	_, err = AcquireInstance(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "held by another process")
	assert.Less(t, time.Since(start), time.Second, "instance lock must not wait")
}

func TestAcquireInstanceAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".opsd.lock")

	first, err := AcquireInstance(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := AcquireInstance(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestAcquireWriteTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ops.lock")

	holder, err := AcquireWrite(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer holder.Release()

	_, err = AcquireWrite(context.Background(), path, 300*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestAcquireWriteWaitsForHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ops.lock")

	holder, err := AcquireWrite(context.Background(), path, time.Second)
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		time.Sleep(250 * time.Millisecond)
		holder.Release()
		close(released)
	}()

	l, err := AcquireWrite(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	defer l.Release()

	<-released
}

func TestWriteTimeout(t *testing.T) {
	t.Setenv(timeoutEnvVar, "")
	assert.Equal(t, defaultWriteTimeout, WriteTimeout())

	t.Setenv(timeoutEnvVar, "2.5")
	assert.Equal(t, 2500*time.Millisecond, WriteTimeout())

	t.Setenv(timeoutEnvVar, "not-a-number")
	assert.Equal(t, defaultWriteTimeout, WriteTimeout())
}
