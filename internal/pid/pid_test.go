package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "fridgebench.pid")

	require.NoError(t, Write(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	// Rewriting our own entry is allowed.
	require.NoError(t, Write(path))

	require.NoError(t, Remove(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, Remove(path))
}

func TestWriteRefusesLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fridgebench.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := Write(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))

	// Someone else's file is left alone.
	require.NoError(t, Remove(path))
	assert.FileExists(t, path)
}

func TestWriteReplacesStaleEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fridgebench.pid")

	for _, stale := range []string{"garbage", "", "-4"} {
		require.NoError(t, os.WriteFile(path, []byte(stale), 0o600))
		require.NoError(t, Write(path), "content %q", stale)
	}
}

func TestPathDefault(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), "fridgebench.pid"), Path(""))
	assert.Equal(t, "/run/x.pid", Path("/run/x.pid"))
}
