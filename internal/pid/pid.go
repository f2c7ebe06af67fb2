// Package pid guards against two processes driving the same instruments.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/fridgebench/internal/errors"
)

const (
	pidFile = "fridgebench.pid"
)

// Path returns path, or the default PID file in the temp dir when path is empty.
func Path(path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(os.TempDir(), pidFile)
}

// Write writes the current process ID to the PID file at path. It fails with ErrAlreadyRunning
// when the file names another live process; a stale or unreadable entry is overwritten.
func Write(path string) error {
	errFactory := errors.New()
	path = Path(path)

	if other, ok := readPID(path); ok && other != os.Getpid() && alive(other) {
		return errFactory.New(errors.ErrAlreadyRunning).WithData(struct {
			Path string
			PID  int
		}{path, other})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file if it still belongs to this process.
func Remove(path string) error {
	errFactory := errors.New()
	path = Path(path)

	if owner, ok := readPID(path); !ok || owner != os.Getpid() {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func readPID(path string) (int, bool) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// EPERM means the process exists under another user.
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
