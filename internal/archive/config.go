package archive

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/fridgebench/archive.db"
	defaultBatchSize    = 20
	defaultBatchTimeout = 30 * time.Second
	// Failed writes keep at most this many batches buffered.
	bufferedBatches = 10
)

type Config struct {
	Enabled         bool
	DBPath          string
	BackupDir       string
	BackupOnMigrate bool
	// BatchSize samples are buffered before a write; BatchTimeout bounds how long they wait.
	BatchSize    int
	BatchTimeout time.Duration
	// MaxBuffered caps the samples held while writes fail; the oldest are dropped beyond it.
	// Zero means ten batches.
	MaxBuffered int
}

func DefaultConfig() Config {
	return Config{
		Enabled:         false, // Disabled by default
		DBPath:          defaultDBPath,
		BackupOnMigrate: true,
		BatchSize:       defaultBatchSize,
		BatchTimeout:    defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if the archive is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 || c.MaxBuffered < 0 {
		return errFactory.New(ErrInvalidConfig).WithData(struct {
			BatchSize    int
			BatchTimeout time.Duration
			MaxBuffered  int
		}{c.BatchSize, c.BatchTimeout, c.MaxBuffered})
	}
	return nil
}

func (c Config) maxBuffered() int {
	batch := max(c.BatchSize, 1)
	if c.MaxBuffered > 0 {
		return max(c.MaxBuffered, batch)
	}
	return bufferedBatches * batch
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}
