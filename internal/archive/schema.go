package archive

import (
	"database/sql"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
)

const (
	SchemaVersion = 1

	// Timestamps are unix milliseconds. temperatures is a JSON array with null for missing channels.
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS runs (
	       run_id      TEXT PRIMARY KEY,
	       station_id  INTEGER NOT NULL CHECK (station_id BETWEEN 1 AND 6),
	       model       TEXT NOT NULL,
	       channels    TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       run_id       TEXT NOT NULL REFERENCES runs(run_id),
	       timestamp    INTEGER NOT NULL,
	       temperatures TEXT NOT NULL,
	       voltage      REAL,
	       current      REAL,
	       power        REAL,
	       energy       REAL,
	       PRIMARY KEY (run_id, timestamp)
	   );
	   CREATE INDEX IF NOT EXISTS runs_station ON runs (station_id);`

	insertRunSQL = `
    INSERT OR IGNORE INTO runs (run_id, station_id, model, channels)
    VALUES (?, ?, ?, ?)`

	insertSampleSQL = `
    INSERT OR REPLACE INTO samples (
        run_id, timestamp, temperatures,
        voltage, current, power, energy
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectRunsSQL = `
    SELECT r.run_id, r.station_id, r.model, r.channels,
           COUNT(s.timestamp), COALESCE(MIN(s.timestamp), 0), COALESCE(MAX(s.timestamp), 0)
    FROM runs r
    LEFT JOIN samples s ON s.run_id = r.run_id
    WHERE r.station_id = ?
    GROUP BY r.run_id
    ORDER BY MIN(s.timestamp)`

	selectSamplesSQL = `
    SELECT timestamp, temperatures, voltage, current, power, energy
    FROM samples
    WHERE run_id = ?
    ORDER BY timestamp`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "create_tables",
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Archive schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for an empty database
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
