package telemetry

import (
	"database/sql"

	"codeberg.org/sorrel/hatctl/internal/errors"
)

// initSchema initializes the database schema for history data
func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS history (
            timestamp INTEGER PRIMARY KEY,
            temperature REAL,
            temp_valid INTEGER,
            fan_duty INTEGER,
            target_duty INTEGER,
            fan_mode TEXT,
            display_mode TEXT,
            cpu_percent REAL,
            ram_percent REAL
        )
    `)
	if err != nil {
		return errFactory.Wrap(ErrStorageInit, err)
	}

	return nil
}
