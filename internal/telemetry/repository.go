package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/sorrel/hatctl/internal/errors"
	"codeberg.org/sorrel/hatctl/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

type Repository interface {
	Store(ctx context.Context, entry *Entry) error
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing telemetry repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func (r *sqliteRepository) Store(ctx context.Context, entry *Entry) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO history (
            timestamp, temperature, temp_valid,
            fan_duty, target_duty, fan_mode, display_mode,
            cpu_percent, ram_percent
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(timestamp) DO UPDATE SET
            temperature = excluded.temperature,
            temp_valid = excluded.temp_valid,
            fan_duty = excluded.fan_duty,
            target_duty = excluded.target_duty,
            fan_mode = excluded.fan_mode,
            display_mode = excluded.display_mode,
            cpu_percent = excluded.cpu_percent,
            ram_percent = excluded.ram_percent
    `,
		entry.Timestamp.Unix(),
		entry.Temperature,
		boolToInt(entry.TempValid),
		entry.FanDuty,
		entry.TargetDuty,
		entry.FanMode,
		entry.DisplayMode,
		entry.CPUPercent,
		entry.RAMPercent,
	)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}
