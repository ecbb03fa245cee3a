package telemetry

import "codeberg.org/sorrel/hatctl/internal/errors"

const defaultDirPerm = 0o755

type Config struct {
	Enabled bool
	DBPath  string
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
