package telemetry

import (
	"context"
	"time"
)

// Recorder persists control-loop history. It never feeds state back into
// the loops; the database is history only.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	Close() error
}

// Entry is one fan-loop tick worth of history.
type Entry struct {
	Timestamp   time.Time
	Temperature float64
	TempValid   bool
	FanDuty     int
	TargetDuty  int
	FanMode     string
	DisplayMode string
	CPUPercent  float64
	RAMPercent  float64
}
