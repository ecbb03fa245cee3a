package monitor

import "context"

// Source produces metric snapshots for the control loops. Implementations
// may return partial data; absent samples are marked invalid rather than
// failing the poll.
type Source interface {
	Poll(ctx context.Context) (Metrics, error)
}

// Sample is a metric value that may be unavailable this cycle.
type Sample struct {
	Value float64
	Valid bool
}

func sampleOf(v float64) Sample {
	return Sample{Value: v, Valid: true}
}

// RAIDState reports the aggregate health of the md array, if any.
type RAIDState int

const (
	RAIDUnknown RAIDState = iota
	RAIDNone
	RAIDActive
	RAIDDegraded
)

func (s RAIDState) String() string {
	switch s {
	case RAIDNone:
		return "none"
	case RAIDActive:
		return "active"
	case RAIDDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// DiskStat describes one of the two data disks.
type DiskStat struct {
	Device      string
	UsedPercent Sample
	Temperature Sample
}

// Metrics is one telemetry snapshot. The control core only depends on
// CPUTemp; everything else feeds the renderer.
type Metrics struct {
	CPUPercent Sample
	RAMPercent Sample
	CPUTemp    Sample
	NetRxBps   Sample
	NetTxBps   Sample
	Disks      [2]DiskStat
	RAID       RAIDState
	IPAddress  string
}
