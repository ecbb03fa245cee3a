// Package state holds the single in-process state shared by the control
// loops. All access goes through Read and Update; no loop may hold the
// lock across blocking I/O.
package state

import (
	"sync"
	"time"

	"codeberg.org/sorrel/hatctl/internal/monitor"
)

// DisplayMode selects which page the renderer composes.
type DisplayMode int

const (
	DeviceStatus DisplayMode = iota
	StorageFocus
)

func (m DisplayMode) String() string {
	if m == StorageFocus {
		return "storage"
	}
	return "device"
}

// Toggle returns the other display mode.
func (m DisplayMode) Toggle() DisplayMode {
	if m == DeviceStatus {
		return StorageFocus
	}
	return DeviceStatus
}

// FanMode selects the active fan policy.
type FanMode int

const (
	FanDefault FanMode = iota
	FanTurbo
)

func (m FanMode) String() string {
	if m == FanTurbo {
		return "turbo"
	}
	return "default"
}

// Toggle returns the other fan mode.
func (m FanMode) Toggle() FanMode {
	if m == FanDefault {
		return FanTurbo
	}
	return FanDefault
}

const (
	DefaultFanDuty    = 35
	DefaultBrightness = 100
)

// Snapshot is a consistent copy of the shared state. Metrics may be one
// telemetry period stale by design.
type Snapshot struct {
	Metrics         monitor.Metrics
	DisplayMode     DisplayMode
	FanMode         FanMode
	FanDuty         int
	Brightness      int
	LastInteraction time.Time
}

// Store owns the snapshot and synchronizes access to it.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// New returns a store with startup defaults. The last-interaction clock
// starts at now so the display begins at full brightness.
func New(now time.Time) *Store {
	return &Store{
		snap: Snapshot{
			DisplayMode:     DeviceStatus,
			FanMode:         FanDefault,
			FanDuty:         DefaultFanDuty,
			Brightness:      DefaultBrightness,
			LastInteraction: now,
		},
	}
}

// Read returns an atomically-read copy of all fields.
func (s *Store) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Update applies a single mutation under exclusive access. The mutator
// must not block; compute first, commit here.
func (s *Store) Update(mutate func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.snap)
	s.snap.FanDuty = clampPercent(s.snap.FanDuty)
	s.snap.Brightness = clampPercent(s.snap.Brightness)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
