package state_test

import (
	"sync"
	"testing"
	"time"

	"codeberg.org/sorrel/hatctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	now := time.Unix(1000, 0)
	store := state.New(now)

	snap := store.Read()
	assert.Equal(t, state.DeviceStatus, snap.DisplayMode)
	assert.Equal(t, state.FanDefault, snap.FanMode)
	assert.Equal(t, state.DefaultFanDuty, snap.FanDuty)
	assert.Equal(t, state.DefaultBrightness, snap.Brightness)
	assert.Equal(t, now, snap.LastInteraction)
}

func TestReadIdempotent(t *testing.T) {
	store := state.New(time.Unix(1000, 0))

	first := store.Read()
	second := store.Read()
	assert.Equal(t, first, second, "read with no intervening update must be identical")
}

func TestUpdateVisible(t *testing.T) {
	store := state.New(time.Unix(1000, 0))

	store.Update(func(s *state.Snapshot) {
		s.DisplayMode = s.DisplayMode.Toggle()
		s.Metrics.CPUPercent.Value = 42
		s.Metrics.CPUPercent.Valid = true
	})

	snap := store.Read()
	assert.Equal(t, state.StorageFocus, snap.DisplayMode)
	require.True(t, snap.Metrics.CPUPercent.Valid)
	assert.InDelta(t, 42.0, snap.Metrics.CPUPercent.Value, 0.001)
}

func TestPercentagesClamped(t *testing.T) {
	store := state.New(time.Unix(1000, 0))

	store.Update(func(s *state.Snapshot) {
		s.FanDuty = 150
		s.Brightness = -5
	})

	snap := store.Read()
	assert.Equal(t, 100, snap.FanDuty)
	assert.Equal(t, 0, snap.Brightness)
}

func TestToggles(t *testing.T) {
	assert.Equal(t, state.StorageFocus, state.DeviceStatus.Toggle())
	assert.Equal(t, state.DeviceStatus, state.StorageFocus.Toggle())
	assert.Equal(t, state.FanTurbo, state.FanDefault.Toggle())
	assert.Equal(t, state.FanDefault, state.FanTurbo.Toggle())
}

func TestConcurrentAccess(t *testing.T) {
	store := state.New(time.Unix(1000, 0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				store.Update(func(s *state.Snapshot) {
					s.FanDuty = (s.FanDuty + 1) % 101
				})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				snap := store.Read()
				assert.GreaterOrEqual(t, snap.FanDuty, 0)
				assert.LessOrEqual(t, snap.FanDuty, 100)
			}
		}()
	}
	wg.Wait()
}
