package render

import (
	"image/color"
	"testing"
	"time"

	"codeberg.org/sorrel/hatctl/internal/monitor"
	"codeberg.org/sorrel/hatctl/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer() *Renderer {
	r := New()
	r.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func fullSnapshot(mode state.DisplayMode) state.Snapshot {
	m := monitor.Metrics{
		CPUPercent: monitor.Sample{Value: 42, Valid: true},
		RAMPercent: monitor.Sample{Value: 61, Valid: true},
		CPUTemp:    monitor.Sample{Value: 55, Valid: true},
		NetRxBps:   monitor.Sample{Value: 12 * 1024, Valid: true},
		NetTxBps:   monitor.Sample{Value: 3 * 1024 * 1024, Valid: true},
		RAID:       monitor.RAIDActive,
		IPAddress:  "192.168.1.20",
	}
	m.Disks[0] = monitor.DiskStat{
		Device:      "sda",
		UsedPercent: monitor.Sample{Value: 70, Valid: true},
		Temperature: monitor.Sample{Value: 36, Valid: true},
	}
	m.Disks[1] = monitor.DiskStat{Device: "sdb"}

	return state.Snapshot{
		Metrics:     m,
		DisplayMode: mode,
		FanMode:     state.FanDefault,
		FanDuty:     40,
		Brightness:  100,
	}
}

func countNonBackground(t *testing.T, snap state.Snapshot) int {
	t.Helper()

	frame := testRenderer().Render(snap)
	require.NotNil(t, frame)

	bounds := frame.Bounds()
	require.Equal(t, Width, bounds.Dx())
	require.Equal(t, Height, bounds.Dy())

	count := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if frame.RGBAAt(x, y) != (color.RGBA{0, 0, 0, 255}) {
				count++
			}
		}
	}
	return count
}

func TestRenderDevicePage(t *testing.T) {
	painted := countNonBackground(t, fullSnapshot(state.DeviceStatus))
	assert.Greater(t, painted, 500, "device page should paint text and gauges")
}

func TestRenderStoragePage(t *testing.T) {
	painted := countNonBackground(t, fullSnapshot(state.StorageFocus))
	assert.Greater(t, painted, 500, "storage page should paint text and gauges")
}

func TestRenderEmptyMetrics(t *testing.T) {
	// All samples invalid: the frame must still compose, with
	// placeholders instead of values.
	snap := state.Snapshot{
		DisplayMode: state.DeviceStatus,
		FanMode:     state.FanTurbo,
		FanDuty:     100,
	}

	painted := countNonBackground(t, snap)
	assert.Greater(t, painted, 100, "placeholders should still be painted")
}

func TestPagesDiffer(t *testing.T) {
	device := testRenderer().Render(fullSnapshot(state.DeviceStatus))
	storage := testRenderer().Render(fullSnapshot(state.StorageFocus))

	assert.NotEqual(t, device.Pix, storage.Pix, "pages must compose differently")
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "--", formatRate(monitor.Sample{}))
	assert.Equal(t, "512B/s", formatRate(monitor.Sample{Value: 512, Valid: true}))
	assert.Equal(t, "12KB/s", formatRate(monitor.Sample{Value: 12 * 1024, Valid: true}))
	assert.Equal(t, "3.0MB/s", formatRate(monitor.Sample{Value: 3 * 1024 * 1024, Valid: true}))
}

func TestFormatTemp(t *testing.T) {
	assert.Equal(t, "--", formatTemp(monitor.Sample{}))
	assert.Equal(t, "55C", formatTemp(monitor.Sample{Value: 55.2, Valid: true}))
}
