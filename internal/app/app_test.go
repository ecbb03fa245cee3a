package app

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/sorrel/hatctl/internal/backlight"
	"codeberg.org/sorrel/hatctl/internal/config"
	"codeberg.org/sorrel/hatctl/internal/errors"
	"codeberg.org/sorrel/hatctl/internal/fan"
	"codeberg.org/sorrel/hatctl/internal/monitor"
	"codeberg.org/sorrel/hatctl/internal/render"
	"codeberg.org/sorrel/hatctl/internal/state"
	"codeberg.org/sorrel/hatctl/internal/telemetry"
)

type fakeSource struct {
	mu      sync.Mutex
	metrics monitor.Metrics
}

func (f *fakeSource) Poll(_ context.Context) (monitor.Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics, nil
}

type fakeDisplay struct {
	mu         sync.Mutex
	presents   int
	brightness int
	presentErr error
}

func (f *fakeDisplay) Present(_ *image.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presentErr != nil {
		return f.presentErr
	}
	f.presents++
	return nil
}

func (f *fakeDisplay) SetBrightness(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brightness = percent
	return nil
}

func (f *fakeDisplay) stats() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presents, f.brightness
}

type fakeFan struct {
	mu     sync.Mutex
	duties []int
	err    error
}

func (f *fakeFan) SetDuty(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duties = append(f.duties, percent)
	return f.err
}

func (f *fakeFan) written() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.duties))
	copy(out, f.duties)
	return out
}

type fakeButton struct {
	mu    sync.Mutex
	level bool
}

func (f *fakeButton) Read() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *fakeButton) set(level bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
}

func testConfig() *config.Config {
	return &config.Config{
		Interface:         "eth0",
		Disks:             []string{"sda", "sdb"},
		RenderInterval:    5 * time.Millisecond,
		TelemetryInterval: 5 * time.Millisecond,
		FanInterval:       5 * time.Millisecond,
		ButtonInterval:    time.Millisecond,
	}
}

func validTemp(temp float64) monitor.Metrics {
	return monitor.Metrics{
		CPUTemp: monitor.Sample{Value: temp, Valid: true},
	}
}

type harness struct {
	app     *App
	source  *fakeSource
	display *fakeDisplay
	fan     *fakeFan
	button  *fakeButton
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()

	recorder, err := telemetry.NewService(telemetry.Config{})
	require.NoError(t, err)

	h := &harness{
		source:  &fakeSource{},
		display: &fakeDisplay{},
		fan:     &fakeFan{},
		button:  &fakeButton{},
	}
	h.app = New(cfg, Deps{
		Source:   h.source,
		Display:  h.display,
		Fan:      h.fan,
		Button:   h.button,
		Recorder: recorder,
		Renderer: render.New(),
	})

	return h
}

// fakeClock lets ticks be driven manually with arbitrary time steps.
func (h *harness) fakeClock(start time.Time) *time.Time {
	now := start
	h.app.now = func() time.Time { return now }
	return &now
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, testConfig())
	h.source.metrics = validTemp(70)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.app.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	presents, _ := h.display.stats()
	assert.Positive(t, presents)
	assert.NotEmpty(t, h.fan.written())
}

func TestFanTickAppliesPolicy(t *testing.T) {
	h := newHarness(t, testConfig())
	h.app.store.Update(func(s *state.Snapshot) {
		s.Metrics = validTemp(70)
	})

	require.NoError(t, h.app.fanTick(context.Background()))

	written := h.fan.written()
	require.Len(t, written, 1)
	assert.Equal(t, fan.DefaultPolicy.Target(70), written[0])
	assert.Equal(t, written[0], h.app.State().FanDuty)
}

func TestFanTickHoldsDutyWithoutSensor(t *testing.T) {
	h := newHarness(t, testConfig())

	require.NoError(t, h.app.fanTick(context.Background()))

	assert.Empty(t, h.fan.written())
	assert.Equal(t, state.DefaultFanDuty, h.app.State().FanDuty)
}

func TestFanTickFatalAfterConsecutiveFailures(t *testing.T) {
	h := newHarness(t, testConfig())
	h.fan.err = assert.AnError
	h.app.store.Update(func(s *state.Snapshot) {
		s.Metrics = validTemp(70)
	})

	ctx := context.Background()
	require.NoError(t, h.app.fanTick(ctx))
	require.NoError(t, h.app.fanTick(ctx))

	err := h.app.fanTick(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrFanBusFatal))

	// The final write attempt latches the fan at the mode maximum.
	written := h.fan.written()
	require.NotEmpty(t, written)
	assert.Equal(t, fan.DefaultPolicy.DutyMax, written[len(written)-1])
}

func TestFanTickRecoveryResetsFailureCount(t *testing.T) {
	h := newHarness(t, testConfig())
	h.fan.err = assert.AnError
	h.app.store.Update(func(s *state.Snapshot) {
		s.Metrics = validTemp(70)
	})

	ctx := context.Background()
	require.NoError(t, h.app.fanTick(ctx))
	require.NoError(t, h.app.fanTick(ctx))

	h.fan.err = nil
	require.NoError(t, h.app.fanTick(ctx))
	require.Zero(t, h.app.fanFailures)

	h.fan.err = assert.AnError
	require.NoError(t, h.app.fanTick(ctx))
	require.NoError(t, h.app.fanTick(ctx))
	assert.Error(t, h.app.fanTick(ctx))
}

func TestMonitorModeSkipsFanWrites(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor = true
	h := newHarness(t, cfg)
	h.app.store.Update(func(s *state.Snapshot) {
		s.Metrics = validTemp(90)
	})

	require.NoError(t, h.app.fanTick(context.Background()))

	assert.Empty(t, h.fan.written())
}

func TestShortPressTogglesDisplayPage(t *testing.T) {
	h := newHarness(t, testConfig())
	clock := h.fakeClock(time.Now())
	ctx := context.Background()

	h.button.set(true)
	require.NoError(t, h.app.inputTick(ctx))

	*clock = clock.Add(600 * time.Millisecond)
	h.button.set(false)
	require.NoError(t, h.app.inputTick(ctx))

	snap := h.app.State()
	assert.Equal(t, state.StorageFocus, snap.DisplayMode)
	assert.Equal(t, state.FanDefault, snap.FanMode)
	assert.Equal(t, *clock, snap.LastInteraction)
}

func TestLongPressTogglesFanMode(t *testing.T) {
	h := newHarness(t, testConfig())
	clock := h.fakeClock(time.Now())
	ctx := context.Background()

	h.button.set(true)
	require.NoError(t, h.app.inputTick(ctx))

	*clock = clock.Add(2 * time.Second)
	require.NoError(t, h.app.inputTick(ctx))

	snap := h.app.State()
	assert.Equal(t, state.FanTurbo, snap.FanMode)
	assert.Equal(t, state.DeviceStatus, snap.DisplayMode)

	// A release after the long press fires must not toggle anything else.
	*clock = clock.Add(time.Second)
	h.button.set(false)
	require.NoError(t, h.app.inputTick(ctx))
	assert.Equal(t, state.FanTurbo, h.app.State().FanMode)
	assert.Equal(t, state.DeviceStatus, h.app.State().DisplayMode)
}

func TestFanModeToggleAppliesNextFanTick(t *testing.T) {
	h := newHarness(t, testConfig())
	h.app.store.Update(func(s *state.Snapshot) {
		s.Metrics = validTemp(70)
		s.FanMode = state.FanTurbo
	})

	require.NoError(t, h.app.fanTick(context.Background()))

	written := h.fan.written()
	require.Len(t, written, 1)
	assert.Equal(t, fan.TurboPolicy.Target(70), written[0])
	assert.Equal(t, state.FanTurbo, h.app.controller.Mode())
}

func TestRenderTickDimsAfterIdleTimeout(t *testing.T) {
	h := newHarness(t, testConfig())
	start := h.app.State().LastInteraction
	clock := h.fakeClock(start.Add(backlight.DimAfter + time.Second))

	require.NoError(t, h.app.renderTick(context.Background()))

	_, brightness := h.display.stats()
	assert.Equal(t, backlight.DimmedBrightness, brightness)
	assert.Equal(t, backlight.DimmedBrightness, h.app.State().Brightness)

	// Interaction restores full brightness on the following frame.
	h.app.store.Update(func(s *state.Snapshot) {
		s.LastInteraction = *clock
	})
	require.NoError(t, h.app.renderTick(context.Background()))
	_, brightness = h.display.stats()
	assert.Equal(t, backlight.FullBrightness, brightness)
}

func TestRenderTickToleratesDisplayFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.display.presentErr = assert.AnError

	assert.NoError(t, h.app.renderTick(context.Background()))
}

func TestRunStopsOnFanFatal(t *testing.T) {
	h := newHarness(t, testConfig())
	h.source.metrics = validTemp(70)
	h.fan.err = assert.AnError

	done := make(chan error, 1)
	go func() {
		done <- h.app.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrFanBusFatal))
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after fan bus failures")
	}
}
