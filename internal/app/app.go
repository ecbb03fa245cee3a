// Package app runs the four control loops against the shared state
// store: display refresh, telemetry collection, fan control and button
// sampling. Hardware access goes through narrow interfaces so the loops
// can be exercised without a HAT attached.
package app

import (
	"context"
	"image"
	"sync"
	"time"

	"codeberg.org/sorrel/hatctl/internal/backlight"
	"codeberg.org/sorrel/hatctl/internal/button"
	"codeberg.org/sorrel/hatctl/internal/config"
	"codeberg.org/sorrel/hatctl/internal/errors"
	"codeberg.org/sorrel/hatctl/internal/fan"
	"codeberg.org/sorrel/hatctl/internal/logger"
	"codeberg.org/sorrel/hatctl/internal/monitor"
	"codeberg.org/sorrel/hatctl/internal/state"
	"codeberg.org/sorrel/hatctl/internal/telemetry"
)

// A stuck fan bus is a thermal hazard; give up after this many
// consecutive write failures.
const fanFailureLimit = 3

// Display presents composed frames and controls the backlight.
type Display interface {
	Present(frame *image.RGBA) error
	SetBrightness(percent int) error
}

// FanOutput applies a duty cycle to the fan.
type FanOutput interface {
	SetDuty(percent int) error
}

// ButtonInput reports the instantaneous button level; true means pressed.
type ButtonInput interface {
	Read() bool
}

// Renderer composes a frame from a state snapshot.
type Renderer interface {
	Render(snap state.Snapshot) *image.RGBA
}

// Deps are the external collaborators of the control core.
type Deps struct {
	Source   monitor.Source
	Display  Display
	Fan      FanOutput
	Button   ButtonInput
	Recorder telemetry.Recorder
	Renderer Renderer
}

type App struct {
	cfg      *config.Config
	source   monitor.Source
	display  Display
	fan      FanOutput
	button   ButtonInput
	recorder telemetry.Recorder

	store      *state.Store
	controller *fan.Controller
	classifier *button.Classifier
	renderer   Renderer
	now        func() time.Time

	// Only the fan loop touches this.
	fanFailures int
}

func New(cfg *config.Config, deps Deps) *App {
	now := time.Now

	return &App{
		cfg:        cfg,
		source:     deps.Source,
		display:    deps.Display,
		fan:        deps.Fan,
		button:     deps.Button,
		recorder:   deps.Recorder,
		store:      state.New(now()),
		controller: fan.NewController(state.FanDefault),
		classifier: button.NewClassifier(),
		renderer:   deps.Renderer,
		now:        now,
	}
}

// Run starts all loops and blocks until the context is canceled or a
// loop fails fatally. The first fatal error wins; the others are shut
// down before Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Prime the metrics so the first frame is not all placeholders.
	a.pollMetrics(ctx)

	loops := []struct {
		name     string
		interval time.Duration
		tick     func(ctx context.Context) error
	}{
		{"render", a.cfg.RenderInterval, a.renderTick},
		{"telemetry", a.cfg.TelemetryInterval, a.telemetryTick},
		{"fan", a.cfg.FanInterval, a.fanTick},
		{"input", a.cfg.ButtonInterval, a.inputTick},
	}

	errCh := make(chan error, len(loops))

	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(name string, interval time.Duration, tick func(context.Context) error) {
			defer wg.Done()
			if err := a.runLoop(ctx, name, interval, tick); err != nil {
				errCh <- err
				cancel()
			}
		}(l.name, l.interval, l.tick)
	}

	wg.Wait()
	close(errCh)

	return <-errCh
}

func (a *App) runLoop(ctx context.Context, name string, interval time.Duration, tick func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug().Str("loop", name).Dur("interval", interval).Msg("Loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("loop", name).Msg("Loop stopped")
			return nil
		case <-ticker.C:
			if err := tick(ctx); err != nil {
				return err
			}
		}
	}
}

// renderTick composes and presents a frame. Display failures are logged
// and retried on the next period; the loops keep running on a dark or
// stale panel.
func (a *App) renderTick(_ context.Context) error {
	snap := a.store.Read()
	brightness := backlight.Level(a.now(), snap.LastInteraction)

	frame := a.renderer.Render(snap)

	if err := a.display.Present(frame); err != nil {
		logger.Warn().Err(err).Msg("Display write failed")
		return nil
	}

	if err := a.display.SetBrightness(brightness); err != nil {
		logger.Warn().Err(err).Msg("Backlight write failed")
		return nil
	}

	if brightness != snap.Brightness {
		a.store.Update(func(s *state.Snapshot) {
			s.Brightness = brightness
		})
	}

	return nil
}

func (a *App) pollMetrics(ctx context.Context) {
	metrics, err := a.source.Poll(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Metrics poll failed")
		return
	}

	a.store.Update(func(s *state.Snapshot) {
		s.Metrics = metrics
	})
}

// telemetryTick refreshes the metrics and records a history row. The
// poll happens outside the state lock; the store sees one atomic swap.
func (a *App) telemetryTick(ctx context.Context) error {
	a.pollMetrics(ctx)

	snap := a.store.Read()
	entry := &telemetry.Entry{
		Timestamp:   a.now(),
		Temperature: snap.Metrics.CPUTemp.Value,
		TempValid:   snap.Metrics.CPUTemp.Valid,
		FanDuty:     snap.FanDuty,
		FanMode:     snap.FanMode.String(),
		DisplayMode: snap.DisplayMode.String(),
	}
	if snap.Metrics.CPUTemp.Valid {
		entry.TargetDuty = fan.PolicyFor(snap.FanMode).Target(snap.Metrics.CPUTemp.Value)
	}
	if snap.Metrics.CPUPercent.Valid {
		entry.CPUPercent = snap.Metrics.CPUPercent.Value
	}
	if snap.Metrics.RAMPercent.Valid {
		entry.RAMPercent = snap.Metrics.RAMPercent.Value
	}

	if err := a.recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Msg("Telemetry record failed")
	}

	return nil
}

// fanTick applies the hysteresis policy to the latest temperature. An
// unreadable sensor holds the previous duty. Repeated bus failures force
// the fan to maximum and terminate the application.
func (a *App) fanTick(_ context.Context) error {
	errFactory := errors.New()

	snap := a.store.Read()

	// Mode toggles land in the store from the input loop; the
	// controller itself is confined to this goroutine.
	if snap.FanMode != a.controller.Mode() {
		a.controller.SetMode(snap.FanMode)
		logger.Info().Str("fan_mode", snap.FanMode.String()).Msg("Fan mode changed")
	}

	if !snap.Metrics.CPUTemp.Valid {
		logger.Debug().Int("duty", snap.FanDuty).Msg("CPU temperature unavailable, holding fan duty")
		return nil
	}

	temp := snap.Metrics.CPUTemp.Value
	duty := a.controller.Decide(temp, snap.FanDuty)

	if a.cfg.Monitor {
		logger.Info().
			Float64("temperature", temp).
			Int("duty", snap.FanDuty).
			Int("target", duty).
			Str("fan_mode", snap.FanMode.String()).
			Msg("Fan status")

		return nil
	}

	if err := a.fan.SetDuty(duty); err != nil {
		a.fanFailures++
		logger.Warn().
			Err(err).
			Int("consecutive_failures", a.fanFailures).
			Msg("Fan duty write failed")

		if a.fanFailures >= fanFailureLimit {
			// Best effort: latch the fan at maximum before giving up.
			if maxErr := a.fan.SetDuty(fan.PolicyFor(snap.FanMode).DutyMax); maxErr != nil {
				logger.Error().Err(maxErr).Msg("Failed to force fan to maximum")
			}

			return errFactory.Wrap(errors.ErrFanBusFatal, err)
		}

		return nil
	}
	a.fanFailures = 0

	if duty != snap.FanDuty {
		a.store.Update(func(s *state.Snapshot) {
			s.FanDuty = duty
		})
		logger.Debug().
			Float64("temperature", temp).
			Int("duty", duty).
			Msg("Fan duty changed")
	}

	return nil
}

// inputTick samples the button and applies any classified gesture.
func (a *App) inputTick(_ context.Context) error {
	now := a.now()
	event, ok := a.classifier.Sample(a.button.Read(), now)
	if !ok {
		return nil
	}

	switch event {
	case button.ShortPress:
		a.store.Update(func(s *state.Snapshot) {
			s.DisplayMode = s.DisplayMode.Toggle()
			s.LastInteraction = now
		})
		logger.Info().
			Str("display_mode", a.store.Read().DisplayMode.String()).
			Msg("Display page toggled")
	case button.LongPress:
		a.store.Update(func(s *state.Snapshot) {
			s.FanMode = s.FanMode.Toggle()
			s.LastInteraction = now
		})
		logger.Info().
			Str("fan_mode", a.store.Read().FanMode.String()).
			Msg("Fan mode toggled")
	}

	return nil
}

// State exposes the shared store, mainly for shutdown reporting.
func (a *App) State() state.Snapshot {
	return a.store.Read()
}
