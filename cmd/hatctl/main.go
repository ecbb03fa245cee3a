package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/sorrel/hatctl/internal/app"
	"codeberg.org/sorrel/hatctl/internal/config"
	"codeberg.org/sorrel/hatctl/internal/fan"
	"codeberg.org/sorrel/hatctl/internal/hw"
	"codeberg.org/sorrel/hatctl/internal/logger"
	"codeberg.org/sorrel/hatctl/internal/monitor"
	"codeberg.org/sorrel/hatctl/internal/pid"
	"codeberg.org/sorrel/hatctl/internal/render"
	"codeberg.org/sorrel/hatctl/internal/telemetry"
)

var (
	cfg      *config.Config
	hardware *hw.Hardware
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	var err error
	hardware, err = hw.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize hardware")
	}
	defer hardware.Close()

	recorder, err := telemetry.NewService(telemetry.Config{
		Enabled: cfg.Telemetry,
		DBPath:  cfg.Database,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer recorder.Close()

	source := monitor.New(cfg.Interface, [2]string{cfg.Disks[0], cfg.Disks[1]}, cfg.DiskTempInterval)

	core := app.New(cfg, app.Deps{
		Source:   source,
		Display:  hardware.Display,
		Fan:      hardware.Fan,
		Button:   hardware.Button,
		Recorder: recorder,
		Renderer: render.New(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if cfg.Monitor {
		logger.Info().Msg("Monitor mode activated. Fan output disabled.")
	}

	if err := core.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	cleanup()
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if !cfg.Monitor {
		// Nothing supervises the fan once we exit; leave it at the
		// default-mode maximum rather than wherever the loop stopped.
		if err := hardware.Fan.SetDuty(fan.DefaultPolicy.DutyMax); err != nil {
			logger.Error().Err(err).Msg("failed to set fan to safe duty")
		}
	}
	logger.Info().Msg("Exiting...")
}
