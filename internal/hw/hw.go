// Package hw binds the control core to the Raspberry Pi HAT peripherals
// through periph.io: the ST7789V panel on SPI, and the backlight, fan
// and button GPIO lines.
package hw

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"codeberg.org/sorrel/hatctl/internal/config"
	"codeberg.org/sorrel/hatctl/internal/errors"
	"codeberg.org/sorrel/hatctl/internal/logger"
)

const spiSpeed = 40 * physic.MegaHertz

// Hardware bundles the opened peripherals for the lifetime of the
// process. Close releases the SPI port.
type Hardware struct {
	Display *Display
	Fan     *FanOutput
	Button  *Button

	port spi.PortCloser
}

func resolvePin(name string) (gpio.PinIO, error) {
	errFactory := errors.New()

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errFactory.WithData(ErrPinNotFound, name)
	}

	return pin, nil
}

// Open initializes the host drivers and claims every peripheral named
// in the configuration.
func Open(cfg *config.Config) (*Hardware, error) {
	errFactory := errors.New()

	if _, err := host.Init(); err != nil {
		return nil, errFactory.Wrap(ErrHostInit, err)
	}

	port, err := spireg.Open(cfg.SPIDevice)
	if err != nil {
		return nil, errFactory.Wrap(ErrSPIOpen, err)
	}

	conn, err := port.Connect(spiSpeed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, errFactory.Wrap(ErrSPIConnect, err)
	}

	pins := make(map[string]gpio.PinIO, 5)
	for _, name := range []string{cfg.ResetPin, cfg.DCPin, cfg.BacklightPin, cfg.FanPin, cfg.ButtonPin} {
		pin, err := resolvePin(name)
		if err != nil {
			port.Close()
			return nil, err
		}
		pins[name] = pin
	}

	display, err := NewDisplay(conn, pins[cfg.DCPin], pins[cfg.ResetPin], pins[cfg.BacklightPin])
	if err != nil {
		port.Close()
		return nil, err
	}

	button, err := NewButton(pins[cfg.ButtonPin])
	if err != nil {
		port.Close()
		return nil, err
	}

	logger.Debug().
		Str("spi", cfg.SPIDevice).
		Str("fan_pin", cfg.FanPin).
		Str("button_pin", cfg.ButtonPin).
		Msg("Hardware initialized")

	return &Hardware{
		Display: display,
		Fan:     NewFanOutput(pins[cfg.FanPin]),
		Button:  button,
		port:    port,
	}, nil
}

func (h *Hardware) Close() error {
	return h.port.Close()
}
