package hw

import (
	"periph.io/x/conn/v3/gpio"

	"codeberg.org/sorrel/hatctl/internal/errors"
)

// Button reads the front-panel push button. The line is pulled up and
// the switch shorts it to ground, so a low read means pressed.
type Button struct {
	pin gpio.PinIO
}

func NewButton(pin gpio.PinIO) (*Button, error) {
	errFactory := errors.New()

	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, errFactory.Wrap(ErrPinConfig, err)
	}

	return &Button{pin: pin}, nil
}

func (b *Button) Read() bool {
	return b.pin.Read() == gpio.Low
}
