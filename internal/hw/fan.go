package hw

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"codeberg.org/sorrel/hatctl/internal/errors"
)

const pwmFrequency = physic.KiloHertz

func dutyFromPercent(percent int) gpio.Duty {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return gpio.Duty(int64(percent) * int64(gpio.DutyMax) / 100)
}

// FanOutput drives the fan PWM pin.
type FanOutput struct {
	pin gpio.PinOut
}

func NewFanOutput(pin gpio.PinOut) *FanOutput {
	return &FanOutput{pin: pin}
}

func (f *FanOutput) SetDuty(percent int) error {
	errFactory := errors.New()

	if err := f.pin.PWM(dutyFromPercent(percent), pwmFrequency); err != nil {
		return errFactory.Wrap(ErrPWMWrite, err)
	}

	return nil
}
