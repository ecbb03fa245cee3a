// Package fan implements the two-mode hysteretic duty-cycle policy.
package fan

import (
	"math"

	"codeberg.org/sorrel/hatctl/internal/state"
)

// Policy holds the immutable parameters of one fan mode.
type Policy struct {
	TempLow    float64
	TempHigh   float64
	DutyMin    int
	DutyMax    int
	Hysteresis float64
}

// DutyFloor is a hard clamp below which an active fan is never driven,
// to avoid stalling the motor.
const DutyFloor = 35

var (
	DefaultPolicy = Policy{TempLow: 65, TempHigh: 85, DutyMin: 35, DutyMax: 50, Hysteresis: 3}
	TurboPolicy   = Policy{TempLow: 50, TempHigh: 85, DutyMin: 35, DutyMax: 100, Hysteresis: 3}
)

// PolicyFor returns the parameter set for a fan mode.
func PolicyFor(mode state.FanMode) Policy {
	if mode == state.FanTurbo {
		return TurboPolicy
	}
	return DefaultPolicy
}

// Target computes the raw duty for a temperature: DutyMin at or below
// TempLow, DutyMax at or above TempHigh, linear in between, rounded to
// the nearest percent.
func (p Policy) Target(temp float64) int {
	if temp <= p.TempLow {
		return p.DutyMin
	}
	if temp >= p.TempHigh {
		return p.DutyMax
	}

	span := p.TempHigh - p.TempLow
	frac := (temp - p.TempLow) / span
	duty := float64(p.DutyMin) + frac*float64(p.DutyMax-p.DutyMin)

	return clampDuty(int(math.Round(duty)), p)
}

func clampDuty(duty int, p Policy) int {
	if duty < DutyFloor {
		duty = DutyFloor
	}
	if duty < p.DutyMin {
		duty = p.DutyMin
	}
	if duty > p.DutyMax {
		duty = p.DutyMax
	}
	return duty
}

// Controller tracks the temperature at which the duty last changed and
// suppresses updates until the reading has moved out of the hysteresis
// band, damping oscillation around threshold boundaries.
type Controller struct {
	mode       state.FanMode
	anchorTemp float64
	anchored   bool
}

// NewController starts in the given mode with no anchor; the first
// decision always applies.
func NewController(mode state.FanMode) *Controller {
	return &Controller{mode: mode}
}

// Mode returns the active fan mode.
func (c *Controller) Mode() state.FanMode {
	return c.mode
}

// SetMode switches policy and drops the hysteresis anchor so the next
// decision recomputes immediately under the new band.
func (c *Controller) SetMode(mode state.FanMode) {
	c.mode = mode
	c.anchored = false
}

// Decide returns the duty to apply for the current temperature. prevDuty
// is held unless the temperature has moved at least Hysteresis degrees
// from the anchor point of the last change.
func (c *Controller) Decide(temp float64, prevDuty int) int {
	policy := PolicyFor(c.mode)
	target := policy.Target(temp)

	if !c.anchored {
		c.anchorTemp = temp
		c.anchored = true
		return target
	}

	if target == prevDuty {
		// Nothing to change; keep the anchor where the duty last moved.
		return prevDuty
	}

	if math.Abs(temp-c.anchorTemp) < policy.Hysteresis {
		return prevDuty
	}

	c.anchorTemp = temp
	return target
}
