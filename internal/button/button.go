// Package button classifies raw pin samples into short and long presses.
package button

import "time"

// Event is a classified press.
type Event int

const (
	// ShortPress toggles the display mode.
	ShortPress Event = iota
	// LongPress toggles the fan mode.
	LongPress
)

func (e Event) String() string {
	if e == LongPress {
		return "long_press"
	}
	return "short_press"
}

const (
	// Releases under this threshold are treated as bounce.
	shortPressMin = 500 * time.Millisecond
	// Holding past this threshold fires a long press while still held.
	longPressAfter = 2 * time.Second
)

// Classifier is the press state machine. It is driven by periodic pin
// samples at 20Hz or faster and emits at most one event per gesture.
type Classifier struct {
	pressed   bool
	pressedAt time.Time
	longFired bool
}

// NewClassifier starts in the idle state.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Sample feeds one pin reading. It returns the classified event and true
// when a gesture completes, and the zero Event and false otherwise.
func (c *Classifier) Sample(level bool, now time.Time) (Event, bool) {
	if level {
		if !c.pressed {
			// released -> pressed
			c.pressed = true
			c.pressedAt = now
			c.longFired = false
			return 0, false
		}

		// Fire the long press once while still held.
		if !c.longFired && now.Sub(c.pressedAt) >= longPressAfter {
			c.longFired = true
			return LongPress, true
		}

		return 0, false
	}

	if !c.pressed {
		return 0, false
	}

	// pressed -> released
	held := now.Sub(c.pressedAt)
	fired := c.longFired
	c.pressed = false
	c.longFired = false

	if fired {
		// The long press already consumed this gesture.
		return 0, false
	}

	if held >= shortPressMin && held < longPressAfter {
		return ShortPress, true
	}

	// Bounce: held under the short-press threshold.
	return 0, false
}
