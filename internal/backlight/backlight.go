// Package backlight holds the auto-dim policy for the display.
package backlight

import "time"

const (
	// DimAfter is the idle window before the display dims.
	DimAfter = 300 * time.Second

	FullBrightness   = 100
	DimmedBrightness = 10
)

// Level returns the brightness for the current idle time. It is a pure
// function evaluated once per render tick; any classified button event
// resets the window by updating the last-interaction timestamp.
func Level(now, lastInteraction time.Time) int {
	if now.Sub(lastInteraction) >= DimAfter {
		return DimmedBrightness
	}
	return FullBrightness
}
