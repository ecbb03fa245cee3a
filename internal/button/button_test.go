package button_test

import (
	"testing"
	"time"

	"codeberg.org/sorrel/hatctl/internal/button"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run feeds a press of the given hold duration at a 20ms sample period
// and collects every emitted event.
func run(t *testing.T, hold time.Duration) []button.Event {
	t.Helper()

	c := button.NewClassifier()
	now := time.Unix(1000, 0)
	step := 20 * time.Millisecond

	var events []button.Event
	for elapsed := time.Duration(0); elapsed < hold; elapsed += step {
		if ev, ok := c.Sample(true, now.Add(elapsed)); ok {
			events = append(events, ev)
		}
	}
	if ev, ok := c.Sample(false, now.Add(hold)); ok {
		events = append(events, ev)
	}

	return events
}

func TestBounceIgnored(t *testing.T) {
	events := run(t, 300*time.Millisecond)
	assert.Empty(t, events, "a 0.3s press is debounce, no event")
}

func TestShortPress(t *testing.T) {
	events := run(t, 600*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, button.ShortPress, events[0])
}

func TestShortPressUpperBound(t *testing.T) {
	events := run(t, 1900*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, button.ShortPress, events[0])
}

func TestLongPressFiresWhileHeld(t *testing.T) {
	c := button.NewClassifier()
	now := time.Unix(1000, 0)

	_, ok := c.Sample(true, now)
	assert.False(t, ok)

	// Still under threshold.
	_, ok = c.Sample(true, now.Add(1900*time.Millisecond))
	assert.False(t, ok)

	ev, ok := c.Sample(true, now.Add(2*time.Second))
	require.True(t, ok, "long press should fire at 2.0s while held")
	assert.Equal(t, button.LongPress, ev)
}

func TestLongPressFiresExactlyOnce(t *testing.T) {
	events := run(t, 5*time.Second)
	require.Len(t, events, 1, "holding past 2.0s must emit exactly one event")
	assert.Equal(t, button.LongPress, events[0])
}

func TestReleaseAfterLongPressEmitsNothing(t *testing.T) {
	c := button.NewClassifier()
	now := time.Unix(1000, 0)

	c.Sample(true, now)
	ev, ok := c.Sample(true, now.Add(2100*time.Millisecond))
	require.True(t, ok)
	require.Equal(t, button.LongPress, ev)

	_, ok = c.Sample(false, now.Add(2500*time.Millisecond))
	assert.False(t, ok, "the long press already consumed this gesture")
}

func TestIdleReleaseSamples(t *testing.T) {
	c := button.NewClassifier()
	now := time.Unix(1000, 0)

	for i := 0; i < 10; i++ {
		_, ok := c.Sample(false, now.Add(time.Duration(i)*20*time.Millisecond))
		assert.False(t, ok)
	}
}

func TestBackToBackGestures(t *testing.T) {
	c := button.NewClassifier()
	now := time.Unix(1000, 0)

	c.Sample(true, now)
	ev, ok := c.Sample(false, now.Add(700*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, button.ShortPress, ev)

	// A new press right after starts a fresh gesture.
	c.Sample(true, now.Add(800*time.Millisecond))
	ev, ok = c.Sample(false, now.Add(1500*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, button.ShortPress, ev)
}
