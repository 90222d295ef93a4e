package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewStatusUpdate_UsesPackageClock(t *testing.T) {
	fixed := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	u := NewStatusUpdate("run-1", StateRunning, 40, "Processing 20/50...")
	assert.Equal(t, fixed, u.EmittedAt)
	assert.Equal(t, StateRunning, u.State)
	assert.Equal(t, 40, u.Progress)
	assert.False(t, u.Error)
}
