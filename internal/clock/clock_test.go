package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	c := RealClock{}

	before := time.Now()
	got := c.Now()
	after := time.Now()

	assert.False(t, got.Before(before.Truncate(time.Nanosecond)), "clock.Now() should not be before time.Now()")
	assert.False(t, got.After(after), "clock.Now() should not be after time.Now()")
	assert.Equal(t, time.UTC, got.Location())
}

func TestFunc_Now(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })

	assert.Equal(t, fixed, c.Now())
}
