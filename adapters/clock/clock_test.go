package clock_test

import (
	"testing"
	"time"

	"github.com/artpar/registrar/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	c := clock.Real{}

	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
}

func TestFake_Frozen(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(fixed)

	for i := 0; i < 3; i++ {
		if got := c.Now(); !got.Equal(fixed) {
			t.Errorf("call %d: Now() = %v, want %v", i, got, fixed)
		}
	}
}

func TestFake_SetAndAdvance(t *testing.T) {
	c := clock.NewFake(time.Time{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(start)
	c.Advance(90 * time.Minute)

	if got, want := c.Now(), start.Add(90*time.Minute); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFake_Ticking(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewTicking(start, time.Second)

	first := c.Now()
	second := c.Now()

	if !first.Equal(start) {
		t.Errorf("first = %v, want %v", first, start)
	}
	if got := second.Sub(first); got != time.Second {
		t.Errorf("step = %v, want 1s", got)
	}
}
