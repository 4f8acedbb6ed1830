package ratelimit

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func TestAllowBurstThenDeny(t *testing.T) {
    l := New(3, 1)
    assert.True(t, l.allowAt("a", t0))
    assert.True(t, l.allowAt("a", t0))
    assert.True(t, l.allowAt("a", t0))
    assert.False(t, l.allowAt("a", t0))
    assert.True(t, l.allowAt("b", t0), "keys are independent")
}

func TestAllowRefills(t *testing.T) {
    l := New(2, 1)
    assert.True(t, l.allowAt("a", t0))
    assert.True(t, l.allowAt("a", t0))
    assert.False(t, l.allowAt("a", t0))

    now := t0.Add(time.Second)
    assert.True(t, l.allowAt("a", now))
    assert.False(t, l.allowAt("a", now))

    now = now.Add(time.Hour)
    assert.True(t, l.allowAt("a", now))
    assert.True(t, l.allowAt("a", now))
    assert.False(t, l.allowAt("a", now), "refill is capped at the burst")
}

func TestIdleKeysAreSwept(t *testing.T) {
    l := New(1, 1)
    l.allowAt("a", t0)
    l.allowAt("b", t0)
    assert.Equal(t, 2, l.Len())

    l.allowAt("c", t0.Add(11*time.Minute))
    assert.Equal(t, 1, l.Len())
}

func TestNewClampsCapacity(t *testing.T) {
    l := New(0, 0)
    assert.True(t, l.allowAt("a", t0))
    assert.False(t, l.allowAt("a", t0.Add(time.Hour)), "zero rate never refills")
}

func TestAllowUsesWallClock(t *testing.T) {
    l := New(1, 0)
    assert.True(t, l.Allow("a"))
    assert.False(t, l.Allow("a"))
}
