// internal/game/input_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatchKeepsTapBetweenTicks(t *testing.T) {
	var l Latch
	l.Set(Input{Rotate: true})
	l.Set(Input{})

	f := l.Consume()
	assert.False(t, f.Held.Rotate, "rotate was released before the tick")
	assert.True(t, f.Pressed.Rotate, "tap must survive until the tick")

	f = l.Consume()
	assert.False(t, f.Pressed.Rotate, "tap is reported exactly once")
}

func TestLatchHeldButtonIsNotRepressed(t *testing.T) {
	var l Latch
	l.Set(Input{Left: true})
	f := l.Consume()
	assert.True(t, f.Pressed.Left)
	assert.True(t, f.Held.Left)

	// Same state written again on the next message is not a new press.
	l.Set(Input{Left: true})
	f = l.Consume()
	assert.False(t, f.Pressed.Left)
	assert.True(t, f.Held.Left)
}

func TestLatchLastWriteWins(t *testing.T) {
	var l Latch
	l.Set(Input{Up: true})
	l.Set(Input{Down: true})

	f := l.Consume()
	assert.False(t, f.Held.Up)
	assert.True(t, f.Held.Down)
	assert.Equal(t, Input{Down: true}, l.Current())
}

func TestLatchReset(t *testing.T) {
	var l Latch
	l.Set(Input{HardDrop: true, SoftDrop: true})
	l.Reset()

	assert.Equal(t, Frame{}, l.Consume())
}
