// internal/game/blocks/player_test.go
package blocks

import (
	"testing"

	"github.com/jason-s-yu/arena/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func held(in game.Input) game.Frame { return game.Frame{Held: in} }

func press(in game.Input) game.Frame { return game.Frame{Held: in, Pressed: in} }

func TestRotateOnlyOnRisingEdge(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	p.Active = &Piece{Kind: KindT, X: 3, Y: 5}

	p.Step(press(game.Input{Rotate: true}))
	assert.Equal(t, 1, p.Active.Rotation)

	for i := 0; i < 5; i++ {
		p.Step(held(game.Input{Rotate: true}))
	}
	assert.Equal(t, 1, p.Active.Rotation, "holding rotate must not repeat")
}

func TestRotateRejectedOnCollision(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	p.Active = &Piece{Kind: KindT, X: 3, Y: 5}
	p.Board[7][4] = 1

	p.Step(press(game.Input{Rotate: true}))
	assert.Equal(t, 0, p.Active.Rotation)
}

func TestHorizontalDelayThenRepeat(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	x0 := p.Active.X
	left := game.Input{Left: true}

	p.Step(press(left))
	require.Equal(t, x0-1, p.Active.X, "first press moves immediately")

	for i := 1; i < cfg.MoveDelayTicks; i++ {
		p.Step(held(left))
		require.Equal(t, x0-1, p.Active.X, "no repeat before the initial delay (tick %d)", i)
	}
	p.Step(held(left))
	assert.Equal(t, x0-2, p.Active.X, "repeat starts once the delay elapsed")

	for i := 1; i < cfg.MoveRepeatTicks; i++ {
		p.Step(held(left))
		require.Equal(t, x0-2, p.Active.X)
	}
	p.Step(held(left))
	assert.Equal(t, x0-3, p.Active.X, "then repeats at the fixed interval")
}

func TestTapBetweenTicksStillMoves(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	x0 := p.Active.X

	p.Step(game.Frame{Pressed: game.Input{Right: true}})
	assert.Equal(t, x0+1, p.Active.X)
	p.Step(game.Frame{})
	assert.Equal(t, x0+1, p.Active.X)
}

func TestHardDropLocksWithoutBonus(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	p.Active = &Piece{Kind: KindO, X: 4, Y: 0}

	locked, cleared := p.Step(press(game.Input{HardDrop: true}))
	require.True(t, locked)
	assert.Zero(t, cleared)
	assert.Zero(t, p.Score, "hard drop awards no bonus")
	assert.Equal(t, uint8(KindO), p.Board[Height-1][4])
	assert.Equal(t, uint8(KindO), p.Board[Height-2][5])
	assert.Equal(t, 2, p.Spawns)
}

func TestSoftDropScoresPerRow(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	p.Active = &Piece{Kind: KindO, X: 4, Y: 0}

	for i := 0; i < 3; i++ {
		p.Step(held(game.Input{SoftDrop: true}))
	}
	assert.Equal(t, 3, p.Active.Y)
	assert.Equal(t, 3, p.Score)
}

func TestSoftDropLocksWhenBlocked(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	p.Active = &Piece{Kind: KindO, X: 4, Y: Height - 2}

	locked, _ := p.Step(held(game.Input{SoftDrop: true}))
	assert.True(t, locked)
	assert.Zero(t, p.Score)
}

func TestGravityEveryGravityTicks(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	y0 := p.Active.Y

	for i := 1; i < cfg.GravityTicks; i++ {
		p.Step(game.Frame{})
	}
	assert.Equal(t, y0, p.Active.Y)
	p.Step(game.Frame{})
	assert.Equal(t, y0+1, p.Active.Y)
}

func TestSpawnCollisionEndsGame(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)
	for y := 0; y < 2; y++ {
		for x := 0; x < Width-1; x++ {
			p.Board[y][x] = 1
		}
	}

	p.spawn()
	require.True(t, p.GameOver)
	assert.Nil(t, p.Active)

	locked, _ := p.Step(press(game.Input{HardDrop: true, Left: true}))
	assert.False(t, locked, "a finished board ignores input")
}

func TestDrawDealsEveryKindOncePerBag(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 42)
	// newPlayer dealt two pieces from the first bag
	p.bag = nil

	for round := 0; round < 20; round++ {
		seen := make(map[Kind]bool, kindCount)
		for i := 0; i < kindCount; i++ {
			k := p.draw()
			require.True(t, k >= KindI && k <= KindL, "kind %d out of range", k)
			require.False(t, seen[k], "kind %d dealt twice in bag %d", k, round)
			seen[k] = true
		}
		assert.Len(t, seen, kindCount)
	}
}

func TestDrawIsReproducibleFromSeed(t *testing.T) {
	cfg := DefaultConfig()
	a, b := newPlayer(&cfg, 9), newPlayer(&cfg, 9)
	for i := 0; i < 30; i++ {
		require.Equal(t, a.draw(), b.draw())
	}
}
