// internal/game/blocks/ai_test.go
package blocks

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// junkBoard fills the bottom of the board with random rubble, holes included.
func junkBoard(rng *rand.Rand) Board {
	var b Board
	for x := 0; x < Width; x++ {
		h := rng.Intn(12)
		for y := Height - h; y < Height; y++ {
			if rng.Intn(4) != 0 {
				b[y][x] = 1
			}
		}
	}
	return b
}

func TestEnumeratedPlacementsNeverCollide(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(2024))

	for i := 0; i < 200; i++ {
		b := junkBoard(rng)
		piece := spawnPiece(Kind(rng.Intn(kindCount) + 1))
		if b.Collides(piece) {
			continue
		}
		for _, pl := range Enumerate(&b, piece, cfg.AI.Weights) {
			start := Piece{Kind: piece.Kind, Rotation: pl.Rotation, X: pl.X, Y: piece.Y}
			rest := start
			rest.Y = pl.Y
			require.False(t, b.Collides(start), "placement %+v collides at the current row", pl)
			require.False(t, b.Collides(rest), "placement %+v collides where it lands", pl)
			require.GreaterOrEqual(t, pl.Y, piece.Y)
		}

		chosen := Choose(&b, piece, cfg.AI, rng)
		if !chosen.Fallback {
			assert.False(t, b.Collides(Piece{Kind: piece.Kind, Rotation: chosen.Rotation, X: chosen.X, Y: piece.Y}))
		}
	}
}

func TestChooseFallsBackToSpawnWhenNothingFits(t *testing.T) {
	cfg := DefaultConfig()
	var b Board
	for y := 0; y < Height; y++ {
		fillRow(&b, y)
	}
	piece := spawnPiece(KindL)

	var pl Placement
	require.NotPanics(t, func() {
		pl = Choose(&b, piece, cfg.AI, rand.New(rand.NewSource(1)))
	})
	assert.True(t, pl.Fallback)
	assert.Equal(t, 0, pl.Rotation)
	assert.Equal(t, piece.X, pl.X)
}

func TestChoosePrefersBestPlacement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.BestChance = 1
	cfg.AI.TopThreeChance = 0

	// A well at column 9 that an I piece completes four rows in.
	var b Board
	for y := Height - 4; y < Height; y++ {
		for x := 0; x < Width-1; x++ {
			b[y][x] = 1
		}
	}
	pl := Choose(&b, spawnPiece(KindI), cfg.AI, rand.New(rand.NewSource(1)))
	cells := Piece{Kind: KindI, Rotation: pl.Rotation, X: pl.X, Y: pl.Y}
	after := b
	after.Merge(cells)
	assert.Equal(t, 4, after.ClearLines(), "the best move is the tetris")
}

func TestAIThinksThenPlaysPaced(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMatch(cfg, 1, 7, rand.New(rand.NewSource(7)), 0)
	ai := m.ais[0]
	p := m.Players[0]

	for i := 0; i < cfg.AI.ThinkTicks; i++ {
		f := ai.Frame(p)
		require.False(t, f.Pressed.Rotate || f.Pressed.Left || f.Pressed.Right || f.Pressed.HardDrop, "no action while thinking")
	}

	lastAction := -100
	for tick := 0; tick < 3000 && !m.Finished(); tick++ {
		spawns := p.Spawns
		f := ai.Frame(p)
		acted := f.Pressed.Rotate || f.Pressed.Left || f.Pressed.Right
		if acted && p.Spawns == spawns {
			require.Greater(t, tick-lastAction, 1, "actions are paced, not instantaneous")
			lastAction = tick
		}
		p.Step(f)
		if p.Spawns != spawns {
			lastAction = -100
		}
	}
	assert.Greater(t, p.Spawns, 10, "the AI keeps placing pieces")
}

func TestAIMovesWhenRotationIsBlocked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GravityTicks = 1000
	p := newPlayer(&cfg, 1)
	p.Active = &Piece{Kind: KindI, X: 3, Y: 5}
	// the upright I would cover this cell at column 3 but not one column over
	p.Board[8][5] = 1
	require.True(t, p.Board.Collides(Piece{Kind: KindI, Rotation: 1, X: 3, Y: 5}))

	ai := NewAI(cfg.AI, rand.New(rand.NewSource(1)))
	ai.seen = p.Spawns
	ai.plan = &Placement{Rotation: 1, X: 6}

	spawns := p.Spawns
	var last Piece
	for tick := 0; tick < 300 && p.Spawns == spawns; tick++ {
		last = *p.Active
		p.Step(ai.Frame(p))
	}
	require.NotEqual(t, spawns, p.Spawns, "the piece was placed")
	assert.Equal(t, 1, last.Rotation)
	assert.Equal(t, 6, last.X)
}

func TestAIDropsWhenRotationNeverFits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GravityTicks = 1000
	p := newPlayer(&cfg, 1)
	p.Active = &Piece{Kind: KindI, X: 3, Y: 5}
	p.Board[8][5] = 1

	ai := NewAI(cfg.AI, rand.New(rand.NewSource(1)))
	ai.seen = p.Spawns
	ai.plan = &Placement{Rotation: 1, X: 3}

	spawns := p.Spawns
	for tick := 0; tick < 100 && p.Spawns == spawns; tick++ {
		p.Step(ai.Frame(p))
	}
	assert.NotEqual(t, spawns, p.Spawns, "a refused rotation does not stall the piece")
}
