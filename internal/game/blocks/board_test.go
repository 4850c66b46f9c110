// internal/game/blocks/board_test.go
package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRow(b *Board, y int) {
	for x := 0; x < Width; x++ {
		b[y][x] = 1
	}
}

func filledCells(b *Board) int {
	n := 0
	for y := range b {
		for x := range b[y] {
			if b[y][x] != 0 {
				n++
			}
		}
	}
	return n
}

func TestClearTwoSeparatedRowsShiftsAndScores(t *testing.T) {
	cfg := DefaultConfig()
	p := newPlayer(&cfg, 1)

	fillRow(&p.Board, 3)
	fillRow(&p.Board, 7)
	p.Board[1][5] = 2  // above both cleared rows: moves down 2
	p.Board[5][9] = 3  // between them: moves down 1
	p.Board[10][4] = 4 // below both: stays
	p.Active = &Piece{Kind: KindO, X: 0, Y: 18}
	scoreBefore := p.Score

	cleared := p.lock()

	require.Equal(t, 2, cleared)
	assert.Equal(t, 2, p.Lines)
	assert.Equal(t, scoreBefore+300, p.Score, "two rows at once score the 2-line value, not twice the 1-line value")

	assert.Equal(t, uint8(2), p.Board[3][5])
	assert.Equal(t, uint8(3), p.Board[6][9])
	assert.Equal(t, uint8(4), p.Board[10][4])
	assert.Equal(t, uint8(KindO), p.Board[18][0])
	assert.Equal(t, uint8(KindO), p.Board[19][1])
	assert.Equal(t, 3+4, filledCells(&p.Board))
	assert.Equal(t, [Width]uint8{}, p.Board[0])
	assert.Equal(t, [Width]uint8{}, p.Board[1])
}

func TestLineScoreTable(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0, cfg.LineScore(0))
	assert.Equal(t, 100, cfg.LineScore(1))
	assert.Equal(t, 300, cfg.LineScore(2))
	assert.Equal(t, 500, cfg.LineScore(3))
	assert.Equal(t, 800, cfg.LineScore(4))
	assert.Equal(t, 800, cfg.LineScore(5), "4+ rows share the top entry")
}

func TestCollidesWithWallsFloorAndCells(t *testing.T) {
	var b Board
	assert.False(t, b.Collides(Piece{Kind: KindO, X: 0, Y: 0}))
	assert.True(t, b.Collides(Piece{Kind: KindO, X: -1, Y: 0}))
	assert.True(t, b.Collides(Piece{Kind: KindO, X: Width - 1, Y: 0}))
	assert.True(t, b.Collides(Piece{Kind: KindO, X: 0, Y: Height - 1}))

	b[10][4] = 1
	assert.True(t, b.Collides(Piece{Kind: KindO, X: 3, Y: 9}))
	assert.Equal(t, 8, b.dropRow(Piece{Kind: KindO, X: 3, Y: 0}))
}

func TestRotationsAreClockwise(t *testing.T) {
	tShape := Piece{Kind: KindT, Rotation: 1}.Shape()
	assert.Equal(t, Shape{
		{false, true, false},
		{false, true, true},
		{false, true, false},
	}, tShape)

	assert.Equal(t, []int{0}, distinctRotations(KindO))
	assert.Len(t, distinctRotations(KindT), 4)
}

func TestHolesAndHeights(t *testing.T) {
	var b Board
	b[18][0] = 1
	b[19][1] = 1
	// Column 0 has a hole under its block.
	h := b.heights()
	assert.Equal(t, 2, h[0])
	assert.Equal(t, 1, h[1])
	assert.Equal(t, 0, h[2])
	assert.Equal(t, 1, b.holes())
}
