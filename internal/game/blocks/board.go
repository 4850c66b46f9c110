// internal/game/blocks/board.go
package blocks

// Canonical board dimensions.
const (
	Width  = 10
	Height = 20
)

// Board is the settled stack. Row 0 is the top. A zero cell is empty; any other value
// is the Kind of the piece that filled it.
type Board [Height][Width]uint8

// Collides reports whether p overlaps a wall, the floor, or a filled cell.
func (b *Board) Collides(p Piece) bool {
	for dy, row := range p.Shape() {
		for dx, filled := range row {
			if !filled {
				continue
			}
			x, y := p.X+dx, p.Y+dy
			if x < 0 || x >= Width || y < 0 || y >= Height {
				return true
			}
			if b[y][x] != 0 {
				return true
			}
		}
	}
	return false
}

// Merge writes p into the board. It does not check for collisions.
func (b *Board) Merge(p Piece) {
	for dy, row := range p.Shape() {
		for dx, filled := range row {
			if filled {
				x, y := p.X+dx, p.Y+dy
				if x >= 0 && x < Width && y >= 0 && y < Height {
					b[y][x] = uint8(p.Kind)
				}
			}
		}
	}
}

// ClearLines removes every full row, shifts the rows above down and fills the top with
// empty rows. It returns the number of rows removed.
func (b *Board) ClearLines() int {
	write := Height - 1
	cleared := 0
	for read := Height - 1; read >= 0; read-- {
		if b.rowFull(read) {
			cleared++
			continue
		}
		if write != read {
			b[write] = b[read]
		}
		write--
	}
	for ; write >= 0; write-- {
		b[write] = [Width]uint8{}
	}
	return cleared
}

func (b *Board) rowFull(y int) bool {
	for _, c := range b[y] {
		if c == 0 {
			return false
		}
	}
	return true
}

// dropRow returns the lowest row p can fall to from its current position.
func (b *Board) dropRow(p Piece) int {
	for {
		next := p
		next.Y++
		if b.Collides(next) {
			return p.Y
		}
		p = next
	}
}

// heights returns the height of every column, counted from the floor.
func (b *Board) heights() [Width]int {
	var h [Width]int
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			if b[y][x] != 0 {
				h[x] = Height - y
				break
			}
		}
	}
	return h
}

// holes counts empty cells that have at least one filled cell above them.
func (b *Board) holes() int {
	n := 0
	for x := 0; x < Width; x++ {
		covered := false
		for y := 0; y < Height; y++ {
			if b[y][x] != 0 {
				covered = true
			} else if covered {
				n++
			}
		}
	}
	return n
}
