// internal/game/blocks/pieces.go
package blocks

// Kind identifies one of the seven tetrominoes. The value doubles as the cell colour
// written into the board when the piece locks, so zero is reserved for empty cells.
type Kind uint8

const (
	KindI Kind = iota + 1
	KindO
	KindT
	KindS
	KindZ
	KindJ
	KindL
)

// kindCount is the number of distinct pieces.
const kindCount = 7

// Shape is a square occupancy matrix, row-major, top row first.
type Shape [][]bool

var baseShapes = map[Kind][]string{
	KindI: {
		"....",
		"XXXX",
		"....",
		"....",
	},
	KindO: {
		"XX",
		"XX",
	},
	KindT: {
		".X.",
		"XXX",
		"...",
	},
	KindS: {
		".XX",
		"XX.",
		"...",
	},
	KindZ: {
		"XX.",
		".XX",
		"...",
	},
	KindJ: {
		"X..",
		"XXX",
		"...",
	},
	KindL: {
		"..X",
		"XXX",
		"...",
	},
}

// rotations[k][r] is kind k rotated clockwise r times.
var rotations = buildRotations()

func buildRotations() map[Kind][4]Shape {
	out := make(map[Kind][4]Shape, kindCount)
	for k, rows := range baseShapes {
		s := make(Shape, len(rows))
		for y, row := range rows {
			s[y] = make([]bool, len(row))
			for x, c := range row {
				s[y][x] = c == 'X'
			}
		}
		var set [4]Shape
		set[0] = s
		for r := 1; r < 4; r++ {
			set[r] = rotateCW(set[r-1])
		}
		out[k] = set
	}
	return out
}

func rotateCW(s Shape) Shape {
	n := len(s)
	out := make(Shape, n)
	for y := range out {
		out[y] = make([]bool, n)
		for x := range out[y] {
			out[y][x] = s[n-1-x][y]
		}
	}
	return out
}

func (s Shape) equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for y := range s {
		for x := range s[y] {
			if s[y][x] != o[y][x] {
				return false
			}
		}
	}
	return true
}

// distinctRotations lists the rotation indexes that produce different shapes, e.g.
// only 0 for the O piece.
func distinctRotations(k Kind) []int {
	set := rotations[k]
	out := []int{0}
	for r := 1; r < 4; r++ {
		dup := false
		for _, seen := range out {
			if set[r].equal(set[seen]) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// Piece is a tetromino placed on the board. X and Y locate the top-left corner of
// its shape matrix.
type Piece struct {
	Kind     Kind `json:"kind"`
	Rotation int  `json:"rotation"`
	X        int  `json:"x"`
	Y        int  `json:"y"`
}

// Shape returns the occupancy matrix for the piece's current rotation.
func (p Piece) Shape() Shape {
	return rotations[p.Kind][p.Rotation%4]
}

// spawnPiece returns kind at its spawn position: rotation 0, horizontally centred,
// top row.
func spawnPiece(k Kind) Piece {
	return Piece{Kind: k, X: (Width - len(rotations[k][0])) / 2}
}
