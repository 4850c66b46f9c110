// internal/game/blocks/player.go
package blocks

import (
	"math/rand"

	"github.com/jason-s-yu/arena/internal/game"
)

// Player is one board with its falling piece. The zero value is not usable; use
// newPlayer.
type Player struct {
	cfg *Config
	seq *rand.Rand
	// bag holds the pieces left in the current shuffled set of seven.
	bag []Kind

	Board    Board
	Active   *Piece
	Next     Kind
	Score    int
	Lines    int
	GameOver bool
	// Spawns counts pieces spawned so far; the AI uses it to notice a new piece.
	Spawns int

	gravity int
	shift   struct {
		dir  int
		held int
	}
}

func newPlayer(cfg *Config, seed int64) *Player {
	p := &Player{cfg: cfg, seq: rand.New(rand.NewSource(seed))}
	p.Next = p.draw()
	p.spawn()
	return p
}

// draw deals from a bag holding one of each kind, reshuffled whenever it runs out.
func (p *Player) draw() Kind {
	if len(p.bag) == 0 {
		for _, i := range p.seq.Perm(kindCount) {
			p.bag = append(p.bag, Kind(i+1))
		}
	}
	k := p.bag[0]
	p.bag = p.bag[1:]
	return k
}

// spawn brings the next piece in. A piece that collides on arrival ends the game.
func (p *Player) spawn() {
	piece := spawnPiece(p.Next)
	p.Next = p.draw()
	p.gravity = 0
	p.Spawns++
	if p.Board.Collides(piece) {
		p.GameOver = true
		p.Active = nil
		return
	}
	p.Active = &piece
}

// try moves the active piece by (dx, dy) and rotation dr if the result fits.
func (p *Player) try(dx, dy, dr int) bool {
	next := *p.Active
	next.X += dx
	next.Y += dy
	next.Rotation = (next.Rotation + dr) % 4
	if p.Board.Collides(next) {
		return false
	}
	*p.Active = next
	return true
}

// Step applies one tick of input and gravity. It returns the number of rows cleared
// if a piece locked this tick.
func (p *Player) Step(f game.Frame) (locked bool, cleared int) {
	if p.GameOver || p.Active == nil {
		return false, 0
	}

	if f.Pressed.Rotate {
		p.try(0, 0, 1)
	}

	p.horizontal(f)

	if f.Pressed.HardDrop {
		p.Active.Y = p.Board.dropRow(*p.Active)
		p.Score += p.cfg.HardDropPoints
		return true, p.lock()
	}

	if f.Held.SoftDrop {
		if p.try(0, 1, 0) {
			p.Score += p.cfg.SoftDropPoints
			p.gravity = 0
			return false, 0
		}
		return true, p.lock()
	}

	p.gravity++
	if p.gravity >= p.cfg.GravityTicks {
		p.gravity = 0
		if !p.try(0, 1, 0) {
			return true, p.lock()
		}
	}
	return false, 0
}

// horizontal moves once on a fresh press, then waits MoveDelayTicks and repeats every
// MoveRepeatTicks while the key stays down.
func (p *Player) horizontal(f game.Frame) {
	pressed := direction(f.Pressed)
	held := direction(f.Held)

	switch {
	case pressed != 0:
		p.try(pressed, 0, 0)
		p.shift.dir, p.shift.held = pressed, 0
	case held != 0 && held == p.shift.dir:
		p.shift.held++
		d := p.shift.held - p.cfg.MoveDelayTicks
		if d >= 0 && d%p.cfg.MoveRepeatTicks == 0 {
			p.try(held, 0, 0)
		}
	default:
		p.shift.dir, p.shift.held = held, 0
	}
}

func direction(in game.Input) int {
	switch {
	case in.Left && !in.Right:
		return -1
	case in.Right && !in.Left:
		return 1
	}
	return 0
}

func (p *Player) lock() int {
	p.Board.Merge(*p.Active)
	p.Active = nil
	n := p.Board.ClearLines()
	p.Lines += n
	p.Score += p.cfg.LineScore(n)
	p.spawn()
	return n
}

// PlayerSnapshot is the serializable view of one board.
type PlayerSnapshot struct {
	Board    Board  `json:"board"`
	Active   *Piece `json:"activePiece"`
	Shape    Shape  `json:"activeShape,omitempty"`
	Next     Kind   `json:"next"`
	Score    int    `json:"score"`
	Lines    int    `json:"lines"`
	GameOver bool   `json:"gameOver"`
}

// Snapshot copies the player's visible state.
func (p *Player) Snapshot() PlayerSnapshot {
	s := PlayerSnapshot{
		Board:    p.Board,
		Next:     p.Next,
		Score:    p.Score,
		Lines:    p.Lines,
		GameOver: p.GameOver,
	}
	if p.Active != nil {
		a := *p.Active
		s.Active = &a
		s.Shape = a.Shape()
	}
	return s
}
