// internal/game/blocks/ai.go
package blocks

import (
	"math/rand"
	"sort"

	"github.com/jason-s-yu/arena/internal/game"
)

// Placement is a target rotation and column for the active piece.
type Placement struct {
	Rotation int
	X        int
	// Y is the row the piece comes to rest on.
	Y     int
	Score float64
	// Fallback is set when no legal placement existed and the spawn placement was used.
	Fallback bool
}

// Enumerate lists every rotation and column for piece that is free of collisions at the
// piece's current row, each scored by the board it would leave behind.
func Enumerate(b *Board, piece Piece, w Weights) []Placement {
	var out []Placement
	for _, r := range distinctRotations(piece.Kind) {
		size := len(rotations[piece.Kind][r])
		for x := -size + 1; x < Width; x++ {
			cand := Piece{Kind: piece.Kind, Rotation: r, X: x, Y: piece.Y}
			if b.Collides(cand) {
				continue
			}
			cand.Y = b.dropRow(cand)
			after := *b
			after.Merge(cand)
			lines := after.ClearLines()
			out = append(out, Placement{
				Rotation: r,
				X:        x,
				Y:        cand.Y,
				Score:    evaluate(&after, lines, w),
			})
		}
	}
	return out
}

func evaluate(b *Board, lines int, w Weights) float64 {
	h := b.heights()
	aggregate, bump := 0, 0
	for x := 0; x < Width; x++ {
		aggregate += h[x]
		if x > 0 {
			d := h[x] - h[x-1]
			if d < 0 {
				d = -d
			}
			bump += d
		}
	}
	return w.Height*float64(aggregate) +
		w.Lines*float64(lines) +
		w.Holes*float64(b.holes()) +
		w.Bumpiness*float64(bump)
}

// Choose picks a placement the way a decent but fallible player would: usually the
// best, sometimes one of the top three, rarely any legal one.
func Choose(b *Board, piece Piece, cfg AIConfig, rng *rand.Rand) Placement {
	cands := Enumerate(b, piece, cfg.Weights)
	if len(cands) == 0 {
		sp := spawnPiece(piece.Kind)
		return Placement{Rotation: sp.Rotation, X: sp.X, Y: sp.Y, Fallback: true}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

	roll := rng.Float64()
	switch {
	case roll < cfg.BestChance:
		return cands[0]
	case roll < cfg.BestChance+cfg.TopThreeChance:
		return cands[rng.Intn(min(3, len(cands)))]
	default:
		return cands[rng.Intn(len(cands))]
	}
}

// AI drives one seat by emitting the same frames a client would, paced by think,
// move and rotate delays.
type AI struct {
	cfg AIConfig
	rng *rand.Rand

	seen       int
	think      int
	plan       *Placement
	moveWait   int
	rotateWait int

	// rotating is set while a rotate press awaits its outcome; rotateFrom is the
	// rotation it was pressed from.
	rotating   bool
	rotateFrom int
	// blocked means the last rotation was rejected at the current column.
	blocked bool
}

// NewAI returns an AI with its own tuning and random source.
func NewAI(cfg AIConfig, rng *rand.Rand) *AI {
	return &AI{cfg: cfg, rng: rng}
}

// Frame returns the input for p on this tick.
func (a *AI) Frame(p *Player) game.Frame {
	if p.GameOver || p.Active == nil {
		return game.Frame{}
	}
	if p.Spawns != a.seen {
		a.seen = p.Spawns
		a.plan = nil
		a.think = a.cfg.ThinkTicks
		a.moveWait, a.rotateWait = 0, 0
		a.rotating, a.blocked = false, false
	}
	if a.think > 0 {
		a.think--
		return game.Frame{}
	}
	if a.plan == nil {
		pl := Choose(&p.Board, *p.Active, a.cfg, a.rng)
		a.plan = &pl
	}

	if a.rotating {
		a.rotating = false
		a.blocked = p.Active.Rotation == a.rotateFrom
	}

	if p.Active.Rotation != a.plan.Rotation && !a.blocked {
		if a.rotateWait > 0 {
			a.rotateWait--
			return game.Frame{}
		}
		a.rotateWait = a.cfg.RotateDelayTicks
		a.moveWait = a.cfg.MoveDelayTicks
		a.rotating, a.rotateFrom = true, p.Active.Rotation
		return game.Frame{Pressed: game.Input{Rotate: true}}
	}

	if a.moveWait > 0 {
		a.moveWait--
		return game.Frame{}
	}
	switch {
	case p.Active.X > a.plan.X:
		// a rotation that did not fit here is retried one column over
		a.moveWait = a.cfg.MoveDelayTicks
		a.blocked = false
		return game.Frame{Pressed: game.Input{Left: true}}
	case p.Active.X < a.plan.X:
		a.moveWait = a.cfg.MoveDelayTicks
		a.blocked = false
		return game.Frame{Pressed: game.Input{Right: true}}
	}
	// at the target column with the rotation still refused, drop as is
	return game.Frame{Pressed: game.Input{HardDrop: true}}
}

// Plan returns the current target, or nil while the AI is still thinking.
func (a *AI) Plan() *Placement {
	return a.plan
}
