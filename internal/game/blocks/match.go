// internal/game/blocks/match.go
package blocks

import (
	"math/rand"

	"github.com/jason-s-yu/arena/internal/game"
)

// NoSeat marks "nobody" in results.
const NoSeat = -1

// Result reports the state of a match after a Step.
type Result struct {
	Finished bool
	Winner   int
	// Cleared holds the rows cleared per seat this tick.
	Cleared []int
}

// Match runs one board per seat. All seats draw from the same piece sequence so the
// race is fair. Seats listed as AI are driven by an AI instead of client frames.
type Match struct {
	cfg     Config
	Players []*Player
	ais     []*AI

	tick     int
	finished bool
	winner   int
}

// NewMatch builds a match for the given number of seats. seed fixes the shared piece
// sequence; rng drives the AI's imperfect choices.
func NewMatch(cfg Config, seats int, seed int64, rng *rand.Rand, aiSeats ...int) *Match {
	m := &Match{
		cfg:     cfg,
		Players: make([]*Player, seats),
		ais:     make([]*AI, seats),
		winner:  NoSeat,
	}
	for i := range m.Players {
		m.Players[i] = newPlayer(&m.cfg, seed)
	}
	for _, s := range aiSeats {
		if s >= 0 && s < seats {
			m.ais[s] = NewAI(cfg.AI, rng)
		}
	}
	return m
}

// IsAI reports whether seat is computer controlled.
func (m *Match) IsAI(seat int) bool {
	return seat >= 0 && seat < len(m.ais) && m.ais[seat] != nil
}

// Finished reports whether the match is over.
func (m *Match) Finished() bool { return m.finished }

// Winner returns the winning seat, or NoSeat.
func (m *Match) Winner() int { return m.winner }

// Tick returns the number of steps taken so far.
func (m *Match) Tick() int { return m.tick }

// Step advances every live board by one tick. frames is indexed by seat; missing
// entries count as neutral input.
func (m *Match) Step(frames []game.Frame) Result {
	res := Result{Winner: m.winner, Cleared: make([]int, len(m.Players))}
	if m.finished {
		res.Finished = true
		return res
	}
	m.tick++

	for seat, p := range m.Players {
		var f game.Frame
		if m.ais[seat] != nil {
			f = m.ais[seat].Frame(p)
		} else if seat < len(frames) {
			f = frames[seat]
		}
		_, res.Cleared[seat] = p.Step(f)
	}

	m.checkEnd()
	res.Finished = m.finished
	res.Winner = m.winner
	return res
}

// checkEnd finishes a multi-seat match once at most one board is alive, or a solo
// match once its only board tops out. Simultaneous top-outs go to the higher score,
// then the lower seat.
func (m *Match) checkEnd() {
	alive := NoSeat
	aliveCount := 0
	for seat, p := range m.Players {
		if !p.GameOver {
			aliveCount++
			alive = seat
		}
	}

	switch {
	case len(m.Players) > 1 && aliveCount == 1:
		m.finished, m.winner = true, alive
	case aliveCount == 0:
		best := 0
		for seat, p := range m.Players {
			if p.Score > m.Players[best].Score {
				best = seat
			}
		}
		m.finished, m.winner = true, best
	}
}

// Forfeit ends the match immediately in favour of winner.
func (m *Match) Forfeit(winner int) {
	m.finished = true
	m.winner = winner
}

// Snapshot is the per-tick view sent to clients.
type Snapshot struct {
	Tick    int              `json:"tick"`
	Players []PlayerSnapshot `json:"players"`
	Winner  *int             `json:"winner,omitempty"`
}

// Snapshot copies every board.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{Tick: m.tick, Players: make([]PlayerSnapshot, len(m.Players))}
	for i, p := range m.Players {
		s.Players[i] = p.Snapshot()
	}
	if m.finished {
		w := m.winner
		s.Winner = &w
	}
	return s
}
