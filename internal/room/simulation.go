// internal/room/simulation.go
package room

import (
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/game/blocks"
	"github.com/jason-s-yu/arena/internal/game/paddle"
)

// Outcome is what a room needs to know after one simulation step.
type Outcome struct {
	Finished bool
	// Winner is the winning seat once Finished is set.
	Winner int
}

// Simulation is the kind-specific payload of a room. Both game families satisfy it,
// so the room and the scheduler never branch on the family.
type Simulation interface {
	// Seats is the number of seats the simulation reads frames for.
	Seats() int
	IsAI(seat int) bool
	Step(frames []game.Frame) Outcome
	Forfeit(winner int)
	Tick() int
	Snapshot() interface{}
	// Score is the final tally sent with game_end.
	Score() interface{}
	// Aux is the game-specific part of the persisted match record.
	Aux() map[string]interface{}
}

// newSimulation builds the kernel for kind with its tuning preset. Every kind must be
// handled here; an unknown kind is a programming error.
func newSimulation(kind Kind, t config.Tuning, rng *rand.Rand) Simulation {
	switch kind {
	case KindAIPaddle:
		return &paddleSim{paddle.NewMatch(t.Paddle.AI, rng, paddle.Right)}
	case KindLocalPaddle:
		return &paddleSim{paddle.NewMatch(t.Paddle.Local, rng)}
	case KindNetworkedPaddle:
		return &paddleSim{paddle.NewMatch(t.Paddle.Networked, rng)}
	case KindTournamentPaddle:
		return &paddleSim{paddle.NewMatch(t.Paddle.Tournament, rng)}
	case KindNetworkedBlocks:
		return &blocksSim{blocks.NewMatch(t.Blocks, 2, rng.Int63(), rng)}
	case KindAIBlocks:
		return &blocksSim{blocks.NewMatch(t.Blocks, 2, rng.Int63(), rng, 1)}
	}
	panic(fmt.Sprintf("room: no simulation for kind %q", kind))
}

type paddleSim struct {
	m *paddle.Match
}

func (s *paddleSim) Seats() int            { return 2 }
func (s *paddleSim) IsAI(seat int) bool    { return s.m.IsAI(seat) }
func (s *paddleSim) Forfeit(winner int)    { s.m.Forfeit(winner) }
func (s *paddleSim) Tick() int             { return s.m.Tick() }
func (s *paddleSim) Snapshot() interface{} { return s.m.Snapshot() }

func (s *paddleSim) Step(frames []game.Frame) Outcome {
	var in [2]game.Input
	for seat := range in {
		if seat < len(frames) {
			in[seat] = frames[seat].Held
		}
	}
	res := s.m.Step(in)
	return Outcome{Finished: res.Finished, Winner: res.Winner}
}

func (s *paddleSim) Score() interface{} {
	return paddle.ScorePair{Left: s.m.Score[paddle.Left], Right: s.m.Score[paddle.Right]}
}

func (s *paddleSim) Aux() map[string]interface{} {
	return map[string]interface{}{
		"score": []int{s.m.Score[paddle.Left], s.m.Score[paddle.Right]},
		"ticks": s.m.Tick(),
	}
}

type blocksSim struct {
	m *blocks.Match
}

func (s *blocksSim) Seats() int            { return len(s.m.Players) }
func (s *blocksSim) IsAI(seat int) bool    { return s.m.IsAI(seat) }
func (s *blocksSim) Forfeit(winner int)    { s.m.Forfeit(winner) }
func (s *blocksSim) Tick() int             { return s.m.Tick() }
func (s *blocksSim) Snapshot() interface{} { return s.m.Snapshot() }

func (s *blocksSim) Step(frames []game.Frame) Outcome {
	res := s.m.Step(frames)
	return Outcome{Finished: res.Finished, Winner: res.Winner}
}

func (s *blocksSim) Score() interface{} {
	scores := make([]int, len(s.m.Players))
	for i, p := range s.m.Players {
		scores[i] = p.Score
	}
	return scores
}

func (s *blocksSim) Aux() map[string]interface{} {
	scores := make([]int, len(s.m.Players))
	lines := make([]int, len(s.m.Players))
	for i, p := range s.m.Players {
		scores[i] = p.Score
		lines[i] = p.Lines
	}
	return map[string]interface{}{
		"scores": scores,
		"lines":  lines,
		"ticks":  s.m.Tick(),
	}
}
