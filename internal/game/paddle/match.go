// internal/game/paddle/match.go
package paddle

import (
	"math"
	"math/rand"

	"github.com/jason-s-yu/arena/internal/game"
)

// Sides of the field. Left is also "player1" in match records.
const (
	Left  = 0
	Right = 1
)

// NoSide marks "nobody" in results.
const NoSide = -1

// Ball holds the position (top-left corner) and per-tick velocity of the ball.
type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Result reports what happened during one Step.
type Result struct {
	// Scorer is the side that scored this tick, or NoSide.
	Scorer   int
	Finished bool
	// Winner is set once Finished is true.
	Winner int
}

// Match is the authoritative state of one paddle-ball game. It is not safe for
// concurrent use; the owning room serializes access.
type Match struct {
	cfg Config
	rng *rand.Rand

	Ball    Ball
	Paddles [2]float64
	Score   [2]int

	ai       [2]*aiState
	tick     int
	finished bool
	winner   int
}

// NewMatch creates a match with both paddles centred and the ball served in a random
// direction. Sides listed in aiSides are driven by the computer opponent.
func NewMatch(cfg Config, rng *rand.Rand, aiSides ...int) *Match {
	m := &Match{
		cfg:    cfg,
		rng:    rng,
		winner: NoSide,
	}
	centre := (cfg.FieldHeight - cfg.PaddleHeight) / 2
	m.Paddles = [2]float64{centre, centre}
	for _, s := range aiSides {
		if s == Left || s == Right {
			m.ai[s] = &aiState{}
		}
	}
	toward := Left
	if rng.Intn(2) == 1 {
		toward = Right
	}
	m.serve(toward)
	return m
}

// Config returns the configuration the match was built with.
func (m *Match) Config() Config { return m.cfg }

// IsAI reports whether side is computer controlled.
func (m *Match) IsAI(side int) bool { return m.ai[side] != nil }

// Finished reports whether a side has reached the winning score.
func (m *Match) Finished() bool { return m.finished }

// Winner returns the winning side, or NoSide while the match is running.
func (m *Match) Winner() int { return m.winner }

// Tick returns the number of steps taken so far.
func (m *Match) Tick() int { return m.tick }

// Forfeit ends the match immediately in favour of winner, leaving the score as is.
func (m *Match) Forfeit(winner int) {
	m.finished = true
	m.winner = winner
}

// Step advances the match by one tick. The order of the phases is fixed: paddles,
// AI decision, ball motion, walls, paddles, goals, win check.
func (m *Match) Step(in [2]game.Input) Result {
	res := Result{Scorer: NoSide, Winner: m.winner}
	if m.finished {
		res.Finished = true
		return res
	}
	m.tick++

	for side := range m.Paddles {
		if m.ai[side] != nil {
			in[side] = m.aiInput(side)
		}
		m.movePaddle(side, in[side])
	}

	for side, st := range m.ai {
		if st == nil {
			continue
		}
		st.countdown--
		if st.countdown <= 0 {
			st.countdown = m.cfg.AIInterval
			m.aiDecide(side)
		}
	}

	m.Ball.X += m.Ball.VX
	m.Ball.Y += m.Ball.VY
	m.reflectWalls()
	m.collidePaddles()

	if scorer := m.goal(); scorer != NoSide {
		res.Scorer = scorer
		m.Score[scorer]++
		m.serve(1 - scorer)
		if m.Score[scorer] >= m.cfg.WinningScore {
			m.finished = true
			m.winner = scorer
		}
	}

	res.Finished = m.finished
	res.Winner = m.winner
	return res
}

func (m *Match) movePaddle(side int, in game.Input) {
	y := m.Paddles[side]
	switch {
	case in.Up && !in.Down:
		y -= m.cfg.PaddleSpeed
	case in.Down && !in.Up:
		y += m.cfg.PaddleSpeed
	}
	m.Paddles[side] = clamp(y, 0, m.cfg.FieldHeight-m.cfg.PaddleHeight)
}

func (m *Match) reflectWalls() {
	maxY := m.cfg.FieldHeight - m.cfg.BallSize
	if m.Ball.Y < 0 {
		m.Ball.Y = 0
		m.Ball.VY = math.Abs(m.Ball.VY)
	} else if m.Ball.Y > maxY {
		m.Ball.Y = maxY
		m.Ball.VY = -math.Abs(m.Ball.VY)
	}
}

// paddleX returns the x coordinate of the left edge of a side's paddle.
func (m *Match) paddleX(side int) float64 {
	if side == Left {
		return m.cfg.PaddleInset
	}
	return m.cfg.FieldWidth - m.cfg.PaddleInset - m.cfg.PaddleWidth
}

func (m *Match) collidePaddles() {
	side := Right
	if m.Ball.VX < 0 {
		side = Left
	}
	px, py := m.paddleX(side), m.Paddles[side]
	b := m.Ball
	if b.X+m.cfg.BallSize < px || b.X > px+m.cfg.PaddleWidth ||
		b.Y+m.cfg.BallSize < py || b.Y > py+m.cfg.PaddleHeight {
		return
	}

	dir := 1.0
	if side == Right {
		dir = -1
	}

	switch m.cfg.Bounce {
	case BounceAngled:
		half := m.cfg.PaddleHeight / 2
		offset := clamp(((b.Y+m.cfg.BallSize/2)-(py+half))/half, -1, 1)
		angle := offset * m.cfg.MaxBounceAngle
		if m.cfg.Jitter > 0 {
			angle += (m.rng.Float64()*2 - 1) * m.cfg.Jitter
		}
		speed := math.Min(math.Hypot(b.VX, b.VY)*m.cfg.SpeedMultiplier, m.cfg.MaxBallSpeed)
		m.Ball.VX = dir * speed * math.Cos(angle)
		m.Ball.VY = speed * math.Sin(angle)
	default:
		m.Ball.VX = dir * math.Abs(b.VX)
	}

	// Flush against the face so the same paddle cannot hit again next tick.
	if side == Left {
		m.Ball.X = px + m.cfg.PaddleWidth
	} else {
		m.Ball.X = px - m.cfg.BallSize
	}
}

// goal returns the side that scored, or NoSide while the ball is still in play.
func (m *Match) goal() int {
	switch {
	case m.Ball.X+m.cfg.BallSize < 0:
		return Right
	case m.Ball.X > m.cfg.FieldWidth:
		return Left
	}
	return NoSide
}

// serve puts the ball back in the centre moving toward side with a random vertical
// component.
func (m *Match) serve(toward int) {
	dir := -1.0
	if toward == Right {
		dir = 1
	}
	angle := (m.rng.Float64()*2 - 1) * m.cfg.ServeAngle
	m.Ball = Ball{
		X:  (m.cfg.FieldWidth - m.cfg.BallSize) / 2,
		Y:  (m.cfg.FieldHeight - m.cfg.BallSize) / 2,
		VX: dir * m.cfg.BallSpeed * math.Cos(angle),
		VY: m.cfg.BallSpeed * math.Sin(angle),
	}
}

// Snapshot is the per-tick view sent to clients.
type Snapshot struct {
	Tick    int        `json:"tick"`
	Ball    Ball       `json:"ball"`
	Paddles SidePair   `json:"paddles"`
	Score   ScorePair  `json:"score"`
	Winner  *int       `json:"winner,omitempty"`
	Field   FieldSpecs `json:"field"`
}

// SidePair holds one paddle coordinate per side.
type SidePair struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// ScorePair holds one score per side.
type ScorePair struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// FieldSpecs lets clients scale the field without hard-coding dimensions.
type FieldSpecs struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	PaddleWidth  float64 `json:"paddleWidth"`
	PaddleHeight float64 `json:"paddleHeight"`
	PaddleInset  float64 `json:"paddleInset"`
	BallSize     float64 `json:"ballSize"`
}

// Snapshot captures the serializable subset of the state.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		Tick:    m.tick,
		Ball:    m.Ball,
		Paddles: SidePair{Left: m.Paddles[Left], Right: m.Paddles[Right]},
		Score:   ScorePair{Left: m.Score[Left], Right: m.Score[Right]},
		Field: FieldSpecs{
			Width:        m.cfg.FieldWidth,
			Height:       m.cfg.FieldHeight,
			PaddleWidth:  m.cfg.PaddleWidth,
			PaddleHeight: m.cfg.PaddleHeight,
			PaddleInset:  m.cfg.PaddleInset,
			BallSize:     m.cfg.BallSize,
		},
	}
	if m.finished {
		w := m.winner
		s.Winner = &w
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
