// internal/game/paddle/ai.go
package paddle

import (
	"math"

	"github.com/jason-s-yu/arena/internal/game"
)

// aiState is the computer opponent's memory between decisions.
type aiState struct {
	countdown int
	target    float64
	hasTarget bool
}

// aiDecide refreshes the target intercept for side. It only looks at the ball when the
// ball is travelling toward the AI paddle; otherwise the previous target stands.
func (m *Match) aiDecide(side int) {
	st := m.ai[side]
	if (side == Left && m.Ball.VX >= 0) || (side == Right && m.Ball.VX <= 0) {
		return
	}
	y, ok := m.predictIntercept(side)
	if !ok {
		return
	}
	y += (m.rng.Float64()*2 - 1) * m.cfg.AIErrorMargin
	st.target = clamp(y, m.cfg.PaddleHeight/2, m.cfg.FieldHeight-m.cfg.PaddleHeight/2)
	st.hasTarget = true
}

// predictIntercept forward-simulates the ball, walls included, until it reaches the
// face of side's paddle, and returns the ball centre Y at that moment.
func (m *Match) predictIntercept(side int) (float64, bool) {
	b := m.Ball
	maxY := m.cfg.FieldHeight - m.cfg.BallSize
	for i := 0; i < m.cfg.AIMaxSteps; i++ {
		b.X += b.VX
		b.Y += b.VY
		if b.Y < 0 {
			b.Y = 0
			b.VY = math.Abs(b.VY)
		} else if b.Y > maxY {
			b.Y = maxY
			b.VY = -math.Abs(b.VY)
		}
		if side == Left && b.X <= m.paddleX(Left)+m.cfg.PaddleWidth {
			return b.Y + m.cfg.BallSize/2, true
		}
		if side == Right && b.X+m.cfg.BallSize >= m.paddleX(Right) {
			return b.Y + m.cfg.BallSize/2, true
		}
	}
	return 0, false
}

// aiInput steers the paddle centre toward the current target and goes idle inside
// the dead zone.
func (m *Match) aiInput(side int) game.Input {
	st := m.ai[side]
	if !st.hasTarget {
		return game.Input{}
	}
	diff := st.target - (m.Paddles[side] + m.cfg.PaddleHeight/2)
	switch {
	case diff > m.cfg.AIDeadZone:
		return game.Input{Down: true}
	case diff < -m.cfg.AIDeadZone:
		return game.Input{Up: true}
	}
	return game.Input{}
}
