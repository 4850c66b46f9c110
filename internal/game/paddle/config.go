// internal/game/paddle/config.go
package paddle

import (
	"errors"
	"fmt"
	"math"
)

// BouncePolicy selects how the ball leaves a paddle.
type BouncePolicy string

const (
	// BounceFixed only inverts the horizontal velocity; the outgoing angle equals the incoming one.
	BounceFixed BouncePolicy = "fixed"
	// BounceAngled derives the outgoing angle from where the ball hit the paddle, adds jitter
	// and speeds the ball up by SpeedMultiplier.
	BounceAngled BouncePolicy = "angled"
)

// Config parameterizes a paddle-ball match. One Config per room kind replaces the
// separate AI/local/networked/tournament game variants.
type Config struct {
	FieldWidth   float64 `yaml:"field_width" json:"fieldWidth"`
	FieldHeight  float64 `yaml:"field_height" json:"fieldHeight"`
	PaddleWidth  float64 `yaml:"paddle_width" json:"paddleWidth"`
	PaddleHeight float64 `yaml:"paddle_height" json:"paddleHeight"`
	// PaddleInset is the gap between a paddle and its side wall.
	PaddleInset float64 `yaml:"paddle_inset" json:"paddleInset"`
	PaddleSpeed float64 `yaml:"paddle_speed" json:"paddleSpeed"`
	BallSize    float64 `yaml:"ball_size" json:"ballSize"`
	BallSpeed   float64 `yaml:"ball_speed" json:"ballSpeed"`
	// MaxBallSpeed caps rally acceleration below the paddle width plus ball size so the
	// ball can never skip over a paddle in one tick.
	MaxBallSpeed float64 `yaml:"max_ball_speed" json:"-"`
	// ServeAngle bounds the random vertical angle (radians) of a fresh serve.
	ServeAngle float64 `yaml:"serve_angle" json:"-"`

	Bounce          BouncePolicy `yaml:"bounce" json:"-"`
	SpeedMultiplier float64      `yaml:"speed_multiplier" json:"-"`
	MaxBounceAngle  float64      `yaml:"max_bounce_angle" json:"-"`
	Jitter          float64      `yaml:"jitter" json:"-"`

	WinningScore int `yaml:"winning_score" json:"winningScore"`

	// AIInterval is the number of ticks between two AI decisions.
	AIInterval    int     `yaml:"ai_interval" json:"-"`
	AIMaxSteps    int     `yaml:"ai_max_steps" json:"-"`
	AIErrorMargin float64 `yaml:"ai_error_margin" json:"-"`
	AIDeadZone    float64 `yaml:"ai_dead_zone" json:"-"`
}

// DefaultConfig returns the networked preset.
func DefaultConfig() Config {
	return Config{
		FieldWidth:      800,
		FieldHeight:     400,
		PaddleWidth:     10,
		PaddleHeight:    80,
		PaddleInset:     20,
		PaddleSpeed:     6,
		BallSize:        10,
		BallSpeed:       5,
		MaxBallSpeed:    15,
		ServeAngle:      math.Pi / 6,
		Bounce:          BounceAngled,
		SpeedMultiplier: 1.05,
		MaxBounceAngle:  math.Pi / 4,
		Jitter:          0.1,
		WinningScore:    10,
		AIInterval:      60,
		AIMaxSteps:      2000,
		AIErrorMargin:   40,
		AIDeadZone:      10,
	}
}

// AIConfig is the preset for a human against the computer: fixed bounce angle, no
// rally acceleration.
func AIConfig() Config {
	c := DefaultConfig()
	c.Bounce = BounceFixed
	c.SpeedMultiplier = 1
	c.Jitter = 0
	return c
}

// LocalConfig is the preset for two players sharing one keyboard.
func LocalConfig() Config {
	c := DefaultConfig()
	c.SpeedMultiplier = 1
	return c
}

// TournamentConfig is the preset for a bracket match.
func TournamentConfig() Config {
	return DefaultConfig()
}

// Validate rejects configurations the kernel cannot run.
func (c Config) Validate() error {
	switch {
	case c.FieldWidth <= 0 || c.FieldHeight <= 0:
		return errors.New("field dimensions must be positive")
	case c.PaddleHeight <= 0 || c.PaddleHeight > c.FieldHeight:
		return fmt.Errorf("paddle height %.1f does not fit field height %.1f", c.PaddleHeight, c.FieldHeight)
	case c.BallSize <= 0 || c.BallSize >= c.FieldHeight:
		return fmt.Errorf("ball size %.1f does not fit field height %.1f", c.BallSize, c.FieldHeight)
	case c.BallSpeed <= 0:
		return errors.New("ball speed must be positive")
	case c.MaxBallSpeed < c.BallSpeed:
		return fmt.Errorf("max ball speed %.1f is below the serve speed %.1f", c.MaxBallSpeed, c.BallSpeed)
	case c.MaxBallSpeed >= c.PaddleWidth+c.BallSize:
		return fmt.Errorf("max ball speed %.1f lets the ball pass through a paddle", c.MaxBallSpeed)
	case c.WinningScore <= 0:
		return errors.New("winning score must be positive")
	case c.Bounce != BounceFixed && c.Bounce != BounceAngled:
		return fmt.Errorf("unknown bounce policy %q", c.Bounce)
	case c.AIInterval <= 0 || c.AIMaxSteps <= 0:
		return errors.New("ai interval and step bound must be positive")
	}
	return nil
}
