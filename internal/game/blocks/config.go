// internal/game/blocks/config.go
package blocks

import (
	"errors"
	"fmt"
)

// Config holds the timing and scoring rules of a block-stack match. All durations are
// in ticks at the scheduler's fixed rate.
type Config struct {
	GravityTicks int `yaml:"gravity_ticks"`
	// MoveDelayTicks is how long a horizontal key must be held before auto-repeat starts.
	MoveDelayTicks int `yaml:"move_delay_ticks"`
	// MoveRepeatTicks is the auto-repeat period once MoveDelayTicks has elapsed.
	MoveRepeatTicks int `yaml:"move_repeat_ticks"`
	// LineScores[n-1] is awarded for clearing n rows at once; the last entry covers
	// anything larger.
	LineScores     []int `yaml:"line_scores"`
	SoftDropPoints int   `yaml:"soft_drop_points"`
	HardDropPoints int   `yaml:"hard_drop_points"`

	AI AIConfig `yaml:"ai"`
}

// Weights score a board for the AI. Negative weights penalize.
type Weights struct {
	Height    float64 `yaml:"height"`
	Lines     float64 `yaml:"lines"`
	Holes     float64 `yaml:"holes"`
	Bumpiness float64 `yaml:"bumpiness"`
}

// AIConfig tunes the computer opponent.
type AIConfig struct {
	ThinkTicks       int     `yaml:"think_ticks"`
	MoveDelayTicks   int     `yaml:"move_delay_ticks"`
	RotateDelayTicks int     `yaml:"rotate_delay_ticks"`
	BestChance       float64 `yaml:"best_chance"`
	TopThreeChance   float64 `yaml:"top_three_chance"`
	Weights          Weights `yaml:"weights"`
}

// DefaultConfig returns the standard rules.
func DefaultConfig() Config {
	return Config{
		GravityTicks:    48,
		MoveDelayTicks:  10,
		MoveRepeatTicks: 3,
		LineScores:      []int{100, 300, 500, 800},
		SoftDropPoints:  1,
		HardDropPoints:  0,
		AI: AIConfig{
			ThinkTicks:       30,
			MoveDelayTicks:   8,
			RotateDelayTicks: 10,
			BestChance:       0.85,
			TopThreeChance:   0.12,
			Weights: Weights{
				Height:    -0.510066,
				Lines:     0.760666,
				Holes:     -0.35663,
				Bumpiness: -0.184483,
			},
		},
	}
}

// Validate rejects rule sets the kernel cannot run.
func (c Config) Validate() error {
	switch {
	case c.GravityTicks <= 0:
		return errors.New("gravity ticks must be positive")
	case c.MoveDelayTicks <= 0 || c.MoveRepeatTicks <= 0:
		return errors.New("move delay and repeat must be positive")
	case len(c.LineScores) == 0:
		return errors.New("line score table is empty")
	case c.AI.BestChance < 0 || c.AI.TopThreeChance < 0 || c.AI.BestChance+c.AI.TopThreeChance > 1:
		return fmt.Errorf("ai chances %.2f/%.2f do not form a distribution", c.AI.BestChance, c.AI.TopThreeChance)
	}
	return nil
}

// LineScore returns the points for clearing n rows in one lock.
func (c Config) LineScore(n int) int {
	if n <= 0 {
		return 0
	}
	if n > len(c.LineScores) {
		n = len(c.LineScores)
	}
	return c.LineScores[n-1]
}
