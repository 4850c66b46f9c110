// internal/config/tuning.go
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/jason-s-yu/arena/internal/game/blocks"
	"github.com/jason-s-yu/arena/internal/game/paddle"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/tuning.yaml
var defaultTuningYAML []byte

// PaddleTuning holds one kernel preset per paddle room kind.
type PaddleTuning struct {
	AI         paddle.Config `yaml:"ai"`
	Local      paddle.Config `yaml:"local"`
	Networked  paddle.Config `yaml:"networked"`
	Tournament paddle.Config `yaml:"tournament"`
}

// Tuning is the gameplay configuration: physics presets, timings and scoring tables.
type Tuning struct {
	Paddle PaddleTuning  `yaml:"paddle"`
	Blocks blocks.Config `yaml:"blocks"`
}

// DefaultTuning returns the presets compiled into the kernels.
func DefaultTuning() Tuning {
	return Tuning{
		Paddle: PaddleTuning{
			AI:         paddle.AIConfig(),
			Local:      paddle.LocalConfig(),
			Networked:  paddle.DefaultConfig(),
			Tournament: paddle.TournamentConfig(),
		},
		Blocks: blocks.DefaultConfig(),
	}
}

// LoadTuning starts from the compiled presets, applies the embedded defaults file and
// then, if customPath is set, the operator's file. Keys missing from a file keep their
// previous value.
func LoadTuning(customPath string) (Tuning, error) {
	t := DefaultTuning()
	if err := yaml.Unmarshal(defaultTuningYAML, &t); err != nil {
		return t, fmt.Errorf("failed to parse embedded tuning: %w", err)
	}

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return t, fmt.Errorf("failed to read tuning %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return t, fmt.Errorf("failed to parse tuning %s: %w", customPath, err)
		}
	}

	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate checks every preset.
func (t Tuning) Validate() error {
	presets := map[string]paddle.Config{
		"ai":         t.Paddle.AI,
		"local":      t.Paddle.Local,
		"networked":  t.Paddle.Networked,
		"tournament": t.Paddle.Tournament,
	}
	for name, p := range presets {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("paddle.%s: %w", name, err)
		}
	}
	if err := t.Blocks.Validate(); err != nil {
		return fmt.Errorf("blocks: %w", err)
	}
	return nil
}
