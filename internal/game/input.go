// internal/game/input.go
package game

// Input is the control state a client reports for one seat. Only the most recent
// Input is kept per slot; it is sampled once per tick.
type Input struct {
	Up       bool `json:"up"`
	Down     bool `json:"down"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Rotate   bool `json:"rotate"`
	HardDrop bool `json:"hardDrop"`
	SoftDrop bool `json:"softDrop"`
}

// Frame is what a kernel sees for one seat on one tick: the held state at the tick
// boundary plus every button that went down since the previous tick.
type Frame struct {
	Held    Input
	Pressed Input
}

// risingFrom reports the buttons that are down in in but were up in prev.
func (in Input) risingFrom(prev Input) Input {
	return Input{
		Up:       in.Up && !prev.Up,
		Down:     in.Down && !prev.Down,
		Left:     in.Left && !prev.Left,
		Right:    in.Right && !prev.Right,
		Rotate:   in.Rotate && !prev.Rotate,
		HardDrop: in.HardDrop && !prev.HardDrop,
		SoftDrop: in.SoftDrop && !prev.SoftDrop,
	}
}

func (in Input) or(o Input) Input {
	return Input{
		Up:       in.Up || o.Up,
		Down:     in.Down || o.Down,
		Left:     in.Left || o.Left,
		Right:    in.Right || o.Right,
		Rotate:   in.Rotate || o.Rotate,
		HardDrop: in.HardDrop || o.HardDrop,
		SoftDrop: in.SoftDrop || o.SoftDrop,
	}
}

// Latch stores the latest input of a slot and remembers rising edges until the next
// tick consumes them, so a tap that is pressed and released between two ticks is
// still seen once. A Latch is not safe for concurrent use; the owning room's mutex
// guards it.
type Latch struct {
	current Input
	pressed Input
}

// Set overwrites the held state (last write wins) and records new presses.
func (l *Latch) Set(in Input) {
	l.pressed = l.pressed.or(in.risingFrom(l.current))
	l.current = in
}

// Consume returns the frame for this tick and clears the pending presses.
func (l *Latch) Consume() Frame {
	f := Frame{Held: l.current, Pressed: l.pressed}
	l.pressed = Input{}
	return f
}

// Current returns the held state without consuming anything.
func (l *Latch) Current() Input {
	return l.current
}

// Reset drops all held and pending state, e.g. between tournament matches.
func (l *Latch) Reset() {
	l.current = Input{}
	l.pressed = Input{}
}
