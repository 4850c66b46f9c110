// internal/room/kind.go
package room

import "fmt"

// Kind is the ruleset and topology a room instantiates.
type Kind string

const (
	KindAIPaddle         Kind = "ai-paddle"
	KindLocalPaddle      Kind = "local-paddle"
	KindNetworkedPaddle  Kind = "networked-paddle"
	KindTournamentPaddle Kind = "tournament-paddle"
	KindNetworkedBlocks  Kind = "networked-blocks"
	KindAIBlocks         Kind = "ai-blocks"
)

// Kinds lists every supported kind.
var Kinds = []Kind{
	KindAIPaddle,
	KindLocalPaddle,
	KindNetworkedPaddle,
	KindTournamentPaddle,
	KindNetworkedBlocks,
	KindAIBlocks,
}

// Family groups kinds that share a kernel and a scheduler.
type Family string

const (
	FamilyPaddle Family = "paddle"
	FamilyBlocks Family = "blocks"
)

// MaxParticipants is the hard cap on human participants in any room.
const MaxParticipants = 10

// ParseKind validates a client-supplied kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Family returns the game family of k.
func (k Kind) Family() Family {
	switch k {
	case KindNetworkedBlocks, KindAIBlocks:
		return FamilyBlocks
	default:
		return FamilyPaddle
	}
}

// Capacity is the number of human connections the kind accepts.
func (k Kind) Capacity() int {
	switch k {
	case KindTournamentPaddle:
		return MaxParticipants
	case KindNetworkedPaddle, KindNetworkedBlocks:
		return 2
	default:
		return 1
	}
}

// IsTournament reports whether a Director drives the room.
func (k Kind) IsTournament() bool { return k == KindTournamentPaddle }

// HasAI reports whether seat 1 is computer controlled.
func (k Kind) HasAI() bool { return k == KindAIPaddle || k == KindAIBlocks }

// SharedController reports whether one connection drives both seats.
func (k Kind) SharedController() bool { return k == KindLocalPaddle }

// GameName is the name stored in match records.
func (k Kind) GameName() string {
	if k.Family() == FamilyBlocks {
		return "blocks"
	}
	return "paddle"
}
