package command

import (
	"bytes"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/types"
)

// MaxSaneTick is the ceiling above which a command's target tick is
// considered malformed.
const MaxSaneTick = 1_000_000_000

// Control is the 32-bit control word of a player command: movement, firing
// and selection bits.
type Control uint32

const (
	ControlThrust Control = 1 << iota
	ControlReverse
	ControlTurnLeft
	ControlTurnRight
	ControlFirePrimary
	ControlFireSecondary
	ControlSelectTarget
)

// Has reports whether all bits of c are set.
func (c Control) Has(bits Control) bool {
	return c&bits == bits
}

// PlayerCommand captures one player's input for one game tick. Commands are
// ordered by (tick, sequence) and considered equal when (player, tick,
// sequence) match.
type PlayerCommand struct {
	Player         uuid.UUID
	Tick           uint64
	Controls       Control
	TargetPoint    types.Point
	HasTargetPoint bool
	Sequence       uint32
}

// Valid reports whether the command is structurally sound: a non-empty
// player id and a target tick below the sanity ceiling.
func (c PlayerCommand) Valid() bool {
	if c.Player == uuid.Nil {
		return false
	}
	if c.Tick > MaxSaneTick {
		return false
	}
	return true
}

// Less orders commands by (tick, sequence) ascending.
func (c PlayerCommand) Less(other PlayerCommand) bool {
	if c.Tick != other.Tick {
		return c.Tick < other.Tick
	}
	return c.Sequence < other.Sequence
}

// Equal reports identity: same player, tick and sequence.
func (c PlayerCommand) Equal(other PlayerCommand) bool {
	return c.Player == other.Player && c.Tick == other.Tick && c.Sequence == other.Sequence
}

// ComparePlayers gives the total order of player ids used when resolving
// concurrent input within a tick.
func ComparePlayers(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
