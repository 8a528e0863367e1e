package command

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// DefaultBufferSize is the default hard cap on buffered commands.
const DefaultBufferSize = 10000

var (
	// ErrMalformedCommand is returned when a structurally invalid command
	// is offered to the buffer.
	ErrMalformedCommand = errors.New("malformed command")
	// ErrDuplicateCommand is returned when an identical (player, tick,
	// sequence) command is already buffered.
	ErrDuplicateCommand = errors.New("duplicate command")
	// ErrBufferFull is returned when the buffer has reached its cap.
	ErrBufferFull = errors.New("command buffer full")
)

// Buffer stores player commands keyed by their target tick, with a
// per-player index for duplicate detection and queries. It is used only
// from the simulation goroutine and is not synchronized.
type Buffer struct {
	byTick   map[uint64][]PlayerCommand
	byPlayer map[uuid.UUID][]PlayerCommand
	count    int
	maxSize  int
}

// NewBuffer creates a buffer capped at maxSize commands. A maxSize of zero
// or less uses DefaultBufferSize.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &Buffer{
		byTick:   make(map[uint64][]PlayerCommand),
		byPlayer: make(map[uuid.UUID][]PlayerCommand),
		maxSize:  maxSize,
	}
}

// AddCommand buffers a command, rejecting malformed commands, duplicates,
// and insertions beyond the size cap.
func (b *Buffer) AddCommand(cmd PlayerCommand) error {
	if !cmd.Valid() {
		return ErrMalformedCommand
	}
	if b.count >= b.maxSize {
		return ErrBufferFull
	}
	if b.isDuplicate(cmd) {
		return ErrDuplicateCommand
	}

	b.byTick[cmd.Tick] = append(b.byTick[cmd.Tick], cmd)
	b.byPlayer[cmd.Player] = append(b.byPlayer[cmd.Player], cmd)
	b.count++
	return nil
}

// CommandsForTick returns the commands targeting exactly the given tick,
// ordered by sequence ascending.
func (b *Buffer) CommandsForTick(tick uint64) []PlayerCommand {
	cmds := b.byTick[tick]
	if len(cmds) == 0 {
		return nil
	}
	result := make([]PlayerCommand, len(cmds))
	copy(result, cmds)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	return result
}

// CommandsUpToTick returns every command with target tick <= the given
// tick, ordered by (tick, sequence) ascending.
func (b *Buffer) CommandsUpToTick(tick uint64) []PlayerCommand {
	var result []PlayerCommand
	for t, cmds := range b.byTick {
		if t <= tick {
			result = append(result, cmds...)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Less(result[j])
	})
	return result
}

// PlayerCommands returns every buffered command from one player.
func (b *Buffer) PlayerCommands(player uuid.UUID) []PlayerCommand {
	cmds := b.byPlayer[player]
	if len(cmds) == 0 {
		return nil
	}
	result := make([]PlayerCommand, len(cmds))
	copy(result, cmds)
	return result
}

// PruneOlderThan removes every command with tick < the given tick from the
// tick map and the per-player index.
func (b *Buffer) PruneOlderThan(tick uint64) {
	for t, cmds := range b.byTick {
		if t < tick {
			b.count -= len(cmds)
			delete(b.byTick, t)
		}
	}

	for player, cmds := range b.byPlayer {
		kept := cmds[:0]
		for _, cmd := range cmds {
			if cmd.Tick >= tick {
				kept = append(kept, cmd)
			}
		}
		if len(kept) == 0 {
			delete(b.byPlayer, player)
		} else {
			b.byPlayer[player] = kept
		}
	}
}

// OldestTick returns the lowest buffered target tick, or 0 when empty.
func (b *Buffer) OldestTick() uint64 {
	var oldest uint64
	first := true
	for t := range b.byTick {
		if first || t < oldest {
			oldest = t
			first = false
		}
	}
	return oldest
}

// NewestTick returns the highest buffered target tick, or 0 when empty.
func (b *Buffer) NewestTick() uint64 {
	var newest uint64
	for t := range b.byTick {
		if t > newest {
			newest = t
		}
	}
	return newest
}

// HasCommandsForTick reports whether any command targets the given tick.
func (b *Buffer) HasCommandsForTick(tick uint64) bool {
	return len(b.byTick[tick]) > 0
}

// Len returns the total number of buffered commands.
func (b *Buffer) Len() int {
	return b.count
}

// PlayerCount returns the number of players with buffered commands.
func (b *Buffer) PlayerCount() int {
	return len(b.byPlayer)
}

// Clear drops every buffered command.
func (b *Buffer) Clear() {
	b.byTick = make(map[uint64][]PlayerCommand)
	b.byPlayer = make(map[uuid.UUID][]PlayerCommand)
	b.count = 0
}

// IsConsistent verifies that the tick map and the per-player index agree.
func (b *Buffer) IsConsistent() bool {
	total := 0
	for _, cmds := range b.byPlayer {
		total += len(cmds)
	}
	tickTotal := 0
	for _, cmds := range b.byTick {
		tickTotal += len(cmds)
	}
	return total == b.count && tickTotal == b.count
}

func (b *Buffer) isDuplicate(cmd PlayerCommand) bool {
	for _, existing := range b.byPlayer[cmd.Player] {
		if existing.Equal(cmd) {
			return true
		}
	}
	return false
}
