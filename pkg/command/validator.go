package command

import (
	"time"

	"github.com/google/uuid"
)

// Verdict classifies a command against the server's current tick.
type Verdict int

const (
	Valid Verdict = iota
	Malformed
	InvalidPlayer
	TooOld
	TooFuture
	RateLimited
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Malformed:
		return "malformed"
	case InvalidPlayer:
		return "invalid player"
	case TooOld:
		return "too old"
	case TooFuture:
		return "too far in future"
	case RateLimited:
		return "rate limited"
	default:
		return "unknown"
	}
}

const (
	// DefaultMaxPastTicks is how far behind the current tick a command may
	// target before it is rejected.
	DefaultMaxPastTicks = 60
	// DefaultMaxFutureTicks is how far ahead of the current tick a command
	// may target before it is rejected.
	DefaultMaxFutureTicks = 60
	// DefaultMaxCommandsPerSecond is the per-player rate limit.
	DefaultMaxCommandsPerSecond = 120
	// rateLimitWindowMs is the span of the tumbling rate-limit window.
	rateLimitWindowMs = 1000
)

type rateWindow struct {
	windowStart      int64
	commandsInWindow int
	lastCommand      int64
}

// ValidatorOptions configures a Validator. Zero values take the defaults.
type ValidatorOptions struct {
	MaxPastTicks         uint64
	MaxFutureTicks       uint64
	MaxCommandsPerSecond int
	// KnownPlayer, when set, marks commands from unknown players as
	// InvalidPlayer.
	KnownPlayer func(uuid.UUID) bool
}

// Validator classifies commands and enforces a per-player tumbling-window
// rate limit. A command is either Valid or rejected with a specific kind;
// rejected commands are never retried.
type Validator struct {
	maxPastTicks         uint64
	maxFutureTicks       uint64
	maxCommandsPerSecond int
	knownPlayer          func(uuid.UUID) bool

	perPlayer map[uuid.UUID]*rateWindow

	totalCommands    uint64
	rejectedCommands uint64

	now func() time.Time
}

// NewValidator creates a validator with the given options.
func NewValidator(opts ValidatorOptions) *Validator {
	v := &Validator{
		maxPastTicks:         opts.MaxPastTicks,
		maxFutureTicks:       opts.MaxFutureTicks,
		maxCommandsPerSecond: opts.MaxCommandsPerSecond,
		knownPlayer:          opts.KnownPlayer,
		perPlayer:            make(map[uuid.UUID]*rateWindow),
		now:                  time.Now,
	}
	if v.maxPastTicks == 0 {
		v.maxPastTicks = DefaultMaxPastTicks
	}
	if v.maxFutureTicks == 0 {
		v.maxFutureTicks = DefaultMaxFutureTicks
	}
	if v.maxCommandsPerSecond == 0 {
		v.maxCommandsPerSecond = DefaultMaxCommandsPerSecond
	}
	return v
}

// Validate classifies one command against the current tick.
func (v *Validator) Validate(cmd PlayerCommand, currentTick uint64) Verdict {
	v.totalCommands++

	if !cmd.Valid() {
		v.rejectedCommands++
		return Malformed
	}

	if v.knownPlayer != nil && !v.knownPlayer(cmd.Player) {
		v.rejectedCommands++
		return InvalidPlayer
	}

	if cmd.Tick+v.maxPastTicks < currentTick {
		v.rejectedCommands++
		return TooOld
	}

	if cmd.Tick > currentTick+v.maxFutureTicks {
		v.rejectedCommands++
		return TooFuture
	}

	nowMs := v.now().UnixMilli()
	if !v.checkRateLimit(cmd.Player, nowMs) {
		v.rejectedCommands++
		return RateLimited
	}

	return Valid
}

// PlayerRate returns the player's current command rate in commands per second.
func (v *Validator) PlayerRate(player uuid.UUID) float64 {
	w, ok := v.perPlayer[player]
	if !ok || w.commandsInWindow == 0 {
		return 0
	}
	return float64(w.commandsInWindow) * 1000 / float64(rateLimitWindowMs)
}

// TotalCommands returns the count of commands seen.
func (v *Validator) TotalCommands() uint64 {
	return v.totalCommands
}

// RejectedCommands returns the count of commands rejected.
func (v *Validator) RejectedCommands() uint64 {
	return v.rejectedCommands
}

// RejectionRate returns the fraction of seen commands that were rejected.
func (v *Validator) RejectionRate() float64 {
	if v.totalCommands == 0 {
		return 0
	}
	return float64(v.rejectedCommands) / float64(v.totalCommands)
}

// ResetStatistics zeroes the seen/rejected counters.
func (v *Validator) ResetStatistics() {
	v.totalCommands = 0
	v.rejectedCommands = 0
}

// ClearPlayer drops the rate-limit tracking for a departed player.
func (v *Validator) ClearPlayer(player uuid.UUID) {
	delete(v.perPlayer, player)
}

// checkRateLimit counts the command into the player's 1-second tumbling
// window and reports whether the implied rate stays within the limit.
func (v *Validator) checkRateLimit(player uuid.UUID, nowMs int64) bool {
	w, ok := v.perPlayer[player]
	if !ok {
		w = &rateWindow{windowStart: nowMs}
		v.perPlayer[player] = w
	}

	if nowMs-w.windowStart >= rateLimitWindowMs {
		w.windowStart = nowMs
		w.commandsInWindow = 0
	}

	w.commandsInWindow++
	w.lastCommand = nowMs

	rate := float64(w.commandsInWindow) * 1000 / float64(rateLimitWindowMs)
	return rate <= float64(v.maxCommandsPerSecond)
}
