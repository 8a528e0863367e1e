package client

import (
	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/game"
	"github.com/skylane-game/skylane/pkg/game/types"
)

// DefaultMaxUnconfirmedCommands bounds the replay buffer: one second of
// input at 60 Hz.
const DefaultMaxUnconfirmedCommands = 60

// Predictor runs the local simulation ahead of the server and replays
// still-unconfirmed inputs on top of every authoritative update.
type Predictor struct {
	unconfirmed    []command.PlayerCommand
	maxUnconfirmed int

	lastConfirmedTick uint64
	predictionErrors  uint64
}

// NewPredictor creates a predictor with the default replay bound.
func NewPredictor() *Predictor {
	return &Predictor{
		maxUnconfirmed: DefaultMaxUnconfirmedCommands,
	}
}

// RecordCommand appends a sent command to the unconfirmed list, dropping
// the oldest entry past the bound.
func (p *Predictor) RecordCommand(cmd command.PlayerCommand) {
	p.unconfirmed = append(p.unconfirmed, cmd)
	if len(p.unconfirmed) > p.maxUnconfirmed {
		p.unconfirmed = p.unconfirmed[1:]
	}
}

// PredictNextState clones the current world, applies the command and steps
// one tick. The input world is never mutated.
func (p *Predictor) PredictNextState(current *types.World, cmd command.PlayerCommand) *types.World {
	predicted := current.Clone()
	// A command for a ship not present yet is a no-op; the step still runs
	// so local time keeps advancing.
	_ = game.ApplyCommand(predicted, cmd)
	predicted.Step()
	return predicted
}

// ReconcileWithServer rebases prediction onto an authoritative world:
// drop commands the server has confirmed (tick <= serverTick), clone the
// server world, then replay the remaining commands in order, stepping
// after each. A replay that does not land on the expected tick counts as a
// prediction error.
func (p *Predictor) ReconcileWithServer(serverWorld *types.World, serverTick uint64) *types.World {
	p.lastConfirmedTick = serverTick

	kept := p.unconfirmed[:0]
	for _, cmd := range p.unconfirmed {
		if cmd.Tick > serverTick {
			kept = append(kept, cmd)
		}
	}
	p.unconfirmed = kept

	reconciled := serverWorld.Clone()
	for _, cmd := range p.unconfirmed {
		_ = game.ApplyCommand(reconciled, cmd)
		reconciled.Step()
	}

	if reconciled.Tick != serverTick+uint64(len(p.unconfirmed)) {
		p.predictionErrors++
	}

	return reconciled
}

// UnconfirmedCount returns the number of commands awaiting confirmation.
func (p *Predictor) UnconfirmedCount() int {
	return len(p.unconfirmed)
}

// UnconfirmedCommands returns a copy of the replay buffer.
func (p *Predictor) UnconfirmedCommands() []command.PlayerCommand {
	cmds := make([]command.PlayerCommand, len(p.unconfirmed))
	copy(cmds, p.unconfirmed)
	return cmds
}

// LastConfirmedTick returns the newest tick the server has confirmed.
func (p *Predictor) LastConfirmedTick() uint64 {
	return p.lastConfirmedTick
}

// PredictionErrors returns the count of replays that missed their tick.
func (p *Predictor) PredictionErrors() uint64 {
	return p.predictionErrors
}

// Clear resets the predictor.
func (p *Predictor) Clear() {
	p.unconfirmed = nil
	p.lastConfirmedTick = 0
	p.predictionErrors = 0
}
