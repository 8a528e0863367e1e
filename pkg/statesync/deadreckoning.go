package statesync

import "github.com/skylane-game/skylane/pkg/game/types"

// ReckonedState is the last authoritative kinematic state of one entity.
type ReckonedState struct {
	Position types.Point
	Velocity types.Point
	Facing   types.Angle
	Tick     uint64
}

// DeadReckoner linearly extrapolates a single entity from its last
// authoritative state. Facing is not extrapolated; ships turn slowly and
// fresh facings arrive with every update.
type DeadReckoner struct {
	authoritative ReckonedState
	currentTick   uint64
}

// SetAuthoritative replaces the extrapolation basis.
func (d *DeadReckoner) SetAuthoritative(state ReckonedState) {
	d.authoritative = state
}

// Authoritative returns the current basis state.
func (d *DeadReckoner) Authoritative() ReckonedState {
	return d.authoritative
}

// Predict returns the extrapolated state at the target tick. For targets at
// or before the basis tick the basis is returned verbatim.
func (d *DeadReckoner) Predict(targetTick uint64) ReckonedState {
	if targetTick <= d.authoritative.Tick {
		return d.authoritative
	}

	deltaTicks := float64(targetTick - d.authoritative.Tick)
	return ReckonedState{
		Position: d.authoritative.Position.Add(d.authoritative.Velocity.Scale(deltaTicks)),
		Velocity: d.authoritative.Velocity,
		Facing:   d.authoritative.Facing,
		Tick:     targetTick,
	}
}

// PredictAhead extrapolates the given number of ticks past the basis.
func (d *DeadReckoner) PredictAhead(ticks uint64) ReckonedState {
	return d.Predict(d.authoritative.Tick + ticks)
}

// PositionError returns the Euclidean distance between a predicted and an
// actual state.
func PositionError(predicted, actual ReckonedState) float64 {
	return actual.Position.DistanceTo(predicted.Position)
}

// IsErrorExcessive reports whether the position error exceeds the threshold.
func IsErrorExcessive(predicted, actual ReckonedState, threshold float64) bool {
	return PositionError(predicted, actual) > threshold
}

// SetCurrentTick records the reckoner's running tick.
func (d *DeadReckoner) SetCurrentTick(tick uint64) {
	d.currentTick = tick
}

// CurrentTick returns the reckoner's running tick.
func (d *DeadReckoner) CurrentTick() uint64 {
	return d.currentTick
}

// Reset clears the basis and running tick.
func (d *DeadReckoner) Reset() {
	d.authoritative = ReckonedState{}
	d.currentTick = 0
}
