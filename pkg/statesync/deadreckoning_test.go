package statesync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skylane-game/skylane/pkg/game/types"
)

func TestPredictExtrapolatesLinearly(t *testing.T) {
	var dr DeadReckoner
	dr.SetAuthoritative(ReckonedState{
		Position: types.Point{X: 10, Y: 20},
		Velocity: types.Point{X: 2, Y: -1},
		Facing:   types.NewAngle(45),
		Tick:     100,
	})

	got := dr.Predict(110)

	assert.Equal(t, types.Point{X: 30, Y: 10}, got.Position)
	assert.Equal(t, types.Point{X: 2, Y: -1}, got.Velocity)
	// Facing is never extrapolated.
	assert.Equal(t, types.NewAngle(45), got.Facing)
	assert.Equal(t, uint64(110), got.Tick)
}

func TestPredictBeforeBasisReturnsBasis(t *testing.T) {
	var dr DeadReckoner
	basis := ReckonedState{
		Position: types.Point{X: 5, Y: 5},
		Velocity: types.Point{X: 1, Y: 1},
		Tick:     100,
	}
	dr.SetAuthoritative(basis)

	assert.Equal(t, basis, dr.Predict(90))
	assert.Equal(t, basis, dr.Predict(100))
}

func TestPredictAhead(t *testing.T) {
	var dr DeadReckoner
	dr.SetAuthoritative(ReckonedState{
		Position: types.Point{},
		Velocity: types.Point{X: 3, Y: 0},
		Tick:     50,
	})

	got := dr.PredictAhead(4)
	assert.Equal(t, types.Point{X: 12, Y: 0}, got.Position)
	assert.Equal(t, uint64(54), got.Tick)
}

func TestPositionErrorAndExcessive(t *testing.T) {
	predicted := ReckonedState{Position: types.Point{X: 0, Y: 0}}
	actual := ReckonedState{Position: types.Point{X: 3, Y: 4}}

	assert.InDelta(t, 5.0, PositionError(predicted, actual), 1e-9)
	assert.True(t, IsErrorExcessive(predicted, actual, 4.9))
	assert.False(t, IsErrorExcessive(predicted, actual, 5.0))
}

func TestReset(t *testing.T) {
	var dr DeadReckoner
	dr.SetAuthoritative(ReckonedState{Position: types.Point{X: 1}, Tick: 9})
	dr.SetCurrentTick(12)

	dr.Reset()

	assert.Equal(t, ReckonedState{}, dr.Authoritative())
	assert.Equal(t, uint64(0), dr.CurrentTick())
}
