package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNewAngleNormalizes(t *testing.T) {
	tests := []struct {
		degrees float64
		want    float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{181, -179},
		{360, 0},
		{720.5, 0.5},
		{-90, -90},
		{-270, 90},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NewAngle(tt.degrees).Degrees(), 1e-9, "NewAngle(%v)", tt.degrees)
	}
}

func TestArcToIsShortest(t *testing.T) {
	assert.InDelta(t, 20, NewAngle(350).ArcTo(NewAngle(10)), 1e-9)
	assert.InDelta(t, -20, NewAngle(10).ArcTo(NewAngle(350)), 1e-9)
	assert.InDelta(t, 180, NewAngle(0).ArcTo(NewAngle(180)), 1e-9)
}

func TestAngleLerpShortestArc(t *testing.T) {
	// Blending across the wrap goes the short way.
	blended := NewAngle(350).Lerp(NewAngle(10), 0.5)
	assert.InDelta(t, 0, blended.Degrees(), 1e-9)
}

// The blended value at alpha 0.5 lies within 180 degrees of both endpoints
// along the chosen direction, for all angle pairs.
func TestAngleLerpMidpointProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewAngle(rapid.Float64Range(-720, 720).Draw(t, "a"))
		b := NewAngle(rapid.Float64Range(-720, 720).Draw(t, "b"))

		mid := a.Lerp(b, 0.5)

		assert.LessOrEqual(t, math.Abs(a.ArcTo(mid)), 180.0)
		assert.LessOrEqual(t, math.Abs(mid.ArcTo(b)), 180.0)
		// The midpoint splits the arc evenly.
		assert.InDelta(t, a.ArcTo(mid), mid.ArcTo(b), 1e-6)
	})
}
