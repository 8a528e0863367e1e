package types

import "math"

// Angle is a facing in degrees, normalized so that the shortest signed arc
// between any two angles lies in (-180, 180].
type Angle float64

// NewAngle normalizes degrees into (-180, 180].
func NewAngle(degrees float64) Angle {
	d := math.Mod(degrees, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return Angle(d)
}

// Degrees returns the normalized degree value.
func (a Angle) Degrees() float64 {
	return float64(a)
}

// ArcTo returns the shortest signed arc from a to b, in (-180, 180].
func (a Angle) ArcTo(b Angle) float64 {
	diff := b.Degrees() - a.Degrees()
	if diff > 180 {
		diff -= 360
	} else if diff <= -180 {
		diff += 360
	}
	return diff
}

// Rotate returns the angle turned by the given degrees, renormalized.
func (a Angle) Rotate(degrees float64) Angle {
	return NewAngle(a.Degrees() + degrees)
}

// Lerp blends from a towards b along the shortest arc.
func (a Angle) Lerp(b Angle, alpha float64) Angle {
	return NewAngle(a.Degrees() + a.ArcTo(b)*alpha)
}

// Unit returns the unit vector pointing along the angle, with 0 degrees
// pointing along +X and angles growing counterclockwise.
func (a Angle) Unit() Point {
	rad := a.Degrees() * math.Pi / 180
	return Point{X: math.Cos(rad), Y: math.Sin(rad)}
}
