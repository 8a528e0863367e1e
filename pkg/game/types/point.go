package types

import "math"

// Point is a 2-D vector used for positions and velocities.
type Point struct {
	X float64
	Y float64
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Length returns the Euclidean magnitude of the vector.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return p.Sub(q).Length()
}

// Lerp returns the linear blend between p and q at alpha in [0, 1].
func (p Point) Lerp(q Point, alpha float64) Point {
	return p.Add(q.Sub(p).Scale(alpha))
}
