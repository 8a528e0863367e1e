package types

import "github.com/google/uuid"

// Flotsam is an owned piece of debris drifting in space.
type Flotsam struct {
	ID        uuid.UUID
	Commodity string
	Count     int
	Position  Point
	Velocity  Point
}

// NewFlotsam creates a drifting piece of cargo.
func NewFlotsam(commodity string, count int, position, velocity Point) *Flotsam {
	return &Flotsam{
		ID:        uuid.New(),
		Commodity: commodity,
		Count:     count,
		Position:  position,
		Velocity:  velocity,
	}
}

// Clone returns an independent copy.
func (f *Flotsam) Clone() *Flotsam {
	clone := *f
	return &clone
}

func (f *Flotsam) move() {
	f.Position = f.Position.Add(f.Velocity)
}
