package types

import "github.com/google/uuid"

// Asteroid is a single minable body within an asteroid field.
type Asteroid struct {
	ID       uuid.UUID
	Position Point
	Velocity Point
	Radius   float64
}

// AsteroidField is the optional owned collection of asteroids in a region.
type AsteroidField struct {
	Asteroids []Asteroid
}

// NewAsteroidField creates an empty field.
func NewAsteroidField() *AsteroidField {
	return &AsteroidField{}
}

// Add places an asteroid into the field.
func (f *AsteroidField) Add(position, velocity Point, radius float64) {
	f.Asteroids = append(f.Asteroids, Asteroid{
		ID:       uuid.New(),
		Position: position,
		Velocity: velocity,
		Radius:   radius,
	})
}

// Clone returns an independent copy of the field.
func (f *AsteroidField) Clone() *AsteroidField {
	clone := &AsteroidField{
		Asteroids: make([]Asteroid, len(f.Asteroids)),
	}
	copy(clone.Asteroids, f.Asteroids)
	return clone
}

func (f *AsteroidField) move() {
	for i := range f.Asteroids {
		a := &f.Asteroids[i]
		a.Position = a.Position.Add(a.Velocity)
	}
}
