package types

// Visual is a short-lived value-typed effect (explosion, sparks, engine
// wash). The renderer is the only consumer of the Effect name.
type Visual struct {
	Effect   string
	Position Point
	Velocity Point
	Lifetime int
}

// move advances the visual one tick and decrements its lifetime.
func (v *Visual) move() {
	v.Position = v.Position.Add(v.Velocity)
	v.Lifetime--
}
