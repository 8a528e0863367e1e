package constants

const (
	// SimulationHz is the nominal fixed simulation rate.
	SimulationHz = 60
	// BroadcastHz is the nominal state broadcast rate.
	BroadcastHz = 20

	// ThrustAcceleration is the per-tick velocity gain while thrusting.
	ThrustAcceleration = 0.1
	// ReverseAcceleration is the per-tick velocity loss while reversing.
	ReverseAcceleration = 0.05
	// TurnRateDegrees is the per-tick facing change while turning.
	TurnRateDegrees = 3.0

	// ShipRadius is the default collision radius of a ship.
	ShipRadius = 20.0
	// ProjectileRadius is the default collision radius of a projectile.
	ProjectileRadius = 5.0
	// ProjectileLifetimeTicks is how long a projectile lives without hitting.
	ProjectileLifetimeTicks = 120
	// ProjectileSpeed is the muzzle speed added along the ship's facing.
	ProjectileSpeed = 8.0
	// ProjectileEnergyCost is drained from the firing ship per shot.
	ProjectileEnergyCost = 0.02

	// VisualLifetimeTicks is how long an effect stays in the world.
	VisualLifetimeTicks = 30

	// EnergyRechargeRate is the per-tick energy regeneration of a ship.
	EnergyRechargeRate = 0.005
	// ShieldRechargeRate is the per-tick shield regeneration of a ship.
	ShieldRechargeRate = 0.001
)
