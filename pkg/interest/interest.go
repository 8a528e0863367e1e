package interest

import (
	"math"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/types"
)

// Level is the distance-banded relevance class of an entity for one observer.
type Level int

const (
	None Level = iota
	Low
	Medium
	High
	Critical
)

func (l Level) String() string {
	switch l {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	case None:
		return "none"
	default:
		return "unknown"
	}
}

// Config holds the band radii and the per-band update periods in ticks.
type Config struct {
	CriticalRange float64
	HighRange     float64
	MediumRange   float64
	LowRange      float64

	CriticalPeriod uint64
	HighPeriod     uint64
	MediumPeriod   uint64
	LowPeriod      uint64
}

// DefaultConfig returns the standard bands: 1000/3000/6000/10000 units and
// update periods of 1/1/2/5 ticks.
func DefaultConfig() Config {
	return Config{
		CriticalRange:  1000,
		HighRange:      3000,
		MediumRange:    6000,
		LowRange:       10000,
		CriticalPeriod: 1,
		HighPeriod:     1,
		MediumPeriod:   2,
		LowPeriod:      5,
	}
}

// Manager tracks a center of interest per observing player and classifies
// entities into interest levels by distance from that center.
type Manager struct {
	config  Config
	centers map[uuid.UUID]types.Point
}

// NewManager creates a manager with the given config.
func NewManager(config Config) *Manager {
	return &Manager{
		config:  config,
		centers: make(map[uuid.UUID]types.Point),
	}
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	return m.config
}

// SetCenter records the observer's center of interest, typically the
// position of their ship.
func (m *Manager) SetCenter(observer uuid.UUID, center types.Point) {
	m.centers[observer] = center
}

// RemoveObserver drops the observer's center of interest.
func (m *Manager) RemoveObserver(observer uuid.UUID) {
	delete(m.centers, observer)
}

// ShipInterest classifies a ship for an observer. A ship the observer owns
// is always Critical regardless of distance.
func (m *Manager) ShipInterest(observer uuid.UUID, ship *types.Ship) Level {
	if ship.Owner == observer {
		return Critical
	}
	return m.LevelForDistance(m.distanceTo(observer, ship.Position))
}

// ProjectileInterest classifies a projectile for an observer. Projectiles
// threaten the observer when close, so the inner bands are tightened.
func (m *Manager) ProjectileInterest(observer uuid.UUID, p *types.Projectile) Level {
	distance := m.distanceTo(observer, p.Position)
	switch {
	case distance < m.config.CriticalRange*0.5:
		return Critical
	case distance < m.config.HighRange*0.75:
		return High
	case distance < m.config.MediumRange:
		return Medium
	case distance < m.config.LowRange:
		return Low
	default:
		return None
	}
}

// VisualInterest classifies a visual effect using the standard bands.
func (m *Manager) VisualInterest(observer uuid.UUID, v *types.Visual) Level {
	return m.LevelForDistance(m.distanceTo(observer, v.Position))
}

// LevelForDistance maps a distance onto the standard bands.
func (m *Manager) LevelForDistance(distance float64) Level {
	switch {
	case distance < m.config.CriticalRange:
		return Critical
	case distance < m.config.HighRange:
		return High
	case distance < m.config.MediumRange:
		return Medium
	case distance < m.config.LowRange:
		return Low
	default:
		return None
	}
}

// ShouldUpdateThisTick reports whether an entity at the given level is due
// for an update on this tick. None is never due.
func (m *Manager) ShouldUpdateThisTick(level Level, tick uint64) bool {
	var period uint64
	switch level {
	case Critical:
		period = m.config.CriticalPeriod
	case High:
		period = m.config.HighPeriod
	case Medium:
		period = m.config.MediumPeriod
	case Low:
		period = m.config.LowPeriod
	default:
		return false
	}
	if period == 0 {
		return false
	}
	return tick%period == 0
}

// InterestedShips filters the ship list down to those with any interest for
// the observer.
func (m *Manager) InterestedShips(observer uuid.UUID, ships []*types.Ship) []*types.Ship {
	var interested []*types.Ship
	for _, ship := range ships {
		if ship == nil {
			continue
		}
		if m.ShipInterest(observer, ship) != None {
			interested = append(interested, ship)
		}
	}
	return interested
}

// ObserverCount returns the number of tracked observers.
func (m *Manager) ObserverCount() int {
	return len(m.centers)
}

// Clear drops all observers.
func (m *Manager) Clear() {
	m.centers = make(map[uuid.UUID]types.Point)
}

func (m *Manager) distanceTo(observer uuid.UUID, position types.Point) float64 {
	center, ok := m.centers[observer]
	if !ok {
		return math.MaxFloat64
	}
	return position.DistanceTo(center)
}
