package interest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/skylane-game/skylane/pkg/game/types"
)

func TestLevelForDistance(t *testing.T) {
	m := NewManager(DefaultConfig())

	tests := []struct {
		distance float64
		want     Level
	}{
		{0, Critical},
		{999, Critical},
		{1000, High},
		{2999, High},
		{3000, Medium},
		{5999, Medium},
		{6000, Low},
		{9999, Low},
		{10000, None},
		{50000, None},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.LevelForDistance(tt.distance), "distance %v", tt.distance)
	}
}

func TestShipInterest(t *testing.T) {
	m := NewManager(DefaultConfig())
	observer := uuid.New()
	m.SetCenter(observer, types.Point{})

	near := types.NewShip("A", "pirates", types.Point{X: 500})
	mid := types.NewShip("B", "pirates", types.Point{X: 2000})
	far := types.NewShip("C", "pirates", types.Point{X: 15000})

	assert.Equal(t, Critical, m.ShipInterest(observer, near))
	assert.Equal(t, High, m.ShipInterest(observer, mid))
	assert.Equal(t, None, m.ShipInterest(observer, far))

	// The observer's own ship is critical at any distance.
	owned := types.NewShip("Mine", "players", types.Point{X: 90000})
	owned.Owner = observer
	assert.Equal(t, Critical, m.ShipInterest(observer, owned))
}

func TestShipInterestUnknownObserver(t *testing.T) {
	m := NewManager(DefaultConfig())
	ship := types.NewShip("A", "pirates", types.Point{})
	assert.Equal(t, None, m.ShipInterest(uuid.New(), ship))
}

func TestProjectileInterestUsesTightenedBands(t *testing.T) {
	m := NewManager(DefaultConfig())
	observer := uuid.New()
	m.SetCenter(observer, types.Point{})

	at := func(x float64) *types.Projectile {
		return &types.Projectile{Position: types.Point{X: x}}
	}

	assert.Equal(t, Critical, m.ProjectileInterest(observer, at(499)))
	assert.Equal(t, High, m.ProjectileInterest(observer, at(500)))
	assert.Equal(t, High, m.ProjectileInterest(observer, at(2249)))
	assert.Equal(t, Medium, m.ProjectileInterest(observer, at(2250)))
	assert.Equal(t, Low, m.ProjectileInterest(observer, at(6000)))
	assert.Equal(t, None, m.ProjectileInterest(observer, at(10000)))
}

func TestShouldUpdateThisTick(t *testing.T) {
	m := NewManager(DefaultConfig())

	// Critical and high update every tick.
	for tick := uint64(0); tick < 10; tick++ {
		assert.True(t, m.ShouldUpdateThisTick(Critical, tick))
		assert.True(t, m.ShouldUpdateThisTick(High, tick))
	}

	assert.True(t, m.ShouldUpdateThisTick(Medium, 4))
	assert.False(t, m.ShouldUpdateThisTick(Medium, 5))
	assert.True(t, m.ShouldUpdateThisTick(Low, 5))
	assert.False(t, m.ShouldUpdateThisTick(Low, 6))

	// None is never eligible.
	for tick := uint64(0); tick < 10; tick++ {
		assert.False(t, m.ShouldUpdateThisTick(None, tick))
	}
}

func TestInterestedShips(t *testing.T) {
	m := NewManager(DefaultConfig())
	observer := uuid.New()
	m.SetCenter(observer, types.Point{})

	ships := []*types.Ship{
		types.NewShip("near", "pirates", types.Point{X: 100}),
		nil,
		types.NewShip("far", "pirates", types.Point{X: 99999}),
	}

	interested := m.InterestedShips(observer, ships)
	assert.Len(t, interested, 1)
	assert.Equal(t, "near", interested[0].Name)
}

func TestRemoveObserver(t *testing.T) {
	m := NewManager(DefaultConfig())
	observer := uuid.New()
	m.SetCenter(observer, types.Point{})
	assert.Equal(t, 1, m.ObserverCount())

	m.RemoveObserver(observer)
	assert.Equal(t, 0, m.ObserverCount())

	ship := types.NewShip("A", "pirates", types.Point{})
	assert.Equal(t, None, m.ShipInterest(observer, ship))
}
