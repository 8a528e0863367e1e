package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/skylane-game/skylane/pkg/game/types"
)

func testWorld(tick uint64) *types.World {
	w := types.NewWorld("Rutilicus")
	w.Tick = tick
	w.AddShip(types.NewShip("Falcon", "players", types.Point{}))
	return w
}

// After M inserts into a ring of capacity N: count = min(N, M), the
// retained entries are the most recent M-count..M-1 inserts, and keyframes
// occur at the keyframe stride.
func TestRingRetentionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 50).Draw(t, "capacity")
		inserts := rapid.IntRange(0, 120).Draw(t, "inserts")
		interval := rapid.IntRange(1, 10).Draw(t, "interval")

		m := NewManager(capacity)
		m.SetKeyframeInterval(interval)

		for i := 0; i < inserts; i++ {
			m.Create(testWorld(uint64(i)), uint64(i), false)
		}

		wantCount := inserts
		if wantCount > capacity {
			wantCount = capacity
		}
		require.Equal(t, wantCount, m.Count())

		for i := 0; i < wantCount; i++ {
			tick := uint64(inserts - wantCount + i)
			entry := m.AtTick(tick)
			require.NotNil(t, entry, "tick %d should be retained", tick)
			// Keyframes land exactly on the stride.
			assert.Equal(t, tick%uint64(interval) == 0, entry.Keyframe, "tick %d", tick)
		}
	})
}

func TestFirstSnapshotIsKeyframe(t *testing.T) {
	m := NewManager(10)
	m.Create(testWorld(0), 0, false)

	entry := m.Latest()
	require.NotNil(t, entry)
	assert.True(t, entry.Keyframe)
	assert.Equal(t, entry.UncompressedSize, entry.CompressedSize)
}

func TestForceKeyframe(t *testing.T) {
	m := NewManager(10)
	m.Create(testWorld(0), 0, false)
	m.Create(testWorld(1), 1, false)
	m.Create(testWorld(2), 2, true)

	assert.False(t, m.AtTick(1).Keyframe)
	assert.True(t, m.AtTick(2).Keyframe)
	assert.Equal(t, uint64(2), m.TotalKeyframes())
	assert.Equal(t, uint64(3), m.TotalSnapshots())
}

func TestDeltaSizeIsSmallerThanFull(t *testing.T) {
	m := NewManager(10)
	m.Create(testWorld(0), 0, false)
	m.Create(testWorld(1), 1, false)

	delta := m.AtTick(1)
	require.NotNil(t, delta)
	assert.False(t, delta.Keyframe)
	assert.Less(t, delta.CompressedSize, delta.UncompressedSize)
	assert.Less(t, m.AverageCompressionRatio(), 1.0)
}

func TestSnapshotOwnsClone(t *testing.T) {
	m := NewManager(10)
	w := testWorld(0)
	m.Create(w, 0, false)

	w.Ships[0].Position = types.Point{X: 777}
	assert.Equal(t, types.Point{}, m.Latest().World.Ships[0].Position)
}

func TestLookups(t *testing.T) {
	m := NewManager(10)
	for tick := uint64(0); tick < 5; tick++ {
		m.Create(testWorld(tick), tick, false)
	}

	assert.Equal(t, uint64(4), m.Latest().Tick)
	require.NotNil(t, m.AtTick(2))
	assert.Equal(t, uint64(2), m.AtTick(2).Tick)
	assert.Nil(t, m.AtTick(99))

	since := m.Since(2)
	require.Len(t, since, 2)
	assert.Equal(t, uint64(3), since[0].Tick)
	assert.Equal(t, uint64(4), since[1].Tick)
}

func TestPruneOlderThan(t *testing.T) {
	m := NewManager(10)
	for tick := uint64(0); tick < 5; tick++ {
		m.Create(testWorld(tick), tick, false)
	}

	m.PruneOlderThan(3)

	assert.Equal(t, 2, m.Count())
	assert.Nil(t, m.AtTick(2))
	assert.NotNil(t, m.AtTick(3))
	assert.Positive(t, m.MemoryUsage())
}
