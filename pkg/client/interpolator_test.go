package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylane-game/skylane/pkg/game/types"
)

func interpolatorAt(nowMs int64) (*EntityInterpolator, *int64) {
	current := nowMs
	e := NewEntityInterpolator()
	e.nowMs = func() int64 { return current }
	return e, &current
}

func TestInterpolationBracket(t *testing.T) {
	e, _ := interpolatorAt(1150)
	id := uuid.New()

	e.AddSnapshot(id, EntityState{Position: types.Point{X: 0, Y: 0}, TimestampMs: 1000})
	e.AddSnapshot(id, EntityState{Position: types.Point{X: 10, Y: 0}, TimestampMs: 1100})

	// renderTime = 1150 - 100 = 1050, halfway between the snapshots.
	got := e.GetInterpolatedState(id)
	require.NotNil(t, got)
	assert.InDelta(t, 5.0, got.Position.X, 1e-9)
	assert.InDelta(t, 0.0, got.Position.Y, 1e-9)
}

// The interpolated position lies on the segment between the bracketing
// snapshots, at alpha of the way along.
func TestInterpolationAlphaPlacement(t *testing.T) {
	e, _ := interpolatorAt(1175)
	id := uuid.New()

	before := EntityState{Position: types.Point{X: 2, Y: 2}, TimestampMs: 1000}
	after := EntityState{Position: types.Point{X: 12, Y: 22}, TimestampMs: 1100}
	e.AddSnapshot(id, before)
	e.AddSnapshot(id, after)

	// renderTime 1075 -> alpha 0.75.
	got := e.GetInterpolatedState(id)
	require.NotNil(t, got)

	span := after.Position.Sub(before.Position).Length()
	travelled := got.Position.Sub(before.Position).Length()
	assert.InDelta(t, span*0.75, travelled, 1e-9)
}

func TestInterpolationFacingShortestArc(t *testing.T) {
	e, _ := interpolatorAt(1150)
	id := uuid.New()

	e.AddSnapshot(id, EntityState{Facing: types.NewAngle(170), TimestampMs: 1000})
	e.AddSnapshot(id, EntityState{Facing: types.NewAngle(-170), TimestampMs: 1100})

	got := e.GetInterpolatedState(id)
	require.NotNil(t, got)
	// Halfway across the wrap is 180, not 0.
	assert.InDelta(t, 180.0, got.Facing.Degrees(), 1e-9)
}

func TestInterpolationFallbacks(t *testing.T) {
	e, _ := interpolatorAt(10_000)
	id := uuid.New()

	assert.Nil(t, e.GetInterpolatedState(id))

	// One snapshot: returned as-is.
	only := EntityState{Position: types.Point{X: 3}, TimestampMs: 5000}
	e.AddSnapshot(id, only)
	got := e.GetInterpolatedState(id)
	require.NotNil(t, got)
	assert.Equal(t, only.Position, got.Position)

	// Render time past every snapshot: the freshest one stands in.
	e.AddSnapshot(id, EntityState{Position: types.Point{X: 7}, TimestampMs: 5100})
	got = e.GetInterpolatedState(id)
	require.NotNil(t, got)
	assert.Equal(t, 7.0, got.Position.X)
}

func TestRepeatedCallsSeeTheSameValue(t *testing.T) {
	e, _ := interpolatorAt(1150)
	id := uuid.New()
	e.AddSnapshot(id, EntityState{Position: types.Point{X: 0}, TimestampMs: 1000})
	e.AddSnapshot(id, EntityState{Position: types.Point{X: 10}, TimestampMs: 1100})

	first := e.GetInterpolatedState(id)
	second := e.GetInterpolatedState(id)
	assert.Equal(t, *first, *second)
	assert.Same(t, first, second)
}

func TestTimelineCapacity(t *testing.T) {
	e, _ := interpolatorAt(0)
	id := uuid.New()

	for i := 0; i < 12; i++ {
		e.AddSnapshot(id, EntityState{Position: types.Point{X: float64(i)}, TimestampMs: int64(i)})
	}

	timeline := e.timelines[id]
	require.Len(t, timeline.snapshots, maxSnapshotHistory)
	// Arrival order is preserved; the oldest entries fell off.
	assert.Equal(t, 7.0, timeline.snapshots[0].Position.X)
	assert.Equal(t, 11.0, timeline.snapshots[len(timeline.snapshots)-1].Position.X)
}

func TestUpdatePrunesButKeepsTwo(t *testing.T) {
	e, current := interpolatorAt(10_000)
	id := uuid.New()

	e.AddSnapshot(id, EntityState{TimestampMs: 1000})
	e.AddSnapshot(id, EntityState{TimestampMs: 1100})
	e.AddSnapshot(id, EntityState{TimestampMs: 9500})

	// renderTime 9900, prune threshold 8900: the two old entries qualify,
	// but pruning never goes below two.
	e.Update()
	assert.Len(t, e.timelines[id].snapshots, 2)

	*current = 100_000
	e.Update()
	assert.Len(t, e.timelines[id].snapshots, 2)
}

func TestRemoveAndClear(t *testing.T) {
	e, _ := interpolatorAt(0)
	a, b := uuid.New(), uuid.New()
	e.AddSnapshot(a, EntityState{})
	e.AddSnapshot(b, EntityState{})
	e.AddSnapshot(b, EntityState{})

	assert.Equal(t, 2, e.TrackedEntityCount())
	assert.Equal(t, 3, e.TotalSnapshotsStored())

	e.RemoveEntity(a)
	assert.Equal(t, 1, e.TrackedEntityCount())

	e.Clear()
	assert.Equal(t, 0, e.TrackedEntityCount())
}
