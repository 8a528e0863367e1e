package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/skylane-game/skylane/pkg/game/types"
)

const (
	// DefaultInterpolationDelayMs is how far in the past remote entities
	// are rendered. The delay buys smooth 60 FPS visuals out of 20 Hz
	// updates at the cost of that much perceived lag.
	DefaultInterpolationDelayMs = 100
	// maxSnapshotHistory bounds each entity's timeline.
	maxSnapshotHistory = 5
	// pruneHorizonMs drops timeline entries this far behind render time.
	pruneHorizonMs = 1000
)

// EntityState is one buffered authoritative state of a remote entity.
type EntityState struct {
	Tick        uint64
	Position    types.Point
	Velocity    types.Point
	Facing      types.Angle
	TimestampMs int64
}

type entityTimeline struct {
	snapshots        []EntityState
	lastInterpolated EntityState
}

// EntityInterpolator buffers per-entity timelines of server states and
// renders each entity at render time (now minus the interpolation delay),
// blending linearly between the bracketing snapshots with a shortest-arc
// facing blend.
type EntityInterpolator struct {
	timelines map[uuid.UUID]*entityTimeline
	delayMs   int64

	nowMs func() int64
}

// NewEntityInterpolator creates an interpolator with the default delay.
func NewEntityInterpolator() *EntityInterpolator {
	return &EntityInterpolator{
		timelines: make(map[uuid.UUID]*entityTimeline),
		delayMs:   DefaultInterpolationDelayMs,
		nowMs:     func() int64 { return time.Now().UnixMilli() },
	}
}

// SetDelay overrides the interpolation delay.
func (e *EntityInterpolator) SetDelay(delayMs int64) {
	e.delayMs = delayMs
}

// AddSnapshot appends a state to the entity's timeline, dropping the oldest
// entry past the cap.
func (e *EntityInterpolator) AddSnapshot(entityId uuid.UUID, state EntityState) {
	timeline, ok := e.timelines[entityId]
	if !ok {
		timeline = &entityTimeline{}
		e.timelines[entityId] = timeline
	}

	timeline.snapshots = append(timeline.snapshots, state)
	if len(timeline.snapshots) > maxSnapshotHistory {
		timeline.snapshots = timeline.snapshots[1:]
	}
}

// GetInterpolatedState returns the entity's state at render time. With no
// bracketing pair the most recent snapshot stands in; with a single
// snapshot that snapshot is returned. The result is cached on the timeline
// so repeated calls within a frame see the same value; the returned
// pointer is only valid until the next call for the same entity.
func (e *EntityInterpolator) GetInterpolatedState(entityId uuid.UUID) *EntityState {
	timeline, ok := e.timelines[entityId]
	if !ok || len(timeline.snapshots) == 0 {
		return nil
	}
	if len(timeline.snapshots) == 1 {
		timeline.lastInterpolated = timeline.snapshots[0]
		return &timeline.lastInterpolated
	}

	renderTime := e.renderTime()

	var before, after *EntityState
	for i := 0; i < len(timeline.snapshots)-1; i++ {
		if timeline.snapshots[i].TimestampMs <= renderTime &&
			timeline.snapshots[i+1].TimestampMs >= renderTime {
			before = &timeline.snapshots[i]
			after = &timeline.snapshots[i+1]
			break
		}
	}

	if before == nil || after == nil {
		// No bracket; fall back to the freshest state.
		timeline.lastInterpolated = timeline.snapshots[len(timeline.snapshots)-1]
		return &timeline.lastInterpolated
	}

	span := after.TimestampMs - before.TimestampMs
	if span == 0 {
		timeline.lastInterpolated = *after
		return &timeline.lastInterpolated
	}

	alpha := float64(renderTime-before.TimestampMs) / float64(span)
	alpha = clamp(alpha, 0, 1)

	timeline.lastInterpolated = EntityState{
		Tick:        before.Tick + uint64(float64(after.Tick-before.Tick)*alpha),
		Position:    before.Position.Lerp(after.Position, alpha),
		Velocity:    before.Velocity.Lerp(after.Velocity, alpha),
		Facing:      before.Facing.Lerp(after.Facing, alpha),
		TimestampMs: before.TimestampMs + int64(float64(span)*alpha),
	}
	return &timeline.lastInterpolated
}

// Update prunes timeline entries older than render time minus one second,
// but never below the two needed to interpolate.
func (e *EntityInterpolator) Update() {
	threshold := e.renderTime() - pruneHorizonMs
	for _, timeline := range e.timelines {
		for len(timeline.snapshots) > 2 && timeline.snapshots[0].TimestampMs < threshold {
			timeline.snapshots = timeline.snapshots[1:]
		}
	}
}

// RemoveEntity drops a departed entity's timeline.
func (e *EntityInterpolator) RemoveEntity(entityId uuid.UUID) {
	delete(e.timelines, entityId)
}

// Clear drops all timelines.
func (e *EntityInterpolator) Clear() {
	e.timelines = make(map[uuid.UUID]*entityTimeline)
}

// TrackedEntityCount returns the number of buffered entities.
func (e *EntityInterpolator) TrackedEntityCount() int {
	return len(e.timelines)
}

// TotalSnapshotsStored returns the total buffered states across entities.
func (e *EntityInterpolator) TotalSnapshotsStored() int {
	total := 0
	for _, timeline := range e.timelines {
		total += len(timeline.snapshots)
	}
	return total
}

func (e *EntityInterpolator) renderTime() int64 {
	return e.nowMs() - e.delayMs
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
