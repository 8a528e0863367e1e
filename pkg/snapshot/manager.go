package snapshot

import (
	"sort"
	"time"

	"github.com/skylane-game/skylane/pkg/game/types"
)

const (
	// DefaultHistorySize keeps two seconds of snapshots at 60 Hz.
	DefaultHistorySize = 120
	// DefaultKeyframeInterval makes every 30th snapshot a keyframe.
	DefaultKeyframeInterval = 30
)

// Entry is one retained world snapshot.
type Entry struct {
	Tick      uint64
	Timestamp int64 // wall-clock capture time, ms
	World     *types.World

	UncompressedSize int
	CompressedSize   int
	Keyframe         bool
}

// Manager keeps a bounded FIFO of recent world snapshots with a keyframe
// cadence and per-entry size estimates for bandwidth planning. The size
// math is a statistic, not a wire encoding.
type Manager struct {
	entries          []Entry
	historySize      int
	keyframeInterval int
	sinceKeyframe    int

	totalSnapshots         uint64
	totalKeyframes         uint64
	totalUncompressedBytes uint64
	totalCompressedBytes   uint64

	now func() time.Time
}

// NewManager creates a manager retaining historySize snapshots. Sizes of
// zero or less take the defaults. The first snapshot is always a keyframe;
// there is nothing earlier to delta against.
func NewManager(historySize int) *Manager {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Manager{
		historySize:      historySize,
		keyframeInterval: DefaultKeyframeInterval,
		sinceKeyframe:    DefaultKeyframeInterval,
		now:              time.Now,
	}
}

// SetKeyframeInterval overrides the keyframe cadence.
func (m *Manager) SetKeyframeInterval(interval int) {
	if interval <= 0 {
		return
	}
	m.keyframeInterval = interval
	m.sinceKeyframe = interval
}

// Create clones the world into a new snapshot entry. The entry is a
// keyframe iff forced or the keyframe cadence is due.
func (m *Manager) Create(world *types.World, tick uint64, forceKeyframe bool) {
	keyframe := forceKeyframe || m.sinceKeyframe >= m.keyframeInterval

	entry := Entry{
		Tick:      tick,
		Timestamp: m.now().UnixMilli(),
		World:     world.Clone(),
		Keyframe:  keyframe,
	}

	entry.UncompressedSize = estimateSize(world)
	if keyframe || len(m.entries) == 0 {
		entry.CompressedSize = entry.UncompressedSize
	} else {
		entry.CompressedSize = estimateDeltaSize(world)
	}

	m.totalSnapshots++
	if keyframe {
		m.totalKeyframes++
		m.sinceKeyframe = 0
	}
	m.sinceKeyframe++
	m.totalUncompressedBytes += uint64(entry.UncompressedSize)
	m.totalCompressedBytes += uint64(entry.CompressedSize)

	m.entries = append(m.entries, entry)
	for len(m.entries) > m.historySize {
		m.entries = m.entries[1:]
	}
}

// Latest returns the most recent snapshot, or nil.
func (m *Manager) Latest() *Entry {
	if len(m.entries) == 0 {
		return nil
	}
	return &m.entries[len(m.entries)-1]
}

// AtTick returns the snapshot captured at exactly the given tick, or nil.
// Entries are tick-ordered, so this is a binary search.
func (m *Manager) AtTick(tick uint64) *Entry {
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Tick >= tick
	})
	if i < len(m.entries) && m.entries[i].Tick == tick {
		return &m.entries[i]
	}
	return nil
}

// Since returns all snapshots strictly newer than the given tick, oldest
// first, for client catch-up.
func (m *Manager) Since(tick uint64) []*Entry {
	var result []*Entry
	for i := range m.entries {
		if m.entries[i].Tick > tick {
			result = append(result, &m.entries[i])
		}
	}
	return result
}

// PruneOlderThan drops snapshots with tick < the given tick.
func (m *Manager) PruneOlderThan(tick uint64) {
	for len(m.entries) > 0 && m.entries[0].Tick < tick {
		m.entries = m.entries[1:]
	}
}

// Count returns the number of retained snapshots.
func (m *Manager) Count() int {
	return len(m.entries)
}

// TotalSnapshots returns the lifetime snapshot count.
func (m *Manager) TotalSnapshots() uint64 {
	return m.totalSnapshots
}

// TotalKeyframes returns the lifetime keyframe count.
func (m *Manager) TotalKeyframes() uint64 {
	return m.totalKeyframes
}

// AverageCompressionRatio returns compressed/uncompressed across all
// snapshots created so far, 1.0 before any exist.
func (m *Manager) AverageCompressionRatio() float64 {
	if m.totalUncompressedBytes == 0 {
		return 1.0
	}
	return float64(m.totalCompressedBytes) / float64(m.totalUncompressedBytes)
}

// MemoryUsage is a rough estimate of retained snapshot memory in bytes.
func (m *Manager) MemoryUsage() int {
	total := 0
	for i := range m.entries {
		total += m.entries[i].UncompressedSize + 256
	}
	return total
}

// estimateSize approximates a full snapshot's serialized size from entity
// counts.
func estimateSize(w *types.World) int {
	size := 32
	size += len(w.Ships) * 128
	size += len(w.Projectiles) * 32
	size += len(w.Visuals) * 24
	size += len(w.Flotsam) * 64
	size += 64
	return size
}

// estimateDeltaSize approximates a delta-compressed snapshot: a fixed
// header, motion records for the ~30% of ships assumed to have moved
// significantly, all projectiles and visuals, scaled by a conservative 0.3
// compression factor.
func estimateDeltaSize(w *types.World) int {
	size := 32
	size += (len(w.Ships) * 30 / 100) * 48
	size += len(w.Projectiles) * 32
	size += len(w.Visuals) * 24
	return size * 3 / 10
}
