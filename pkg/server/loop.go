package server

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/skylane-game/skylane/pkg/log"
)

// tickTimeAlpha is the smoothing factor of the average tick time EMA.
const tickTimeAlpha = 0.1

// LoopStats is a point-in-time view of the loop's observables.
type LoopStats struct {
	TotalTicks         uint64
	TotalBroadcasts    uint64
	ActualSimulationHz float64
	ActualBroadcastHz  float64
	AverageTickTimeMs  float64
}

// Loop drives the simulation and broadcast callbacks at independent fixed
// rates using a time accumulator: when the host stalls, queued simulation
// steps run back to back until the loop has caught up.
//
// An error from the simulate callback is fatal and terminates Run. The
// input and broadcast callbacks are non-fatal: a panic in either is logged
// and the loop continues.
type Loop struct {
	simStep           time.Duration
	broadcastInterval time.Duration

	onInput     func()
	onSimulate  func(tick uint64) error
	onBroadcast func(tick uint64)

	running atomic.Bool
	tick    atomic.Uint64

	totalTicks      atomic.Uint64
	totalBroadcasts atomic.Uint64
	actualSimHz     atomic.Uint64 // float64 bits
	actualBcastHz   atomic.Uint64 // float64 bits
	avgTickTimeMs   atomic.Uint64 // float64 bits
}

// NewLoop creates a loop running simulation at simulationHz and broadcasts
// at broadcastHz (broadcastHz <= simulationHz).
func NewLoop(simulationHz, broadcastHz int) (*Loop, error) {
	if simulationHz <= 0 {
		return nil, fmt.Errorf("simulation rate must be positive, got %d", simulationHz)
	}
	if broadcastHz <= 0 || broadcastHz > simulationHz {
		return nil, fmt.Errorf("broadcast rate must be in 1..%d, got %d", simulationHz, broadcastHz)
	}
	return &Loop{
		simStep:           time.Second / time.Duration(simulationHz),
		broadcastInterval: time.Second / time.Duration(broadcastHz),
	}, nil
}

// SetInputCallback installs the non-blocking input callback, called once
// per loop iteration.
func (l *Loop) SetInputCallback(fn func()) {
	l.onInput = fn
}

// SetSimulateCallback installs the per-tick simulation callback.
func (l *Loop) SetSimulateCallback(fn func(tick uint64) error) {
	l.onSimulate = fn
}

// SetBroadcastCallback installs the broadcast-cadence callback.
func (l *Loop) SetBroadcastCallback(fn func(tick uint64)) {
	l.onBroadcast = fn
}

// GameTick returns the current simulation tick.
func (l *Loop) GameTick() uint64 {
	return l.tick.Load()
}

// IsRunning reports whether Run is active.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Stats returns the loop's observables.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		TotalTicks:         l.totalTicks.Load(),
		TotalBroadcasts:    l.totalBroadcasts.Load(),
		ActualSimulationHz: math.Float64frombits(l.actualSimHz.Load()),
		ActualBroadcastHz:  math.Float64frombits(l.actualBcastHz.Load()),
		AverageTickTimeMs:  math.Float64frombits(l.avgTickTimeMs.Load()),
	}
}

// Stop requests the loop to exit at its next boundary. Safe to call from
// any goroutine or signal handler; any in-flight tick completes first.
func (l *Loop) Stop() {
	l.running.Store(false)
}

// Run blocks driving the loop until Stop is called or the simulate
// callback fails.
func (l *Loop) Run() error {
	l.running.Store(true)

	lastSimulation := time.Now()
	lastBroadcast := lastSimulation
	lastStats := lastSimulation
	var accumulated time.Duration
	var ticksSinceStats, broadcastsSinceStats uint64

	for l.running.Load() {
		if l.onInput != nil {
			l.safeInput()
		}

		now := time.Now()
		accumulated += now.Sub(lastSimulation)
		lastSimulation = now

		for accumulated >= l.simStep {
			if err := l.stepSimulation(); err != nil {
				l.running.Store(false)
				return fmt.Errorf("simulation tick failed: %w", err)
			}
			ticksSinceStats++
			accumulated -= l.simStep
		}

		if now.Sub(lastBroadcast) >= l.broadcastInterval {
			l.safeBroadcast()
			broadcastsSinceStats++
			lastBroadcast = now
		}

		// Update the rolling rates once a second.
		if elapsed := now.Sub(lastStats); elapsed >= time.Second {
			seconds := elapsed.Seconds()
			l.actualSimHz.Store(math.Float64bits(float64(ticksSinceStats) / seconds))
			l.actualBcastHz.Store(math.Float64bits(float64(broadcastsSinceStats) / seconds))
			ticksSinceStats = 0
			broadcastsSinceStats = 0
			lastStats = now
		}

		l.sleepUntilNextStep(lastSimulation)
	}

	return nil
}

func (l *Loop) stepSimulation() error {
	start := time.Now()

	if l.onSimulate != nil {
		if err := l.onSimulate(l.tick.Load()); err != nil {
			return err
		}
	}

	l.tick.Add(1)
	l.totalTicks.Add(1)

	tickMs := float64(time.Since(start).Microseconds()) / 1000.0
	prev := math.Float64frombits(l.avgTickTimeMs.Load())
	l.avgTickTimeMs.Store(math.Float64bits(tickTimeAlpha*tickMs + (1-tickTimeAlpha)*prev))

	return nil
}

func (l *Loop) safeInput() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Input callback panicked: %v", r)
		}
	}()
	l.onInput()
}

func (l *Loop) safeBroadcast() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Broadcast callback panicked: %v", r)
		}
	}()
	if l.onBroadcast != nil {
		l.onBroadcast(l.tick.Load())
	}
	l.totalBroadcasts.Add(1)
}

// sleepUntilNextStep sleeps until the next simulation boundary. When the
// loop is behind schedule it does not sleep; the accumulator catches up.
func (l *Loop) sleepUntilNextStep(lastSimulation time.Time) {
	next := lastSimulation.Add(l.simStep)
	if wait := time.Until(next); wait > 0 {
		time.Sleep(wait)
	}
}
