package client

import (
	"math"

	"github.com/skylane-game/skylane/pkg/game/types"
)

const (
	// DefaultErrorThreshold ignores position errors below this (px).
	DefaultErrorThreshold = 1.0
	// DefaultSnapThreshold teleports instead of smoothing above this (px).
	DefaultSnapThreshold = 500.0
	// DefaultCorrectionTime is how long a gradual correction takes (s).
	DefaultCorrectionTime = 0.15

	// velocityErrorThreshold ignores velocity errors below this.
	velocityErrorThreshold = 0.1
	// facingErrorThreshold ignores facing errors below this (degrees).
	facingErrorThreshold = 1.0

	// errorAlpha smooths the running average position error.
	errorAlpha = 0.1
	// correctionFramesPerSecond is the assumed client frame rate.
	correctionFramesPerSecond = 60.0
)

// Reconciliation smooths residual prediction error in three independent
// channels: position, velocity and facing. Small errors are ignored, huge
// position errors snap (the caller hard-sets the authoritative value), and
// everything between is corrected gradually over the correction time.
type Reconciliation struct {
	positionError    types.Point
	positionProgress float64

	velocityError    types.Point
	velocityProgress float64

	facingErrorDegrees float64
	facingProgress     float64

	errorThreshold float64
	snapThreshold  float64
	correctionTime float64

	averageError         float64
	totalReconciliations uint64
	totalSnaps           uint64
}

// NewReconciliation creates a reconciler with the default thresholds. All
// channels start settled.
func NewReconciliation() *Reconciliation {
	return &Reconciliation{
		positionProgress: 1.0,
		velocityProgress: 1.0,
		facingProgress:   1.0,
		errorThreshold:   DefaultErrorThreshold,
		snapThreshold:    DefaultSnapThreshold,
		correctionTime:   DefaultCorrectionTime,
	}
}

// SetThresholds overrides the position error and snap thresholds.
func (r *Reconciliation) SetThresholds(errorThreshold, snapThreshold float64) {
	r.errorThreshold = errorThreshold
	r.snapThreshold = snapThreshold
}

// SetCorrectionTime overrides the gradual-correction duration in seconds.
func (r *Reconciliation) SetCorrectionTime(seconds float64) {
	r.correctionTime = seconds
}

// ReconcilePosition compares the predicted position against the server's.
// Errors below the threshold are ignored; errors above the snap threshold
// zero the channel, bump the snap counter and leave the hard-set to the
// caller; anything between starts a gradual correction.
func (r *Reconciliation) ReconcilePosition(predicted, authoritative types.Point) {
	r.positionError = authoritative.Sub(predicted)
	magnitude := r.positionError.Length()

	r.averageError = errorAlpha*magnitude + (1-errorAlpha)*r.averageError

	if magnitude < r.errorThreshold {
		r.positionError = types.Point{}
		r.positionProgress = 1.0
		return
	}

	if magnitude > r.snapThreshold {
		r.positionError = types.Point{}
		r.positionProgress = 1.0
		r.totalSnaps++
		return
	}

	r.positionProgress = 0.0
	r.totalReconciliations++
}

// ReconcileVelocity compares predicted and server velocity. Velocity errors
// are typically small, so the threshold is tighter.
func (r *Reconciliation) ReconcileVelocity(predicted, authoritative types.Point) {
	r.velocityError = authoritative.Sub(predicted)

	if r.velocityError.Length() < velocityErrorThreshold {
		r.velocityError = types.Point{}
		r.velocityProgress = 1.0
		return
	}

	r.velocityProgress = 0.0
}

// ReconcileFacing compares predicted and server facing along the shortest
// signed arc.
func (r *Reconciliation) ReconcileFacing(predicted, authoritative types.Angle) {
	r.facingErrorDegrees = predicted.ArcTo(authoritative)

	if math.Abs(r.facingErrorDegrees) < facingErrorThreshold {
		r.facingErrorDegrees = 0
		r.facingProgress = 1.0
		return
	}

	r.facingProgress = 0.0
}

// GetCorrectedPosition nudges the current position by this frame's share of
// the outstanding error.
func (r *Reconciliation) GetCorrectedPosition(current types.Point) types.Point {
	if r.positionProgress >= 1.0 {
		return current
	}
	return current.Add(r.positionError.Scale(r.stepPerFrame()))
}

// GetCorrectedVelocity nudges the current velocity likewise.
func (r *Reconciliation) GetCorrectedVelocity(current types.Point) types.Point {
	if r.velocityProgress >= 1.0 {
		return current
	}
	return current.Add(r.velocityError.Scale(r.stepPerFrame()))
}

// GetCorrectedFacing nudges the current facing likewise.
func (r *Reconciliation) GetCorrectedFacing(current types.Angle) types.Angle {
	if r.facingProgress >= 1.0 {
		return current
	}
	return current.Rotate(r.facingErrorDegrees * r.stepPerFrame())
}

// Update advances each channel's progress by one frame, clearing the
// channel's error on arrival.
func (r *Reconciliation) Update() {
	step := r.stepPerFrame()

	if r.positionProgress < 1.0 {
		r.positionProgress += step
		if r.positionProgress >= 1.0 {
			r.positionProgress = 1.0
			r.positionError = types.Point{}
		}
	}

	if r.velocityProgress < 1.0 {
		r.velocityProgress += step
		if r.velocityProgress >= 1.0 {
			r.velocityProgress = 1.0
			r.velocityError = types.Point{}
		}
	}

	if r.facingProgress < 1.0 {
		r.facingProgress += step
		if r.facingProgress >= 1.0 {
			r.facingProgress = 1.0
			r.facingErrorDegrees = 0
		}
	}
}

// IsCorrecting reports whether any channel is mid-correction.
func (r *Reconciliation) IsCorrecting() bool {
	return r.positionProgress < 1.0 || r.velocityProgress < 1.0 || r.facingProgress < 1.0
}

// PositionProgress returns the position channel's progress in [0, 1].
func (r *Reconciliation) PositionProgress() float64 {
	return r.positionProgress
}

// AverageError returns the smoothed position error magnitude.
func (r *Reconciliation) AverageError() float64 {
	return r.averageError
}

// TotalReconciliations returns the count of gradual corrections begun.
func (r *Reconciliation) TotalReconciliations() uint64 {
	return r.totalReconciliations
}

// TotalSnaps returns the count of snap corrections.
func (r *Reconciliation) TotalSnaps() uint64 {
	return r.totalSnaps
}

// stepPerFrame is the progress gained per frame, assuming 60 FPS.
func (r *Reconciliation) stepPerFrame() float64 {
	frames := r.correctionTime * correctionFramesPerSecond
	if frames < 1.0 {
		frames = 1.0
	}
	return 1.0 / frames
}
