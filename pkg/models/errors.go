package models

import "errors"

var (
	// ErrInvalidGeometry is returned for non-positive extents or unusable materials.
	// It aborts a run before the solver is started.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrMonitorGridMismatch is returned when two flux spectra that are about to be
	// subtracted or divided were not sampled on the same frequency grid.
	ErrMonitorGridMismatch = errors.New("monitor frequency grid mismatch")

	// ErrRunNotFound is returned by repositories for unknown run ids
	ErrRunNotFound = errors.New("run not found")
)
