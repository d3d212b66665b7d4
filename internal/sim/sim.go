// Package sim defines the boundary to the underlying hydrological
// simulation. The optimizer never touches canonical project state: it works
// on disposable clones that apply a candidate parameter set, run, and report
// indicator records into the browser.
package sim

import "context"

// Clone is a disposable simulation instance bound to one candidate parameter
// set.
type Clone interface {
	// Tag identifies the clone and its runs in the browser.
	Tag() string
	// ApplyParameters overwrites the clone's basin-level parameters.
	ApplyParameters(parameters map[string]float64) error
	// Run executes the simulation, inserts a run record carrying the given
	// tags into the browser and attaches one indicator record per requested
	// indicator name.
	Run(ctx context.Context, indicators []string, tags string) error
	// Remove releases the clone's resources.
	Remove() error
}

// Project creates clones and exposes the parameter-scoping state the
// dispatcher warns about.
type Project interface {
	Clone(tag string) (Clone, error)
	// SubcatchmentOverridesActive reports whether per-subcatchment parameter
	// overrides are configured. The default apply path only sets basin-level
	// parameters, so overrides would silently shadow calibrated values.
	SubcatchmentOverridesActive() bool
}
