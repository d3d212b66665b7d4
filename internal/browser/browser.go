// Package browser is the record store for simulation runs and their results:
// runs, result indicators, parameters and result files. It replaces a full
// relational run tracker with the handful of typed operations the
// optimization harness needs.
package browser

import (
	"context"

	"swimevo/internal/model"
)

// Browser persists run bookkeeping. Implementations serialize their own
// writes; callers only guarantee that a run's indicators are harvested before
// the run is deleted.
type Browser interface {
	Init(ctx context.Context) error
	// InsertRun assigns and returns the next run ID.
	InsertRun(ctx context.Context, tags, notes string) (model.RunRecord, error)
	GetRun(ctx context.Context, id int) (model.RunRecord, bool, error)
	// RunsByTag returns runs whose tag string contains the given fragment,
	// ordered by ID.
	RunsByTag(ctx context.Context, fragment string) ([]model.RunRecord, error)
	InsertIndicator(ctx context.Context, rec model.IndicatorRecord) error
	// Indicators returns all indicator records of a run with the given name.
	Indicators(ctx context.Context, runID int, name string) ([]model.IndicatorRecord, error)
	AllIndicators(ctx context.Context, runID int) ([]model.IndicatorRecord, error)
	InsertParameter(ctx context.Context, rec model.ParameterRecord) error
	Parameters(ctx context.Context, runID int) ([]model.ParameterRecord, error)
	AttachResultFile(ctx context.Context, rec model.ResultFileRecord) error
	ResultFiles(ctx context.Context, runID int) ([]model.ResultFileRecord, error)
	// DeleteRun removes a run and everything attached to it.
	DeleteRun(ctx context.Context, id int) error
	// ResetIDs resets the run ID sequence to max(existing)+1 so numbering
	// stays deterministic after bulk deletes.
	ResetIDs(ctx context.Context) error
}
