package model

import "fmt"

// ParameterSpec declares one calibration parameter and its admissible range.
type ParameterSpec struct {
	Name  string  `json:"name"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ObjectiveSpec maps an objective (to be minimized) to the simulation
// indicator it is read from.
type ObjectiveSpec struct {
	Name      string `json:"name"`
	Indicator string `json:"indicator"`
}

// Individual is one candidate parameter set within a generation. Objectives
// is nil until the individual has been evaluated.
type Individual struct {
	ID              int       `json:"id"`
	CloneTag        string    `json:"clone"`
	Generation      int       `json:"generation"`
	BirthGeneration int       `json:"birthgeneration"`
	Genome          []float64 `json:"genome"`
	Objectives      []float64 `json:"objectives,omitempty"`
}

// Evaluated reports whether objective values have been assigned.
func (ind Individual) Evaluated() bool {
	return len(ind.Objectives) > 0
}

// Validate checks the genome against the declared parameters and, if the
// individual is evaluated, the objective vector against the declared
// objectives.
func (ind Individual) Validate(parameters []ParameterSpec, objectives []ObjectiveSpec) error {
	if len(ind.Genome) != len(parameters) {
		return fmt.Errorf("individual %d: genome length %d does not match %d parameters",
			ind.ID, len(ind.Genome), len(parameters))
	}
	if ind.Evaluated() && len(ind.Objectives) != len(objectives) {
		return fmt.Errorf("individual %d: %d objective values for %d objectives",
			ind.ID, len(ind.Objectives), len(objectives))
	}
	return nil
}

// RunRecord is one simulation run tracked by the browser.
type RunRecord struct {
	ID    int    `json:"id"`
	Tags  string `json:"tags"`
	Notes string `json:"notes,omitempty"`
}

// IndicatorRecord is a named scalar result attached to a run.
type IndicatorRecord struct {
	RunID int     `json:"run_id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Tags  string  `json:"tags,omitempty"`
}

// ParameterRecord is a named parameter value attached to a run.
type ParameterRecord struct {
	RunID int     `json:"run_id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Tags  string  `json:"tags,omitempty"`
}

// ResultFileRecord points at a file produced by a run.
type ResultFileRecord struct {
	RunID int    `json:"run_id"`
	Tags  string `json:"tags"`
	Path  string `json:"path"`
}

// RunSummary is the terminal record of a completed optimization: mean
// objective and parameter values over the last generation plus the
// population file holding the full history.
type RunSummary struct {
	RunID          int                `json:"run_id"`
	Tags           string             `json:"tags"`
	Notes          string             `json:"notes"`
	MeanObjectives map[string]float64 `json:"mean_objectives"`
	MeanParameters map[string]float64 `json:"mean_parameters"`
	PopulationFile string             `json:"population_file"`
}
