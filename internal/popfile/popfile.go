// Package popfile persists successive generations of an optimization run as a
// single self-describing CSV file. Parameter ranges and objective-to-indicator
// mappings are encoded in the column headers so a file can be reloaded without
// any external schema.
package popfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"swimevo/internal/model"
)

// Fixed identity columns, in file order, ahead of objective and parameter
// columns.
var metaColumns = []string{"generation", "id_number", "clone", "birthgeneration"}

var ErrEmptyPopulation = errors.New("population is empty")

// FormatError reports a population file that violates the column or row
// contract.
type FormatError struct {
	Path   string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("population file %s: %s", e.Path, e.Detail)
}

// Writer appends generations of individuals to a population file. The header
// row is written with generation 0 and never repeated.
type Writer struct {
	path       string
	file       *os.File
	csv        *csv.Writer
	parameters []model.ParameterSpec
	objectives []model.ObjectiveSpec
	wroteAny   bool
	closed     bool
}

func NewWriter(path string, parameters []model.ParameterSpec, objectives []model.ObjectiveSpec) (*Writer, error) {
	if len(parameters) == 0 {
		return nil, errors.New("at least one parameter is required")
	}
	if len(objectives) == 0 {
		return nil, errors.New("at least one objective is required")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open population file: %w", err)
	}
	return &Writer{
		path:       path,
		file:       f,
		csv:        csv.NewWriter(f),
		parameters: parameters,
		objectives: objectives,
	}, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Append writes one row per individual. Clone tags must be unique within the
// generation and every individual must be fully evaluated.
func (w *Writer) Append(generation int, individuals []model.Individual) error {
	if len(individuals) == 0 {
		return ErrEmptyPopulation
	}
	if generation == 0 && !w.wroteAny {
		if err := w.csv.Write(headerColumns(w.parameters, w.objectives)); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	seen := make(map[string]struct{}, len(individuals))
	for _, ind := range individuals {
		if err := ind.Validate(w.parameters, w.objectives); err != nil {
			return err
		}
		if !ind.Evaluated() {
			return fmt.Errorf("individual %d of generation %d is unevaluated", ind.ID, generation)
		}
		if _, dup := seen[ind.CloneTag]; dup {
			return fmt.Errorf("duplicate clone tag %q in generation %d", ind.CloneTag, generation)
		}
		seen[ind.CloneTag] = struct{}{}

		row := make([]string, 0, len(metaColumns)+len(w.objectives)+len(w.parameters))
		row = append(row,
			strconv.Itoa(generation),
			strconv.Itoa(ind.ID),
			ind.CloneTag,
			strconv.Itoa(ind.BirthGeneration),
		)
		for _, v := range ind.Objectives {
			row = append(row, formatFloat(v))
		}
		for _, v := range ind.Genome {
			row = append(row, formatFloat(v))
		}
		if err := w.csv.Write(row); err != nil {
			return fmt.Errorf("write generation %d: %w", generation, err)
		}
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush generation %d: %w", generation, err)
	}
	w.wroteAny = true
	return nil
}

// Close flushes and closes the file. Calling it twice is fine.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

func headerColumns(parameters []model.ParameterSpec, objectives []model.ObjectiveSpec) []string {
	cols := make([]string, 0, len(metaColumns)+len(objectives)+len(parameters))
	cols = append(cols, metaColumns...)
	for _, o := range objectives {
		cols = append(cols, fmt.Sprintf("objective:%s:%s", o.Name, o.Indicator))
	}
	for _, p := range parameters {
		cols = append(cols, fmt.Sprintf("parameter:%s:%s", p.Name, formatRange(p.Lower, p.Upper)))
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatRange(lower, upper float64) string {
	return "(" + formatFloat(lower) + ", " + formatFloat(upper) + ")"
}

// parseRange accepts exactly the "(lower, upper)" form produced by
// formatRange. Anything else is a format error.
func parseRange(s string) (lower, upper float64, err error) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return 0, 0, fmt.Errorf("range %q is not parenthesized", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range %q does not have two bounds", s)
	}
	lower, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	upper, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	return lower, upper, nil
}

// Store is an immutable view of a completed (or partial) population file.
type Store struct {
	Path        string
	Parameters  []model.ParameterSpec
	Objectives  []model.ObjectiveSpec
	Individuals []model.Individual
}

// Read loads a population file and recovers parameter ranges and indicator
// mappings from the column headers. Generations must be contiguous from zero;
// a gap is treated as a malformed file.
func Read(path string) (Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return Store{}, fmt.Errorf("open population file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Store{}, &FormatError{Path: path, Detail: err.Error()}
	}
	if len(records) == 0 {
		return Store{}, &FormatError{Path: path, Detail: "no header row"}
	}

	header := records[0]
	if len(header) < len(metaColumns)+2 {
		return Store{}, &FormatError{Path: path, Detail: "too few columns"}
	}
	for i, want := range metaColumns {
		if header[i] != want {
			return Store{}, &FormatError{Path: path,
				Detail: fmt.Sprintf("column %d is %q, want %q", i, header[i], want)}
		}
	}

	store := Store{Path: path}
	for _, col := range header[len(metaColumns):] {
		kind, name, meta, ok := splitColumn(col)
		if !ok {
			return Store{}, &FormatError{Path: path,
				Detail: fmt.Sprintf("column %q does not match kind:name:meta", col)}
		}
		switch kind {
		case "objective":
			if len(store.Parameters) > 0 {
				return Store{}, &FormatError{Path: path,
					Detail: fmt.Sprintf("objective column %q after parameter columns", col)}
			}
			store.Objectives = append(store.Objectives, model.ObjectiveSpec{Name: name, Indicator: meta})
		case "parameter":
			lower, upper, err := parseRange(meta)
			if err != nil {
				return Store{}, &FormatError{Path: path, Detail: err.Error()}
			}
			store.Parameters = append(store.Parameters, model.ParameterSpec{Name: name, Lower: lower, Upper: upper})
		default:
			return Store{}, &FormatError{Path: path,
				Detail: fmt.Sprintf("unknown column kind %q in %q", kind, col)}
		}
	}
	if len(store.Objectives) == 0 || len(store.Parameters) == 0 {
		return Store{}, &FormatError{Path: path, Detail: "missing objective or parameter columns"}
	}

	wantFields := len(metaColumns) + len(store.Objectives) + len(store.Parameters)
	seen := make(map[[2]int]struct{}, len(records)-1)
	generations := make(map[int]struct{})
	for line, rec := range records[1:] {
		if len(rec) != wantFields {
			return Store{}, &FormatError{Path: path,
				Detail: fmt.Sprintf("row %d has %d fields, want %d", line+2, len(rec), wantFields)}
		}
		ind, gen, err := parseRow(rec, len(store.Objectives), len(store.Parameters))
		if err != nil {
			return Store{}, &FormatError{Path: path, Detail: fmt.Sprintf("row %d: %v", line+2, err)}
		}
		key := [2]int{gen, ind.ID}
		if _, dup := seen[key]; dup {
			return Store{}, &FormatError{Path: path,
				Detail: fmt.Sprintf("duplicate individual %d in generation %d", ind.ID, gen)}
		}
		seen[key] = struct{}{}
		generations[gen] = struct{}{}
		store.Individuals = append(store.Individuals, ind)
	}
	if len(store.Individuals) == 0 {
		return Store{}, &FormatError{Path: path, Detail: "no individuals"}
	}
	for g := 0; g < len(generations); g++ {
		if _, ok := generations[g]; !ok {
			return Store{}, &FormatError{Path: path,
				Detail: fmt.Sprintf("generations are not contiguous: missing %d", g)}
		}
	}
	return store, nil
}

func splitColumn(col string) (kind, name, meta string, ok bool) {
	parts := strings.SplitN(col, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func parseRow(rec []string, numObjectives, numParameters int) (model.Individual, int, error) {
	gen, err := strconv.Atoi(rec[0])
	if err != nil {
		return model.Individual{}, 0, fmt.Errorf("generation: %w", err)
	}
	id, err := strconv.Atoi(rec[1])
	if err != nil {
		return model.Individual{}, 0, fmt.Errorf("id_number: %w", err)
	}
	birth, err := strconv.Atoi(rec[3])
	if err != nil {
		return model.Individual{}, 0, fmt.Errorf("birthgeneration: %w", err)
	}
	ind := model.Individual{
		ID:              id,
		CloneTag:        rec[2],
		Generation:      gen,
		BirthGeneration: birth,
		Objectives:      make([]float64, numObjectives),
		Genome:          make([]float64, numParameters),
	}
	off := len(metaColumns)
	for i := 0; i < numObjectives; i++ {
		v, err := strconv.ParseFloat(rec[off+i], 64)
		if err != nil {
			return model.Individual{}, 0, fmt.Errorf("objective %d: %w", i, err)
		}
		ind.Objectives[i] = v
	}
	off += numObjectives
	for i := 0; i < numParameters; i++ {
		v, err := strconv.ParseFloat(rec[off+i], 64)
		if err != nil {
			return model.Individual{}, 0, fmt.Errorf("parameter %d: %w", i, err)
		}
		ind.Genome[i] = v
	}
	return ind, gen, nil
}

// MaxGeneration returns the highest generation number present.
func (s Store) MaxGeneration() int {
	max := 0
	for _, ind := range s.Individuals {
		if ind.Generation > max {
			max = ind.Generation
		}
	}
	return max
}

// LastGeneration returns all individuals of the highest generation, in file
// row order.
func (s Store) LastGeneration() []model.Individual {
	max := s.MaxGeneration()
	out := make([]model.Individual, 0)
	for _, ind := range s.Individuals {
		if ind.Generation == max {
			out = append(out, ind)
		}
	}
	return out
}

// Generation returns all individuals of one generation, in file row order.
func (s Store) Generation(gen int) []model.Individual {
	out := make([]model.Individual, 0)
	for _, ind := range s.Individuals {
		if ind.Generation == gen {
			out = append(out, ind)
		}
	}
	return out
}

// ObjectiveIndex returns the position of a named objective, or -1.
func (s Store) ObjectiveIndex(name string) int {
	for i, o := range s.Objectives {
		if o.Name == name {
			return i
		}
	}
	return -1
}
