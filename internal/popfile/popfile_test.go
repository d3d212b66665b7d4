package popfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"swimevo/internal/model"
)

var testParameters = []model.ParameterSpec{
	{Name: "recession", Lower: 0.01, Upper: 1},
	{Name: "runoff_coeff", Lower: 0, Upper: 1},
}

var testObjectives = []model.ObjectiveSpec{
	{Name: "pbias", Indicator: "pbias"},
	{Name: "rmse", Indicator: "rmse"},
}

func testIndividual(id, gen int, tag string, objectives, genome []float64) model.Individual {
	return model.Individual{
		ID:              id,
		CloneTag:        tag,
		Generation:      gen,
		BirthGeneration: gen,
		Genome:          genome,
		Objectives:      objectives,
	}
}

func TestWriterHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	w, err := NewWriter(path, testParameters, testObjectives)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	inds := []model.Individual{
		testIndividual(1, 0, "sms-emoa_0", []float64{1.5, 2.5}, []float64{0.2, 0.4}),
	}
	if err := w.Append(0, inds); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	wantHeader := "generation,id_number,clone,birthgeneration," +
		"objective:pbias:pbias,objective:rmse:rmse," +
		`"parameter:recession:(0.01, 1)","parameter:runoff_coeff:(0, 1)"`
	if lines[0] != wantHeader {
		t.Fatalf("header mismatch:\n got %s\nwant %s", lines[0], wantHeader)
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	w, err := NewWriter(path, testParameters, testObjectives)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	gens := [][]model.Individual{
		{
			testIndividual(1, 0, "sms-emoa_0", []float64{1.25, 4}, []float64{0.2, 0.4}),
			testIndividual(2, 0, "sms-emoa_1", []float64{2, 2}, []float64{0.5, 0.5}),
		},
		{
			testIndividual(3, 1, "sms-emoa_0", []float64{4, 1}, []float64{0.9, 0.1}),
			testIndividual(4, 1, "sms-emoa_1", []float64{0.5, 3}, []float64{0.3, 0.7}),
		},
	}
	for gen, inds := range gens {
		if err := w.Append(gen, inds); err != nil {
			t.Fatalf("Append generation %d: %v", gen, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(testParameters, store.Parameters); diff != "" {
		t.Fatalf("parameters mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(testObjectives, store.Objectives); diff != "" {
		t.Fatalf("objectives mismatch (-want +got):\n%s", diff)
	}
	var want []model.Individual
	for _, inds := range gens {
		want = append(want, inds...)
	}
	if diff := cmp.Diff(want, store.Individuals); diff != "" {
		t.Fatalf("individuals mismatch (-want +got):\n%s", diff)
	}
	if got := store.MaxGeneration(); got != 1 {
		t.Fatalf("MaxGeneration = %d, want 1", got)
	}
	if got := len(store.LastGeneration()); got != 2 {
		t.Fatalf("LastGeneration size = %d, want 2", got)
	}
}

func TestAppendRejectsDuplicateCloneTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	w, err := NewWriter(path, testParameters, testObjectives)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	inds := []model.Individual{
		testIndividual(1, 0, "sms-emoa_0", []float64{1, 1}, []float64{0.2, 0.4}),
		testIndividual(2, 0, "sms-emoa_0", []float64{2, 2}, []float64{0.5, 0.5}),
	}
	if err := w.Append(0, inds); err == nil {
		t.Fatal("expected duplicate clone tag to be rejected")
	}
}

func TestAppendRejectsUnevaluated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	w, err := NewWriter(path, testParameters, testObjectives)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	inds := []model.Individual{
		{ID: 1, CloneTag: "sms-emoa_0", Genome: []float64{0.2, 0.4}},
	}
	if err := w.Append(0, inds); err == nil {
		t.Fatal("expected unevaluated individual to be rejected")
	}
}

func TestAppendEmptyPopulation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	w, err := NewWriter(path, testParameters, testObjectives)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	if err := w.Append(0, nil); !errors.Is(err, ErrEmptyPopulation) {
		t.Fatalf("Append(nil) = %v, want ErrEmptyPopulation", err)
	}
}

func TestReadRejectsGenerationGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	content := strings.Join([]string{
		`generation,id_number,clone,birthgeneration,objective:rmse:rmse,"parameter:runoff_coeff:(0, 1)"`,
		"0,1,sms-emoa_0,0,1.5,0.2",
		"1,2,sms-emoa_0,1,1.2,0.3",
		"3,3,sms-emoa_0,3,0.9,0.4",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Read(path)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("Read = %v, want FormatError for generation gap", err)
	}
}

func TestReadRejectsDuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	content := strings.Join([]string{
		`generation,id_number,clone,birthgeneration,objective:rmse:rmse,"parameter:runoff_coeff:(0, 1)"`,
		"0,1,sms-emoa_0,0,1.5,0.2",
		"0,1,sms-emoa_1,0,1.2,0.3",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Read(path); err == nil {
		t.Fatal("expected duplicate (generation, id) to be rejected")
	}
}

func TestReadRejectsObjectiveAfterParameter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	content := strings.Join([]string{
		`generation,id_number,clone,birthgeneration,"parameter:runoff_coeff:(0, 1)",objective:rmse:rmse`,
		"0,1,sms-emoa_0,0,0.2,1.5",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Read(path); err == nil {
		t.Fatal("expected objective column after parameter column to be rejected")
	}
}

func TestParseRange(t *testing.T) {
	lower, upper, err := parseRange("(0.01, 1)")
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if lower != 0.01 || upper != 1 {
		t.Fatalf("parseRange = (%g, %g), want (0.01, 1)", lower, upper)
	}

	for _, bad := range []string{"0.01, 1", "(0.01)", "(a, b)", "(1, 2, 3)"} {
		if _, _, err := parseRange(bad); err == nil {
			t.Fatalf("parseRange(%q) succeeded, want error", bad)
		}
	}
}

func TestHeaderOnlyOnGenerationZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pops.csv")
	w, err := NewWriter(path, testParameters, testObjectives)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for gen := 0; gen < 3; gen++ {
		inds := []model.Individual{
			testIndividual(gen+1, gen, "sms-emoa_0", []float64{1, 1}, []float64{0.2, 0.4}),
		}
		if err := w.Append(gen, inds); err != nil {
			t.Fatalf("Append generation %d: %v", gen, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.Count(string(data), "id_number"); got != 1 {
		t.Fatalf("header written %d times, want once", got)
	}
}
