package browser

import (
	"context"
	"sort"
	"strings"
	"sync"

	"swimevo/internal/model"
)

type MemoryBrowser struct {
	mu          sync.RWMutex
	initialized bool
	nextID      int
	runs        map[int]model.RunRecord
	indicators  map[int][]model.IndicatorRecord
	parameters  map[int][]model.ParameterRecord
	resultFiles map[int][]model.ResultFileRecord
}

func NewMemoryBrowser() *MemoryBrowser {
	return &MemoryBrowser{}
}

// Init prepares the in-memory tables. Calling it again is a no-op so a
// shared browser survives repeated client operations.
func (b *MemoryBrowser) Init(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}
	b.initialized = true
	b.nextID = 1
	b.runs = make(map[int]model.RunRecord)
	b.indicators = make(map[int][]model.IndicatorRecord)
	b.parameters = make(map[int][]model.ParameterRecord)
	b.resultFiles = make(map[int][]model.ResultFileRecord)
	return nil
}

func (b *MemoryBrowser) InsertRun(_ context.Context, tags, notes string) (model.RunRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := model.RunRecord{ID: b.nextID, Tags: tags, Notes: notes}
	b.nextID++
	b.runs[rec.ID] = rec
	return rec, nil
}

func (b *MemoryBrowser) GetRun(_ context.Context, id int) (model.RunRecord, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.runs[id]
	return rec, ok, nil
}

func (b *MemoryBrowser) RunsByTag(_ context.Context, fragment string) ([]model.RunRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.RunRecord, 0)
	for _, rec := range b.runs {
		if strings.Contains(rec.Tags, fragment) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *MemoryBrowser) InsertIndicator(_ context.Context, rec model.IndicatorRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.indicators[rec.RunID] = append(b.indicators[rec.RunID], rec)
	return nil
}

func (b *MemoryBrowser) Indicators(_ context.Context, runID int, name string) ([]model.IndicatorRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.IndicatorRecord, 0)
	for _, rec := range b.indicators[runID] {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (b *MemoryBrowser) AllIndicators(_ context.Context, runID int) ([]model.IndicatorRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]model.IndicatorRecord(nil), b.indicators[runID]...), nil
}

func (b *MemoryBrowser) InsertParameter(_ context.Context, rec model.ParameterRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.parameters[rec.RunID] = append(b.parameters[rec.RunID], rec)
	return nil
}

func (b *MemoryBrowser) Parameters(_ context.Context, runID int) ([]model.ParameterRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]model.ParameterRecord(nil), b.parameters[runID]...), nil
}

func (b *MemoryBrowser) AttachResultFile(_ context.Context, rec model.ResultFileRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resultFiles[rec.RunID] = append(b.resultFiles[rec.RunID], rec)
	return nil
}

func (b *MemoryBrowser) ResultFiles(_ context.Context, runID int) ([]model.ResultFileRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]model.ResultFileRecord(nil), b.resultFiles[runID]...), nil
}

func (b *MemoryBrowser) DeleteRun(_ context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.runs, id)
	delete(b.indicators, id)
	delete(b.parameters, id)
	delete(b.resultFiles, id)
	return nil
}

func (b *MemoryBrowser) ResetIDs(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	maxID := 0
	for id := range b.runs {
		if id > maxID {
			maxID = id
		}
	}
	b.nextID = maxID + 1
	return nil
}
