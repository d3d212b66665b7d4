package browser

import (
	"context"
	"testing"

	"swimevo/internal/model"
)

func initMemory(t *testing.T) *MemoryBrowser {
	t.Helper()
	b := NewMemoryBrowser()
	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return b
}

func TestInsertRunAssignsSequentialIDs(t *testing.T) {
	b := initMemory(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		run, err := b.InsertRun(ctx, "sms-emoa sms-emoa_0", "")
		if err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
		if run.ID != want {
			t.Fatalf("run ID = %d, want %d", run.ID, want)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	b := initMemory(t)
	ctx := context.Background()

	if _, err := b.InsertRun(ctx, "sms-emoa", ""); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if err := b.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	runs, err := b.RunsByTag(ctx, "")
	if err != nil {
		t.Fatalf("RunsByTag: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("second Init dropped runs, %d left", len(runs))
	}
}

func TestRunsByTagSubstringOrdered(t *testing.T) {
	b := initMemory(t)
	ctx := context.Background()

	tags := []string{"sms-emoa sms-emoa_0", "nsga2 nsga2_0", "sms-emoa sms-emoa_1"}
	for _, tag := range tags {
		if _, err := b.InsertRun(ctx, tag, ""); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}
	runs, err := b.RunsByTag(ctx, "sms-emoa_")
	if err != nil {
		t.Fatalf("RunsByTag: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("%d runs matched, want 2", len(runs))
	}
	if runs[0].ID != 1 || runs[1].ID != 3 {
		t.Fatalf("run order = %d, %d, want 1, 3", runs[0].ID, runs[1].ID)
	}
}

func TestIndicatorsByName(t *testing.T) {
	b := initMemory(t)
	ctx := context.Background()

	run, err := b.InsertRun(ctx, "sms-emoa sms-emoa_0", "")
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	recs := []model.IndicatorRecord{
		{RunID: run.ID, Name: "rmse", Value: 1.5},
		{RunID: run.ID, Name: "pbias", Value: 0.2},
	}
	for _, rec := range recs {
		if err := b.InsertIndicator(ctx, rec); err != nil {
			t.Fatalf("InsertIndicator: %v", err)
		}
	}

	got, err := b.Indicators(ctx, run.ID, "rmse")
	if err != nil {
		t.Fatalf("Indicators: %v", err)
	}
	if len(got) != 1 || got[0].Value != 1.5 {
		t.Fatalf("Indicators(rmse) = %+v, want one record with value 1.5", got)
	}
	all, err := b.AllIndicators(ctx, run.ID)
	if err != nil {
		t.Fatalf("AllIndicators: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("AllIndicators = %d records, want 2", len(all))
	}
}

func TestDeleteRunCascades(t *testing.T) {
	b := initMemory(t)
	ctx := context.Background()

	run, err := b.InsertRun(ctx, "sms-emoa sms-emoa_0", "")
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if err := b.InsertIndicator(ctx, model.IndicatorRecord{RunID: run.ID, Name: "rmse", Value: 1}); err != nil {
		t.Fatalf("InsertIndicator: %v", err)
	}
	if err := b.InsertParameter(ctx, model.ParameterRecord{RunID: run.ID, Name: "runoff_coeff", Value: 0.4}); err != nil {
		t.Fatalf("InsertParameter: %v", err)
	}
	if err := b.AttachResultFile(ctx, model.ResultFileRecord{RunID: run.ID, Path: "pops.csv"}); err != nil {
		t.Fatalf("AttachResultFile: %v", err)
	}

	if err := b.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, ok, _ := b.GetRun(ctx, run.ID); ok {
		t.Fatal("run still present after delete")
	}
	if recs, _ := b.AllIndicators(ctx, run.ID); len(recs) != 0 {
		t.Fatalf("%d indicators left after delete", len(recs))
	}
	if recs, _ := b.Parameters(ctx, run.ID); len(recs) != 0 {
		t.Fatalf("%d parameters left after delete", len(recs))
	}
	if recs, _ := b.ResultFiles(ctx, run.ID); len(recs) != 0 {
		t.Fatalf("%d result files left after delete", len(recs))
	}
}

func TestResetIDsAfterBulkDelete(t *testing.T) {
	b := initMemory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := b.InsertRun(ctx, "sms-emoa", ""); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}
	for id := 1; id <= 5; id++ {
		if err := b.DeleteRun(ctx, id); err != nil {
			t.Fatalf("DeleteRun: %v", err)
		}
	}
	if err := b.ResetIDs(ctx); err != nil {
		t.Fatalf("ResetIDs: %v", err)
	}
	run, err := b.InsertRun(ctx, "sms-emoa", "")
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if run.ID != 1 {
		t.Fatalf("run ID after reset = %d, want 1", run.ID)
	}
}

func TestNewBrowserKinds(t *testing.T) {
	if _, err := NewBrowser("memory", ""); err != nil {
		t.Fatalf("NewBrowser(memory): %v", err)
	}
	if _, err := NewBrowser("", ""); err != nil {
		t.Fatalf("NewBrowser with empty kind: %v", err)
	}
	if _, err := NewBrowser("postgres", ""); err == nil {
		t.Fatal("expected unsupported backend to be rejected")
	}
}
