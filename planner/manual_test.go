package planner

import (
	"context"
	"testing"

	"vedit/catalog"
)

func newTestStepList(collab Collaborator) *StepList {
	return NewStepList(collab, catalog.DefaultCatalog(), DefaultEngineOptions())
}

// TestManualAddStepSeedsDefaults tests default parameter seeding
func TestManualAddStepSeedsDefaults(t *testing.T) {
	list := newTestStepList(newFakeCollab())

	added, err := list.AddStep(catalog.VideoInpainting)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Status != StepStatusPending {
		t.Errorf("expected pending, got %s", added.Status)
	}
	if added.Parameters["quality"].Text != "high" {
		t.Errorf("expected default quality high, got %q", added.Parameters["quality"].Text)
	}
	if added.Parameters["temporal_consistency"].Num != 0.8 {
		t.Errorf("expected default temporal consistency 0.8, got %v",
			added.Parameters["temporal_consistency"].Num)
	}

	if _, err := list.AddStep(catalog.ModelType("no_such_model")); err == nil {
		t.Fatal("expected rejection of unknown model")
	}
}

// TestManualRunWithoutApproval tests that manual steps need no approval gate
func TestManualRunWithoutApproval(t *testing.T) {
	collab := newFakeCollab()
	list := newTestStepList(collab)

	added, err := list.AddStep(catalog.ColorCorrection)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := list.RunStep(context.Background(), added.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	steps := list.Steps()
	if steps[0].Status != StepStatusCompleted {
		t.Errorf("expected completed, got %s", steps[0].Status)
	}
}

// TestManualRunAll tests the run-all driver over list order
func TestManualRunAll(t *testing.T) {
	collab := newFakeCollab()
	list := newTestStepList(collab)

	if _, err := list.AddStep(catalog.SegmentationSAM3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := list.AddStep(catalog.ColorCorrection); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := list.RunAll(context.Background()); err != nil {
		t.Fatalf("run all: %v", err)
	}
	for _, s := range list.Steps() {
		if s.Status != StepStatusCompleted {
			t.Errorf("step %s is %s", s.ID, s.Status)
		}
	}
	if len(collab.runs) != 2 || collab.runs[0] != catalog.SegmentationSAM3 {
		t.Errorf("steps ran out of order: %v", collab.runs)
	}
}

// TestManualReorderAnytime tests reordering with no approval restriction
func TestManualReorderAnytime(t *testing.T) {
	list := newTestStepList(newFakeCollab())

	first, _ := list.AddStep(catalog.SegmentationSAM3)
	second, _ := list.AddStep(catalog.ColorCorrection)

	if err := list.Reorder([]string{second.ID, first.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	steps := list.Steps()
	if steps[0].ID != second.ID || steps[0].Order != 0 {
		t.Errorf("reorder not applied: %v", steps)
	}
}

// TestManualRemoveStep tests deletion from the manual pipeline
func TestManualRemoveStep(t *testing.T) {
	list := newTestStepList(newFakeCollab())

	added, _ := list.AddStep(catalog.ColorCorrection)
	if err := list.RemoveStep(added.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(list.Steps()) != 0 {
		t.Errorf("expected empty list, got %d steps", len(list.Steps()))
	}
}
