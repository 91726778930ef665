package planner

import (
	"testing"

	"vedit/catalog"
)

func newTestSynthesizer() (*PromptAnalyzer, *PlanSynthesizer) {
	return NewPromptAnalyzer(), NewPlanSynthesizer(catalog.DefaultCatalog())
}

func synthesize(t *testing.T, prompt string) *ExecutionPlan {
	t.Helper()
	a, s := newTestSynthesizer()
	analysis := a.AnalyzePrompt(prompt)
	plan, err := s.Synthesize(prompt, analysis)
	if err != nil {
		t.Fatalf("Synthesize(%q): %v", prompt, err)
	}
	return plan
}

// TestSynthesizeRemoval tests the segmentation-then-removal pipeline
func TestSynthesizeRemoval(t *testing.T) {
	plan := synthesize(t, "remove the person")

	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	seg, removal := plan.Steps[0], plan.Steps[1]
	if seg.ModelType != catalog.SegmentationSAM3 {
		t.Errorf("expected segmentation first, got %s", seg.ModelType)
	}
	if removal.ModelType != catalog.ObjectRemoval {
		t.Errorf("expected object removal second, got %s", removal.ModelType)
	}
	if len(removal.Dependencies) != 1 || removal.Dependencies[0] != seg.ID {
		t.Errorf("removal step must depend on segmentation, got %v", removal.Dependencies)
	}
	if len(seg.Dependencies) != 0 {
		t.Errorf("segmentation step must have no dependencies, got %v", seg.Dependencies)
	}
	if plan.Status != PlanStatusPendingApproval {
		t.Errorf("expected pending_approval, got %s", plan.Status)
	}
}

// TestSynthesizeReplacement tests that the replacement phrase flows into the prompt parameter
func TestSynthesizeReplacement(t *testing.T) {
	plan := synthesize(t, "replace the car with a red sports car")

	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	repl := plan.Steps[1]
	if repl.ModelType != catalog.ObjectReplacement {
		t.Fatalf("expected object replacement, got %s", repl.ModelType)
	}
	prompt, ok := repl.Parameters["prompt"]
	if !ok {
		t.Fatal("replacement step missing prompt parameter")
	}
	if prompt.Text != "red sports car" {
		t.Errorf("expected prompt %q, got %q", "red sports car", prompt.Text)
	}
	if repl.Dependencies[0] != plan.Steps[0].ID {
		t.Errorf("replacement must depend on segmentation")
	}
}

// TestSynthesizeInsertion tests that scene analysis is optional
func TestSynthesizeInsertion(t *testing.T) {
	plan := synthesize(t, "add a bird to the scene")

	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	if !plan.Steps[0].IsOptional {
		t.Error("placement analysis step should be optional")
	}
	if plan.Steps[1].ModelType != catalog.ObjectInsertion {
		t.Errorf("expected object insertion, got %s", plan.Steps[1].ModelType)
	}
}

// TestSynthesizeSingleStepStrategies tests inpaint, segment and correct plans
func TestSynthesizeSingleStepStrategies(t *testing.T) {
	cases := []struct {
		prompt string
		model  catalog.ModelType
	}{
		{"fill the missing area", catalog.VideoInpainting},
		{"select the building", catalog.SegmentationSAM3},
		{"adjust the color balance", catalog.ColorCorrection},
	}

	for _, tc := range cases {
		plan := synthesize(t, tc.prompt)
		if len(plan.Steps) != 1 {
			t.Errorf("prompt %q: expected 1 step, got %d", tc.prompt, len(plan.Steps))
			continue
		}
		if plan.Steps[0].ModelType != tc.model {
			t.Errorf("prompt %q: expected %s, got %s", tc.prompt, tc.model, plan.Steps[0].ModelType)
		}
		if len(plan.Steps[0].Dependencies) != 0 {
			t.Errorf("prompt %q: single step must have no dependencies", tc.prompt)
		}
	}
}

// TestSynthesizeSegmentationMode tests text mode when a target is present
func TestSynthesizeSegmentationMode(t *testing.T) {
	plan := synthesize(t, "select the building")
	mode := plan.Steps[0].Parameters["mode"]
	if mode.Text != "text" {
		t.Errorf("expected text mode with a target, got %q", mode.Text)
	}
}

// TestSynthesizeComposite tests the segment-then-blend pipeline
func TestSynthesizeComposite(t *testing.T) {
	plan := synthesize(t, "blend the two layers")

	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	blend := plan.Steps[1]
	if blend.ModelType != catalog.VideoInpainting {
		t.Errorf("expected inpainting blend step, got %s", blend.ModelType)
	}
	if blend.Parameters["quality"].Text != "high" {
		t.Errorf("expected high quality blend, got %q", blend.Parameters["quality"].Text)
	}
	if blend.Parameters["temporal_consistency"].Num != 0.9 {
		t.Errorf("expected temporal consistency 0.9, got %v", blend.Parameters["temporal_consistency"].Num)
	}
}

// TestTotalEstimatedTimeInvariant tests the estimate sum across strategies
func TestTotalEstimatedTimeInvariant(t *testing.T) {
	prompts := []string{
		"remove the person",
		"replace the car with a truck",
		"add a bird",
		"fill the hole",
		"select the sky",
		"adjust the color balance",
		"merge the clips",
		"make it look nicer somehow",
	}

	for _, prompt := range prompts {
		plan := synthesize(t, prompt)
		sum := 0
		for _, step := range plan.Steps {
			sum += step.EstimatedTime
		}
		if plan.TotalEstimatedTime != sum {
			t.Errorf("prompt %q: totalEstimatedTime %d != step sum %d",
				prompt, plan.TotalEstimatedTime, sum)
		}
	}
}

// TestSynthesizeOrderAssignment tests that order matches slice position
func TestSynthesizeOrderAssignment(t *testing.T) {
	plan := synthesize(t, "remove the logo")
	for i, step := range plan.Steps {
		if step.Order != i {
			t.Errorf("step %d has order %d", i, step.Order)
		}
		if step.Status != StepStatusPending {
			t.Errorf("step %d not pending: %s", i, step.Status)
		}
	}
}
