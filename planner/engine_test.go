package planner

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohanthewiz/serr"
	"vedit/catalog"
)

// fakeCollab is a scriptable in-process collaborator
type fakeCollab struct {
	mu          sync.Mutex
	fail        map[catalog.ModelType]string
	delay       time.Duration
	runs        []catalog.ModelType
	compensated []string
}

func newFakeCollab() *fakeCollab {
	return &fakeCollab{fail: make(map[catalog.ModelType]string)}
}

func (f *fakeCollab) Run(ctx context.Context, modelType catalog.ModelType, params map[string]catalog.Value) (*StepResult, error) {
	f.mu.Lock()
	f.runs = append(f.runs, modelType)
	failMsg := f.fail[modelType]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if failMsg != "" {
		return nil, serr.New(failMsg)
	}
	return &StepResult{Success: true, OutputURL: "out://" + string(modelType), ProcessingTime: 0.01}, nil
}

func (f *fakeCollab) Compensate(ctx context.Context, stepID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compensated = append(f.compensated, stepID)
	return nil
}

// newTestPlan synthesizes a removal plan (segmentation then removal)
func newTestPlan(t *testing.T, collab Collaborator, options EngineOptions) (*ExecutionPlan, *Engine) {
	t.Helper()
	cat := catalog.DefaultCatalog()
	analyzer := NewPromptAnalyzer()
	synth := NewPlanSynthesizer(cat)

	analysis := analyzer.AnalyzePrompt("remove the person")
	plan, err := synth.Synthesize("remove the person", analysis)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	return plan, NewEngine(plan, collab, cat, options)
}

func approve(t *testing.T, engine *Engine) {
	t.Helper()
	if err := engine.ApprovePlan(); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

// TestExecuteStepRejectsUnmetDependencies tests synchronous dependency rejection
func TestExecuteStepRejectsUnmetDependencies(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	approve(t, engine)

	removal := plan.Steps[1]
	if err := engine.ExecuteStep(context.Background(), removal.ID); err == nil {
		t.Fatal("expected dependency rejection, got nil")
	}

	snap := engine.Snapshot()
	if snap.Steps[1].Status != StepStatusPending {
		t.Errorf("rejected step should stay pending, got %s", snap.Steps[1].Status)
	}
}

// TestExecuteStepSuccess tests the pending -> running -> completed path
func TestExecuteStepSuccess(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	approve(t, engine)

	if err := engine.ExecuteStep(context.Background(), plan.Steps[0].ID); err != nil {
		t.Fatalf("execute: %v", err)
	}

	snap := engine.Snapshot()
	step := snap.Steps[0]
	if step.Status != StepStatusCompleted {
		t.Fatalf("expected completed, got %s", step.Status)
	}
	if step.Result == nil || !step.Result.Success {
		t.Error("expected a successful result")
	}
	if step.ActualTime == nil {
		t.Error("expected actualTime recorded")
	}
}

// TestExecuteStepOnlyFromPending tests invalid-transition rejection
func TestExecuteStepOnlyFromPending(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	approve(t, engine)

	segID := plan.Steps[0].ID
	if err := engine.ExecuteStep(context.Background(), segID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := engine.ExecuteStep(context.Background(), segID); err == nil {
		t.Fatal("expected rejection executing a completed step")
	}
}

// TestSkipSatisfiesDependencies tests that skipped counts as satisfied
func TestSkipSatisfiesDependencies(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	approve(t, engine)

	if err := engine.SkipStep(plan.Steps[0].ID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if err := engine.ExecuteStep(context.Background(), plan.Steps[1].ID); err != nil {
		t.Fatalf("execute after skip: %v", err)
	}

	snap := engine.Snapshot()
	if snap.Steps[0].Status != StepStatusSkipped {
		t.Errorf("expected skipped, got %s", snap.Steps[0].Status)
	}
	if snap.Steps[1].Status != StepStatusCompleted {
		t.Errorf("expected completed, got %s", snap.Steps[1].Status)
	}
	if snap.Status != PlanStatusCompleted {
		t.Errorf("expected plan completed, got %s", snap.Status)
	}
}

// TestSkipOnlyFromPending tests skip rejection on non-pending steps
func TestSkipOnlyFromPending(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	approve(t, engine)

	segID := plan.Steps[0].ID
	if err := engine.ExecuteStep(context.Background(), segID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := engine.SkipStep(segID); err == nil {
		t.Fatal("expected rejection skipping a completed step")
	}
}

// TestRollbackOnlyFromCompleted tests the single backward transition
func TestRollbackOnlyFromCompleted(t *testing.T) {
	collab := newFakeCollab()
	plan, engine := newTestPlan(t, collab, DefaultEngineOptions())
	approve(t, engine)

	segID := plan.Steps[0].ID

	// pending step cannot roll back
	if err := engine.RollbackStep(context.Background(), segID); err == nil {
		t.Fatal("expected rejection rolling back a pending step")
	}

	if err := engine.ExecuteStep(context.Background(), segID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := engine.RollbackStep(context.Background(), segID); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	snap := engine.Snapshot()
	step := snap.Steps[0]
	if step.Status != StepStatusPending {
		t.Errorf("expected pending after rollback, got %s", step.Status)
	}
	if step.Result != nil || step.ActualTime != nil {
		t.Error("rollback must clear result and actualTime")
	}
	if len(collab.compensated) != 1 || collab.compensated[0] != segID {
		t.Errorf("expected one compensation for %s, got %v", segID, collab.compensated)
	}

	// step is eligible for re-execution
	if err := engine.ExecuteStep(context.Background(), segID); err != nil {
		t.Fatalf("re-execute after rollback: %v", err)
	}
}

// TestRollbackRejectedFromFailed tests rollback rejection on a failed step
func TestRollbackRejectedFromFailed(t *testing.T) {
	collab := newFakeCollab()
	collab.fail[catalog.SegmentationSAM3] = "segmentation blew up"
	plan, engine := newTestPlan(t, collab, DefaultEngineOptions())
	approve(t, engine)

	segID := plan.Steps[0].ID
	if err := engine.ExecuteStep(context.Background(), segID); err == nil {
		t.Fatal("expected step failure")
	}
	if err := engine.RollbackStep(context.Background(), segID); err == nil {
		t.Fatal("expected rejection rolling back a failed step")
	}

	snap := engine.Snapshot()
	if snap.Steps[0].Status != StepStatusFailed {
		t.Errorf("expected failed, got %s", snap.Steps[0].Status)
	}
}

// TestReorderGating tests reorder before and after approval
func TestReorderGating(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())

	ids := []string{plan.Steps[1].ID, plan.Steps[0].ID}
	if err := engine.ReorderSteps(ids); err != nil {
		t.Fatalf("reorder while pending approval: %v", err)
	}

	snap := engine.Snapshot()
	for i, id := range ids {
		if snap.Steps[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, snap.Steps[i].ID)
		}
		if snap.Steps[i].Order != i {
			t.Errorf("position %d: expected order %d, got %d", i, i, snap.Steps[i].Order)
		}
	}

	approve(t, engine)
	if err := engine.ReorderSteps([]string{ids[1], ids[0]}); err == nil {
		t.Fatal("expected rejection reordering after approval")
	}
}

// TestReorderPreservesIDSet tests rejection of partial or unknown id lists
func TestReorderPreservesIDSet(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())

	if err := engine.ReorderSteps([]string{plan.Steps[0].ID}); err == nil {
		t.Fatal("expected rejection of incomplete reorder")
	}
	if err := engine.ReorderSteps([]string{plan.Steps[0].ID, "nope"}); err == nil {
		t.Fatal("expected rejection of unknown step id")
	}
}

// TestAddRemoveKeepsTotalTime tests the estimate-sum invariant on mutation
func TestAddRemoveKeepsTotalTime(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	cat := catalog.DefaultCatalog()

	checkTotal := func(label string) {
		t.Helper()
		snap := engine.Snapshot()
		sum := 0
		for _, s := range snap.Steps {
			sum += s.EstimatedTime
		}
		if snap.TotalEstimatedTime != sum {
			t.Errorf("%s: totalEstimatedTime %d != sum %d", label, snap.TotalEstimatedTime, sum)
		}
	}

	checkTotal("after synthesize")

	model, _ := cat.Get(catalog.ColorCorrection)
	added := ExecutionStep{
		ID:            "added-step",
		ModelType:     catalog.ColorCorrection,
		ModelName:     model.Name,
		Status:        StepStatusPending,
		Parameters:    cat.Defaults(catalog.ColorCorrection),
		EstimatedTime: model.EstimatedTime,
		Dependencies:  []string{plan.Steps[1].ID},
	}
	if err := engine.AddStep(added); err != nil {
		t.Fatalf("add: %v", err)
	}
	checkTotal("after add")

	if err := engine.RemoveStep(plan.Steps[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	checkTotal("after remove")
}

// TestRemoveStepClearsDanglingDependencies tests cascade-clearing references
func TestRemoveStepClearsDanglingDependencies(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())

	segID := plan.Steps[0].ID
	if err := engine.RemoveStep(segID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	snap := engine.Snapshot()
	if len(snap.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(snap.Steps))
	}
	for _, dep := range snap.Steps[0].Dependencies {
		if dep == segID {
			t.Error("dangling dependency reference left after removal")
		}
	}

	// with the reference cleared the remaining step is runnable
	approve(t, engine)
	if err := engine.ExecuteStep(context.Background(), snap.Steps[0].ID); err != nil {
		t.Fatalf("execute after removal: %v", err)
	}
}

// TestAddStepRejectsInvalidDependencies tests graph validation on add
func TestAddStepRejectsInvalidDependencies(t *testing.T) {
	_, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())

	bad := ExecutionStep{
		ID:           "bad-step",
		ModelType:    catalog.ColorCorrection,
		Status:       StepStatusPending,
		Dependencies: []string{"no-such-step"},
	}
	if err := engine.AddStep(bad); err == nil {
		t.Fatal("expected rejection of dangling dependency")
	}

	selfDep := ExecutionStep{
		ID:           "self-step",
		ModelType:    catalog.ColorCorrection,
		Status:       StepStatusPending,
		Dependencies: []string{"self-step"},
	}
	if err := engine.AddStep(selfDep); err == nil {
		t.Fatal("expected rejection of self dependency")
	}
}

// TestApproveGating tests that only pending_approval plans approve and execute
func TestApproveGating(t *testing.T) {
	_, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())

	if err := engine.ExecutePlan(context.Background()); err == nil {
		t.Fatal("expected rejection executing an unapproved plan")
	}
	approve(t, engine)
	if err := engine.ApprovePlan(); err == nil {
		t.Fatal("expected rejection approving twice")
	}
}

// TestExecutePlanSuccess tests the full sequential run to completed
func TestExecutePlanSuccess(t *testing.T) {
	collab := newFakeCollab()
	_, engine := newTestPlan(t, collab, DefaultEngineOptions())
	approve(t, engine)

	if err := engine.ExecutePlan(context.Background()); err != nil {
		t.Fatalf("execute plan: %v", err)
	}

	snap := engine.Snapshot()
	if snap.Status != PlanStatusCompleted {
		t.Fatalf("expected completed, got %s", snap.Status)
	}
	for _, step := range snap.Steps {
		if step.Status != StepStatusCompleted {
			t.Errorf("step %s is %s", step.ID, step.Status)
		}
	}
	if len(collab.runs) != 2 {
		t.Errorf("expected 2 collaborator runs, got %d", len(collab.runs))
	}
	if collab.runs[0] != catalog.SegmentationSAM3 || collab.runs[1] != catalog.ObjectRemoval {
		t.Errorf("steps ran out of order: %v", collab.runs)
	}
}

// TestExecutePlanStepFailure tests that a failed step fails the plan
func TestExecutePlanStepFailure(t *testing.T) {
	collab := newFakeCollab()
	collab.fail[catalog.ObjectRemoval] = "inpainting diverged"
	_, engine := newTestPlan(t, collab, DefaultEngineOptions())
	approve(t, engine)

	if err := engine.ExecutePlan(context.Background()); err == nil {
		t.Fatal("expected plan execution error")
	}

	snap := engine.Snapshot()
	if snap.Status != PlanStatusFailed {
		t.Fatalf("expected failed, got %s", snap.Status)
	}
	if snap.Steps[0].Status != StepStatusCompleted {
		t.Errorf("first step should stay completed, got %s", snap.Steps[0].Status)
	}
	step := snap.Steps[1]
	if step.Status != StepStatusFailed {
		t.Fatalf("expected failed step, got %s", step.Status)
	}
	if step.Result == nil || step.Result.Success || !strings.Contains(step.Result.Error, "inpainting diverged") {
		t.Errorf("failure not recorded in result: %+v", step.Result)
	}
}

// TestExecutePlanHaltsDependents tests that failure blocks downstream steps
func TestExecutePlanHaltsDependents(t *testing.T) {
	collab := newFakeCollab()
	collab.fail[catalog.SegmentationSAM3] = "no mask found"
	_, engine := newTestPlan(t, collab, DefaultEngineOptions())
	approve(t, engine)

	_ = engine.ExecutePlan(context.Background())

	snap := engine.Snapshot()
	if snap.Steps[1].Status != StepStatusPending {
		t.Errorf("dependent step must stay pending, got %s", snap.Steps[1].Status)
	}
	if snap.Status != PlanStatusFailed {
		t.Errorf("expected failed, got %s", snap.Status)
	}
	if len(collab.runs) != 1 {
		t.Errorf("dependent step must not run, got runs %v", collab.runs)
	}
}

// TestCancelStep tests cancelling an in-flight step fails it with a
// cancellation error
func TestCancelStep(t *testing.T) {
	collab := newFakeCollab()
	collab.delay = 200 * time.Millisecond
	plan, engine := newTestPlan(t, collab, DefaultEngineOptions())
	approve(t, engine)

	segID := plan.Steps[0].ID
	done := make(chan error, 1)
	go func() {
		done <- engine.ExecuteStep(context.Background(), segID)
	}()

	// wait for the step to be running
	deadline := time.Now().Add(time.Second)
	for {
		if engine.Snapshot().Steps[0].Status == StepStatusRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("step never started running")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := engine.CancelStep(segID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := <-done; err == nil {
		t.Fatal("expected execution error after cancel")
	}

	step := engine.Snapshot().Steps[0]
	if step.Status != StepStatusFailed {
		t.Fatalf("expected failed, got %s", step.Status)
	}
	if step.Result == nil || step.Result.Error != "execution cancelled" {
		t.Errorf("expected cancellation error, got %+v", step.Result)
	}
}

// TestCancelStepNotRunning tests cancel rejection on an idle step
func TestCancelStepNotRunning(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	if err := engine.CancelStep(plan.Steps[0].ID); err == nil {
		t.Fatal("expected rejection cancelling a step that is not running")
	}
}

// TestUpdateStepParameters tests validation and the pending-only gate
func TestUpdateStepParameters(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	segID := plan.Steps[0].ID

	if err := engine.UpdateStepParameters(segID, map[string]catalog.Value{
		"mode": catalog.Select("point"),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := engine.Snapshot().Steps[0].Parameters["mode"].Text; got != "point" {
		t.Errorf("expected mode point, got %q", got)
	}

	// unknown parameter
	if err := engine.UpdateStepParameters(segID, map[string]catalog.Value{
		"bogus": catalog.Boolean(true),
	}); err == nil {
		t.Fatal("expected rejection of unknown parameter")
	}

	// invalid select option
	if err := engine.UpdateStepParameters(segID, map[string]catalog.Value{
		"mode": catalog.Select("nonsense"),
	}); err == nil {
		t.Fatal("expected rejection of invalid option")
	}

	// completed steps are read-only
	approve(t, engine)
	if err := engine.ExecuteStep(context.Background(), segID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := engine.UpdateStepParameters(segID, map[string]catalog.Value{
		"mode": catalog.Select("auto"),
	}); err == nil {
		t.Fatal("expected rejection editing a completed step")
	}
}

// TestObserverReceivesTransitions tests transition event delivery
func TestObserverReceivesTransitions(t *testing.T) {
	plan, engine := newTestPlan(t, newFakeCollab(), DefaultEngineOptions())
	approve(t, engine)

	var mu sync.Mutex
	var seen []StepStatus
	engine.SetObserver(func(event TransitionEvent) {
		mu.Lock()
		seen = append(seen, event.StepStatus)
		mu.Unlock()
	})

	if err := engine.ExecuteStep(context.Background(), plan.Steps[0].ID); err != nil {
		t.Fatalf("execute: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != StepStatusRunning || seen[1] != StepStatusCompleted {
		t.Errorf("expected running then completed events, got %v", seen)
	}
}
