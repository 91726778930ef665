package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
)

// Collaborator performs the actual model invocation for one step. The
// engine treats it as a black box: Run is a single suspending call that
// returns a result or failure, Compensate undoes a completed step's work.
type Collaborator interface {
	Run(ctx context.Context, modelType catalog.ModelType, params map[string]catalog.Value) (*StepResult, error)
	Compensate(ctx context.Context, stepID string) error
}

// TransitionEvent describes one observable state change
type TransitionEvent struct {
	PlanID     string     `json:"plan_id,omitempty"`
	StepID     string     `json:"step_id,omitempty"`
	StepStatus StepStatus `json:"step_status,omitempty"`
	PlanStatus PlanStatus `json:"plan_status,omitempty"`
}

// Observer receives transition events, e.g. for SSE broadcast
type Observer func(TransitionEvent)

// Engine is the step lifecycle state machine. It is the only writer of step
// status, result and actual time. All transitions are serialized by the
// engine mutex; collaborator calls happen outside it so steps can be
// inspected while one is running.
type Engine struct {
	mu       sync.Mutex
	plan     *ExecutionPlan // nil in manual mode
	manual   []ExecutionStep
	collab   Collaborator
	catalog  *catalog.Catalog
	options  EngineOptions
	metrics  *MetricsCollector
	cancels  map[string]context.CancelFunc
	observer Observer
}

// NewEngine creates an engine owning the given plan
func NewEngine(plan *ExecutionPlan, collab Collaborator, cat *catalog.Catalog, options EngineOptions) *Engine {
	return &Engine{
		plan:    plan,
		collab:  collab,
		catalog: cat,
		options: options,
		metrics: NewMetricsCollector(),
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetObserver registers a transition observer. Events are delivered outside
// the engine lock.
func (e *Engine) SetObserver(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = obs
}

// Metrics returns the engine's metrics collector
func (e *Engine) Metrics() *MetricsCollector {
	return e.metrics
}

// steps returns the live step slice (plan or manual mode). Callers hold the
// lock.
func (e *Engine) stepsLocked() []ExecutionStep {
	if e.plan != nil {
		return e.plan.Steps
	}
	return e.manual
}

func (e *Engine) setStepsLocked(steps []ExecutionStep) {
	if e.plan != nil {
		e.plan.Steps = steps
	} else {
		e.manual = steps
	}
}

func (e *Engine) stepLocked(stepID string) *ExecutionStep {
	steps := e.stepsLocked()
	for i := range steps {
		if steps[i].ID == stepID {
			return &steps[i]
		}
	}
	return nil
}

// Snapshot returns a deep copy of the plan for safe inspection
func (e *Engine) Snapshot() ExecutionPlan {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plan == nil {
		return ExecutionPlan{Steps: copySteps(e.manual)}
	}
	out := *e.plan
	out.Steps = copySteps(e.plan.Steps)
	return out
}

func copySteps(steps []ExecutionStep) []ExecutionStep {
	out := make([]ExecutionStep, len(steps))
	copy(out, steps)
	for i := range out {
		if out[i].Result != nil {
			res := *out[i].Result
			out[i].Result = &res
		}
		params := make(map[string]catalog.Value, len(out[i].Parameters))
		for k, v := range out[i].Parameters {
			params[k] = v
		}
		out[i].Parameters = params
		deps := make([]string, len(out[i].Dependencies))
		copy(deps, out[i].Dependencies)
		out[i].Dependencies = deps
	}
	return out
}

// ApprovePlan transitions the plan from pending_approval to executing. It is
// the only user-triggered plan-status transition.
func (e *Engine) ApprovePlan() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plan == nil {
		return serr.New("no plan to approve")
	}
	if e.plan.Status != PlanStatusPendingApproval {
		return serr.New(fmt.Sprintf("plan is %s, only a pending_approval plan can be approved", e.plan.Status))
	}
	e.plan.Status = PlanStatusExecuting
	e.plan.UpdatedAt = time.Now()
	return nil
}

// ExecuteStep runs a single pending step through the collaborator. It
// rejects steps whose declared dependencies are not all completed or
// skipped.
func (e *Engine) ExecuteStep(ctx context.Context, stepID string) error {
	e.mu.Lock()
	step := e.stepLocked(stepID)
	if step == nil {
		e.mu.Unlock()
		return serr.New("step not found")
	}
	if step.Status != StepStatusPending {
		e.mu.Unlock()
		return serr.New(fmt.Sprintf("step %s is %s, only a pending step can be executed", stepID, step.Status))
	}
	if unmet := unmetDependencies(e.stepsLocked(), step); len(unmet) > 0 {
		e.mu.Unlock()
		return serr.New(fmt.Sprintf("step %s has unmet dependencies: %v", stepID, unmet))
	}

	step.Status = StepStatusRunning
	modelType := step.ModelType
	params := step.Parameters
	planID := e.planIDLocked()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancels[stepID] = cancel
	e.metrics.StartStepExecution(planID, stepID, string(modelType))
	e.refreshLocked()
	event := e.eventLocked(stepID)
	e.mu.Unlock()
	e.emit(event)

	logger.Info("Executing step", "step_id", stepID, "model", string(modelType))
	started := time.Now()
	result, err := e.collab.Run(runCtx, modelType, params)

	e.mu.Lock()
	delete(e.cancels, stepID)
	cancel()

	// re-resolve; the slice may have been reordered while running
	step = e.stepLocked(stepID)
	if step == nil {
		e.mu.Unlock()
		return serr.New("step removed while running")
	}

	elapsed := time.Since(started).Seconds()
	if err != nil {
		msg := err.Error()
		if runCtx.Err() == context.Canceled {
			msg = "execution cancelled"
		}
		step.Status = StepStatusFailed
		step.Result = &StepResult{Success: false, Error: msg, ProcessingTime: elapsed}
		e.metrics.EndStepExecution(planID, stepID, false, msg)
		e.refreshLocked()
		event = e.eventLocked(stepID)
		e.mu.Unlock()
		e.emit(event)
		return serr.Wrap(err, fmt.Sprintf("step %s failed", stepID))
	}

	if result == nil {
		result = &StepResult{Success: true, ProcessingTime: elapsed}
	}
	result.Success = true
	if result.ProcessingTime == 0 {
		result.ProcessingTime = elapsed
	}
	step.Status = StepStatusCompleted
	step.Result = result
	actual := result.ProcessingTime
	step.ActualTime = &actual
	e.metrics.EndStepExecution(planID, stepID, true, "")
	e.refreshLocked()
	event = e.eventLocked(stepID)
	e.mu.Unlock()
	e.emit(event)
	return nil
}

// RollbackStep undoes a completed step. The step is observable in the
// rollback state while the compensating call runs, then returns to pending
// with its result cleared, eligible for re-execution.
func (e *Engine) RollbackStep(ctx context.Context, stepID string) error {
	e.mu.Lock()
	step := e.stepLocked(stepID)
	if step == nil {
		e.mu.Unlock()
		return serr.New("step not found")
	}
	if step.Status != StepStatusCompleted {
		e.mu.Unlock()
		return serr.New(fmt.Sprintf("step %s is %s, only a completed step can be rolled back", stepID, step.Status))
	}
	step.Status = StepStatusRollback
	e.refreshLocked()
	event := e.eventLocked(stepID)
	e.mu.Unlock()
	e.emit(event)

	err := e.collab.Compensate(ctx, stepID)

	e.mu.Lock()
	step = e.stepLocked(stepID)
	if step == nil {
		e.mu.Unlock()
		return serr.New("step removed during rollback")
	}
	if err != nil {
		// compensation failed; the step's work still stands
		step.Status = StepStatusCompleted
		e.refreshLocked()
		event = e.eventLocked(stepID)
		e.mu.Unlock()
		e.emit(event)
		return serr.Wrap(err, fmt.Sprintf("rollback of step %s failed", stepID))
	}

	step.Status = StepStatusPending
	step.Result = nil
	step.ActualTime = nil
	e.refreshLocked()
	event = e.eventLocked(stepID)
	e.mu.Unlock()
	e.emit(event)

	logger.Info("Step rolled back", "step_id", stepID)
	return nil
}

// SkipStep marks a pending step skipped. Skipped is terminal and satisfies
// downstream dependencies.
func (e *Engine) SkipStep(stepID string) error {
	e.mu.Lock()
	step := e.stepLocked(stepID)
	if step == nil {
		e.mu.Unlock()
		return serr.New("step not found")
	}
	if step.Status != StepStatusPending {
		e.mu.Unlock()
		return serr.New(fmt.Sprintf("step %s is %s, only a pending step can be skipped", stepID, step.Status))
	}
	step.Status = StepStatusSkipped
	e.metrics.RecordStepSkipped(e.planIDLocked(), stepID)
	e.refreshLocked()
	event := e.eventLocked(stepID)
	e.mu.Unlock()
	e.emit(event)
	return nil
}

// CancelStep cancels the collaborator call of a running step. The step
// transitions to failed with a cancellation error via ExecuteStep's
// completion path.
func (e *Engine) CancelStep(stepID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancel, ok := e.cancels[stepID]
	if !ok {
		return serr.New(fmt.Sprintf("step %s is not running", stepID))
	}
	cancel()
	return nil
}

// ReorderSteps resequences the plan's steps to match newOrder. Only
// permitted while the plan is pending approval, and the id set must be
// unchanged.
func (e *Engine) ReorderSteps(newOrder []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plan != nil && e.plan.Status != PlanStatusPendingApproval {
		return serr.New(fmt.Sprintf("plan is %s, steps can only be reordered while pending approval", e.plan.Status))
	}

	steps := e.stepsLocked()
	if len(newOrder) != len(steps) {
		return serr.New("reorder must include every step exactly once")
	}
	byID := make(map[string]*ExecutionStep, len(steps))
	for i := range steps {
		byID[steps[i].ID] = &steps[i]
	}

	resequenced := make([]ExecutionStep, 0, len(steps))
	for idx, id := range newOrder {
		step, ok := byID[id]
		if !ok {
			return serr.New(fmt.Sprintf("reorder references unknown step %s", id))
		}
		delete(byID, id)
		step.Order = idx
		resequenced = append(resequenced, *step)
	}

	e.setStepsLocked(resequenced)
	e.touchLocked()
	return nil
}

// AddStep appends a step to the plan, keeping the estimate total in sync.
// The resulting dependency graph must remain valid and acyclic.
func (e *Engine) AddStep(step ExecutionStep) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	steps := e.stepsLocked()
	for i := range steps {
		if steps[i].ID == step.ID {
			return serr.New(fmt.Sprintf("step %s already present", step.ID))
		}
	}

	step.Order = len(steps)
	candidate := append(copySteps(steps), step)
	if err := validateDependencies(candidate); err != nil {
		return serr.Wrap(err, "cannot add step")
	}

	e.setStepsLocked(append(steps, step))
	if e.plan != nil {
		e.plan.TotalEstimatedTime += step.EstimatedTime
	}
	e.touchLocked()
	return nil
}

// RemoveStep deletes a step and subtracts its estimate. References to the
// removed step are cleared from other steps' dependency lists so no
// dangling ids remain.
func (e *Engine) RemoveStep(stepID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	steps := e.stepsLocked()
	idx := -1
	for i := range steps {
		if steps[i].ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return serr.New("step not found")
	}
	if steps[idx].Status == StepStatusRunning || steps[idx].Status == StepStatusRollback {
		return serr.New(fmt.Sprintf("step %s is %s and cannot be removed", stepID, steps[idx].Status))
	}

	removed := steps[idx]
	remaining := append(steps[:idx], steps[idx+1:]...)
	for i := range remaining {
		deps := remaining[i].Dependencies[:0]
		for _, dep := range remaining[i].Dependencies {
			if dep != stepID {
				deps = append(deps, dep)
			}
		}
		remaining[i].Dependencies = deps
		remaining[i].Order = i
	}

	e.setStepsLocked(remaining)
	if e.plan != nil {
		e.plan.TotalEstimatedTime -= removed.EstimatedTime
	}
	e.touchLocked()
	return nil
}

// UpdateStepParameters replaces parameter values on a pending step after
// validating each against the model's parameter specs
func (e *Engine) UpdateStepParameters(stepID string, params map[string]catalog.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	step := e.stepLocked(stepID)
	if step == nil {
		return serr.New("step not found")
	}
	if step.Status != StepStatusPending {
		return serr.New(fmt.Sprintf("step %s is %s, parameters can only be edited while pending", stepID, step.Status))
	}

	model, ok := e.catalog.Get(step.ModelType)
	if !ok {
		return serr.New(fmt.Sprintf("catalog has no descriptor for model %s", step.ModelType))
	}
	specs := make(map[string]catalog.ParameterSpec, len(model.Parameters))
	for _, spec := range model.Parameters {
		specs[spec.ID] = spec
	}

	for id, value := range params {
		spec, ok := specs[id]
		if !ok {
			return serr.New(fmt.Sprintf("model %s has no parameter %s", step.ModelType, id))
		}
		if err := spec.Validate(value); err != nil {
			return err
		}
	}

	if step.Parameters == nil {
		step.Parameters = make(map[string]catalog.Value, len(params))
	}
	for id, value := range params {
		step.Parameters[id] = value
	}
	e.touchLocked()
	return nil
}

// ExecutePlan drives every ready step to a terminal status. The default
// driver is sequential: one step runs at a time, in order. With
// MaxConcurrentSteps > 1 mutually independent ready steps run concurrently
// (dependent steps are still serialized by the dependency check).
func (e *Engine) ExecutePlan(ctx context.Context) error {
	e.mu.Lock()
	if e.plan != nil && e.plan.Status != PlanStatusExecuting {
		status := e.plan.Status
		e.mu.Unlock()
		return serr.New(fmt.Sprintf("plan is %s, approve it before executing", status))
	}
	planID := e.planIDLocked()
	total := len(e.stepsLocked())
	e.mu.Unlock()

	e.metrics.StartPlanExecution(planID, total)

	var err error
	if e.options.MaxConcurrentSteps > 1 {
		err = e.runParallel(ctx)
	} else {
		err = e.runSequential(ctx)
	}

	e.mu.Lock()
	e.refreshLocked()
	status := e.planStatusLocked()
	e.mu.Unlock()
	e.metrics.EndPlanExecution(planID)

	if err != nil {
		return err
	}
	if status == PlanStatusFailed {
		return serr.New("plan execution finished with failed steps")
	}
	return nil
}

func (e *Engine) runSequential(ctx context.Context) error {
	var firstErr error
	for {
		if ctx.Err() != nil {
			return serr.Wrap(ctx.Err(), "plan execution cancelled")
		}

		e.mu.Lock()
		ready := readySteps(e.stepsLocked())
		var next string
		if len(ready) > 0 {
			next = ready[0].ID
		}
		e.mu.Unlock()

		if next == "" {
			return firstErr
		}
		if err := e.ExecuteStep(ctx, next); err != nil && firstErr == nil {
			// dependents of the failed step never become ready; independent
			// steps keep going
			firstErr = err
		}
	}
}

func (e *Engine) planIDLocked() string {
	if e.plan != nil {
		return e.plan.ID
	}
	return "manual"
}

func (e *Engine) planStatusLocked() PlanStatus {
	if e.plan != nil {
		return e.plan.Status
	}
	return PlanStatusIdle
}

func (e *Engine) touchLocked() {
	if e.plan != nil {
		e.plan.UpdatedAt = time.Now()
	}
}

// refreshLocked recomputes the plan's aggregate status and current step
// index as a pure function of the step statuses. Plans that have not been
// approved keep their authoring status.
func (e *Engine) refreshLocked() {
	if e.plan == nil {
		return
	}
	e.plan.UpdatedAt = time.Now()

	switch e.plan.Status {
	case PlanStatusExecuting, PlanStatusCompleted, PlanStatusFailed:
	default:
		return
	}

	steps := e.plan.Steps
	current := len(steps)
	allSatisfied := true
	anyActive := false
	anyFailed := false
	for i := range steps {
		switch steps[i].Status {
		case StepStatusRunning, StepStatusRollback:
			anyActive = true
			allSatisfied = false
		case StepStatusFailed:
			anyFailed = true
			allSatisfied = false
		case StepStatusPending:
			allSatisfied = false
		}
		if current == len(steps) && !steps[i].Status.Satisfied() {
			current = i
		}
	}
	e.plan.CurrentStepIndex = current
	if current == len(steps) && len(steps) > 0 {
		e.plan.CurrentStepIndex = len(steps) - 1
	}

	switch {
	case allSatisfied:
		e.plan.Status = PlanStatusCompleted
	case anyActive || len(readySteps(steps)) > 0:
		e.plan.Status = PlanStatusExecuting
	case anyFailed:
		e.plan.Status = PlanStatusFailed
	default:
		e.plan.Status = PlanStatusExecuting
	}
}

func (e *Engine) eventLocked(stepID string) TransitionEvent {
	event := TransitionEvent{StepID: stepID}
	if step := e.stepLocked(stepID); step != nil {
		event.StepStatus = step.Status
	}
	if e.plan != nil {
		event.PlanID = e.plan.ID
		event.PlanStatus = e.plan.Status
	}
	return event
}

func (e *Engine) emit(event TransitionEvent) {
	e.mu.Lock()
	obs := e.observer
	e.mu.Unlock()
	if obs != nil {
		obs(event)
	}
}
