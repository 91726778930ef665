package planner

import (
	"context"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
)

// StepList is the manual editing pipeline: user-assembled steps that run
// through the same per-step state machine as planned steps, without a plan
// wrapper. There is no approval gate and no aggregate status.
type StepList struct {
	engine *Engine
	cat    *catalog.Catalog
}

// NewStepList creates an empty manual pipeline
func NewStepList(collab Collaborator, cat *catalog.Catalog, options EngineOptions) *StepList {
	return &StepList{
		engine: NewEngine(nil, collab, cat, options),
		cat:    cat,
	}
}

// Engine exposes the underlying state machine for execution and
// observation
func (l *StepList) Engine() *Engine {
	return l.engine
}

// AddStep appends a manual step for the given model, seeded with the
// model's default parameter values
func (l *StepList) AddStep(modelType catalog.ModelType) (ExecutionStep, error) {
	model, ok := l.cat.Get(modelType)
	if !ok {
		return ExecutionStep{}, serr.New("unknown model type " + string(modelType))
	}

	step := ExecutionStep{
		ID:            uuid.New().String(),
		ModelType:     modelType,
		ModelName:     model.Name,
		Status:        StepStatusPending,
		Parameters:    l.cat.Defaults(modelType),
		Explanation:   model.Description,
		EstimatedTime: model.EstimatedTime,
		Dependencies:  []string{},
	}
	if err := l.engine.AddStep(step); err != nil {
		return ExecutionStep{}, err
	}
	return step, nil
}

// UpdateParameters edits a pending manual step's parameters
func (l *StepList) UpdateParameters(stepID string, params map[string]catalog.Value) error {
	return l.engine.UpdateStepParameters(stepID, params)
}

// RemoveStep deletes a manual step
func (l *StepList) RemoveStep(stepID string) error {
	return l.engine.RemoveStep(stepID)
}

// Reorder resequences the manual steps. Unlike plan steps this is allowed
// at any time.
func (l *StepList) Reorder(newOrder []string) error {
	return l.engine.ReorderSteps(newOrder)
}

// Steps returns a copy of the current manual steps in order
func (l *StepList) Steps() []ExecutionStep {
	return l.engine.Snapshot().Steps
}

// RunStep executes one manual step
func (l *StepList) RunStep(ctx context.Context, stepID string) error {
	return l.engine.ExecuteStep(ctx, stepID)
}

// RunAll drives every manual step to a terminal status in order
func (l *StepList) RunAll(ctx context.Context) error {
	return l.engine.runSequential(ctx)
}
