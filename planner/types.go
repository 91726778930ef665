package planner

import (
	"time"

	"vedit/catalog"
)

// StepStatus represents the status of a single execution step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
	StepStatusRollback  StepStatus = "rollback"
)

// Satisfied reports whether a status satisfies downstream dependencies
func (s StepStatus) Satisfied() bool {
	return s == StepStatusCompleted || s == StepStatusSkipped
}

// PlanStatus represents the aggregate status of an execution plan
type PlanStatus string

const (
	PlanStatusIdle            PlanStatus = "idle"
	PlanStatusPlanning        PlanStatus = "planning"
	PlanStatusPendingApproval PlanStatus = "pending_approval"
	PlanStatusExecuting       PlanStatus = "executing"
	PlanStatusCompleted       PlanStatus = "completed"
	PlanStatusFailed          PlanStatus = "failed"
	PlanStatusPaused          PlanStatus = "paused"
)

// StepResult contains the outcome of executing a step
type StepResult struct {
	Success        bool    `json:"success"`
	OutputURL      string  `json:"output_url,omitempty"`
	PreviewURL     string  `json:"preview_url,omitempty"`
	ProcessingTime float64 `json:"processing_time"` // seconds
	Error          string  `json:"error,omitempty"`
}

// ExecutionStep is a single model invocation within a plan or manual list.
// Status, Result and ActualTime are written only by the Engine; Parameters
// and Explanation may be edited by the user while the step is pending.
type ExecutionStep struct {
	ID            string                   `json:"id"`
	Order         int                      `json:"order"`
	ModelType     catalog.ModelType        `json:"model_type"`
	ModelName     string                   `json:"model_name"`
	Status        StepStatus               `json:"status"`
	Parameters    map[string]catalog.Value `json:"parameters"`
	Explanation   string                   `json:"explanation"`
	EstimatedTime int                      `json:"estimated_time"` // seconds
	ActualTime    *float64                 `json:"actual_time,omitempty"`
	Dependencies  []string                 `json:"dependencies"`
	IsOptional    bool                     `json:"is_optional"`
	IsRecommended bool                     `json:"is_recommended"`
	Result        *StepResult              `json:"result,omitempty"`
}

// ExecutionPlan is the ordered aggregate of steps produced by the
// synthesizer. Invariant: TotalEstimatedTime equals the sum of the current
// steps' EstimatedTime after every mutation.
type ExecutionPlan struct {
	ID                 string          `json:"id"`
	Prompt             string          `json:"prompt,omitempty"`
	Steps              []ExecutionStep `json:"steps"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	TotalEstimatedTime int             `json:"total_estimated_time"`
	Status             PlanStatus      `json:"status"`
	CurrentStepIndex   int             `json:"current_step_index"`
}

// Step returns the plan's step with the given id, or nil
func (p *ExecutionPlan) Step(id string) *ExecutionStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// IntentAction is one of the seven recognized editing intents
type IntentAction string

const (
	ActionRemove    IntentAction = "remove"
	ActionReplace   IntentAction = "replace"
	ActionInsert    IntentAction = "insert"
	ActionInpaint   IntentAction = "inpaint"
	ActionSegment   IntentAction = "segment"
	ActionCorrect   IntentAction = "correct"
	ActionComposite IntentAction = "composite"
)

// PlannerIntent is the structured reading of one instruction
type PlannerIntent struct {
	Action      IntentAction `json:"action"`
	Target      string       `json:"target,omitempty"`
	Replacement string       `json:"replacement,omitempty"`
	Confidence  float64      `json:"confidence"`
}

// Complexity tiers an instruction by prompt length and object count
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// PlannerAnalysis wraps a classified intent with supporting context for
// synthesis and for explanatory text shown to the user
type PlannerAnalysis struct {
	Intent          PlannerIntent `json:"intent"`
	DetectedObjects []string      `json:"detected_objects,omitempty"`
	Complexity      Complexity    `json:"complexity"`
	Reasoning       string        `json:"reasoning"`
}

// EngineOptions configures a step execution engine
type EngineOptions struct {
	MaxConcurrentSteps int           // >1 enables the parallel driver for independent steps
	PollInterval       time.Duration // informational; polling lives in the collaborator
}

// DefaultEngineOptions returns the engine defaults: sequential execution
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		MaxConcurrentSteps: 1,
		PollInterval:       time.Second,
	}
}
