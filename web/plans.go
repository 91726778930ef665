package web

import (
	"context"
	"encoding/json"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
	"vedit/planner"
	"vedit/session"
)

// CreatePlanRequest represents a request to synthesize a plan
type CreatePlanRequest struct {
	Prompt      string `json:"prompt"`
	AutoExecute bool   `json:"auto_execute"`
}

// PlanResponse bundles the classification and the resulting plan
type PlanResponse struct {
	Analysis planner.PlannerAnalysis `json:"analysis"`
	Plan     planner.ExecutionPlan   `json:"plan"`
}

// createPlanHandler classifies the prompt and synthesizes a plan
func createPlanHandler(c rweb.Context) error {
	sessionID := c.Request().Param("id")
	ws, err := deps.Sessions.Get(sessionID)
	if err != nil {
		return c.WriteError(err, 404)
	}

	var req CreatePlanRequest
	if err := json.Unmarshal(c.Request().Body(), &req); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), 400)
	}
	if req.Prompt == "" {
		return c.WriteError(serr.New("prompt required"), 400)
	}

	analysis := deps.Analyzer.AnalyzePrompt(req.Prompt)
	plan, err := deps.Synthesizer.Synthesize(req.Prompt, analysis)
	if err != nil {
		return c.WriteError(serr.Wrap(err, "failed to synthesize plan"), 500)
	}

	engine := deps.Sessions.SetPlan(ws, plan)
	engine.SetObserver(func(event planner.TransitionEvent) {
		BroadcastStepTransition(sessionID, event)
	})

	logger.Info("Plan synthesized", "session_id", sessionID, "plan_id", plan.ID,
		"action", string(analysis.Intent.Action), "steps", len(plan.Steps))
	BroadcastPlanCreated(sessionID, plan.ID, len(plan.Steps))

	if req.AutoExecute {
		if err := engine.ApprovePlan(); err != nil {
			return c.WriteError(err, 409)
		}
		go runPlan(ws, engine)
	}

	return c.WriteJSON(PlanResponse{Analysis: analysis, Plan: engine.Snapshot()})
}

// getPlanHandler returns the current plan state
func getPlanHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	return c.WriteJSON(engine.Snapshot())
}

// approvePlanHandler flips a pending_approval plan to executing
func approvePlanHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	if err := engine.ApprovePlan(); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// executePlanHandler drives the approved plan in the background
func executePlanHandler(c rweb.Context) error {
	engine, ws, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}

	snapshot := engine.Snapshot()
	if snapshot.Status != planner.PlanStatusExecuting {
		return c.WriteError(serr.New("plan is "+string(snapshot.Status)+", approve it before executing"), 409)
	}

	go runPlan(ws, engine)
	return c.WriteJSON(map[string]string{"status": "executing", "plan_id": snapshot.ID})
}

// runPlan drives a plan to a terminal status, then records it in the
// session history
func runPlan(ws *session.Workspace, engine *planner.Engine) {
	if err := engine.ExecutePlan(context.Background()); err != nil {
		logger.LogErr(err, "Plan execution finished with errors")
	}

	final := engine.Snapshot()
	if final.Status == planner.PlanStatusCompleted || final.Status == planner.PlanStatusFailed {
		if deps.History != nil {
			if err := deps.History.RecordPlan(ws.ID, final); err != nil {
				logger.LogErr(err, "Failed to record plan history", "plan_id", final.ID)
			}
		}
		BroadcastPlanFinished(ws.ID, final.ID, final.Status)
	}
}

// reorderStepsHandler resequences plan steps while pending approval
func reorderStepsHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}

	var req struct {
		Order []string `json:"order"`
	}
	if err := json.Unmarshal(c.Request().Body(), &req); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), 400)
	}
	if err := engine.ReorderSteps(req.Order); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// AddStepRequest adds a catalog model as a new plan step
type AddStepRequest struct {
	ModelType    string   `json:"model_type"`
	Dependencies []string `json:"dependencies"`
	Explanation  string   `json:"explanation"`
}

// addStepHandler appends a step built from catalog defaults
func addStepHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}

	var req AddStepRequest
	if err := json.Unmarshal(c.Request().Body(), &req); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), 400)
	}

	step, err := buildStep(catalog.ModelType(req.ModelType), req.Dependencies, req.Explanation)
	if err != nil {
		return c.WriteError(err, 400)
	}
	if err := engine.AddStep(step); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// planMetricsHandler returns execution metrics for the plan
func planMetricsHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	metrics, err := engine.Metrics().GetMetrics(engine.Snapshot().ID)
	if err != nil {
		return c.WriteError(err, 404)
	}
	return c.WriteJSON(metrics)
}

// analyzePlanHandler reports the plan's parallelization potential
func analyzePlanHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	return c.WriteJSON(planner.AnalyzeParallelism(engine.Snapshot().Steps))
}

// executeStepHandler runs one pending step
func executeStepHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	stepID := c.Request().Param("stepId")
	if err := engine.ExecuteStep(context.Background(), stepID); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// rollbackStepHandler rolls a completed step back to pending
func rollbackStepHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	stepID := c.Request().Param("stepId")
	if err := engine.RollbackStep(context.Background(), stepID); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// skipStepHandler marks a pending step skipped
func skipStepHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	stepID := c.Request().Param("stepId")
	if err := engine.SkipStep(stepID); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// cancelStepHandler cancels an in-flight step
func cancelStepHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	stepID := c.Request().Param("stepId")
	if err := engine.CancelStep(stepID); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(map[string]string{"status": "cancelling", "step_id": stepID})
}

// updateStepParamsHandler edits a pending step's parameters
func updateStepParamsHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}

	var params map[string]catalog.Value
	if err := json.Unmarshal(c.Request().Body(), &params); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), 400)
	}
	stepID := c.Request().Param("stepId")
	if err := engine.UpdateStepParameters(stepID, params); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// removeStepHandler deletes a step from the plan
func removeStepHandler(c rweb.Context) error {
	engine, _, err := planEngine(c)
	if err != nil {
		return c.WriteError(err, 404)
	}
	stepID := c.Request().Param("stepId")
	if err := engine.RemoveStep(stepID); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(engine.Snapshot())
}

// planEngine resolves the plan id param to its workspace and engine
func planEngine(c rweb.Context) (*planner.Engine, *session.Workspace, error) {
	planID := c.Request().Param("id")
	if planID == "" {
		return nil, nil, serr.New("plan ID required")
	}
	ws, err := deps.Sessions.FindPlan(planID)
	if err != nil {
		return nil, nil, err
	}
	engine, err := ws.Engine()
	if err != nil {
		return nil, nil, err
	}
	return engine, ws, nil
}

// buildStep constructs a step for the given model, seeded with defaults
func buildStep(modelType catalog.ModelType, dependencies []string, explanation string) (planner.ExecutionStep, error) {
	model, ok := deps.Catalog.Get(modelType)
	if !ok {
		return planner.ExecutionStep{}, serr.New("unknown model type " + string(modelType))
	}
	if explanation == "" {
		explanation = model.Description
	}
	if dependencies == nil {
		dependencies = []string{}
	}
	return planner.ExecutionStep{
		ID:            newStepID(),
		ModelType:     modelType,
		ModelName:     model.Name,
		Status:        planner.StepStatusPending,
		Parameters:    deps.Catalog.Defaults(modelType),
		Explanation:   explanation,
		EstimatedTime: model.EstimatedTime,
		Dependencies:  dependencies,
	}, nil
}
