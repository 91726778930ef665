package web

import (
	"context"
	"encoding/json"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
	"vedit/planner"
)

// listManualStepsHandler returns the session's manual pipeline
func listManualStepsHandler(c rweb.Context) error {
	ws, err := deps.Sessions.Get(c.Request().Param("id"))
	if err != nil {
		return c.WriteError(err, 404)
	}
	return c.WriteJSON(map[string]interface{}{"steps": ws.Manual().Steps()})
}

// addManualStepHandler appends a manual step seeded with model defaults
func addManualStepHandler(c rweb.Context) error {
	ws, err := deps.Sessions.Get(c.Request().Param("id"))
	if err != nil {
		return c.WriteError(err, 404)
	}

	var req struct {
		ModelType string `json:"model_type"`
	}
	if err := json.Unmarshal(c.Request().Body(), &req); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), 400)
	}

	step, err := ws.Manual().AddStep(catalog.ModelType(req.ModelType))
	if err != nil {
		return c.WriteError(err, 400)
	}
	return c.WriteJSON(step)
}

// reorderManualStepsHandler resequences the manual pipeline
func reorderManualStepsHandler(c rweb.Context) error {
	ws, err := deps.Sessions.Get(c.Request().Param("id"))
	if err != nil {
		return c.WriteError(err, 404)
	}

	var req struct {
		Order []string `json:"order"`
	}
	if err := json.Unmarshal(c.Request().Body(), &req); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), 400)
	}
	if err := ws.Manual().Reorder(req.Order); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(map[string]interface{}{"steps": ws.Manual().Steps()})
}

// runManualStepsHandler drives all pending manual steps in list order
func runManualStepsHandler(c rweb.Context) error {
	sessionID := c.Request().Param("id")
	ws, err := deps.Sessions.Get(sessionID)
	if err != nil {
		return c.WriteError(err, 404)
	}

	ws.Manual().Engine().SetObserver(func(event planner.TransitionEvent) {
		BroadcastStepTransition(sessionID, event)
	})

	go func() {
		if err := ws.Manual().RunAll(context.Background()); err != nil {
			logger.LogErr(err, "Manual pipeline finished with errors", "session_id", sessionID)
		}
	}()
	return c.WriteJSON(map[string]string{"status": "running"})
}

// executeManualStepHandler runs one manual step
func executeManualStepHandler(c rweb.Context) error {
	ws, err := deps.Sessions.Get(c.Request().Param("id"))
	if err != nil {
		return c.WriteError(err, 404)
	}
	stepID := c.Request().Param("stepId")
	if err := ws.Manual().RunStep(context.Background(), stepID); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(map[string]interface{}{"steps": ws.Manual().Steps()})
}

// updateManualParamsHandler edits a pending manual step's parameters
func updateManualParamsHandler(c rweb.Context) error {
	ws, err := deps.Sessions.Get(c.Request().Param("id"))
	if err != nil {
		return c.WriteError(err, 404)
	}

	var params map[string]catalog.Value
	if err := json.Unmarshal(c.Request().Body(), &params); err != nil {
		return c.WriteError(serr.Wrap(err, "invalid request body"), 400)
	}
	stepID := c.Request().Param("stepId")
	if err := ws.Manual().UpdateParameters(stepID, params); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(map[string]interface{}{"steps": ws.Manual().Steps()})
}

// removeManualStepHandler deletes a manual step
func removeManualStepHandler(c rweb.Context) error {
	ws, err := deps.Sessions.Get(c.Request().Param("id"))
	if err != nil {
		return c.WriteError(err, 404)
	}
	stepID := c.Request().Param("stepId")
	if err := ws.Manual().RemoveStep(stepID); err != nil {
		return c.WriteError(err, 409)
	}
	return c.WriteJSON(map[string]interface{}{"steps": ws.Manual().Steps()})
}
