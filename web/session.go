package web

import (
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/rweb"
	"vedit/planner"
)

// SessionResponse describes one workspace in API responses
type SessionResponse struct {
	ID          string                  `json:"id"`
	CreatedAt   time.Time               `json:"created_at"`
	Plan        *planner.ExecutionPlan  `json:"plan,omitempty"`
	ManualSteps []planner.ExecutionStep `json:"manual_steps"`
}

func newStepID() string {
	return uuid.New().String()
}

// createSessionHandler starts a new workspace
func createSessionHandler(c rweb.Context) error {
	ws := deps.Sessions.Create()
	return c.WriteJSON(SessionResponse{
		ID:          ws.ID,
		CreatedAt:   ws.CreatedAt,
		ManualSteps: ws.Manual().Steps(),
	})
}

// listSessionsHandler returns all live workspace ids
func listSessionsHandler(c rweb.Context) error {
	return c.WriteJSON(map[string]interface{}{"sessions": deps.Sessions.List()})
}

// getSessionHandler returns one workspace with its plan and manual steps
func getSessionHandler(c rweb.Context) error {
	ws, err := deps.Sessions.Get(c.Request().Param("id"))
	if err != nil {
		return c.WriteError(err, 404)
	}

	resp := SessionResponse{
		ID:          ws.ID,
		CreatedAt:   ws.CreatedAt,
		ManualSteps: ws.Manual().Steps(),
	}
	if engine, err := ws.Engine(); err == nil {
		plan := engine.Snapshot()
		resp.Plan = &plan
	}
	return c.WriteJSON(resp)
}

// deleteSessionHandler drops a workspace
func deleteSessionHandler(c rweb.Context) error {
	id := c.Request().Param("id")
	if _, err := deps.Sessions.Get(id); err != nil {
		return c.WriteError(err, 404)
	}
	deps.Sessions.Remove(id)
	return c.WriteJSON(map[string]string{"status": "deleted", "id": id})
}

// listHistoryHandler returns the session's finished plans
func listHistoryHandler(c rweb.Context) error {
	id := c.Request().Param("id")
	if deps.History == nil {
		return c.WriteJSON([]interface{}{})
	}
	entries, err := deps.History.ListHistory(id)
	if err != nil {
		return c.WriteError(err, 500)
	}
	return c.WriteJSON(entries)
}
