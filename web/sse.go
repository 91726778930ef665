package web

import (
	"encoding/json"
	"sync"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"
	"vedit/planner"
)

const sseStdMsgType = "message" // JS EventSource only picks up the "message" event type

// SSEEvent represents a server-sent event
type SSEEvent struct {
	Type      string      `json:"type"`
	SessionId string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data"`
}

// SSEHub manages SSE connections
type SSEHub struct {
	mu      sync.RWMutex
	clients map[chan any]bool
}

// Global SSE hub
var sseHub = &SSEHub{
	clients: make(map[chan any]bool),
}

// Register adds a new SSE client
func (h *SSEHub) Register(client chan any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes an SSE client
func (h *SSEHub) Unregister(client chan any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
	close(client)
}

// Broadcast sends an event to all connected clients
func (h *SSEHub) Broadcast(event SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data := map[string]interface{}{
		"type":      event.Type,
		"sessionId": event.SessionId,
		"data":      event.Data,
	}

	bytPayload, err := json.Marshal(data)
	if err != nil {
		logger.LogErr(err, "On broadcast, failed to marshal SSE event")
		return
	}

	rEvent := rweb.SSEvent{
		Type: sseStdMsgType,
		Data: string(bytPayload),
	}

	for client := range h.clients {
		select {
		case client <- rEvent:
		default:
			// Client's channel is full, skip
			logger.Log("warn", "SSE client channel full, skipping")
		}
	}
}

// BroadcastStepTransition broadcasts a step state change
func BroadcastStepTransition(sessionID string, event planner.TransitionEvent) {
	sseHub.Broadcast(SSEEvent{
		Type:      "step_transition",
		SessionId: sessionID,
		Data:      event,
	})
}

// BroadcastPlanCreated broadcasts when a plan is synthesized
func BroadcastPlanCreated(sessionID string, planID string, steps int) {
	sseHub.Broadcast(SSEEvent{
		Type:      "plan_created",
		SessionId: sessionID,
		Data: map[string]interface{}{
			"planId": planID,
			"steps":  steps,
		},
	})
}

// BroadcastPlanFinished broadcasts a plan reaching a terminal status
func BroadcastPlanFinished(sessionID string, planID string, status planner.PlanStatus) {
	sseHub.Broadcast(SSEEvent{
		Type:      "plan_finished",
		SessionId: sessionID,
		Data: map[string]interface{}{
			"planId": planID,
			"status": string(status),
		},
	})
}
