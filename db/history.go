package db

import (
	"encoding/json"
	"time"

	"github.com/rohanthewiz/serr"
	"vedit/planner"
)

// HistoryEntry is one finished plan as recorded for the session
type HistoryEntry struct {
	PlanID             string                  `json:"plan_id"`
	SessionID          string                  `json:"session_id"`
	Prompt             string                  `json:"prompt"`
	Status             planner.PlanStatus      `json:"status"`
	Steps              []planner.ExecutionStep `json:"steps"`
	TotalEstimatedTime int                     `json:"total_estimated_time"`
	TotalActualTime    *float64                `json:"total_actual_time,omitempty"`
	CompletedAt        time.Time               `json:"completed_at"`
}

// RecordPlan stores a plan that reached a terminal status
func (db *DB) RecordPlan(sessionID string, plan planner.ExecutionPlan) error {
	stepsJSON, err := json.Marshal(plan.Steps)
	if err != nil {
		return serr.Wrap(err, "failed to encode plan steps")
	}

	var totalActual *float64
	var sum float64
	haveActual := false
	for _, step := range plan.Steps {
		if step.ActualTime != nil {
			sum += *step.ActualTime
			haveActual = true
		}
	}
	if haveActual {
		totalActual = &sum
	}

	// The duckdb driver cannot bind pointer types; pass the value or nil.
	var totalActualArg any
	if totalActual != nil {
		totalActualArg = *totalActual
	}

	_, err = db.Exec(`
		INSERT OR REPLACE INTO plan_history
			(id, session_id, prompt, status, steps, total_estimated_time, total_actual_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, sessionID, plan.Prompt, string(plan.Status),
		string(stepsJSON), plan.TotalEstimatedTime, totalActualArg,
	)
	if err != nil {
		return serr.Wrap(err, "failed to record plan history")
	}
	return nil
}

// ListHistory returns the session's finished plans, most recent first
func (db *DB) ListHistory(sessionID string) ([]HistoryEntry, error) {
	rows, err := db.Query(`
		SELECT id, session_id, prompt, status, steps::VARCHAR,
		       total_estimated_time, total_actual_time, completed_at
		FROM plan_history
		WHERE session_id = ?
		ORDER BY completed_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var status, stepsJSON string
		if err := rows.Scan(&entry.PlanID, &entry.SessionID, &entry.Prompt, &status,
			&stepsJSON, &entry.TotalEstimatedTime, &entry.TotalActualTime, &entry.CompletedAt); err != nil {
			return nil, serr.Wrap(err, "failed to scan history row")
		}
		entry.Status = planner.PlanStatus(status)
		if err := json.Unmarshal([]byte(stepsJSON), &entry.Steps); err != nil {
			return nil, serr.Wrap(err, "failed to decode plan steps")
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
