package backend

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
	"vedit/planner"
)

// Mock is a deterministic in-process collaborator used when no backend is
// configured, and in tests. Each run completes after a short simulated
// latency with a synthetic output reference.
type Mock struct {
	mu      sync.Mutex
	Latency time.Duration
	// FailModels maps a model to an error message; runs of that model fail
	FailModels map[catalog.ModelType]string
	runs       []catalog.ModelType
	rollbacks  []string
}

// NewMock creates a mock collaborator with a 10ms simulated latency
func NewMock() *Mock {
	return &Mock{
		Latency:    10 * time.Millisecond,
		FailModels: make(map[catalog.ModelType]string),
	}
}

// Run simulates one step's work
func (m *Mock) Run(ctx context.Context, modelType catalog.ModelType, params map[string]catalog.Value) (*planner.StepResult, error) {
	m.mu.Lock()
	m.runs = append(m.runs, modelType)
	failMsg := m.FailModels[modelType]
	latency := m.Latency
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(latency):
	}

	if failMsg != "" {
		return nil, serr.New(failMsg)
	}

	return &planner.StepResult{
		Success:        true,
		OutputURL:      "mock://output/" + uuid.New().String(),
		PreviewURL:     "mock://preview/" + string(modelType),
		ProcessingTime: latency.Seconds(),
	}, nil
}

// Compensate records the rollback
func (m *Mock) Compensate(ctx context.Context, stepID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks = append(m.rollbacks, stepID)
	return nil
}

// Runs returns the model types executed so far, in call order
func (m *Mock) Runs() []catalog.ModelType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.ModelType, len(m.runs))
	copy(out, m.runs)
	return out
}

// Rollbacks returns the step ids compensated so far
func (m *Mock) Rollbacks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.rollbacks))
	copy(out, m.rollbacks)
	return out
}
