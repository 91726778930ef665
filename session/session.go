package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
	"vedit/planner"
)

// Workspace is one user session: its plan (if any), manual step list and
// the engines driving them. The engine is the only writer of step status.
type Workspace struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	plan   *planner.ExecutionPlan
	engine *planner.Engine
	manual *planner.StepList
}

// Manager owns all live workspaces
type Manager struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
	collab     planner.Collaborator
	catalog    *catalog.Catalog
	options    planner.EngineOptions
}

// NewManager creates a workspace manager
func NewManager(collab planner.Collaborator, cat *catalog.Catalog, options planner.EngineOptions) *Manager {
	return &Manager{
		workspaces: make(map[string]*Workspace),
		collab:     collab,
		catalog:    cat,
		options:    options,
	}
}

// Create starts a new workspace
func (m *Manager) Create() *Workspace {
	ws := &Workspace{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
	ws.manual = planner.NewStepList(m.collab, m.catalog, m.options)

	m.mu.Lock()
	m.workspaces[ws.ID] = ws
	m.mu.Unlock()
	return ws
}

// Get returns a workspace by id
func (m *Manager) Get(id string) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ws, ok := m.workspaces[id]
	if !ok {
		return nil, serr.New("session not found")
	}
	return ws, nil
}

// List returns all workspace ids
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.workspaces))
	for id := range m.workspaces {
		ids = append(ids, id)
	}
	return ids
}

// Remove drops a workspace
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, id)
}

// FindPlan locates the workspace owning the given plan id
func (m *Manager) FindPlan(planID string) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ws := range m.workspaces {
		ws.mu.Lock()
		match := ws.plan != nil && ws.plan.ID == planID
		ws.mu.Unlock()
		if match {
			return ws, nil
		}
	}
	return nil, serr.New("plan not found")
}

// SetPlan installs a freshly synthesized plan, replacing any prior one.
// A new engine is created around it.
func (m *Manager) SetPlan(ws *Workspace, plan *planner.ExecutionPlan) *planner.Engine {
	engine := planner.NewEngine(plan, m.collab, m.catalog, m.options)

	ws.mu.Lock()
	ws.plan = plan
	ws.engine = engine
	ws.mu.Unlock()
	return engine
}

// Engine returns the workspace's plan engine
func (ws *Workspace) Engine() (*planner.Engine, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.engine == nil {
		return nil, serr.New("session has no plan")
	}
	return ws.engine, nil
}

// Manual returns the workspace's manual step list
func (ws *Workspace) Manual() *planner.StepList {
	return ws.manual
}
