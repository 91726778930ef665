package planner

import (
	"fmt"

	"github.com/rohanthewiz/serr"
)

// validateDependencies checks that every declared dependency references a
// step present in the same list, that no step depends on itself, and that
// the dependency graph is acyclic
func validateDependencies(steps []ExecutionStep) error {
	ids := make(map[string]bool, len(steps))
	for _, step := range steps {
		ids[step.ID] = true
	}

	for _, step := range steps {
		for _, dep := range step.Dependencies {
			if dep == step.ID {
				return serr.New(fmt.Sprintf("step %s depends on itself", step.ID))
			}
			if !ids[dep] {
				return serr.New(fmt.Sprintf("step %s depends on unknown step %s", step.ID, dep))
			}
		}
	}

	// Kahn's algorithm; leftover nodes mean a cycle
	inDegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))
	for _, step := range steps {
		inDegree[step.ID] = len(step.Dependencies)
		for _, dep := range step.Dependencies {
			dependents[dep] = append(dependents[dep], step.ID)
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	resolved := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		resolved++
		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if resolved != len(steps) {
		return serr.New("dependency graph contains a cycle")
	}
	return nil
}

// unmetDependencies returns the ids of declared dependencies of step that
// are not yet in a satisfying state (completed or skipped). Dependencies
// removed from the list no longer block.
func unmetDependencies(steps []ExecutionStep, step *ExecutionStep) []string {
	var unmet []string
	for _, depID := range step.Dependencies {
		for i := range steps {
			if steps[i].ID == depID && !steps[i].Status.Satisfied() {
				unmet = append(unmet, depID)
			}
		}
	}
	return unmet
}

// readySteps returns, in order, the pending steps whose dependencies are
// all satisfied
func readySteps(steps []ExecutionStep) []*ExecutionStep {
	var ready []*ExecutionStep
	for i := range steps {
		step := &steps[i]
		if step.Status != StepStatusPending {
			continue
		}
		if len(unmetDependencies(steps, step)) == 0 {
			ready = append(ready, step)
		}
	}
	return ready
}

// ParallelAnalysis describes how much of a plan could run concurrently
type ParallelAnalysis struct {
	TotalSteps       int        `json:"total_steps"`
	MaxParallelism   int        `json:"max_parallelism"`
	CriticalPath     []string   `json:"critical_path"`
	ParallelGroups   [][]string `json:"parallel_groups"`
	EstimatedSpeedup float64    `json:"estimated_speedup"`
}

// AnalyzeParallelism simulates wave-by-wave execution of the dependency
// graph to find the maximum parallelism and the critical path
func AnalyzeParallelism(steps []ExecutionStep) *ParallelAnalysis {
	analysis := &ParallelAnalysis{
		TotalSteps:     len(steps),
		CriticalPath:   []string{},
		ParallelGroups: [][]string{},
	}
	if len(steps) == 0 {
		return analysis
	}

	byID := make(map[string]*ExecutionStep, len(steps))
	for i := range steps {
		byID[steps[i].ID] = &steps[i]
	}

	done := make(map[string]bool, len(steps))
	remaining := len(steps)
	for remaining > 0 {
		var wave []string
		for i := range steps {
			step := &steps[i]
			if done[step.ID] {
				continue
			}
			ready := true
			for _, dep := range step.Dependencies {
				if _, present := byID[dep]; present && !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, step.ID)
			}
		}
		if len(wave) == 0 {
			// cycle; validation should have rejected this upstream
			break
		}
		if len(wave) > analysis.MaxParallelism {
			analysis.MaxParallelism = len(wave)
		}
		analysis.ParallelGroups = append(analysis.ParallelGroups, wave)
		for _, id := range wave {
			done[id] = true
			remaining--
		}
	}

	analysis.CriticalPath = criticalPath(steps, byID)
	if len(analysis.CriticalPath) > 0 {
		analysis.EstimatedSpeedup = float64(len(steps)) / float64(len(analysis.CriticalPath))
	}
	return analysis
}

// criticalPath finds the longest dependency chain via memoized DFS
func criticalPath(steps []ExecutionStep, byID map[string]*ExecutionStep) []string {
	memo := make(map[string][]string, len(steps))

	var dfs func(id string) []string
	dfs = func(id string) []string {
		if path, ok := memo[id]; ok {
			return path
		}
		step := byID[id]

		var longest []string
		for _, dep := range step.Dependencies {
			if _, present := byID[dep]; !present {
				continue
			}
			if path := dfs(dep); len(path) > len(longest) {
				longest = path
			}
		}

		path := make([]string, len(longest)+1)
		copy(path, longest)
		path[len(longest)] = id
		memo[id] = path
		return path
	}

	var longest []string
	for i := range steps {
		if path := dfs(steps[i].ID); len(path) > len(longest) {
			longest = path
		}
	}
	return longest
}
