package planner

import (
	"context"
	"sync"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// runParallel executes mutually independent ready steps concurrently,
// bounded by MaxConcurrentSteps. A step becomes ready only once every
// dependency is completed or skipped, so dependent steps never overlap.
func (e *Engine) runParallel(ctx context.Context) error {
	workers := e.options.MaxConcurrentSteps
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	finished := make(chan string, len(e.Snapshot().Steps)+1)
	claimed := make(map[string]bool)
	inFlight := 0
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for {
		if ctx.Err() != nil {
			break
		}

		e.mu.Lock()
		ready := readySteps(e.stepsLocked())
		e.mu.Unlock()

		launchable := make([]string, 0, len(ready))
		for _, step := range ready {
			if !claimed[step.ID] {
				launchable = append(launchable, step.ID)
			}
		}

		if len(launchable) == 0 {
			if inFlight == 0 {
				break
			}
			<-finished
			inFlight--
			continue
		}

		for _, id := range launchable {
			claimed[id] = true
			inFlight++
			wg.Add(1)
			go func(stepID string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				if err := e.ExecuteStep(ctx, stepID); err != nil {
					logger.LogErr(err, "Parallel step failed", "step_id", stepID)
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
				}
				finished <- stepID
			}(id)
		}
	}

	for inFlight > 0 {
		<-finished
		inFlight--
	}
	wg.Wait()

	if ctx.Err() != nil {
		return serr.Wrap(ctx.Err(), "plan execution cancelled")
	}
	return firstErr
}
