package planner

import (
	"fmt"
	"sync"
	"time"

	"github.com/rohanthewiz/serr"
)

// ExecutionMetrics tracks metrics for plan execution
type ExecutionMetrics struct {
	PlanID         string                 `json:"plan_id"`
	TotalSteps     int                    `json:"total_steps"`
	CompletedSteps int                    `json:"completed_steps"`
	FailedSteps    int                    `json:"failed_steps"`
	SkippedSteps   int                    `json:"skipped_steps"`
	TotalDuration  time.Duration          `json:"total_duration"`
	StepMetrics    map[string]*StepMetric `json:"step_metrics"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        *time.Time             `json:"end_time,omitempty"`
	ParallelInfo   *ParallelExecutionInfo `json:"parallel_info,omitempty"`
	mu             sync.RWMutex
}

// StepMetric tracks metrics for a single step execution
type StepMetric struct {
	StepID    string        `json:"step_id"`
	Model     string        `json:"model"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
}

// ParallelExecutionInfo contains information about parallel execution
type ParallelExecutionInfo struct {
	MaxConcurrency   int        `json:"max_concurrency"`
	ActualSpeedup    float64    `json:"actual_speedup"`
	EstimatedSpeedup float64    `json:"estimated_speedup"`
	ParallelGroups   [][]string `json:"parallel_groups"`
	CriticalPath     []string   `json:"critical_path"`
}

// MetricsCollector collects execution metrics
type MetricsCollector struct {
	metrics map[string]*ExecutionMetrics
	mu      sync.RWMutex
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*ExecutionMetrics),
	}
}

// StartPlanExecution starts tracking metrics for a plan
func (mc *MetricsCollector) StartPlanExecution(planID string, totalSteps int) *ExecutionMetrics {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.ensureLocked(planID, totalSteps)
}

// ensureLocked returns the plan's metrics, creating them if needed so that
// single-step executions outside a full plan run are still tracked
func (mc *MetricsCollector) ensureLocked(planID string, totalSteps int) *ExecutionMetrics {
	if existing, ok := mc.metrics[planID]; ok {
		if totalSteps > existing.TotalSteps {
			existing.TotalSteps = totalSteps
		}
		return existing
	}
	metrics := &ExecutionMetrics{
		PlanID:      planID,
		TotalSteps:  totalSteps,
		StepMetrics: make(map[string]*StepMetric),
		StartTime:   time.Now(),
	}
	mc.metrics[planID] = metrics
	return metrics
}

// StartStepExecution starts tracking metrics for a step
func (mc *MetricsCollector) StartStepExecution(planID, stepID, model string) *StepMetric {
	mc.mu.Lock()
	metrics := mc.ensureLocked(planID, 0)
	mc.mu.Unlock()

	stepMetric := &StepMetric{
		StepID:    stepID,
		Model:     model,
		StartTime: time.Now(),
	}

	metrics.mu.Lock()
	metrics.StepMetrics[stepID] = stepMetric
	metrics.mu.Unlock()

	return stepMetric
}

// EndStepExecution ends tracking for a step and updates plan counts
func (mc *MetricsCollector) EndStepExecution(planID, stepID string, success bool, errMsg string) error {
	mc.mu.RLock()
	metrics, exists := mc.metrics[planID]
	mc.mu.RUnlock()

	if !exists {
		return serr.New("metrics not found for plan")
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	stepMetric, exists := metrics.StepMetrics[stepID]
	if !exists {
		return serr.New("step metric not found")
	}

	endTime := time.Now()
	stepMetric.EndTime = &endTime
	stepMetric.Duration = endTime.Sub(stepMetric.StartTime)
	stepMetric.Success = success
	stepMetric.Error = errMsg

	if success {
		metrics.CompletedSteps++
	} else {
		metrics.FailedSteps++
	}
	return nil
}

// RecordStepSkipped records that a step was skipped
func (mc *MetricsCollector) RecordStepSkipped(planID, stepID string) error {
	mc.mu.RLock()
	metrics, exists := mc.metrics[planID]
	mc.mu.RUnlock()

	if !exists {
		return serr.New("metrics not found for plan")
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	metrics.SkippedSteps++
	return nil
}

// EndPlanExecution ends tracking for a plan and calculates final metrics
func (mc *MetricsCollector) EndPlanExecution(planID string) (*ExecutionMetrics, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metrics, exists := mc.metrics[planID]
	if !exists {
		return nil, serr.New("metrics not found for plan")
	}

	metrics.mu.Lock()
	endTime := time.Now()
	metrics.EndTime = &endTime
	metrics.TotalDuration = endTime.Sub(metrics.StartTime)
	metrics.mu.Unlock()

	return metrics, nil
}

// SetParallelExecutionInfo sets information about parallel execution
func (mc *MetricsCollector) SetParallelExecutionInfo(planID string, info *ParallelExecutionInfo) error {
	mc.mu.RLock()
	metrics, exists := mc.metrics[planID]
	mc.mu.RUnlock()

	if !exists {
		return serr.New("metrics not found for plan")
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	metrics.ParallelInfo = info

	// actual speedup only makes sense once the run has finished
	if metrics.EndTime != nil && info != nil && len(info.CriticalPath) > 0 {
		var criticalPathDuration time.Duration
		for _, stepID := range info.CriticalPath {
			if stepMetric, ok := metrics.StepMetrics[stepID]; ok && stepMetric.Duration > 0 {
				criticalPathDuration += stepMetric.Duration
			}
		}
		if criticalPathDuration > 0 {
			info.ActualSpeedup = float64(metrics.TotalDuration) / float64(criticalPathDuration)
		}
	}
	return nil
}

// GetMetrics retrieves a copy of the metrics for a plan
func (mc *MetricsCollector) GetMetrics(planID string) (*ExecutionMetrics, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metrics, exists := mc.metrics[planID]
	if !exists {
		return nil, serr.New("metrics not found for plan")
	}

	metricsCopy := &ExecutionMetrics{
		PlanID:       metrics.PlanID,
		TotalSteps:   metrics.TotalSteps,
		StartTime:    metrics.StartTime,
		ParallelInfo: metrics.ParallelInfo,
		StepMetrics:  make(map[string]*StepMetric),
	}

	metrics.mu.RLock()
	metricsCopy.CompletedSteps = metrics.CompletedSteps
	metricsCopy.FailedSteps = metrics.FailedSteps
	metricsCopy.SkippedSteps = metrics.SkippedSteps
	metricsCopy.TotalDuration = metrics.TotalDuration
	metricsCopy.EndTime = metrics.EndTime
	for k, v := range metrics.StepMetrics {
		stepCopy := *v
		metricsCopy.StepMetrics[k] = &stepCopy
	}
	metrics.mu.RUnlock()

	return metricsCopy, nil
}

// GenerateMetricsReport generates a human-readable metrics report
func GenerateMetricsReport(metrics *ExecutionMetrics) string {
	report := "=== Execution Metrics Report ===\n"
	report += fmt.Sprintf("Plan ID: %s\n", metrics.PlanID)
	report += fmt.Sprintf("Duration: %s\n", metrics.TotalDuration)
	report += fmt.Sprintf("Steps: %d total, %d completed, %d failed, %d skipped\n",
		metrics.TotalSteps, metrics.CompletedSteps, metrics.FailedSteps, metrics.SkippedSteps)

	if metrics.ParallelInfo != nil {
		report += "\n=== Parallel Execution ===\n"
		report += fmt.Sprintf("Max Concurrency: %d\n", metrics.ParallelInfo.MaxConcurrency)
		report += fmt.Sprintf("Estimated Speedup: %.2fx\n", metrics.ParallelInfo.EstimatedSpeedup)
		if metrics.ParallelInfo.ActualSpeedup > 0 {
			report += fmt.Sprintf("Actual Speedup: %.2fx\n", metrics.ParallelInfo.ActualSpeedup)
		}
		report += fmt.Sprintf("Critical Path: %v\n", metrics.ParallelInfo.CriticalPath)
	}

	report += "\n=== Step Details ===\n"
	for _, step := range metrics.StepMetrics {
		status := "✓"
		if !step.Success {
			status = "✗"
		}
		report += fmt.Sprintf("\n%s Step: %s (Model: %s)\n", status, step.StepID, step.Model)
		report += fmt.Sprintf("  Duration: %s\n", step.Duration)
		if step.Error != "" {
			report += fmt.Sprintf("  Error: %s\n", step.Error)
		}
	}

	return report
}
