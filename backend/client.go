package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
	"vedit/catalog"
	"vedit/planner"
)

// JobStatus is the remote job lifecycle reported by the backend
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobState is one poll response for an async job
type JobState struct {
	Status    JobStatus `json:"status"`
	Progress  float64   `json:"progress"`
	OutputURL string    `json:"outputUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// submitResponse is returned when the backend accepts an async job
type submitResponse struct {
	JobID     string `json:"jobId"`
	StatusURL string `json:"statusUrl"`
}

// syncResponse is returned by endpoints that finish within the request
type syncResponse struct {
	OutputURL      string  `json:"output_url"`
	PreviewURL     string  `json:"preview_url,omitempty"`
	ProcessingTime float64 `json:"processing_time"`
}

// HealthInfo reports backend availability and loaded models
type HealthInfo struct {
	Status string   `json:"status"`
	Models []string `json:"models"`
}

// route maps a model to its backend endpoint. Async routes return a job
// handle that must be polled; sync routes finish within the request.
type route struct {
	path  string
	async bool
}

var routes = map[catalog.ModelType]route{
	catalog.SegmentationSAM3:  {"/api/v1/segment", false},
	catalog.ColorCorrection:   {"/api/v1/color-correct", false},
	catalog.VideoInpainting:   {"/api/v1/inpaint", true},
	catalog.ObjectRemoval:     {"/api/v1/remove-video-objects", true},
	catalog.ObjectReplacement: {"/api/v1/replace-video-objects", true},
	catalog.ObjectInsertion:   {"/api/v1/insert-objects", true},
	catalog.BackgroundRemoval: {"/api/v1/remove-background", true},
	catalog.StyleTransfer:     {"/api/v1/style-transfer", true},
}

// Client talks to the remote model backend. It implements
// planner.Collaborator: Run submits one step's work and, for async
// endpoints, polls the job to a terminal status.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
}

// NewClient creates a backend client. pollInterval and maxPollAttempts
// bound async job polling; zero values select the defaults (1s, 300).
func NewClient(baseURL string, pollInterval time.Duration, maxPollAttempts int) *Client {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if maxPollAttempts <= 0 {
		maxPollAttempts = 300
	}
	return &Client{
		baseURL:         baseURL,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
	}
}

// Run performs one step's work against the backend
func (c *Client) Run(ctx context.Context, modelType catalog.ModelType, params map[string]catalog.Value) (*planner.StepResult, error) {
	rt, ok := routes[modelType]
	if !ok {
		return nil, serr.New("no backend route for model " + string(modelType))
	}

	payload := map[string]interface{}{
		"model":      string(modelType),
		"parameters": paramPayload(params),
	}

	if !rt.async {
		var resp syncResponse
		if err := c.post(ctx, rt.path, payload, &resp); err != nil {
			return nil, err
		}
		return &planner.StepResult{
			Success:        true,
			OutputURL:      resp.OutputURL,
			PreviewURL:     resp.PreviewURL,
			ProcessingTime: resp.ProcessingTime,
		}, nil
	}

	var submitted submitResponse
	if err := c.post(ctx, rt.path, payload, &submitted); err != nil {
		return nil, err
	}
	logger.Info("Job submitted", "model", string(modelType), "job_id", submitted.JobID)
	return c.awaitJob(ctx, submitted.JobID)
}

// Compensate is the rollback hook. The backend keeps no per-step server
// state to undo, so compensation is local to the engine.
func (c *Client) Compensate(ctx context.Context, stepID string) error {
	logger.Debug("No backend compensation required", "step_id", stepID)
	return nil
}

// Health probes the backend and reports its loaded models
func (c *Client) Health(ctx context.Context) (HealthInfo, error) {
	var info HealthInfo
	if err := c.get(ctx, "/api/v1/health", &info); err != nil {
		return HealthInfo{}, err
	}
	return info, nil
}

// JobState fetches one poll of an async job
func (c *Client) JobState(ctx context.Context, jobID string) (JobState, error) {
	var state JobState
	if err := c.get(ctx, "/api/v1/jobs/"+jobID, &state); err != nil {
		return JobState{}, err
	}
	return state, nil
}

// awaitJob polls a job at a fixed cadence until it reaches a terminal
// status or the attempt bound is exhausted
func (c *Client) awaitJob(ctx context.Context, jobID string) (*planner.StepResult, error) {
	started := time.Now()
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, serr.Wrap(ctx.Err(), "job polling cancelled")
		case <-time.After(c.pollInterval):
		}

		state, err := c.JobState(ctx, jobID)
		if err != nil {
			return nil, serr.Wrap(err, "job status poll failed")
		}

		switch state.Status {
		case JobCompleted:
			return &planner.StepResult{
				Success:        true,
				OutputURL:      state.OutputURL,
				ProcessingTime: time.Since(started).Seconds(),
			}, nil
		case JobFailed:
			msg := state.Error
			if msg == "" {
				msg = "job failed"
			}
			return nil, serr.New(msg)
		}
		logger.Debug("Job in progress", "job_id", jobID, "status", string(state.Status),
			"progress", fmt.Sprintf("%.0f", state.Progress))
	}

	return nil, serr.New(fmt.Sprintf("job %s timed out after %d polls", jobID, c.maxPollAttempts))
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return serr.Wrap(err, "failed to encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return serr.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return serr.Wrap(err, "failed to build request")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return serr.Wrap(err, "backend request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return serr.Wrap(err, "failed to read backend response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
			return serr.New(apiErr.Detail)
		}
		return serr.New(fmt.Sprintf("backend error: %d %s", resp.StatusCode, resp.Status))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return serr.Wrap(err, "failed to decode backend response")
	}
	return nil
}

// paramPayload flattens typed parameter values into plain JSON values
func paramPayload(params map[string]catalog.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for id, v := range params {
		switch v.Type {
		case catalog.ParamNumber, catalog.ParamSlider:
			out[id] = v.Num
		case catalog.ParamBoolean:
			out[id] = v.Bool
		default:
			out[id] = v.Text
		}
	}
	return out
}
