package tracker

import (
	"context"
	"fmt"
)

// Run is an opaque handle to a session on the tracking service.
//
// One run aggregates the metrics and configuration of a single training
// job. Created once per job by (*Client).InitRun.
type Run struct {
	Name   string
	Entity string
	ID     string

	project string
	client  *Client
}

// ProjectName returns the project the run belongs to.
func (r *Run) ProjectName() string {
	return r.project
}

// LogHistory forwards metric values for one completed training step.
func (r *Run) LogHistory(ctx context.Context, step int, metrics map[string]float64) error {
	payload := map[string]any{
		"step":    step,
		"metrics": metrics,
	}

	path := fmt.Sprintf("/api/runs/%s/history", r.ID)
	if _, err := r.client.postJSON(ctx, path, payload); err != nil {
		return fmt.Errorf("tracker: failed to log history: %v", err)
	}
	return nil
}

// Finish marks the run as done on the tracking service.
func (r *Run) Finish(ctx context.Context) error {
	path := fmt.Sprintf("/api/runs/%s/finish", r.ID)
	if _, err := r.client.postJSON(ctx, path, nil); err != nil {
		return fmt.Errorf("tracker: failed to finish run: %v", err)
	}
	return nil
}
