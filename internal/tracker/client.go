// Package tracker is an HTTP client for the experiment-tracking service.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/wandb/simplejsonext"

	"github.com/pipelinerl/runtrack/internal/randomid"
)

// ResumeMode is the resume semantics understood by the tracking service.
type ResumeMode string

const (
	ResumeAllow ResumeMode = "allow"
	ResumeNever ResumeMode = "never"
)

type ClientParams struct {
	BaseURL string
	APIKey  string

	// RetryMax is the number of retries per request. Metric forwarding
	// is best-effort, so zero is the usual value.
	RetryMax int

	Timeout time.Duration
}

// Client talks to the tracking service. Safe for use from a single
// training process; all calls block until the service responds.
type Client struct {
	baseURL   string
	apiKey    string
	sessionID string
	http      *retryablehttp.Client
}

func NewClient(params ClientParams) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = params.RetryMax
	// retryablehttp logs every attempt by default; telemetry must not
	// spam the training job's output.
	retryClient.Logger = nil
	if params.Timeout > 0 {
		retryClient.HTTPClient.Timeout = params.Timeout
	}

	return &Client{
		baseURL:   params.BaseURL,
		apiKey:    params.APIKey,
		sessionID: randomid.New(8),
		http:      retryClient,
	}
}

type InitParams struct {
	Name    string
	ID      string
	Entity  string
	Project string
	Group   string
	Tags    []string
	Resume  ResumeMode

	// Config is the flattened run configuration reported to the service.
	Config map[string]any
}

// InitRun creates or resumes a run on the tracking service and returns
// its handle.
func (c *Client) InitRun(ctx context.Context, params InitParams) (*Run, error) {
	payload := map[string]any{
		"name":    params.Name,
		"id":      params.ID,
		"entity":  params.Entity,
		"project": params.Project,
		"group":   params.Group,
		"tags":    params.Tags,
		"resume":  string(params.Resume),
		"config":  params.Config,
	}

	body, err := c.postJSON(ctx, "/api/runs", payload)
	if err != nil {
		return nil, fmt.Errorf("tracker: failed to init run: %v", err)
	}

	var info runInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("tracker: bad init response: %v", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("tracker: service returned no run")
	}

	return &Run{
		Name:    info.Name,
		Entity:  info.Entity,
		project: info.Project,
		ID:      info.ID,
		client:  c,
	}, nil
}

// postJSON sends a payload to baseURL+path and returns the response body.
//
// The payload is encoded as extended JSON so that NaN and +-Infinity
// metric values survive the trip.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := simplejsonext.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, data)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", c.sessionID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("POST %s -> %s; body: %s", path, resp.Status, string(body))
	}
	return body, nil
}

type runInfo struct {
	Name    string `json:"name"`
	Entity  string `json:"entity"`
	Project string `json:"project"`
	ID      string `json:"id"`
}
