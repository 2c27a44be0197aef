package tracker_test

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelinerl/runtrack/internal/tracker"
)

func TestInitRun(t *testing.T) {
	var gotPath string
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			_, _ = w.Write([]byte(
				`{"name":"runs/exp1","entity":"pipelinerl",` +
					`"project":"finetune","id":"runs_exp1"}`))
		}))
	defer server.Close()

	client := tracker.NewClient(tracker.ClientParams{BaseURL: server.URL})
	run, err := client.InitRun(context.Background(), tracker.InitParams{
		Name:    "runs/exp1",
		ID:      "runs_exp1",
		Project: "finetune",
		Resume:  tracker.ResumeAllow,
		Config:  map[string]any{"finetune.lr": 0.001},
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/runs", gotPath)
	assert.Contains(t, gotBody, `"resume":"allow"`)
	assert.Contains(t, gotBody, "finetune.lr")
	assert.Equal(t, "runs/exp1", run.Name)
	assert.Equal(t, "pipelinerl", run.Entity)
	assert.Equal(t, "finetune", run.ProjectName())
	assert.Equal(t, "runs_exp1", run.ID)
}

func TestInitRun_NoRunInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
	defer server.Close()

	client := tracker.NewClient(tracker.ClientParams{BaseURL: server.URL})
	_, err := client.InitRun(context.Background(), tracker.InitParams{})

	assert.ErrorContains(t, err, "service returned no run")
}

func TestInitRun_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unknown entity", http.StatusBadRequest)
		}))
	defer server.Close()

	client := tracker.NewClient(tracker.ClientParams{BaseURL: server.URL})
	_, err := client.InitRun(context.Background(), tracker.InitParams{})

	assert.ErrorContains(t, err, "unknown entity")
}

func TestLogHistory(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/runs" {
				_, _ = w.Write([]byte(`{"id":"r1"}`))
				return
			}
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
	defer server.Close()

	client := tracker.NewClient(tracker.ClientParams{BaseURL: server.URL})
	run, err := client.InitRun(context.Background(), tracker.InitParams{})
	require.NoError(t, err)

	err = run.LogHistory(context.Background(), 42, map[string]float64{
		"loss":      0.125,
		"grad_norm": math.NaN(),
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/runs/r1/history", gotPath)
	assert.Contains(t, gotBody, `"step":42`)
	assert.Contains(t, gotBody, "NaN")
}

func TestFinish(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/runs" {
				_, _ = w.Write([]byte(`{"id":"r1"}`))
				return
			}
			gotPath = r.URL.Path
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
	defer server.Close()

	client := tracker.NewClient(tracker.ClientParams{BaseURL: server.URL})
	run, err := client.InitRun(context.Background(), tracker.InitParams{})
	require.NoError(t, err)

	require.NoError(t, run.Finish(context.Background()))
	assert.Equal(t, "/api/runs/r1/finish", gotPath)
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"id":"r1"}`))
		}))
	defer server.Close()

	client := tracker.NewClient(tracker.ClientParams{
		BaseURL: server.URL,
		APIKey:  "secret",
	})
	_, err := client.InitRun(context.Background(), tracker.InitParams{})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}
