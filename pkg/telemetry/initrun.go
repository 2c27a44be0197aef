package telemetry

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/pipelinerl/runtrack/internal/observability"
	"github.com/pipelinerl/runtrack/internal/randomid"
	"github.com/pipelinerl/runtrack/internal/settings"
	"github.com/pipelinerl/runtrack/internal/tracker"
)

// maxNameLength is the tracking service's limit on run names and ids.
const maxNameLength = 128

// InitRun creates or resumes a tracking run for the training job.
//
// The run name is the run directory, stripped of the configured
// workspace root when one is set; a directory outside the root is a
// configuration error. The run id defaults to the name with path
// separators replaced, so restarts of the same job resume the same run.
// Name and id are truncated to the service's 128-character limit.
func InitRun(
	ctx context.Context,
	client *tracker.Client,
	s *settings.Settings,
	runDir string,
	config map[string]any,
	logger *observability.CoreLogger,
) (*tracker.Run, error) {
	var resume tracker.ResumeMode
	switch s.Resume {
	case settings.ResumeAlways:
		resume = tracker.ResumeAllow
	case settings.ResumeNever:
		resume = tracker.ResumeNever
	case settings.ResumeIfNotInteractive:
		return nil, fmt.Errorf(
			"telemetry: resume policy %q is not implemented", s.Resume)
	default:
		return nil, fmt.Errorf(
			"telemetry: unknown value for wandb_resume: %q", s.Resume)
	}

	name := runDir
	if root := s.WorkspaceRoot; root != "" {
		if !strings.HasPrefix(name, root+"/") {
			return nil, fmt.Errorf(
				"telemetry: run dir %q does not start with root %q", runDir, root)
		}
		name = name[len(root)+1:]
	}

	id := s.RunID
	if id == "" {
		id = strings.ReplaceAll(name, "/", "_")
	}
	if id == "" {
		id = randomid.New(8)
	}

	if len(name) > maxNameLength {
		logger.Warn("telemetry: run name is longer than the service limit, truncating",
			"name", name, "limit", maxNameLength)
	}
	name = truncate(name, maxNameLength)
	id = truncate(id, maxNameLength)

	if config == nil {
		config = make(map[string]any)
	}
	addBuildVersions(config)

	logger.Info("telemetry: initializing tracking run",
		"name", name, "id", id, "resume", string(resume))

	run, err := client.InitRun(ctx, tracker.InitParams{
		Name:    name,
		ID:      id,
		Entity:  s.Entity,
		Project: s.Project,
		Group:   s.Group,
		Tags:    s.Tags,
		Resume:  resume,
		Config:  config,
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// addBuildVersions records the versions of the binary's Go module
// dependencies with the run configuration.
func addBuildVersions(config map[string]any) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	config["go_env.main"] = info.Main.Path
	for _, dep := range info.Deps {
		config["go_env."+dep.Path] = dep.Version
	}
}
