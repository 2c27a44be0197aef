// Package telemetry glues a training loop to the experiment-tracking
// service: it initializes a tracking run, sets up per-process logging,
// flattens the training configuration for reporting and forwards scalar
// metrics once per training step.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pipelinerl/runtrack/internal/accelerator"
	"github.com/pipelinerl/runtrack/internal/observability"
	"github.com/pipelinerl/runtrack/internal/pathtree"
	"github.com/pipelinerl/runtrack/internal/runconfig"
	"github.com/pipelinerl/runtrack/internal/sentry_ext"
	"github.com/pipelinerl/runtrack/internal/settings"
	"github.com/pipelinerl/runtrack/internal/tracker"
)

// runInfoFile is the JSON summary of the tracking run written next to
// the training outputs.
const runInfoFile = "wandb_info.json"

// Tracking says whether a tracking run is active for this job.
//
// A failed initialization is not fatal: training proceeds without
// telemetry and Err records why.
type Tracking struct {
	Run *tracker.Run
	Err error
}

func (t Tracking) Active() bool { return t.Run != nil }

// Session is the telemetry handle for one training process.
//
// It owns the process logger and, on the coordinator, the tracking run.
// It is created once at startup and threaded through call sites instead
// of reconfiguring any process-global logger.
type Session struct {
	Logger *observability.CoreLogger

	accel    accelerator.Accelerator
	tracking Tracking
	logFile  *os.File
}

type SetupParams struct {
	// Settings override, field by field where set, the settings derived
	// from the `finetune` block of Config and the environment.
	Settings *settings.Settings

	// Config is the training configuration reported with the run.
	Config *runconfig.RunConfig

	// OutputDir is the training output directory. The per-process log
	// file and the run summary are written under it. Defaults to the
	// configured wandb_dir.
	OutputDir string

	Accelerator accelerator.Accelerator

	// Run is an already-initialized tracking run, if any. When set, no
	// new run is created.
	Run *tracker.Run

	// Client overrides the tracker client built from Settings.
	Client *tracker.Client

	// ConsoleWriter defaults to os.Stderr.
	ConsoleWriter io.Writer

	// Sentry overrides the client built from Settings.SentryDSN.
	Sentry *sentry_ext.Client
}

// Setup configures logging for this process and, on the coordinator,
// starts the tracking run and writes the run summary file.
//
// The log file is <output_dir>/log/info_<process_index>.log. Processes
// other than the coordinator log at error level only. A failure to start
// the tracking run is downgraded to a warning; the returned session then
// reports Tracking{Err: ...} and forwards nothing.
func Setup(ctx context.Context, params SetupParams) (*Session, error) {
	if params.Accelerator == nil {
		params.Accelerator = accelerator.FromEnv()
	}
	if params.Config == nil {
		params.Config = runconfig.New()
	}
	params.Settings = settings.New().
		FromConfigTree(params.Config.Subtree(pathtree.TreePath{"finetune"})).
		FromEnv().
		FromSettings(params.Settings)
	if params.ConsoleWriter == nil {
		params.ConsoleWriter = os.Stderr
	}

	outputDir := params.OutputDir
	if outputDir == "" {
		outputDir = params.Settings.RootDir
	}
	if outputDir == "" {
		return nil, fmt.Errorf("telemetry: no output directory configured")
	}

	accel := params.Accelerator
	logFile, err := openLogFile(outputDir, accel.ProcessIndex())
	if err != nil {
		return nil, err
	}

	sentryClient := params.Sentry
	if sentryClient == nil && params.Settings.SentryDSN != "" {
		sentryClient = sentry_ext.New(sentry_ext.Params{
			DSN: params.Settings.SentryDSN,
		})
	}

	// Workers raise their threshold to suppress most output; the
	// coordinator is the only process expected to narrate training.
	level := slog.LevelInfo
	if !accel.IsMainProcess() {
		level = slog.LevelError
	}

	logger := observability.NewCoreLogger(
		slog.New(slog.NewJSONHandler(
			io.MultiWriter(logFile, params.ConsoleWriter),
			&slog.HandlerOptions{Level: level},
		)),
		&observability.CoreLoggerParams{
			Sentry: sentryClient,
			Tags: observability.Tags{
				"process_index": fmt.Sprintf("%d", accel.ProcessIndex()),
			},
		},
	)

	session := &Session{
		Logger:   logger,
		accel:    accel,
		tracking: Tracking{Run: params.Run},
		logFile:  logFile,
	}

	if !accel.IsMainProcess() {
		return session, nil
	}

	// Accelerator state first; the flattened config wins on collisions.
	configForRun := make(map[string]any)
	for key, value := range accel.State() {
		configForRun[key] = value
	}
	for key, value := range params.Config.Flatten() {
		configForRun[key] = value
	}

	if session.tracking.Run == nil && params.Settings.Enabled {
		client := params.Client
		if client == nil {
			client = tracker.NewClient(tracker.ClientParams{
				BaseURL:  params.Settings.BaseURL,
				APIKey:   params.Settings.APIKey,
				RetryMax: params.Settings.RetryMax,
				Timeout:  params.Settings.Timeout(),
			})
		}

		run, err := InitRun(ctx, client, params.Settings, outputDir, configForRun, logger)
		if err != nil {
			session.tracking = Tracking{Err: err}
			logger.CaptureWarn("telemetry: failed to initialize tracking run",
				"error", err.Error())
		} else {
			session.tracking = Tracking{Run: run}
		}
	}

	if err := writeRunInfo(outputDir, session.tracking.Run); err != nil {
		return nil, err
	}

	return session, nil
}

// Tracking reports whether a tracking run is active and, if not, why.
func (s *Session) Tracking() Tracking {
	return s.tracking
}

// Run returns the active tracking run, or nil.
func (s *Session) Run() *tracker.Run {
	return s.tracking.Run
}

// Finish finalizes the tracking run (best effort) and releases the
// session's log file.
func (s *Session) Finish(ctx context.Context) {
	if s.accel.IsMainProcess() && s.tracking.Active() {
		if err := s.tracking.Run.Finish(ctx); err != nil {
			s.Logger.CaptureError(
				fmt.Errorf("telemetry: failed to finish run: %v", err))
		}
	}
	s.Close()
}

// Close releases the session's log file without touching the run.
func (s *Session) Close() {
	if s.logFile != nil {
		_ = s.logFile.Close()
		s.logFile = nil
	}
}

func openLogFile(outputDir string, processIndex int) (*os.File, error) {
	logDir := filepath.Join(outputDir, "log")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: failed to create log dir: %v", err)
	}

	path := filepath.Join(logDir, fmt.Sprintf("info_%d.log", processIndex))
	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to open log file: %v", err)
	}
	return logFile, nil
}

// writeRunInfo saves the run's name, entity, project and id next to the
// training outputs so later pipeline stages can attach to the same run.
// Writes an empty object when no run is active.
func writeRunInfo(outputDir string, run *tracker.Run) error {
	info := map[string]string{}
	if run != nil {
		info = map[string]string{
			"name":    truncate(run.Name, maxNameLength),
			"entity":  run.Entity,
			"project": run.ProjectName(),
			"id":      run.ID,
		}
	}

	data, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return fmt.Errorf("telemetry: failed to encode run info: %v", err)
	}

	path := filepath.Join(outputDir, runInfoFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("telemetry: failed to write %s: %v", runInfoFile, err)
	}
	return nil
}
