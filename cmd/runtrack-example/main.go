// Command runtrack-example runs a fake training loop wired to the
// telemetry glue: it loads a YAML training config, sets up per-process
// logging, starts a tracking run and forwards per-step metrics.
//
// Usage:
//
//	runtrack-example -config config.yaml -output-dir /runs/exp1 -steps 10
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pipelinerl/runtrack/internal/runconfig"
	"github.com/pipelinerl/runtrack/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML training config")
	outputDir := flag.String("output-dir", "", "training output directory")
	steps := flag.Int("steps", 10, "number of fake training steps")
	flag.Parse()

	if err := run(*configPath, *outputDir, *steps); err != nil {
		fmt.Fprintln(os.Stderr, "runtrack-example:", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir string, steps int) error {
	config := runconfig.New()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}
		config, err = runconfig.FromYAML(data)
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	session, err := telemetry.Setup(ctx, telemetry.SetupParams{
		Config:    config,
		OutputDir: outputDir,
	})
	if err != nil {
		return err
	}
	defer session.Finish(ctx)

	if tracking := session.Tracking(); tracking.Active() {
		run := tracking.Run
		session.Logger.Info("tracking run started",
			"name", run.Name, "id", run.ID, "project", run.ProjectName())
	}

	stats := make(map[string]float64)
	for step := 1; step <= steps; step++ {
		mark := time.Now()
		loss := 1.0 / math.Sqrt(float64(step))
		time.Sleep(10 * time.Millisecond)
		telemetry.LogTime(mark, stats, "step_seconds")

		session.LogMetrics(ctx, step, map[string]any{
			"loss":         loss,
			"lr":           0.0003,
			"step_seconds": stats["step_seconds"],
		})
	}

	return nil
}
