// Package accelerator exposes the distributed-launch topology owned by
// the training framework. Telemetry only reads it: the coordinator
// (process index zero) is the single writer for run-level side effects.
package accelerator

import (
	"os"
	"strconv"
)

// Accelerator reports this process's place in the distributed job.
type Accelerator interface {
	// ProcessIndex is the global rank of this process.
	ProcessIndex() int

	// IsMainProcess reports whether this is the coordinator (rank zero).
	IsMainProcess() bool

	// State describes the launch topology as string pairs, recorded with
	// the run configuration.
	State() map[string]string
}

// launchEnvVars are the torchrun-style variables describing the launch.
var launchEnvVars = []string{
	"RANK",
	"LOCAL_RANK",
	"WORLD_SIZE",
	"MASTER_ADDR",
	"MASTER_PORT",
}

// envAccelerator reads the topology from the launcher's environment.
type envAccelerator struct {
	rank  int
	state map[string]string
}

// FromEnv returns an Accelerator backed by the process environment.
//
// A process launched without RANK is treated as a single-process job
// with this process as the coordinator.
func FromEnv() Accelerator {
	state := make(map[string]string)
	for _, name := range launchEnvVars {
		if value := os.Getenv(name); value != "" {
			state[name] = value
		}
	}

	rank := 0
	if raw, ok := state["RANK"]; ok {
		if parsed, err := strconv.Atoi(raw); err == nil {
			rank = parsed
		}
	}

	return &envAccelerator{rank: rank, state: state}
}

func (a *envAccelerator) ProcessIndex() int { return a.rank }

func (a *envAccelerator) IsMainProcess() bool { return a.rank == 0 }

func (a *envAccelerator) State() map[string]string { return a.state }

// Static is a fixed-topology Accelerator.
//
// Used for tests and for embedding telemetry in non-distributed tools.
type Static struct {
	Rank       int
	LaunchInfo map[string]string
}

func (s Static) ProcessIndex() int { return s.Rank }

func (s Static) IsMainProcess() bool { return s.Rank == 0 }

func (s Static) State() map[string]string { return s.LaunchInfo }
