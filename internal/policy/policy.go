// Package policy implements the three decision-maker adapters the control
// loop can drive: pure telemetry collection, a model-based predictor, and a
// learned agent. Exactly one is active per run, selected by config.Mode.
package policy

import (
	"fmt"

	"clustersched/internal/config"
	"clustersched/internal/metrics"
	"clustersched/internal/procsupervisor"
)

// Adapter bridges the control loop to the active policy. Tick is called
// once per control-loop tick; Close releases any owned resource (a log
// file or the policy child's pipes) and must be safe to call more than
// once.
type Adapter interface {
	// Tick consumes this tick's metrics and returns the next cluster state.
	// Collector mode never changes state and always returns current back.
	Tick(m metrics.Tick, current config.ClusterState) (config.ClusterState, error)
	Close() error
}

// New constructs the adapter for the given mode. For predictor/agent modes
// it spawns the external policy process via procsupervisor; for collector
// mode it opens the CSV output file. supervisorPID names the CSV/log file
// per spec §6.
func New(mode config.Mode, supervisorPID int) (Adapter, *procsupervisor.Policy, error) {
	switch mode {
	case config.ModeCollect:
		a, err := newCollector(supervisorPID)
		return a, nil, err
	case config.ModePredictor:
		proc, err := procsupervisor.SpawnPolicy(config.PredictorCommand)
		if err != nil {
			return nil, nil, err
		}
		return newPredictor(proc), proc, nil
	case config.ModeAgent:
		proc, err := procsupervisor.SpawnPolicy(config.AgentCommand)
		if err != nil {
			return nil, nil, err
		}
		return newAgent(proc), proc, nil
	default:
		return nil, nil, fmt.Errorf("policy: unknown mode %v", mode)
	}
}
