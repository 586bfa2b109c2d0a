// Package loop drives the 20ms control loop: the single-threaded sequence
// of perf-consume, policy-request, policy-reply, affinity-apply steps spec
// §4.F and §5 specify.
package loop

import (
	"os"
	"strconv"
	"time"

	"clustersched/internal/clock"
	"clustersched/internal/config"
	"clustersched/internal/effector"
	"clustersched/internal/metrics"
	"clustersched/internal/perfsampler"
	"clustersched/internal/policy"
	"clustersched/internal/procsupervisor"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StatusUpdater receives one snapshot per tick. Satisfied by
// *statusrpc.Server; nil when the status RPC is disabled.
type StatusUpdater interface {
	Update(runID uuid.UUID, mode config.Mode, state config.ClusterState, elapsedMS uint64, tick uint64)
}

// Run executes the control loop until the workload exits, then writes
// scheduler_<supervisorPID>.time and returns. If the policy adapter returns
// an error, Run logs it and returns at once without writing the time file.
// It is the only writer of
// cluster state and the only reader of perf counters (spec §5); no
// synchronization is required beyond running on a single goroutine.
// status may be nil, in which case no status updates are published.
func Run(w *procsupervisor.Workload, sampler *perfsampler.Sampler, adapter policy.Adapter, supervisorPID int, status StatusUpdater, runID uuid.UUID, mode config.Mode) {
	ticker := time.NewTicker(config.TickPeriod)
	defer ticker.Stop()

	current := config.InitialClusterState
	start := w.StartTime
	var tickCount uint64

	for range ticker.C {
		tickCount++
		alive := procsupervisor.PollWorkload(w) == procsupervisor.StatusAlive

		cpuPercent := 0.0
		if alive {
			cpuPercent = procsupervisor.WorkloadCPUUsage(w.PID)
		}

		var cycles, instructions, cacheMisses, branches, branchMispredicts uint64
		for cpu := 0; cpu < sampler.NProcs(); cpu++ {
			s := sampler.ConsumeHW(cpu)
			cycles += s.Cycles
			instructions += s.Instructions
			cacheMisses += s.CacheMisses
			branches += s.Branches
			branchMispredicts += s.BranchMispredicts
		}

		elapsedMS := clock.ElapsedMillis(start)
		tick := metrics.Compute(cycles, instructions, cacheMisses, branches, branchMispredicts, cpuPercent, elapsedMS)

		next, err := adapter.Tick(tick, current)
		if err != nil {
			logrus.WithError(err).Error("loop: policy adapter failed, terminating")
			return
		}

		if alive && next != current {
			effector.Apply(next, w.PID)
		}
		current = next

		if status != nil {
			status.Update(runID, mode, current, elapsedMS, tickCount)
		}

		if !alive {
			writeElapsedFile(supervisorPID, elapsedMS)
			return
		}
	}
}

func writeElapsedFile(supervisorPID int, elapsedMS uint64) {
	path := config.TimePath(supervisorPID)
	if err := os.WriteFile(path, []byte(strconv.FormatUint(elapsedMS, 10)), 0o644); err != nil {
		logrus.WithError(err).WithField("path", path).Error("loop: failed to write elapsed time file")
	}
}
