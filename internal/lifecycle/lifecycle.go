// Package lifecycle owns every resource handle a supervisor run creates and
// exposes a single idempotent teardown path, replacing the reference
// implementation's scattered process-global cleanup state (spec §9).
package lifecycle

import (
	"fmt"
	"os"
	"sync"

	"clustersched/internal/config"
	"clustersched/internal/exectrace"
	"clustersched/internal/perfsampler"
	"clustersched/internal/policy"
	"clustersched/internal/procsupervisor"
	"clustersched/internal/statusrpc"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Supervisor is the single owning aggregate for one supervisor run: every
// child process, pipe, counter group, and optional ancillary service it
// starts is reachable only through this struct, and Cleanup is the only
// path that tears any of it down.
type Supervisor struct {
	RunID uuid.UUID

	mode     config.Mode
	adapter  policy.Adapter
	policy   *procsupervisor.Policy
	workload *procsupervisor.Workload
	sampler  *perfsampler.Sampler
	tracer   *exectrace.Tracer
	status   *statusrpc.Server

	cleanupOnce sync.Once
}

// Start brings up a supervisor run in the order spec §4.G mandates:
// mode-specific adapter init (open log file OR spawn policy) -> spawn
// workload -> perf init -> [optional: exec tracer, status RPC]. Any failure
// after a prior step has succeeded rolls back everything already opened,
// through Cleanup, before returning the error.
func Start(argv []string) (*Supervisor, error) {
	sup := &Supervisor{
		RunID: uuid.New(),
		mode:  config.ResolveMode(),
	}
	log := logrus.WithField("run_id", sup.RunID.String())

	adapter, policyProc, err := policy.New(sup.mode, os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("lifecycle: startup: %w", err)
	}
	sup.adapter = adapter
	sup.policy = policyProc

	workload, err := procsupervisor.SpawnWorkload(argv)
	if err != nil {
		sup.Cleanup()
		return nil, fmt.Errorf("lifecycle: startup: %w", err)
	}
	sup.workload = workload

	sampler, err := perfsampler.Init()
	if err != nil {
		sup.Cleanup()
		return nil, fmt.Errorf("lifecycle: startup: %w", err)
	}
	sup.sampler = sampler

	if !config.ExecTraceDisabled() {
		tracer, err := exectrace.Start(workload.PID)
		if err != nil {
			log.WithError(err).Warn("lifecycle: exec tracer unavailable, continuing without it")
		} else {
			sup.tracer = tracer
		}
	}

	if port := config.StatusRPCPort(); port != 0 {
		srv, err := statusrpc.Start(port, sup.RunID, sup.mode)
		if err != nil {
			log.WithError(err).Warn("lifecycle: status RPC unavailable, continuing without it")
		} else {
			sup.status = srv
		}
	}

	log.WithField("mode", sup.mode.String()).WithField("workload_pid", workload.PID).Info("lifecycle: supervisor started")
	return sup, nil
}

// Workload exposes the spawned workload handle to the control loop.
func (s *Supervisor) Workload() *procsupervisor.Workload { return s.workload }

// Sampler exposes the hardware counter sampler to the control loop.
func (s *Supervisor) Sampler() *perfsampler.Sampler { return s.sampler }

// Adapter exposes the active policy adapter to the control loop.
func (s *Supervisor) Adapter() policy.Adapter { return s.adapter }

// Mode returns the resolved scheduling mode for this run.
func (s *Supervisor) Mode() config.Mode { return s.mode }

// Status returns the status snapshot updater, or nil if the RPC service is
// disabled — the control loop should skip updates in that case.
func (s *Supervisor) Status() *statusrpc.Server { return s.status }

// Cleanup tears down every resource this Supervisor owns, exactly once:
// the status RPC, exec tracer and sampler first, then the policy child
// followed by the workload, and the adapter last. Safe to call multiple
// times and safe to
// call after a partial Start failure (spec §4.G, P7).
func (s *Supervisor) Cleanup() {
	s.cleanupOnce.Do(func() {
		if s.status != nil {
			s.status.Stop()
		}
		if s.tracer != nil {
			s.tracer.Stop()
		}
		if s.sampler != nil {
			s.sampler.Shutdown()
		}
		procsupervisor.TerminateAll(s.workload, s.policy)
		if s.adapter != nil {
			if err := s.adapter.Close(); err != nil {
				logrus.WithError(err).Warn("lifecycle: adapter close")
			}
		}
	})
}
