// Package perfsampler opens per-CPU hardware performance counters and
// exposes delta-since-last-consume samples to the control loop.
//
// It is built on github.com/mahendrapaipuri/perf-utils, which wraps
// perf_event_open directly (no eBPF involved). Passing pid=-1 together with
// a specific CPU number opens a counter group scoped to that CPU across all
// processes running on it — exactly the per-CPU, system-wide counters the
// control loop needs to sum across CPUs before dividing (see internal/loop).
package perfsampler

import (
	"fmt"
	"runtime"

	perf "github.com/mahendrapaipuri/perf-utils"
	"github.com/sirupsen/logrus"
)

// Sample is an immutable set of five counter deltas captured on one CPU
// since the previous consume (or since Init, for the first tick).
type Sample struct {
	Cycles            uint64
	Instructions      uint64
	CacheMisses       uint64
	Branches          uint64
	BranchMispredicts uint64
}

// Sampler owns one hardware profiler per online CPU.
type Sampler struct {
	profilers []*perf.HardwareProfiler
	last      []perf.HardwareProfile
}

// profilerSet is the fixed group of hardware events the spec requires:
// cycles, retired instructions, cache misses, retired branches, branch
// mispredictions.
const profilerSet = perf.CpuCyclesProfiler |
	perf.CpuInstrProfiler |
	perf.CacheMissesProfiler |
	perf.BranchInstrProfiler |
	perf.BranchMissesProfiler

// Init opens the counter group on every online CPU. Failure to open any
// counter is fatal to startup, per spec — the caller should treat a non-nil
// error here as StartupFatal and run cleanup.
func Init() (*Sampler, error) {
	n := runtime.NumCPU()
	s := &Sampler{
		profilers: make([]*perf.HardwareProfiler, n),
		last:      make([]perf.HardwareProfile, n),
	}

	for cpu := 0; cpu < n; cpu++ {
		hwProf, err := perf.NewHardwareProfiler(-1, cpu, profilerSet)
		if err != nil {
			if hwProf != nil {
				_ = hwProf.Close()
			}
			s.shutdownOpened(cpu)
			return nil, fmt.Errorf("perfsampler: open cpu %d: %w", cpu, err)
		}
		if err := hwProf.Start(); err != nil {
			s.shutdownOpened(cpu)
			return nil, fmt.Errorf("perfsampler: start cpu %d: %w", cpu, err)
		}
		s.profilers[cpu] = &hwProf
	}

	logrus.WithField("cpus", n).Info("perfsampler: hardware counters armed")
	return s, nil
}

// shutdownOpened closes every profiler opened before index upTo, used to
// unwind a partially-successful Init.
func (s *Sampler) shutdownOpened(upTo int) {
	for cpu := 0; cpu < upTo; cpu++ {
		if s.profilers[cpu] != nil {
			_ = (*s.profilers[cpu]).Stop()
			_ = (*s.profilers[cpu]).Close()
		}
	}
}

// NProcs returns the number of CPUs the sampler is tracking.
func (s *Sampler) NProcs() int {
	return len(s.profilers)
}

// ConsumeHW returns the delta counts for one CPU since the previous consume.
// A read failure yields a zero sample rather than propagating — hardware
// counter reads are not on any of the spec's fatal paths.
func (s *Sampler) ConsumeHW(cpu int) Sample {
	if cpu < 0 || cpu >= len(s.profilers) || s.profilers[cpu] == nil {
		return Sample{}
	}

	var current perf.HardwareProfile
	if err := (*s.profilers[cpu]).Profile(&current); err != nil {
		logrus.WithError(err).WithField("cpu", cpu).Warn("perfsampler: profile read failed")
		return Sample{}
	}

	prev := s.last[cpu]
	s.last[cpu] = current

	return Sample{
		Cycles:            rawDelta(prev.CPUCycles, current.CPUCycles),
		Instructions:      rawDelta(prev.Instructions, current.Instructions),
		CacheMisses:       rawDelta(prev.CacheMisses, current.CacheMisses),
		Branches:          rawDelta(prev.BranchInstr, current.BranchInstr),
		BranchMispredicts: rawDelta(prev.BranchMisses, current.BranchMisses),
	}
}

// rawDelta computes current-prev on the counters' raw Value, guarding
// against a nil pointer (counter not available on this CPU/kernel) and
// against the counter appearing to have gone backward (treated as a reset,
// yielding a zero delta rather than an underflowed huge value).
func rawDelta(prev, current *perf.ProfileValue) uint64 {
	if current == nil {
		return 0
	}
	var prevValue uint64
	if prev != nil {
		prevValue = prev.Value
	}
	if current.Value < prevValue {
		return 0
	}
	return current.Value - prevValue
}

// Shutdown stops and closes every opened counter. Idempotent: calling it
// twice, or on a Sampler whose Init failed partway, only closes what is
// still open.
func (s *Sampler) Shutdown() {
	if s == nil {
		return
	}
	for cpu, p := range s.profilers {
		if p == nil {
			continue
		}
		if err := (*p).Stop(); err != nil {
			logrus.WithError(err).WithField("cpu", cpu).Debug("perfsampler: stop")
		}
		if err := (*p).Close(); err != nil {
			logrus.WithError(err).WithField("cpu", cpu).Debug("perfsampler: close")
		}
		s.profilers[cpu] = nil
	}
}
