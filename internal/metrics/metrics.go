// Package metrics computes the per-tick scalar metrics the control loop
// derives from a tick's summed hardware-counter deltas and the workload's
// CPU usage. Kept separate from perfsampler (which only owns raw counter
// I/O) and policy (which only owns wire encoding) so neither of those needs
// to import the other through this type.
package metrics

// Tick holds both the raw summed counter deltas for one control-loop tick
// and the derived scalars computed from them, matching collector mode's
// need for the raw totals (spec §4.D) alongside predictor/agent mode's
// need for the derived ratios (spec §4.D/§6).
type Tick struct {
	Cycles            uint64
	Instructions      uint64
	CacheMisses       uint64
	Branches          uint64
	BranchMispredicts uint64

	MKPI           float64
	BranchMissRate float64
	IPC            float64
	CPUPercent     float64
	ElapsedMS      uint64
}

// Compute derives a Tick from summed counter deltas. Division-by-zero
// denominators (DivisionGuard, spec §7) substitute 0.0 for the affected
// ratio rather than producing NaN or Inf.
func Compute(cycles, instructions, cacheMisses, branches, branchMispredicts uint64, cpuPercent float64, elapsedMS uint64) Tick {
	return Tick{
		Cycles:            cycles,
		Instructions:      instructions,
		CacheMisses:       cacheMisses,
		Branches:          branches,
		BranchMispredicts: branchMispredicts,

		MKPI:           safeDiv(float64(cacheMisses)*1000.0, float64(instructions)),
		BranchMissRate: safeDiv(float64(branchMispredicts), float64(branches)),
		IPC:            safeDiv(float64(instructions), float64(cycles)),
		CPUPercent:     cpuPercent,
		ElapsedMS:      elapsedMS,
	}
}

// safeDiv returns n/d, or 0 when d is zero — the DivisionGuard behavior
// spec §7 requires for zero instructions/branches/cycles in a tick.
// Mirrors the same guard idiom used throughout the retrieved pack's /proc
// collectors (e.g. ja7ad-consumption's pkg/system/proc.safeDiv).
func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}
