package policy

import (
	"fmt"
	"strconv"

	"clustersched/internal/config"
	"clustersched/internal/metrics"
	"clustersched/internal/procsupervisor"
)

// predictor implements Adapter for config.ModePredictor: once per tick it
// queries the policy process once per candidate cluster state and commits
// the argmax MIPS estimate.
type predictor struct {
	proc *procsupervisor.Policy
}

func newPredictor(proc *procsupervisor.Policy) *predictor {
	return &predictor{proc: proc}
}

// Tick issues one request per config.PredictorCandidates entry, in order,
// and commits the candidate with the highest reported MIPS. Ties are
// resolved by last-seen-wins over the LITTLE, BIG, BOTH enumeration order
// (spec's Open Question, resolved in SPEC_FULL.md §9: BOTH beats a
// three-way tie, BIG beats LITTLE). If every estimate is non-positive, the
// current state is retained untouched.
func (p *predictor) Tick(m metrics.Tick, current config.ClusterState) (config.ClusterState, error) {
	best := current
	bestMIPS := 0.0
	anyPositive := false

	for _, candidate := range config.PredictorCandidates {
		hasBig, hasLittle := config.HasBigLittle(candidate)
		err := writeLine(p.proc.Stdin,
			formatHex(m.MKPI),
			formatHex(m.BranchMissRate),
			formatHex(m.IPC),
			strconv.Itoa(hasBig),
			strconv.Itoa(hasLittle),
			formatHex(m.CPUPercent),
		)
		if err != nil {
			return current, err
		}

		reply, err := readLine(p.proc.Reader)
		if err != nil {
			return current, err
		}
		mips, err := strconv.ParseFloat(reply, 64)
		if err != nil {
			return current, fmt.Errorf("policy: predictor reply %q not a float: %w", reply, err)
		}

		if mips > 0 && mips >= bestMIPS {
			bestMIPS = mips
			best = candidate
			anyPositive = true
		}
	}

	if !anyPositive {
		return current, nil
	}
	return best, nil
}

func (p *predictor) Close() error {
	return closePolicyProc(p.proc)
}

func closePolicyProc(proc *procsupervisor.Policy) error {
	if proc == nil || proc.Stdin == nil {
		return nil
	}
	return proc.Stdin.Close()
}
