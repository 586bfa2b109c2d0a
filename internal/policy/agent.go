package policy

import (
	"clustersched/internal/config"
	"clustersched/internal/metrics"
	"clustersched/internal/procsupervisor"

	"github.com/sirupsen/logrus"
)

// agent implements Adapter for config.ModeAgent: once per tick it sends a
// single three-token request and maps the textual reply to a cluster state.
type agent struct {
	proc *procsupervisor.Policy
}

func newAgent(proc *procsupervisor.Policy) *agent {
	return &agent{proc: proc}
}

// Tick sends "<MKPI> <BMISS> <IPC>" and maps the reply token per spec §4.D:
// 4L -> LITTLE, 4B -> BIG, 4B4L -> BOTH. Any other token is an
// InvalidPolicyReply (spec §7): log and retain current state.
func (a *agent) Tick(m metrics.Tick, current config.ClusterState) (config.ClusterState, error) {
	err := writeLine(a.proc.Stdin, formatHex(m.MKPI), formatHex(m.BranchMissRate), formatHex(m.IPC))
	if err != nil {
		return current, err
	}

	reply, err := readLine(a.proc.Reader)
	if err != nil {
		return current, err
	}

	switch reply {
	case "4L":
		return config.ClusterLittle, nil
	case "4B":
		return config.ClusterBig, nil
	case "4B4L":
		return config.ClusterBoth, nil
	default:
		logrus.WithField("reply", reply).Warn("policy: unrecognized agent reply, retaining current state")
		return current, nil
	}
}

func (a *agent) Close() error {
	return closePolicyProc(a.proc)
}
