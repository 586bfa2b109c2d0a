// Package config holds the build-time and launch-time constants that shape
// a supervisor run: the active scheduling mode, the cluster affinity masks,
// the tick period, and the small set of environment-variable overrides used
// for local testing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Mode selects which policy adapter drives cluster decisions.
type Mode int

const (
	ModeCollect Mode = iota
	ModePredictor
	ModeAgent
)

func (m Mode) String() string {
	switch m {
	case ModeCollect:
		return "collect"
	case ModePredictor:
		return "predictor"
	case ModeAgent:
		return "agent"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ActiveMode is the build-time scheduling mode. Spec explicitly forbids
// selecting this via a CLI flag (the workload's own argv must pass through
// untouched), so it is a Go constant, optionally overridden at launch via
// SCHED_MODE for local testing — see ResolveMode.
const ActiveMode Mode = ModeCollect

// TickPeriod is the control loop's fixed period.
const TickPeriod = 20 * time.Millisecond

// ClusterState identifies which CPU cluster(s) the workload may run on.
type ClusterState int

const (
	ClusterLittle ClusterState = iota
	ClusterBig
	ClusterBoth
)

func (c ClusterState) String() string {
	switch c {
	case ClusterLittle:
		return "LITTLE"
	case ClusterBig:
		return "BIG"
	case ClusterBoth:
		return "BOTH"
	default:
		return fmt.Sprintf("cluster(%d)", int(c))
	}
}

// InitialClusterState is the cluster state a supervisor starts in.
const InitialClusterState = ClusterBoth

// clusterMasks maps a cluster state to the taskset affinity mask string, for
// an 8-core big.LITTLE layout where cores 0-3 are LITTLE and 4-7 are BIG.
var clusterMasks = map[ClusterState]string{
	ClusterLittle: "0-3",
	ClusterBig:    "4-7",
	ClusterBoth:   "0-7",
}

// Mask returns the taskset affinity mask string for a cluster state.
func Mask(c ClusterState) string {
	mask, ok := clusterMasks[c]
	if !ok {
		return clusterMasks[ClusterBoth]
	}
	return mask
}

// HasBigLittle reports the HAS_BIG/HAS_LITTLE predictor request tokens for a
// candidate cluster state.
func HasBigLittle(c ClusterState) (hasBig, hasLittle int) {
	switch c {
	case ClusterBig:
		return 1, 0
	case ClusterLittle:
		return 0, 1
	default:
		return 1, 1
	}
}

// PredictorCandidates is the enumeration order used for argmax tie-breaking:
// LITTLE, BIG, BOTH — last-seen-wins on equality, so BOTH wins a three-way
// tie and BIG wins a tie against LITTLE. See DESIGN.md for why this resolves
// spec's Open Question on tie-break behavior.
var PredictorCandidates = []ClusterState{ClusterLittle, ClusterBig, ClusterBoth}

// PredictorCommand and AgentCommand are the shell command lines used to
// launch the external policy processes.
const (
	PredictorCommand = "python3 ./predictor.py"
	AgentCommand     = "python3 ./agent.py"
)

// ResolveMode applies the SCHED_MODE environment override, if set, to the
// build-time ActiveMode constant. Absent or unrecognized values leave
// ActiveMode untouched.
func ResolveMode() Mode {
	switch os.Getenv("SCHED_MODE") {
	case "collect":
		return ModeCollect
	case "predictor":
		return ModePredictor
	case "agent":
		return ModeAgent
	default:
		return ActiveMode
	}
}

// DefaultStatusRPCPort is the loopback port the optional status RPC server
// listens on. Setting STATUS_RPC_PORT=0 disables the server entirely.
const DefaultStatusRPCPort = 58426

// StatusRPCPort resolves the STATUS_RPC_PORT override, defaulting to
// DefaultStatusRPCPort. A value of 0 means "disabled".
func StatusRPCPort() int {
	v := os.Getenv("STATUS_RPC_PORT")
	if v == "" {
		return DefaultStatusRPCPort
	}
	port, err := strconv.Atoi(v)
	if err != nil || port < 0 {
		return DefaultStatusRPCPort
	}
	return port
}

// ExecTraceDisabled reports whether the EXECTRACE_DISABLE override is set.
func ExecTraceDisabled() bool {
	return os.Getenv("EXECTRACE_DISABLE") == "1"
}

// CSVPath and TimePath return the two output file names the spec mandates,
// derived from the supervisor's own PID.
func CSVPath(pid int) string {
	return fmt.Sprintf("scheduler_%d.csv", pid)
}

func TimePath(pid int) string {
	return fmt.Sprintf("scheduler_%d.time", pid)
}
