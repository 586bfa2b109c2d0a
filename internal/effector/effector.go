// Package effector applies a committed cluster-state decision to a live
// workload process by invoking the OS affinity utility, per spec §4.E.
package effector

import (
	"os/exec"
	"strconv"

	"clustersched/internal/config"

	"github.com/sirupsen/logrus"
)

// Apply invokes `taskset -pac <mask> <pid>` for the given cluster state.
// A non-zero exit is an EffectorFailure (spec §7): logged but never fatal.
// The caller is expected to advance its recorded current state to next
// regardless of whether this call succeeds, to avoid per-tick retry storms.
func Apply(next config.ClusterState, pid int) {
	mask := config.Mask(next)
	cmd := exec.Command("taskset", "-pac", mask, strconv.Itoa(pid))
	if out, err := cmd.CombinedOutput(); err != nil {
		logrus.WithFields(logrus.Fields{
			"mask":   mask,
			"pid":    pid,
			"output": string(out),
		}).WithError(err).Warn("effector: taskset failed, advancing state anyway")
	}
}
