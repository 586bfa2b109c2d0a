// Package procsupervisor owns the two child processes a supervisor run can
// have: the workload under test and, in predictor/agent mode, the external
// policy process. It is the only package that forks, execs, signals, or
// waits on a child.
package procsupervisor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Workload is the supervised target process.
type Workload struct {
	Cmd       *exec.Cmd
	PID       int
	StartTime time.Time

	// done is closed by the reaper goroutine SpawnWorkload starts, once
	// cmd.Wait() returns. PollWorkload reads it non-blockingly; nothing
	// else may call Cmd.Wait() on a Workload while the reaper owns it.
	done chan struct{}
}

// Policy is the external predictor/agent process, reached over a pair of
// anonymous pipes: writes to Stdin reach the policy's stdin, and Reader
// accumulates bytes from the policy's stdout up to the next newline.
type Policy struct {
	Cmd    *exec.Cmd
	PID    int
	Stdin  io.WriteCloser
	Reader *bufio.Reader
	stdout io.ReadCloser
}

// SpawnWorkload forks and execs the workload with the supervisor's own
// (inherited) environment. The workload is placed in its own process group
// so a Ctrl+C delivered to the supervisor's terminal does not also reach it
// directly — terminate_all is the only path that signals it.
func SpawnWorkload(argv []string) (*Workload, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("procsupervisor: empty workload argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("procsupervisor: spawn workload: %w", err)
	}

	w := &Workload{
		Cmd:       cmd,
		PID:       cmd.Process.Pid,
		StartTime: time.Now(),
		done:      make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(w.done)
	}()

	logrus.WithField("pid", w.PID).WithField("argv", argv).Info("procsupervisor: workload started")
	return w, nil
}

// SpawnPolicy creates two anonymous pipes and forks-execs shellCommand via
// the shell. The policy child's stdin is our write end; its stdout is our
// read end. It receives SIGTERM when the supervisor dies (parent-death
// signal), so a crashed supervisor never leaves an orphaned policy process
// behind.
func SpawnPolicy(shellCommand string) (*Policy, error) {
	cmd := exec.Command("/bin/sh", "-c", shellCommand)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("procsupervisor: policy stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("procsupervisor: policy stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("procsupervisor: spawn policy: %w", err)
	}

	p := &Policy{
		Cmd:    cmd,
		PID:    cmd.Process.Pid,
		Stdin:  stdin,
		Reader: bufio.NewReader(stdout),
		stdout: stdout,
	}
	logrus.WithField("pid", p.PID).WithField("command", shellCommand).Info("procsupervisor: policy process started")
	return p, nil
}

// WorkloadStatus is the result of a non-blocking liveness check.
type WorkloadStatus int

const (
	StatusAlive WorkloadStatus = iota
	StatusExited
	StatusError
)

// PollWorkload non-blockingly checks whether the workload has exited. A
// zombie (exited but unreaped) process would still answer a signal-0
// liveness probe, so this instead checks w.done, which only closes once
// the reaper goroutine's cmd.Wait() has actually returned.
func PollWorkload(w *Workload) WorkloadStatus {
	if w == nil || w.Cmd.Process == nil {
		return StatusError
	}
	select {
	case <-w.done:
		return StatusExited
	default:
		return StatusAlive
	}
}

// WorkloadCPUUsage returns the workload's current CPU percentage, computed
// by invoking the OS `ps` utility with multi-thread aggregation (-L lists
// one row per thread) and summing the per-thread %CPU column. A parse
// failure yields 0.0 and is never fatal.
func WorkloadCPUUsage(pid int) float64 {
	out, err := exec.Command("ps", "-L", "-p", strconv.Itoa(pid), "-o", "pcpu=").Output()
	if err != nil {
		logrus.WithError(err).WithField("pid", pid).Debug("procsupervisor: ps invocation failed")
		return 0.0
	}
	return sumPcpu(string(out))
}

// sumPcpu parses the output of `ps ... -o pcpu=` (one %CPU value per
// thread, no header) and sums the per-thread percentages. Lines that fail
// to parse are skipped rather than treated as fatal.
func sumPcpu(output string) float64 {
	var total float64
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return total
}

// TerminateAll sends SIGTERM to the policy and workload (if present), waits
// for each, and closes the policy pipes. It is idempotent: calling it more
// than once, or with either handle nil, is safe.
func TerminateAll(w *Workload, p *Policy) {
	if p != nil {
		terminatePolicy(p)
	}
	if w != nil {
		terminateWorkload(w)
	}
}

func terminatePolicy(p *Policy) {
	if p.Cmd == nil || p.Cmd.Process == nil {
		return
	}
	if err := p.Cmd.Process.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
		logrus.WithError(err).WithField("pid", p.PID).Debug("procsupervisor: signal policy")
	}
	_ = p.Cmd.Wait()
	if p.Stdin != nil {
		_ = p.Stdin.Close()
		p.Stdin = nil
	}
	if p.stdout != nil {
		_ = p.stdout.Close()
		p.stdout = nil
	}
	p.Cmd = nil
}

func terminateWorkload(w *Workload) {
	if w.Cmd == nil || w.Cmd.Process == nil {
		return
	}
	if PollWorkload(w) == StatusAlive {
		if err := w.Cmd.Process.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
			logrus.WithError(err).WithField("pid", w.PID).Debug("procsupervisor: signal workload")
		}
	}
	// cmd.Wait() is only ever called by the reaper goroutine started in
	// SpawnWorkload; calling it again here would race on the same *exec.Cmd.
	<-w.done
	w.Cmd = nil
}
