package loop

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"clustersched/internal/config"
	"clustersched/internal/metrics"
	"clustersched/internal/perfsampler"
	"clustersched/internal/procsupervisor"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter records every tick it receives and returns a scripted
// sequence of next states.
type fakeAdapter struct {
	states []config.ClusterState
	i      int
	ticks  []metrics.Tick
}

func (f *fakeAdapter) Tick(m metrics.Tick, current config.ClusterState) (config.ClusterState, error) {
	f.ticks = append(f.ticks, m)
	if f.i >= len(f.states) {
		return current, nil
	}
	s := f.states[f.i]
	f.i++
	return s, nil
}

func (f *fakeAdapter) Close() error { return nil }

func TestRunWritesElapsedFileOnImmediateExit(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldWD)

	// A Workload whose Cmd.Process is nil makes PollWorkload report
	// StatusError, which Run treats as not alive, so Run should perform
	// exactly one final tick and return.
	w := &procsupervisor.Workload{Cmd: &exec.Cmd{}, PID: 12345, StartTime: time.Now()}
	sampler := &perfsampler.Sampler{}
	adapter := &fakeAdapter{states: []config.ClusterState{config.ClusterBig}}

	Run(w, sampler, adapter, 999, nil, uuid.New(), config.ModeCollect)

	data, err := os.ReadFile(config.TimePath(999))
	require.NoError(t, err)
	assert.NotEmpty(t, string(data))
	assert.Len(t, adapter.ticks, 1)
}
