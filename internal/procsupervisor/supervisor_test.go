package procsupervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumPcpu(t *testing.T) {
	t.Run("single_thread", func(t *testing.T) {
		assert.InDelta(t, 12.3, sumPcpu("12.3\n"), 1e-9)
	})

	t.Run("multi_thread_aggregation", func(t *testing.T) {
		assert.InDelta(t, 145.5, sumPcpu("70.0\n50.5\n25.0\n"), 1e-9)
	})

	t.Run("blank_lines_ignored", func(t *testing.T) {
		assert.InDelta(t, 10.0, sumPcpu("\n10.0\n\n"), 1e-9)
	})

	t.Run("unparseable_lines_skipped", func(t *testing.T) {
		assert.InDelta(t, 5.0, sumPcpu("not-a-number\n5.0\n"), 1e-9)
	})

	t.Run("empty_output", func(t *testing.T) {
		assert.Equal(t, 0.0, sumPcpu(""))
	})
}

func TestPollWorkloadNilHandle(t *testing.T) {
	assert.Equal(t, StatusError, PollWorkload(nil))
}

func TestTerminateAllIdempotentOnNilHandles(t *testing.T) {
	assert.NotPanics(t, func() {
		TerminateAll(nil, nil)
		TerminateAll(nil, nil)
	})
}

func TestSpawnWorkloadRejectsEmptyArgv(t *testing.T) {
	_, err := SpawnWorkload(nil)
	assert.Error(t, err)
}

func TestPollWorkloadObservesExitViaReaper(t *testing.T) {
	w, err := SpawnWorkload([]string{"true"})
	require.NoError(t, err)

	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		t.Fatal("reaper goroutine never closed done")
	}
	assert.Equal(t, StatusExited, PollWorkload(w))
}
