package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	t.Run("normal_values", func(t *testing.T) {
		tick := Compute(1000, 500, 5, 200, 10, 42.5, 100)
		assert.InDelta(t, 10.0, tick.MKPI, 1e-9)          // 5*1000/500
		assert.InDelta(t, 0.05, tick.BranchMissRate, 1e-9) // 10/200
		assert.InDelta(t, 0.5, tick.IPC, 1e-9)             // 500/1000
		assert.Equal(t, 42.5, tick.CPUPercent)
		assert.Equal(t, uint64(100), tick.ElapsedMS)
	})

	t.Run("zero_instructions_guards_mkpi_and_ipc", func(t *testing.T) {
		tick := Compute(1000, 0, 5, 200, 10, 0, 0)
		assert.Equal(t, 0.0, tick.MKPI)
		assert.InDelta(t, 0.05, tick.BranchMissRate, 1e-9)
	})

	t.Run("zero_cycles_guards_ipc", func(t *testing.T) {
		tick := Compute(0, 500, 5, 200, 10, 0, 0)
		assert.Equal(t, 0.0, tick.IPC)
	})

	t.Run("zero_branches_guards_branch_miss_rate", func(t *testing.T) {
		tick := Compute(1000, 500, 5, 0, 0, 0, 0)
		assert.Equal(t, 0.0, tick.BranchMissRate)
	})

	t.Run("all_zero_tick", func(t *testing.T) {
		tick := Compute(0, 0, 0, 0, 0, 0, 0)
		assert.Equal(t, Tick{}, tick)
	})
}

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 0.0, safeDiv(5, 0))
	assert.InDelta(t, 2.5, safeDiv(5, 2), 1e-9)
}
