package perfsampler

import (
	"testing"

	perf "github.com/mahendrapaipuri/perf-utils"
	"github.com/stretchr/testify/assert"
)

func TestRawDelta(t *testing.T) {
	t.Run("nil_current", func(t *testing.T) {
		assert.Equal(t, uint64(0), rawDelta(&perf.ProfileValue{Value: 10}, nil))
	})

	t.Run("nil_prev_treated_as_zero", func(t *testing.T) {
		assert.Equal(t, uint64(42), rawDelta(nil, &perf.ProfileValue{Value: 42}))
	})

	t.Run("normal_increase", func(t *testing.T) {
		prev := &perf.ProfileValue{Value: 100}
		cur := &perf.ProfileValue{Value: 150}
		assert.Equal(t, uint64(50), rawDelta(prev, cur))
	})

	t.Run("no_change", func(t *testing.T) {
		prev := &perf.ProfileValue{Value: 100}
		cur := &perf.ProfileValue{Value: 100}
		assert.Equal(t, uint64(0), rawDelta(prev, cur))
	})

	t.Run("counter_reset_treated_as_zero", func(t *testing.T) {
		prev := &perf.ProfileValue{Value: 500}
		cur := &perf.ProfileValue{Value: 10}
		assert.Equal(t, uint64(0), rawDelta(prev, cur))
	})
}

func TestSamplerNProcsOnZeroValue(t *testing.T) {
	var s Sampler
	assert.Equal(t, 0, s.NProcs())
	assert.Equal(t, Sample{}, s.ConsumeHW(0))
}

func TestSamplerShutdownOnNil(t *testing.T) {
	var s *Sampler
	assert.NotPanics(t, func() { s.Shutdown() })
}
