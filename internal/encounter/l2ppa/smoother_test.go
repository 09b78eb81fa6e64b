package l2ppa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedSmootherWarmup(t *testing.T) {
	t.Parallel()

	s := NewSpeedSmoother(DefaultKernel())
	_, ok := s.Average()
	assert.False(t, ok)

	for i, v := range []float64{3, 7, 1, 9} {
		s.Add(v)
		avg, ok := s.Average()
		require.True(t, ok)
		assert.Equal(t, v, avg, "sample %d should pass through unsmoothed", i)
	}
}

func TestSpeedSmootherWeightedAverage(t *testing.T) {
	t.Parallel()

	s := NewSpeedSmoother(DefaultKernel())
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Add(v)
	}
	avg, ok := s.Average()
	require.True(t, ok)
	// (1*1 + 1*2 + 2*3 + 5*4 + 10*5) / 19
	assert.InDelta(t, 79.0/19.0, avg, 1e-12)

	// window slides: oldest sample (1) drops out
	s.Add(6)
	avg, _ = s.Average()
	assert.InDelta(t, (2.0+3+2*4+5*5+10*6)/19.0, avg, 1e-12)
	assert.Equal(t, 5, s.Len(), "memory is bounded by the kernel length")
}

func TestSpeedSmootherReset(t *testing.T) {
	t.Parallel()

	s := NewSpeedSmoother(DefaultKernel())
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Add(v)
	}
	s.Reset()
	assert.Equal(t, 0, s.Len())

	s.Add(42)
	avg, ok := s.Average()
	require.True(t, ok)
	assert.Equal(t, 42.0, avg)
}

func TestNewKernel(t *testing.T) {
	t.Parallel()

	_, err := NewKernel(nil)
	assert.Error(t, err)
	_, err = NewKernel([]float64{1, -1})
	assert.Error(t, err)
	_, err = NewKernel([]float64{0, 0})
	assert.Error(t, err)

	weights := []float64{1, 2}
	k, err := NewKernel(weights)
	require.NoError(t, err)
	weights[0] = 100
	assert.Equal(t, []float64{1, 2}, k.Weights(), "kernel must not alias caller slice")
}
