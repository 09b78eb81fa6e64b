package l2ppa

import (
	"errors"
	"fmt"
)

// Kernel is an immutable set of smoothing weights, oldest sample first.
type Kernel struct {
	weights []float64
	sum     float64
}

// defaultKernelWeights weights the most recent samples highest.
var defaultKernelWeights = []float64{1, 1, 2, 5, 10}

// DefaultKernel returns the [1, 1, 2, 5, 10] kernel.
func DefaultKernel() Kernel {
	k, _ := NewKernel(defaultKernelWeights)
	return k
}

// NewKernel validates and copies the weights.
func NewKernel(weights []float64) (Kernel, error) {
	if len(weights) == 0 {
		return Kernel{}, errors.New("smoothing kernel must have at least one weight")
	}
	w := make([]float64, len(weights))
	var sum float64
	for i, v := range weights {
		if v < 0 {
			return Kernel{}, fmt.Errorf("smoothing kernel weight %d is negative: %g", i, v)
		}
		w[i] = v
		sum += v
	}
	if sum <= 0 {
		return Kernel{}, errors.New("smoothing kernel weights must not sum to zero")
	}
	return Kernel{weights: w, sum: sum}, nil
}

// Len returns the number of weights.
func (k Kernel) Len() int { return len(k.weights) }

// Weights returns a copy of the weights.
func (k Kernel) Weights() []float64 {
	out := make([]float64, len(k.weights))
	copy(out, k.weights)
	return out
}

// SpeedSmoother keeps the last Kernel.Len() speed samples and returns their
// weighted average.
type SpeedSmoother struct {
	kernel Kernel
	buf    []float64 // ring buffer, len == kernel.Len()
	next   int
	count  int
}

// NewSpeedSmoother creates a smoother. A zero Kernel falls back to
// DefaultKernel.
func NewSpeedSmoother(kernel Kernel) *SpeedSmoother {
	if kernel.Len() == 0 {
		kernel = DefaultKernel()
	}
	return &SpeedSmoother{
		kernel: kernel,
		buf:    make([]float64, kernel.Len()),
	}
}

// Add records a raw speed sample, evicting the oldest once the window is full.
func (s *SpeedSmoother) Add(speed float64) {
	s.buf[s.next] = speed
	s.next = (s.next + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
}

// Len returns the number of samples currently held.
func (s *SpeedSmoother) Len() int { return s.count }

// Average returns the smoothed speed. Until the window is full the most
// recent raw sample is returned unchanged. ok is false when no sample has
// been added since the last reset.
func (s *SpeedSmoother) Average() (avg float64, ok bool) {
	if s.count == 0 {
		return 0, false
	}
	n := len(s.buf)
	if s.count < n {
		return s.buf[(s.next-1+n)%n], true
	}
	var total float64
	// s.next is the oldest sample once the window is full
	for i, w := range s.kernel.weights {
		total += w * s.buf[(s.next+i)%n]
	}
	return total / s.kernel.sum, true
}

// Reset clears the window so smoothing never spans a broken sequence.
func (s *SpeedSmoother) Reset() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.next = 0
	s.count = 0
}
