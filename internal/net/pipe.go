package net

import (
	"sort"
	"sync"
)

// ConvBlock bundles the prepared parameters of one 3x3 convolution: filter
// weights in the Winograd domain, folded batch-norm mean and stddev, and
// per-channel activation slopes.
type ConvBlock struct {
	Weights []float32
	Means   []float32
	Stddevs []float32
	Alphas  []float32
}

// SEBlock bundles the squeeze-excite bottleneck of a residual block.
type SEBlock struct {
	FC1W []float32
	FC1B []float32
	FC2W []float32
	FC2B []float32
}

// ForwardPipe is the compute-backend capability. A pipe receives the
// prepared weights once, in tower order, and then serves forward passes.
// Forward calls are blocking and must be safe for concurrent use; weight
// pushes happen strictly before the first Forward.
type ForwardPipe interface {
	// Initialize declares the tower width before any weights are pushed.
	Initialize(channels int)

	// PushInputConvolution installs the input layer.
	PushInputConvolution(filterSize, inputChannels, outputs int, conv ConvBlock)

	// PushResidual appends one residual block to the tower.
	PushResidual(filterSize, channels, outputs, seHidden int, conv1, conv2 ConvBlock, se SEBlock)

	// PushConvolve appends a 1x1 head convolution; the first call is the
	// policy head, the second the value head.
	PushConvolve(filterSize, inputChannels, outputs int, weights []float32)

	// Forward runs one inference, writing the policy and value feature
	// planes into the provided slices.
	Forward(input, policy, value []float32)
}

// PipeFactory builds a ForwardPipe for the given board size.
type PipeFactory func(boardSize int) ForwardPipe

// Backend describes a registered compute-backend variant. Accelerated
// backends (GPU and the like) register themselves from their own packages;
// the vectorized CPU variants are always present.
type Backend struct {
	Name        string
	Precision   Precision
	Accelerated bool
	New         PipeFactory
}

var (
	backendMu  sync.Mutex
	backendReg []Backend
)

// RegisterBackend adds a compute backend to the selection registry.
// Typically called from a backend package's init.
func RegisterBackend(b Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendReg = append(backendReg, b)
}

// registeredBackend returns the preferred backend for the given precision:
// an accelerated one if any is registered, otherwise the CPU variant.
func registeredBackend(p Precision) (Backend, bool) {
	backendMu.Lock()
	defer backendMu.Unlock()
	candidates := make([]Backend, 0, len(backendReg))
	for _, b := range backendReg {
		if b.Precision == p {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return Backend{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Accelerated && !candidates[j].Accelerated
	})
	return candidates[0], true
}
