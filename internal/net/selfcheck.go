package net

import (
	"errors"
	"math"
	"sync"
)

// Self-check thresholds: a comparison fails when any output differs from the
// reference backend by more than the relative tolerance, and the check
// escalates when enough of the recent comparisons failed.
const (
	selfCheckTolerance   = 2e-1
	selfCheckWindow      = 10
	selfCheckMaxFailures = 3

	// Outputs below this floor are rounded up before the ratio, so noise
	// in near-zero policy entries is not treated as divergence.
	selfCheckFloor = 1.0 / 361.0

	// One self-check per this many RandomSymmetry evaluations.
	selfCheckInterval = 2000
)

// ErrSelfCheck reports sustained divergence between the gameplay backend and
// the reference CPU backend. It is not recoverable: it indicates a broken
// accelerator, not floating-point noise.
var ErrSelfCheck = errors.New("net: self-check mismatch: accelerator results diverge from CPU reference")

// SelfCheckMonitor keeps a sliding window of cross-backend comparison
// outcomes and escalates once failures accumulate. Safe for concurrent use.
type SelfCheckMonitor struct {
	mu     sync.Mutex
	window []bool
}

// NewSelfCheckMonitor creates an empty monitor.
func NewSelfCheckMonitor() *SelfCheckMonitor {
	return &SelfCheckMonitor{}
}

// Record adds one comparison outcome. It returns ErrSelfCheck when the
// failure count within the sliding window reaches the escalation threshold.
func (m *SelfCheckMonitor) Record(fail bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = append(m.window, fail)
	if fail {
		count := 0
		for _, f := range m.window {
			if f {
				count++
			}
		}
		if count >= selfCheckMaxFailures {
			return ErrSelfCheck
		}
	}
	for len(m.window) >= selfCheckWindow {
		m.window = m.window[1:]
	}
	return nil
}

// relativeDifference compares two outputs. NaN on either side or a sign
// mismatch between non-negligible values counts as maximal divergence;
// values below the floor are clamped up before the ratio.
func relativeDifference(a, b float32) float32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return math.MaxFloat32
	}

	fa := float32(math.Abs(float64(a)))
	fb := float32(math.Abs(float64(b)))

	if fa > selfCheckFloor && fb > selfCheckFloor {
		if (a < 0) != (b < 0) {
			return math.MaxFloat32
		}
	} else {
		if fa < selfCheckFloor {
			fa = selfCheckFloor
		}
		if fb < selfCheckFloor {
			fb = selfCheckFloor
		}
	}

	diff := fa - fb
	if diff < 0 {
		diff = -diff
	}
	min := fa
	if fb < min {
		min = fb
	}
	return diff / min
}

// compareResults reports whether two evaluations of the same position
// diverge beyond the tolerance in any policy entry, the pass probability or
// the win rate.
func compareResults(data, ref Result) bool {
	for i := range data.Policy {
		if relativeDifference(data.Policy[i], ref.Policy[i]) > selfCheckTolerance {
			return true
		}
	}
	if relativeDifference(data.PolicyPass, ref.PolicyPass) > selfCheckTolerance {
		return true
	}
	if relativeDifference(data.Winrate, ref.Winrate) > selfCheckTolerance {
		return true
	}
	return false
}
