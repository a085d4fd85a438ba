// Package net implements the neural-network inference engine: it loads a
// residual-tower weight file, prepares the filters for the compute backends
// (Winograd transform, batch-norm folding), selects the fastest backend,
// and evaluates board positions into a move-probability distribution and a
// win-rate estimate, with symmetry-aware result caching and an optional
// cross-backend self-check.
package net

import "time"

// Board symmetries. Index 0 is the identity.
const (
	NumSymmetries    = 8
	IdentitySymmetry = 0
)

// Input tensor layout. Planes are board-sized and channel-major: per side
// eight history planes, a komi pair, a legality-exclusion plane, four liberty
// bucket planes per side, ladder capture/escape planes and a side-to-move
// pair.
const (
	inputMoves    = 8
	libertyPlanes = 4
	inputChannels = 2*inputMoves + 2 + 1 + 2*libertyPlanes + 2 + 2
)

// Output head dimensions.
const (
	outputsPolicy = 2
	outputsValue  = 1
	valueHidden   = 256
)

// trainedUnitKomi is the komi the network was trained against; komi feature
// values are normalized relative to it.
const trainedUnitKomi = 7.5

// Ensemble selects how per-symmetry evaluations combine into one result.
type Ensemble int

const (
	// Direct evaluates exactly the requested symmetry.
	Direct Ensemble = iota
	// Average evaluates all eight symmetries and averages uniformly.
	Average
	// RandomSymmetry evaluates one uniformly chosen symmetry.
	RandomSymmetry
)

// Precision selects the numeric precision of an accelerated backend.
type Precision int

const (
	// PrecisionAuto benchmarks reduced against single precision and keeps
	// the faster of the two.
	PrecisionAuto Precision = iota
	PrecisionSingle
	PrecisionHalf
)

func (p Precision) String() string {
	switch p {
	case PrecisionSingle:
		return "single"
	case PrecisionHalf:
		return "half"
	}
	return "auto"
}

// Result is the outcome of one network evaluation: a policy distribution
// over board points, a pass probability, and a win rate in [0, 1] for the
// side to move. Results are immutable once returned.
type Result struct {
	Policy     []float32 `json:"policy"`
	PolicyPass float32   `json:"policy_pass"`
	Winrate    float32   `json:"winrate"`
}

func newResult(intersections int) Result {
	return Result{Policy: make([]float32, intersections)}
}

// Config is the engine configuration consumed at construction time.
type Config struct {
	// BoardSize is the board edge length the network evaluates. It must
	// match the loaded weight set. Defaults to 19.
	BoardSize int

	// Precision selects the accelerated backend precision.
	Precision Precision

	// CPUOnly forces the vectorized CPU backend and disables the
	// self-check (there is no second implementation to check against).
	CPUOnly bool

	// SelfCheck builds an independent CPU pipeline and statistically
	// cross-checks accelerated results against it.
	SelfCheck bool

	// Threads is the number of concurrent evaluation workers assumed by
	// the throughput benchmark. Defaults to runtime.NumCPU().
	Threads int

	// SoftmaxTemp is the policy softmax temperature. Defaults to 1.
	SoftmaxTemp float32

	// Playouts is the expected search workload per move; it sizes the
	// result cache.
	Playouts int

	// Noise and RandomMoves mirror the self-play exploration settings.
	// When either is active the symmetry cache probe is skipped, since
	// self-play positions must not alias across orientations.
	Noise       bool
	RandomMoves int

	// SymmetryProbeMoves is the move-number window within which cache
	// probes also try the seven non-identity symmetry hashes. 0 selects
	// the default of boardSize*boardSize/12; probing stops at half the
	// window.
	SymmetryProbeMoves int

	// DiskCachePath, when non-empty, persists evaluation results to a
	// BadgerDB store at that directory, keyed by the weight-file digest.
	DiskCachePath string

	// BenchmarkDuration is the per-candidate duration of the precision
	// autodetect benchmark. 0 selects one second.
	BenchmarkDuration time.Duration
}

func (c Config) withDefaults() Config {
	if c.BoardSize == 0 {
		c.BoardSize = 19
	}
	if c.SoftmaxTemp == 0 {
		c.SoftmaxTemp = 1
	}
	if c.SymmetryProbeMoves == 0 {
		c.SymmetryProbeMoves = c.BoardSize * c.BoardSize / 12
	}
	if c.BenchmarkDuration == 0 {
		c.BenchmarkDuration = time.Second
	}
	return c
}
