package net

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/hailam/gozen/internal/game"
)

// Network is the evaluation engine: prepared weights, the selected compute
// backend, the symmetry table and the result caches. Safe for concurrent
// GetOutput calls.
type Network struct {
	cfg           Config
	weights       *WeightSet
	symmetry      *SymmetryTable
	cache         *ResultCache
	disk          *DiskCache
	forward       ForwardPipe
	forwardCPU    ForwardPipe
	monitor       *SelfCheckMonitor
	intersections int
}

// New builds an engine around a loaded weight set. It prepares the weights
// for inference, selects and benchmarks the compute backend and opens the
// caches. The weight set must describe the configured board size.
func New(cfg Config, ws *WeightSet) (*Network, error) {
	cfg = cfg.withDefaults()
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.NumCPU()
	}
	if ws.BoardSize != cfg.BoardSize {
		return nil, fmt.Errorf("net: weights are for a %dx%d board, config wants %dx%d",
			ws.BoardSize, ws.BoardSize, cfg.BoardSize, cfg.BoardSize)
	}

	ws.prepare()

	n := &Network{
		cfg:           cfg,
		weights:       ws,
		symmetry:      NewSymmetryTable(cfg.BoardSize),
		cache:         NewResultCache(CacheSizeForPlayouts(cfg.Playouts)),
		intersections: cfg.BoardSize * cfg.BoardSize,
	}

	if cfg.DiskCachePath != "" {
		disk, err := OpenDiskCache(cfg.DiskCachePath, ws.Digest)
		if err != nil {
			return nil, fmt.Errorf("net: open disk cache: %w", err)
		}
		n.disk = disk
	}

	if err := n.initPipes(); err != nil {
		n.Close()
		return nil, err
	}

	log.Printf("network: %d channels, %d residual blocks, %dx%d board",
		ws.Channels, ws.ResidualBlocks, cfg.BoardSize, cfg.BoardSize)
	return n, nil
}

// Close releases the disk cache, if any.
func (n *Network) Close() error {
	if n.disk == nil {
		return nil
	}
	err := n.disk.Close()
	n.disk = nil
	return err
}

// CacheHitRate reports the in-memory result cache hit rate as a percentage.
func (n *Network) CacheHitRate() float64 { return n.cache.HitRate() }

// GetOutput evaluates a position. Direct evaluates exactly the given
// symmetry, Average combines all eight, RandomSymmetry picks one at random
// (pass symmetry -1). Results are cached under the position hash unless
// skipCache is set; a position of the wrong board size yields a zero result.
func (n *Network) GetOutput(state *game.Position, ensemble Ensemble, symmetry int, skipCache bool) Result {
	if state.Size() != n.cfg.BoardSize {
		return newResult(n.intersections)
	}

	if !skipCache {
		if result, ok := n.probeCache(state); ok {
			return result
		}
	}

	var result Result
	switch ensemble {
	case Direct:
		if symmetry < 0 || symmetry >= NumSymmetries {
			panic(fmt.Sprintf("net: direct evaluation needs a symmetry in [0, %d), got %d", NumSymmetries, symmetry))
		}
		result = n.getOutputInternal(n.forward, state, symmetry)
	case Average:
		result = newResult(n.intersections)
		for sym := 0; sym < NumSymmetries; sym++ {
			part := n.getOutputInternal(n.forward, state, sym)
			for i := range part.Policy {
				result.Policy[i] += part.Policy[i] / NumSymmetries
			}
			result.PolicyPass += part.PolicyPass / NumSymmetries
			result.Winrate += part.Winrate / NumSymmetries
		}
	case RandomSymmetry:
		if symmetry != -1 {
			panic(fmt.Sprintf("net: random-symmetry evaluation takes symmetry -1, got %d", symmetry))
		}
		sym := rand.IntN(NumSymmetries)
		result = n.getOutputInternal(n.forward, state, sym)
		if n.monitor != nil && rand.IntN(selfCheckInterval) == 0 {
			reference := n.getOutputInternal(n.forwardCPU, state, sym)
			if err := n.monitor.Record(compareResults(result, reference)); err != nil {
				panic(err)
			}
		}
	default:
		panic(fmt.Sprintf("net: unknown ensemble %d", ensemble))
	}

	n.cache.Insert(state.Hash(), result)
	if n.disk != nil {
		if err := n.disk.Insert(state.Hash(), result); err != nil {
			log.Printf("network: disk cache insert: %v", err)
		}
	}
	return result
}

// probeCache looks the position up in the memory cache, then the disk
// cache, and early in the game also under the seven non-identity symmetry
// hashes. A symmetry hit has its policy remapped back into board
// orientation.
func (n *Network) probeCache(state *game.Position) (Result, bool) {
	if result, ok := n.cache.Lookup(state.Hash()); ok {
		return result, true
	}
	if n.disk != nil {
		if result, ok := n.disk.Lookup(state.Hash()); ok {
			n.cache.Insert(state.Hash(), result)
			return result, true
		}
	}

	// Self-play exploration must not alias positions across
	// orientations, and late-game positions rarely recur transformed.
	if n.cfg.Noise || n.cfg.RandomMoves > 0 || state.MoveNum() >= n.cfg.SymmetryProbeMoves/2 {
		return Result{}, false
	}
	for sym := 1; sym < NumSymmetries; sym++ {
		result, ok := n.cache.Lookup(state.SymmetryHash(sym))
		if !ok {
			continue
		}
		corrected := newResult(n.intersections)
		corrected.PolicyPass = result.PolicyPass
		corrected.Winrate = result.Winrate
		for idx := 0; idx < n.intersections; idx++ {
			corrected.Policy[idx] = result.Policy[n.symmetry.Map(sym, idx)]
		}
		return corrected, true
	}
	return Result{}, false
}

// getOutputInternal runs one forward pass through the given pipe at the
// given symmetry and applies the output heads.
func (n *Network) getOutputInternal(pipe ForwardPipe, state *game.Position, symmetry int) Result {
	spatial := n.intersections
	input := n.gatherFeatures(state, symmetry)
	policyData := make([]float32, outputsPolicy*spatial)
	valueData := make([]float32, outputsValue*spatial)
	pipe.Forward(input, policyData, valueData)

	ws := n.weights
	batchnormActivate(outputsPolicy, spatial, policyData, ws.BNPolMean, ws.BNPolStddev, ws.PolAlpha, nil)
	policyOut := innerproduct(policyData, ws.IPPolW, ws.IPPolB, spatial+1, false)
	outputs := softmax(policyOut, n.cfg.SoftmaxTemp)

	batchnormActivate(outputsValue, spatial, valueData, ws.BNValMean, ws.BNValStddev, ws.ValAlpha, nil)
	hidden := innerproduct(valueData, ws.IP1ValW, ws.IP1ValB, valueHidden, true)
	valueOut := innerproduct(hidden, ws.IP2ValW, ws.IP2ValB, outputsValue, false)

	result := newResult(spatial)
	winrate := (1 + float32(math.Tanh(float64(valueOut[0])))) / 2
	if ws.ValueHeadBlack && state.ToMove() == game.White {
		winrate = 1 - winrate
	}
	result.Winrate = winrate
	for idx := 0; idx < spatial; idx++ {
		result.Policy[n.symmetry.Map(symmetry, idx)] = outputs[idx]
	}
	result.PolicyPass = outputs[spatial]
	return result
}

// innerproduct computes a fully connected layer; weights are row-major per
// output.
func innerproduct(input, weights, biases []float32, outputs int, relu bool) []float32 {
	out := make([]float32, outputs)
	for o := 0; o < outputs; o++ {
		sum := biases[o]
		row := weights[o*len(input) : (o+1)*len(input)]
		for i, v := range input {
			sum += row[i] * v
		}
		if relu && sum < 0 {
			sum = 0
		}
		out[o] = sum
	}
	return out
}

// softmax converts logits into probabilities at the given temperature,
// shifting by the maximum for numeric stability.
func softmax(input []float32, temp float32) []float32 {
	out := make([]float32, len(input))
	max := input[0]
	for _, v := range input[1:] {
		if v > max {
			max = v
		}
	}
	var denom float32
	for i, v := range input {
		e := float32(math.Exp(float64((v - max) / temp)))
		out[i] = e
		denom += e
	}
	for i := range out {
		out[i] /= denom
	}
	return out
}
