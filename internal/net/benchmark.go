package net

import (
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/gozen/internal/game"
)

// BenchmarkTime measures raw evaluation throughput in evaluations per
// second: the configured number of worker goroutines hammer the empty
// position with cache bypassed for the given duration.
func (n *Network) BenchmarkTime(d time.Duration) float64 {
	var count atomic.Int64
	start := time.Now()

	var g errgroup.Group
	for t := 0; t < n.cfg.Threads; t++ {
		g.Go(func() error {
			state := game.NewPosition(n.cfg.BoardSize, trainedUnitKomi)
			for time.Since(start) < d {
				n.GetOutput(state, RandomSymmetry, -1, true)
				count.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	elapsed := time.Since(start).Seconds()
	return float64(count.Load()) / elapsed
}

// Benchmark runs a fixed number of evaluations of the given position across
// the configured workers and logs the throughput.
func (n *Network) Benchmark(state *game.Position, iterations int) {
	var remaining atomic.Int64
	remaining.Store(int64(iterations))
	start := time.Now()

	var g errgroup.Group
	for t := 0; t < n.cfg.Threads; t++ {
		g.Go(func() error {
			local := state.Copy()
			for remaining.Add(-1) >= 0 {
				n.GetOutput(local, RandomSymmetry, -1, true)
			}
			return nil
		})
	}
	g.Wait()

	elapsed := time.Since(start).Seconds()
	log.Printf("network: %d evaluations in %.2f seconds -> %d n/s",
		iterations, elapsed, int(float64(iterations)/elapsed))
}
