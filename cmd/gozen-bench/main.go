package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/hailam/gozen/internal/game"
	"github.com/hailam/gozen/internal/net"
	"github.com/hailam/gozen/internal/paths"
)

var (
	weightsFile = flag.String("weights", "", "network weight file (.txt or .txt.gz)")
	boardSize   = flag.Int("size", 19, "board size")
	threads     = flag.Int("threads", 0, "evaluation threads (0 = all CPUs)")
	precision   = flag.String("precision", "auto", "backend precision: auto, single or half")
	cpuOnly     = flag.Bool("cpu-only", false, "force the CPU backend")
	selfCheck   = flag.Bool("selfcheck", false, "cross-check results against the CPU backend")
	playouts    = flag.Int("playouts", 1600, "expected playouts per move (sizes the result cache)")
	iterations  = flag.Int("iterations", 1600, "benchmark evaluations")
	diskCache   = flag.Bool("cache", false, "persist evaluations to the on-disk cache")
	heatmap     = flag.Bool("heatmap", false, "print a policy heatmap of the empty board")
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	if *weightsFile == "" {
		log.Fatal("no weight file given, use -weights")
	}

	ws, err := net.LoadWeightsFile(*weightsFile)
	if err != nil {
		log.Fatalf("loading %s: %v", *weightsFile, err)
	}

	cfg := net.Config{
		BoardSize:         *boardSize,
		Precision:         parsePrecision(*precision),
		CPUOnly:           *cpuOnly,
		SelfCheck:         *selfCheck,
		Threads:           *threads,
		Playouts:          *playouts,
		BenchmarkDuration: time.Second,
	}
	if *diskCache {
		cacheDir, err := paths.CacheDir()
		if err != nil {
			log.Fatalf("resolving cache directory: %v", err)
		}
		cfg.DiskCachePath = filepath.Join(cacheDir, fmt.Sprintf("%016x", ws.Digest))
	}

	engine, err := net.New(cfg, ws)
	if err != nil {
		log.Fatalf("initializing network: %v", err)
	}
	defer engine.Close()

	state := game.NewPosition(*boardSize, 7.5)
	engine.Benchmark(state, *iterations)
	log.Printf("cache hit rate: %.1f%%", engine.CacheHitRate())

	if *heatmap {
		result := engine.GetOutput(state, net.Average, 0, true)
		fmt.Print(engine.Heatmap(state, result))
	}
}

func parsePrecision(s string) net.Precision {
	switch s {
	case "single":
		return net.PrecisionSingle
	case "half":
		return net.PrecisionHalf
	case "auto":
		return net.PrecisionAuto
	}
	log.Fatalf("unknown precision %q, want auto, single or half", s)
	return net.PrecisionAuto
}
