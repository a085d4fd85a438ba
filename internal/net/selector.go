package net

import (
	"fmt"
	"log"
)

// initPipes builds the compute backend(s) per the configured precision and
// pushes the prepared weights into them. With PrecisionAuto and both a
// single and a reduced-precision backend available, each is benchmarked and
// the reduced one is kept only when it is meaningfully faster.
func (n *Network) initPipes() error {
	if n.cfg.CPUOnly {
		log.Printf("network: initializing CPU-only evaluation")
		single, ok := cpuBackend(PrecisionSingle)
		if !ok {
			return fmt.Errorf("net: no CPU backend registered")
		}
		n.forward = n.buildPipe(single)
		return nil
	}

	switch n.cfg.Precision {
	case PrecisionSingle, PrecisionHalf:
		b, ok := registeredBackend(n.cfg.Precision)
		if !ok {
			return fmt.Errorf("net: no backend registered for %s precision", n.cfg.Precision)
		}
		log.Printf("network: using %s backend (%s precision)", b.Name, b.Precision)
		n.forward = n.buildPipe(b)
	case PrecisionAuto:
		if err := n.autodetectPrecision(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("net: unknown precision %d", n.cfg.Precision)
	}

	if n.cfg.SelfCheck {
		single, ok := cpuBackend(PrecisionSingle)
		if !ok {
			return fmt.Errorf("net: self-check needs a CPU backend")
		}
		n.forwardCPU = n.buildPipe(single)
		n.monitor = NewSelfCheckMonitor()
		log.Printf("network: self-check against %s backend enabled", single.Name)
	}
	return nil
}

// autodetectPrecision benchmarks the single and reduced-precision backends
// and keeps the reduced one only when it is at least 5% faster, since
// reduced precision costs accuracy.
func (n *Network) autodetectPrecision() error {
	single, ok := registeredBackend(PrecisionSingle)
	if !ok {
		return fmt.Errorf("net: no single-precision backend registered")
	}
	half, ok := registeredBackend(PrecisionHalf)
	if !ok {
		log.Printf("network: no reduced-precision backend, using %s", single.Name)
		n.forward = n.buildPipe(single)
		return nil
	}

	log.Printf("network: benchmarking backends to determine precision")
	n.forward = n.buildPipe(single)
	scoreSingle := n.BenchmarkTime(n.cfg.BenchmarkDuration)
	n.forward = n.buildPipe(half)
	scoreHalf := n.BenchmarkTime(n.cfg.BenchmarkDuration)
	log.Printf("network: %s %.0f n/s, %s %.0f n/s", single.Name, scoreSingle, half.Name, scoreHalf)

	if scoreSingle*1.05 > scoreHalf {
		log.Printf("network: keeping %s (single precision)", single.Name)
		n.forward = n.buildPipe(single)
	} else {
		log.Printf("network: keeping %s (half precision)", half.Name)
	}
	return nil
}

// buildPipe instantiates a backend and pushes the full weight tower into it.
func (n *Network) buildPipe(b Backend) ForwardPipe {
	ws := n.weights
	pipe := b.New(n.cfg.BoardSize)
	pipe.Initialize(ws.Channels)
	pipe.PushInputConvolution(winogradAlpha, inputChannels, ws.Channels, ConvBlock{
		Weights: ws.ConvWeights[0],
		Means:   ws.BNMeans[0],
		Stddevs: ws.BNStddevs[0],
		Alphas:  ws.Alphas[0],
	})
	for i := 0; i < ws.ResidualBlocks; i++ {
		conv1 := ConvBlock{
			Weights: ws.ConvWeights[1+2*i],
			Means:   ws.BNMeans[1+2*i],
			Stddevs: ws.BNStddevs[1+2*i],
			Alphas:  ws.Alphas[1+2*i],
		}
		conv2 := ConvBlock{
			Weights: ws.ConvWeights[2+2*i],
			Means:   ws.BNMeans[2+2*i],
			Stddevs: ws.BNStddevs[2+2*i],
			Alphas:  ws.Alphas[2+2*i],
		}
		se := SEBlock{
			FC1W: ws.SEFC1W[i],
			FC1B: ws.SEFC1B[i],
			FC2W: ws.SEFC2W[i],
			FC2B: ws.SEFC2B[i],
		}
		pipe.PushResidual(winogradAlpha, ws.Channels, ws.Channels, ws.SEHidden, conv1, conv2, se)
	}
	pipe.PushConvolve(1, ws.Channels, outputsPolicy, ws.PolConvW)
	pipe.PushConvolve(1, ws.Channels, outputsValue, ws.ValConvW)
	return pipe
}

// cpuBackend returns the non-accelerated backend for the precision.
func cpuBackend(p Precision) (Backend, bool) {
	backendMu.Lock()
	defer backendMu.Unlock()
	for _, b := range backendReg {
		if b.Precision == p && !b.Accelerated {
			return b, true
		}
	}
	return Backend{}, false
}
