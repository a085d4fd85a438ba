package net

import (
	"fmt"
	"math"
)

func init() {
	RegisterBackend(Backend{Name: "vector", Precision: PrecisionSingle, New: newCPUPipe})
	RegisterBackend(Backend{Name: "vector16", Precision: PrecisionHalf, New: newHalfPipe})
}

// Data and output transform matrices for F(4x4, 3x3), matching the filter
// transform in winograd.go (interpolation points 0, ±1/√2, ±√2, ∞).
var winogradBt = [winogradTile]float32{
	1.0, 0.0, -5.0 / 2.0, 0.0, 1.0, 0.0,
	0.0, -sq2, -2.0, sq2 / 2.0, 1.0, 0.0,
	0.0, sq2, -2.0, -sq2 / 2.0, 1.0, 0.0,
	0.0, -sq2 / 2.0, -1.0 / 2.0, sq2, 1.0, 0.0,
	0.0, sq2 / 2.0, -1.0 / 2.0, -sq2, 1.0, 0.0,
	0.0, 1.0, 0.0, -5.0 / 2.0, 0.0, 1.0,
}

var winogradAt = [winogradM * winogradAlpha]float32{
	1.0, 1.0, 1.0, 1.0, 1.0, 0.0,
	0.0, sq2 / 2.0, -sq2 / 2.0, sq2, -sq2, 0.0,
	0.0, 1.0 / 2.0, 1.0 / 2.0, 2.0, 2.0, 0.0,
	0.0, sq2 / 4.0, -sq2 / 4.0, 2.0 * sq2, -2.0 * sq2, 1.0,
}

type cpuConvLayer struct {
	u       []float32 // Winograd-domain filter, tile dimension outermost
	inCh    int
	outCh   int
	means   []float32
	stddevs []float32
	alphas  []float32
}

type cpuSELayer struct {
	fc1W   []float32
	fc1B   []float32
	fc2W   []float32
	fc2B   []float32
	hidden int
	alphas []float32 // post-block activation slopes
}

type cpuResidual struct {
	conv1 cpuConvLayer
	conv2 cpuConvLayer
	se    cpuSELayer
}

type cpuHead struct {
	w    []float32
	inCh int
	out  int
}

// cpuPipe is the vectorized CPU compute backend. All state is written during
// the weight pushes and read-only afterwards; Forward allocates its scratch
// per call and is safe for concurrent use.
type cpuPipe struct {
	boardSize int
	channels  int
	input     cpuConvLayer
	tower     []cpuResidual
	heads     []cpuHead
}

func newCPUPipe(boardSize int) ForwardPipe {
	return &cpuPipe{boardSize: boardSize}
}

func (p *cpuPipe) Initialize(channels int) {
	p.channels = channels
}

func (p *cpuPipe) PushInputConvolution(filterSize, inputChannels, outputs int, conv ConvBlock) {
	p.input = cpuConvLayer{
		u:       conv.Weights,
		inCh:    inputChannels,
		outCh:   outputs,
		means:   conv.Means,
		stddevs: conv.Stddevs,
		alphas:  conv.Alphas,
	}
}

func (p *cpuPipe) PushResidual(filterSize, channels, outputs, seHidden int, conv1, conv2 ConvBlock, se SEBlock) {
	p.tower = append(p.tower, cpuResidual{
		conv1: cpuConvLayer{
			u: conv1.Weights, inCh: channels, outCh: outputs,
			means: conv1.Means, stddevs: conv1.Stddevs, alphas: conv1.Alphas,
		},
		conv2: cpuConvLayer{
			u: conv2.Weights, inCh: channels, outCh: outputs,
			means: conv2.Means, stddevs: conv2.Stddevs,
		},
		se: cpuSELayer{
			fc1W: se.FC1W, fc1B: se.FC1B, fc2W: se.FC2W, fc2B: se.FC2B,
			hidden: seHidden,
			alphas: conv2.Alphas,
		},
	})
}

func (p *cpuPipe) PushConvolve(filterSize, inputChannels, outputs int, weights []float32) {
	if filterSize != 1 {
		panic(fmt.Sprintf("net: head convolution filter size %d", filterSize))
	}
	p.heads = append(p.heads, cpuHead{w: weights, inCh: inputChannels, out: outputs})
}

func (p *cpuPipe) Forward(input, policy, value []float32) {
	size := p.boardSize
	spatial := size * size

	cur := make([]float32, p.channels*spatial)
	p.winogradConvolve(&p.input, input, cur)
	batchnormActivate(p.channels, spatial, cur, p.input.means, p.input.stddevs, p.input.alphas, nil)

	res := make([]float32, p.channels*spatial)
	tmp := make([]float32, p.channels*spatial)
	for i := range p.tower {
		b := &p.tower[i]
		copy(res, cur)
		p.winogradConvolve(&b.conv1, cur, tmp)
		batchnormActivate(p.channels, spatial, tmp, b.conv1.means, b.conv1.stddevs, b.conv1.alphas, nil)
		p.winogradConvolve(&b.conv2, tmp, cur)
		batchnormActivate(p.channels, spatial, cur, b.conv2.means, b.conv2.stddevs, nil, nil)
		squeezeExcite(&b.se, cur, res, p.channels, spatial)
	}

	p.convolve1x1(&p.heads[0], cur, policy)
	p.convolve1x1(&p.heads[1], cur, value)
}

// winogradConvolve computes one 3x3 convolution of the full board through
// the F(4x4, 3x3) transform: data tiles into the Winograd domain, a batched
// multiply against the pre-transformed filter, and the inverse transform
// back onto the board.
func (p *cpuPipe) winogradConvolve(layer *cpuConvLayer, in, out []float32) {
	size := p.boardSize
	spatial := size * size
	wtiles := (size + winogradM - 1) / winogradM
	tiles := wtiles * wtiles

	v := make([]float32, winogradTile*layer.inCh*tiles)
	m := make([]float32, winogradTile*layer.outCh*tiles)

	var d, t, mm [winogradAlpha * winogradAlpha]float32

	// Transform in: V = Bt . d . B per channel and tile.
	for c := 0; c < layer.inCh; c++ {
		plane := in[c*spatial : (c+1)*spatial]
		for ty := 0; ty < wtiles; ty++ {
			for tx := 0; tx < wtiles; tx++ {
				// 6x6 patch with one-point padding around the 4x4 tile.
				for i := 0; i < winogradAlpha; i++ {
					y := ty*winogradM + i - 1
					for j := 0; j < winogradAlpha; j++ {
						x := tx*winogradM + j - 1
						if x < 0 || x >= size || y < 0 || y >= size {
							d[i*winogradAlpha+j] = 0
						} else {
							d[i*winogradAlpha+j] = plane[y*size+x]
						}
					}
				}
				matmulAlpha(winogradBt[:], d[:], t[:])
				matmulAlphaT(t[:], winogradBt[:], mm[:])
				tile := ty*wtiles + tx
				for b := 0; b < winogradTile; b++ {
					v[b*layer.inCh*tiles+c*tiles+tile] = mm[b]
				}
			}
		}
	}

	// Batched multiply per Winograd tile index: M = U . V.
	for b := 0; b < winogradTile; b++ {
		ub := layer.u[b*layer.inCh*layer.outCh : (b+1)*layer.inCh*layer.outCh]
		vb := v[b*layer.inCh*tiles : (b+1)*layer.inCh*tiles]
		mb := m[b*layer.outCh*tiles : (b+1)*layer.outCh*tiles]
		for c := 0; c < layer.inCh; c++ {
			vc := vb[c*tiles : (c+1)*tiles]
			uc := ub[c*layer.outCh : (c+1)*layer.outCh]
			for o, w := range uc {
				if w == 0 {
					continue
				}
				mo := mb[o*tiles : (o+1)*tiles]
				for ti, x := range vc {
					mo[ti] += w * x
				}
			}
		}
	}

	// Transform out: Y = At . M . A, clipped to the board edge.
	var y [winogradM * winogradM]float32
	var at [winogradM * winogradAlpha]float32
	for o := 0; o < layer.outCh; o++ {
		plane := out[o*spatial : (o+1)*spatial]
		for ty := 0; ty < wtiles; ty++ {
			for tx := 0; tx < wtiles; tx++ {
				tile := ty*wtiles + tx
				for b := 0; b < winogradTile; b++ {
					mm[b] = m[b*layer.outCh*tiles+o*tiles+tile]
				}
				// at = At . mm (4x6 by 6x6)
				for i := 0; i < winogradM; i++ {
					for j := 0; j < winogradAlpha; j++ {
						var acc float32
						for k := 0; k < winogradAlpha; k++ {
							acc += winogradAt[i*winogradAlpha+k] * mm[k*winogradAlpha+j]
						}
						at[i*winogradAlpha+j] = acc
					}
				}
				// y = at . At^T (4x6 by 6x4)
				for i := 0; i < winogradM; i++ {
					for j := 0; j < winogradM; j++ {
						var acc float32
						for k := 0; k < winogradAlpha; k++ {
							acc += at[i*winogradAlpha+k] * winogradAt[j*winogradAlpha+k]
						}
						y[i*winogradM+j] = acc
					}
				}
				for i := 0; i < winogradM; i++ {
					py := ty*winogradM + i
					if py >= size {
						break
					}
					for j := 0; j < winogradM; j++ {
						px := tx*winogradM + j
						if px >= size {
							break
						}
						plane[py*size+px] = y[i*winogradM+j]
					}
				}
			}
		}
	}
}

// matmulAlpha computes c = a . b for 6x6 row-major matrices.
func matmulAlpha(a, b, c []float32) {
	for i := 0; i < winogradAlpha; i++ {
		for j := 0; j < winogradAlpha; j++ {
			var acc float32
			for k := 0; k < winogradAlpha; k++ {
				acc += a[i*winogradAlpha+k] * b[k*winogradAlpha+j]
			}
			c[i*winogradAlpha+j] = acc
		}
	}
}

// matmulAlphaT computes c = a . b^T for 6x6 row-major matrices.
func matmulAlphaT(a, b, c []float32) {
	for i := 0; i < winogradAlpha; i++ {
		for j := 0; j < winogradAlpha; j++ {
			var acc float32
			for k := 0; k < winogradAlpha; k++ {
				acc += a[i*winogradAlpha+k] * b[j*winogradAlpha+k]
			}
			c[i*winogradAlpha+j] = acc
		}
	}
}

// batchnormActivate applies the folded batch norm, an optional residual add
// and, when alphas is non-nil, the per-channel parametric ReLU.
func batchnormActivate(channels, spatial int, data, means, stddevs, alphas, eltwise []float32) {
	for c := 0; c < channels; c++ {
		mean := means[c]
		scale := stddevs[c]
		plane := data[c*spatial : (c+1)*spatial]
		var alpha float32
		if alphas != nil {
			alpha = alphas[c]
		}
		for i, v := range plane {
			val := scale * (v - mean)
			if eltwise != nil {
				val += eltwise[c*spatial+i]
			}
			if alphas != nil && val < 0 {
				val *= alpha
			}
			plane[i] = val
		}
	}
}

// squeezeExcite reweights the block output per channel through the two-layer
// bottleneck, adds the residual and applies the block's activation.
func squeezeExcite(se *cpuSELayer, data, residual []float32, channels, spatial int) {
	pool := make([]float32, channels)
	for c := 0; c < channels; c++ {
		var sum float32
		for _, v := range data[c*spatial : (c+1)*spatial] {
			sum += v
		}
		pool[c] = sum / float32(spatial)
	}

	hidden := make([]float32, se.hidden)
	for h := 0; h < se.hidden; h++ {
		acc := se.fc1B[h]
		row := se.fc1W[h*channels : (h+1)*channels]
		for c, w := range row {
			acc += w * pool[c]
		}
		if acc < 0 {
			acc = 0
		}
		hidden[h] = acc
	}

	for c := 0; c < channels; c++ {
		acc := se.fc2B[c]
		row := se.fc2W[c*se.hidden : (c+1)*se.hidden]
		for h, w := range row {
			acc += w * hidden[h]
		}
		gate := float32(1 / (1 + math.Exp(-float64(acc))))
		alpha := se.alphas[c]
		plane := data[c*spatial : (c+1)*spatial]
		for i, v := range plane {
			val := gate*v + residual[c*spatial+i]
			if val < 0 {
				val *= alpha
			}
			plane[i] = val
		}
	}
}

func (p *cpuPipe) convolve1x1(h *cpuHead, in, out []float32) {
	spatial := p.boardSize * p.boardSize
	for o := 0; o < h.out; o++ {
		plane := out[o*spatial : (o+1)*spatial]
		for i := range plane {
			plane[i] = 0
		}
		row := h.w[o*h.inCh : (o+1)*h.inCh]
		for c, w := range row {
			if w == 0 {
				continue
			}
			src := in[c*spatial : (c+1)*spatial]
			for i, v := range src {
				plane[i] += w * v
			}
		}
	}
}

// halfPipe is the reduced-precision variant of the CPU pipe: all pushed
// weights are rounded through bfloat16 storage before use, trading accuracy
// for the memory-bandwidth profile of a half-precision backend.
type halfPipe struct {
	cpuPipe
}

func newHalfPipe(boardSize int) ForwardPipe {
	return &halfPipe{cpuPipe{boardSize: boardSize}}
}

func (p *halfPipe) PushInputConvolution(filterSize, inputChannels, outputs int, conv ConvBlock) {
	p.cpuPipe.PushInputConvolution(filterSize, inputChannels, outputs, roundConvBlock(conv))
}

func (p *halfPipe) PushResidual(filterSize, channels, outputs, seHidden int, conv1, conv2 ConvBlock, se SEBlock) {
	p.cpuPipe.PushResidual(filterSize, channels, outputs, seHidden,
		roundConvBlock(conv1), roundConvBlock(conv2),
		SEBlock{
			FC1W: bf16Slice(se.FC1W),
			FC1B: bf16Slice(se.FC1B),
			FC2W: bf16Slice(se.FC2W),
			FC2B: bf16Slice(se.FC2B),
		})
}

func (p *halfPipe) PushConvolve(filterSize, inputChannels, outputs int, weights []float32) {
	p.cpuPipe.PushConvolve(filterSize, inputChannels, outputs, bf16Slice(weights))
}

func roundConvBlock(c ConvBlock) ConvBlock {
	return ConvBlock{
		Weights: bf16Slice(c.Weights),
		Means:   bf16Slice(c.Means),
		Stddevs: bf16Slice(c.Stddevs),
		Alphas:  bf16Slice(c.Alphas),
	}
}

// bf16 rounds a float32 to the nearest bfloat16-representable value.
func bf16(v float32) float32 {
	bits := math.Float32bits(v)
	bits += 0x7fff + ((bits >> 16) & 1)
	return math.Float32frombits(bits &^ 0xffff)
}

func bf16Slice(src []float32) []float32 {
	if src == nil {
		return nil
	}
	dst := make([]float32, len(src))
	for i, v := range src {
		dst[i] = bf16(v)
	}
	return dst
}
