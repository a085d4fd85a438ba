package net

import "math"

// F(4x4, 3x3) Winograd dimensions: each 3x3 filter becomes a 6x6 tile and
// each output tile covers a 4x4 patch of the board.
const (
	winogradM     = 4
	winogradAlpha = winogradM + 2
	winogradTile  = winogradAlpha * winogradAlpha
)

var sq2 = float32(math.Sqrt2)

// winogradG is the 6x3 filter transform matrix, row-major.
var winogradG = [3 * winogradAlpha]float32{
	1.0, 0.0, 0.0,
	-2.0 / 3.0, -sq2 / 3.0, -1.0 / 3.0,
	-2.0 / 3.0, sq2 / 3.0, -1.0 / 3.0,
	1.0 / 6.0, sq2 / 6.0, 1.0 / 3.0,
	1.0 / 6.0, -sq2 / 6.0, 1.0 / 3.0,
	0.0, 0.0, 1.0,
}

// winogradTransformF transforms a bank of 3x3 filters into the Winograd
// domain: U = transpose(G . f . Gt). U is stored transposed relative to
// tile-major order, with the tile dimension outermost and (channel, output)
// innermost, matching the access pattern of the matrix multiply that
// consumes it:
//
//	U[xi*alpha*outputs*channels + nu*outputs*channels + c*outputs + o]
func winogradTransformF(f []float32, outputs, channels int) []float32 {
	u := make([]float32, winogradTile*outputs*channels)
	var temp [3 * winogradAlpha]float32

	for o := 0; o < outputs; o++ {
		for c := 0; c < channels; c++ {
			for i := 0; i < winogradAlpha; i++ {
				for j := 0; j < 3; j++ {
					var acc float32
					for k := 0; k < 3; k++ {
						acc += winogradG[i*3+k] * f[o*channels*9+c*9+k*3+j]
					}
					temp[i*3+j] = acc
				}
			}
			for xi := 0; xi < winogradAlpha; xi++ {
				for nu := 0; nu < winogradAlpha; nu++ {
					var acc float32
					for k := 0; k < 3; k++ {
						acc += temp[xi*3+k] * winogradG[nu*3+k]
					}
					u[xi*(winogradAlpha*outputs*channels)+
						nu*(outputs*channels)+
						c*outputs+
						o] = acc
				}
			}
		}
	}
	return u
}
