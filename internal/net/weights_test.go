package net

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// testWeightText builds a syntactically complete weight file for the given
// geometry. Convolution and projection weights are filled with fill; batch
// norms are identity (gamma 1, beta 0, mean 0, variance 1), activation
// slopes and all biases zero. The squeeze-excite hidden width equals the
// channel count.
func testWeightText(channels, blocks, size int, fill float32) string {
	var sb strings.Builder
	row := func(n int, v float32) {
		s := strconv.FormatFloat(float64(v), 'g', -1, 32)
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(s)
		}
		sb.WriteByte('\n')
	}
	bn := func(n int) {
		row(n, 1) // gamma
		row(n, 0) // beta
		row(n, 0) // mean
		row(n, 1) // variance
	}
	intersections := size * size

	sb.WriteString("502\n")
	row(channels*inputChannels*9, fill)
	bn(channels)
	row(channels, 0) // alpha
	for b := 0; b < blocks; b++ {
		row(channels*channels*9, fill)
		bn(channels)
		row(channels, 0) // alpha
		row(channels*channels*9, fill)
		bn(channels)
		row(channels*channels, fill) // se fc1 weights
		row(channels, 0)             // se fc1 bias
		row(channels*channels, fill) // se fc2 weights
		row(channels, 0)             // se fc2 bias
		row(channels, 0)             // block alpha
	}
	// Policy head.
	row(channels*outputsPolicy, fill)
	row(outputsPolicy, 0)
	row(outputsPolicy, 0)
	row(outputsPolicy, 1)
	row(outputsPolicy, 0)
	row(outputsPolicy*intersections*(intersections+1), fill)
	row(intersections+1, 0)
	// Value head.
	row(channels, fill)
	row(1, 0)
	row(1, 0)
	row(1, 1)
	row(1, 0)
	row(intersections*valueHidden, fill)
	row(valueHidden, 0)
	row(valueHidden, fill)
	row(1, 0)
	return sb.String()
}

func TestLoadWeights(t *testing.T) {
	text := testWeightText(2, 2, 5, 0.1)
	ws, err := LoadWeights(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	if ws.Channels != 2 {
		t.Errorf("Channels = %d, want 2", ws.Channels)
	}
	if ws.ResidualBlocks != 2 {
		t.Errorf("ResidualBlocks = %d, want 2", ws.ResidualBlocks)
	}
	if ws.BoardSize != 5 {
		t.Errorf("BoardSize = %d, want 5", ws.BoardSize)
	}
	if ws.SEHidden != 2 {
		t.Errorf("SEHidden = %d, want 2", ws.SEHidden)
	}
	if got, want := len(ws.ConvWeights), 1+2*2; got != want {
		t.Errorf("len(ConvWeights) = %d, want %d", got, want)
	}
	if got, want := len(ws.Alphas), 1+2*2; got != want {
		t.Errorf("len(Alphas) = %d, want %d", got, want)
	}
	if got, want := len(ws.SEFC1W), 2; got != want {
		t.Errorf("len(SEFC1W) = %d, want %d", got, want)
	}
	if ws.ValueHeadBlack {
		t.Error("ValueHeadBlack set on a current-format file")
	}
	if ws.Digest == 0 {
		t.Error("digest not computed")
	}

	// Variance 1 folds to 1/sqrt(1+eps).
	want := float32(1 / math.Sqrt(1+bnEpsilon))
	if got := ws.BNStddevs[0][0]; got != want {
		t.Errorf("folded stddev = %g, want %g", got, want)
	}
	if got := ws.BNValStddev[0]; got != want {
		t.Errorf("folded value head stddev = %g, want %g", got, want)
	}
}

func TestLoadWeightsGzip(t *testing.T) {
	text := testWeightText(2, 1, 5, 0.1)
	plain, err := LoadWeights(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(text)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	packed, err := LoadWeights(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if packed.Channels != plain.Channels || packed.ResidualBlocks != plain.ResidualBlocks {
		t.Error("gzip load disagrees with plain load")
	}
	// The digest covers the decompressed contents.
	if packed.Digest != plain.Digest {
		t.Errorf("gzip digest %x, plain digest %x", packed.Digest, plain.Digest)
	}
}

func TestLoadWeightsVersions(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		substr  string
	}{
		{"empty", "", "empty file"},
		{"garbage version", "banana\n", "missing format version"},
		{"v1 dropped", "1\n", "no longer supported"},
		{"v2 dropped", "2\n", "no longer supported"},
		{"unknown version", "77\n", "unsupported format version"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadWeights(strings.NewReader(tc.input))
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want FormatError", err)
			}
			if !strings.Contains(err.Error(), tc.substr) {
				t.Errorf("err = %q, want substring %q", err, tc.substr)
			}
		})
	}
}

func TestLoadWeightsLineCount(t *testing.T) {
	text := testWeightText(2, 2, 5, 0.1)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	t.Run("dropped line", func(t *testing.T) {
		short := strings.Join(lines[:len(lines)-1], "\n") + "\n"
		_, err := LoadWeights(strings.NewReader(short))
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("err = %v, want FormatError", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		short := strings.Join(lines[:5], "\n") + "\n"
		_, err := LoadWeights(strings.NewReader(short))
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("err = %v, want FormatError", err)
		}
	})
}

func TestLoadWeightsParseError(t *testing.T) {
	text := testWeightText(2, 1, 5, 0.1)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	// Corrupt the input-layer gamma line; file line 3.
	lines[2] = "1 not-a-number"
	_, err := LoadWeights(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if pe.Line != 3 {
		t.Errorf("ParseError.Line = %d, want 3", pe.Line)
	}
}

func TestLoadWeightsBadTensor(t *testing.T) {
	text := testWeightText(2, 1, 5, 0.1)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	// The input convolution no longer matches the channel count.
	lines[1] = "0.1 0.1 0.1"
	_, err := LoadWeights(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FormatError", err)
	}
	if !strings.Contains(err.Error(), "input convolution") {
		t.Errorf("err = %q, want an input convolution size complaint", err)
	}
}
