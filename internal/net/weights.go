package net

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
)

// Weight file format constants. The file is text, optionally gzip-compressed:
// a version line, six input-layer lines, sixteen lines per residual block and
// sixteen output-head lines, each line one whitespace-separated tensor.
const (
	formatVersion      = 502
	inputLayerLines    = 6
	residualBlockLines = 16
	outputHeadLines    = 16

	// bnEpsilon is folded into every batch-norm variance at parse time.
	bnEpsilon = 1e-5
)

// FormatError reports a structurally invalid weight file: wrong version,
// inconsistent line counts, or tensor sizes that contradict the declared
// channel count. There is no usable engine state after a FormatError.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "weights: " + e.Reason }

// ParseError reports a malformed numeric token, carrying the 1-based line
// number within the weight file.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("weights: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WeightSet holds the per-layer parameters of a loaded network. It is owned
// exclusively by the engine and immutable once the engine is constructed.
type WeightSet struct {
	BoardSize      int // inferred from the policy head projection
	Channels       int
	ResidualBlocks int
	SEHidden       int

	// ValueHeadBlack marks weight sets whose value head reports black's
	// win rate instead of the side to move's; the evaluator compensates.
	ValueHeadBlack bool

	// Digest is the xxhash of the decompressed file contents.
	Digest uint64

	// Tower parameters: index 0 is the input convolution, then two
	// entries per residual block.
	ConvWeights [][]float32
	BNGammas    [][]float32
	BNBetas     [][]float32
	BNMeans     [][]float32
	BNStddevs   [][]float32
	Alphas      [][]float32

	// Squeeze-excite parameters, one entry per residual block.
	SEFC1W [][]float32
	SEFC1B [][]float32
	SEFC2W [][]float32
	SEFC2B [][]float32

	// Policy head.
	PolConvW    []float32
	PolConvB    []float32
	BNPolMean   []float32
	BNPolStddev []float32
	PolAlpha    []float32
	IPPolW      []float32
	IPPolB      []float32

	// Value head.
	ValConvW    []float32
	ValConvB    []float32
	BNValMean   []float32
	BNValStddev []float32
	ValAlpha    []float32
	IP1ValW     []float32
	IP1ValB     []float32
	IP2ValW     []float32
	IP2ValB     []float32

	prepared bool
}

// LoadWeightsFile reads a weight file from disk. Gzip compression is
// detected from the stream itself.
func LoadWeightsFile(path string) (*WeightSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weights: open: %w", err)
	}
	defer f.Close()
	return LoadWeights(f)
}

// LoadWeights parses a weight byte stream, validates its structure and
// returns the typed parameter vectors. Batch-norm variances are folded to
// 1/sqrt(variance+epsilon) before they are handed to any consumer.
func LoadWeights(r io.Reader) (*WeightSet, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("weights: decompress: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	digest := xxhash.New()
	scanner := bufio.NewScanner(io.TeeReader(src, digest))
	// Single tensor lines run to many megabytes of text on large nets.
	scanner.Buffer(make([]byte, 1<<20), 1<<28)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("weights: read: %w", err)
	}
	if len(lines) == 0 {
		return nil, &FormatError{Reason: "empty file"}
	}

	version, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, &FormatError{Reason: "missing format version"}
	}
	switch {
	case version == 1 || version == 2:
		return nil, &FormatError{Reason: fmt.Sprintf("format version %d is no longer supported", version)}
	case version != formatVersion:
		return nil, &FormatError{Reason: fmt.Sprintf("unsupported format version %d", version)}
	}

	body := lines[1:]
	if len(body) < inputLayerLines+residualBlockLines+outputHeadLines {
		return nil, &FormatError{Reason: "truncated weight file"}
	}
	if (len(body)-inputLayerLines-outputHeadLines)%residualBlockLines != 0 {
		return nil, &FormatError{Reason: "inconsistent number of weight lines"}
	}
	blocks := (len(body) - inputLayerLines - outputHeadLines) / residualBlockLines

	// The first batch-norm vector tells us the channel count; all interior
	// layers share it.
	channels := len(strings.Fields(body[1]))
	log.Printf("weights: v%d, %d channels, %d residual blocks", version, channels, blocks)

	ws := &WeightSet{
		Channels:       channels,
		ResidualBlocks: blocks,
	}
	towerConvs := inputLayerLines + blocks*residualBlockLines
	for i, line := range body {
		// +1 for the version line, +1 for 1-based numbering.
		vals, err := parseFloats(line, i+2)
		if err != nil {
			return nil, err
		}
		switch {
		case i < inputLayerLines:
			ws.storeTowerLine(i, vals)
		case i < towerConvs:
			ws.storeResidualLine((i-inputLayerLines)%residualBlockLines, vals)
		default:
			ws.storeHeadLine(i-towerConvs, vals)
		}
	}
	ws.Digest = digest.Sum64()

	if err := ws.validate(); err != nil {
		return nil, err
	}
	return ws, nil
}

// storeTowerLine files one line of a six-line convolution parameter set:
// filter weights, batch-norm gamma/beta/mean/variance and activation slopes.
func (ws *WeightSet) storeTowerLine(offset int, vals []float32) {
	switch offset {
	case 0:
		ws.ConvWeights = append(ws.ConvWeights, vals)
	case 1:
		ws.BNGammas = append(ws.BNGammas, vals)
	case 2:
		ws.BNBetas = append(ws.BNBetas, vals)
	case 3:
		ws.BNMeans = append(ws.BNMeans, vals)
	case 4:
		foldBNVariance(vals)
		ws.BNStddevs = append(ws.BNStddevs, vals)
	case 5:
		ws.Alphas = append(ws.Alphas, vals)
	}
}

func (ws *WeightSet) storeResidualLine(offset int, vals []float32) {
	switch offset {
	case 0, 1, 2, 3, 4, 5:
		ws.storeTowerLine(offset, vals)
	case 6:
		ws.ConvWeights = append(ws.ConvWeights, vals)
	case 7:
		ws.BNGammas = append(ws.BNGammas, vals)
	case 8:
		ws.BNBetas = append(ws.BNBetas, vals)
	case 9:
		ws.BNMeans = append(ws.BNMeans, vals)
	case 10:
		foldBNVariance(vals)
		ws.BNStddevs = append(ws.BNStddevs, vals)
	case 11:
		ws.SEFC1W = append(ws.SEFC1W, vals)
	case 12:
		ws.SEFC1B = append(ws.SEFC1B, vals)
	case 13:
		ws.SEFC2W = append(ws.SEFC2W, vals)
	case 14:
		ws.SEFC2B = append(ws.SEFC2B, vals)
	case 15:
		ws.Alphas = append(ws.Alphas, vals)
	}
}

func (ws *WeightSet) storeHeadLine(offset int, vals []float32) {
	switch offset {
	case 0:
		ws.PolConvW = vals
	case 1:
		ws.PolConvB = vals
	case 2:
		ws.BNPolMean = vals
	case 3:
		foldBNVariance(vals)
		ws.BNPolStddev = vals
	case 4:
		ws.PolAlpha = vals
	case 5:
		ws.IPPolW = vals
	case 6:
		ws.IPPolB = vals
	case 7:
		ws.ValConvW = vals
	case 8:
		ws.ValConvB = vals
	case 9:
		ws.BNValMean = vals
	case 10:
		foldBNVariance(vals)
		ws.BNValStddev = vals
	case 11:
		ws.ValAlpha = vals
	case 12:
		ws.IP1ValW = vals
	case 13:
		ws.IP1ValB = vals
	case 14:
		ws.IP2ValW = vals
	case 15:
		ws.IP2ValB = vals
	}
}

// foldBNVariance rewrites a batch-norm variance vector in place as
// 1/sqrt(variance+epsilon), so consumers always see a pre-scaled stddev.
func foldBNVariance(vals []float32) {
	for i, v := range vals {
		vals[i] = float32(1 / math.Sqrt(float64(v)+bnEpsilon))
	}
}

func parseFloats(line string, lineNum int) ([]float32, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &ParseError{Line: lineNum, Err: fmt.Errorf("empty tensor line")}
	}
	vals := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Err: fmt.Errorf("bad token %q", f)}
		}
		vals[i] = float32(v)
	}
	return vals, nil
}

// validate checks every tensor's length against the inferred channel count
// and head geometry. Any mismatch means a corrupt file: the engine must not
// come up on partial weights.
func (ws *WeightSet) validate() error {
	c := ws.Channels
	if c <= 0 {
		return &FormatError{Reason: "no channels detected"}
	}

	// Policy head geometry determines the board size.
	intersections := len(ws.IPPolB) - 1
	size := int(math.Sqrt(float64(intersections)))
	if size < 2 || size*size != intersections {
		return &FormatError{Reason: fmt.Sprintf("policy head does not describe a square board (%d outputs)", len(ws.IPPolB))}
	}
	ws.BoardSize = size

	check := func(name string, got, want int) error {
		if got != want {
			return &FormatError{Reason: fmt.Sprintf("%s has %d values, want %d", name, got, want)}
		}
		return nil
	}

	if err := check("input convolution", len(ws.ConvWeights[0]), c*inputChannels*9); err != nil {
		return err
	}
	for i := 1; i < len(ws.ConvWeights); i++ {
		if err := check(fmt.Sprintf("residual convolution %d", i), len(ws.ConvWeights[i]), c*c*9); err != nil {
			return err
		}
	}
	for i := range ws.BNGammas {
		vecs := []struct {
			name string
			vec  []float32
		}{
			{"batch-norm gamma", ws.BNGammas[i]},
			{"batch-norm beta", ws.BNBetas[i]},
			{"batch-norm mean", ws.BNMeans[i]},
			{"batch-norm stddev", ws.BNStddevs[i]},
			{"activation slopes", ws.Alphas[i]},
		}
		for _, v := range vecs {
			if err := check(fmt.Sprintf("%s %d", v.name, i), len(v.vec), c); err != nil {
				return err
			}
		}
	}

	if ws.ResidualBlocks > 0 {
		hidden := len(ws.SEFC1W[0]) / c
		if hidden == 0 || hidden*c != len(ws.SEFC1W[0]) {
			return &FormatError{Reason: "squeeze-excite fc1 is not a multiple of the channel count"}
		}
		ws.SEHidden = hidden
		for i := 0; i < ws.ResidualBlocks; i++ {
			if err := check(fmt.Sprintf("se fc1 weights %d", i), len(ws.SEFC1W[i]), hidden*c); err != nil {
				return err
			}
			if err := check(fmt.Sprintf("se fc1 bias %d", i), len(ws.SEFC1B[i]), hidden); err != nil {
				return err
			}
			if err := check(fmt.Sprintf("se fc2 weights %d", i), len(ws.SEFC2W[i]), hidden*c); err != nil {
				return err
			}
			if err := check(fmt.Sprintf("se fc2 bias %d", i), len(ws.SEFC2B[i]), c); err != nil {
				return err
			}
		}
	}

	headChecks := []struct {
		name string
		got  int
		want int
	}{
		{"policy convolution", len(ws.PolConvW), c * outputsPolicy},
		{"policy convolution bias", len(ws.PolConvB), outputsPolicy},
		{"policy batch-norm mean", len(ws.BNPolMean), outputsPolicy},
		{"policy batch-norm stddev", len(ws.BNPolStddev), outputsPolicy},
		{"policy activation slopes", len(ws.PolAlpha), outputsPolicy},
		{"policy projection", len(ws.IPPolW), outputsPolicy * intersections * (intersections + 1)},
		{"value convolution", len(ws.ValConvW), c * outputsValue},
		{"value convolution bias", len(ws.ValConvB), outputsValue},
		{"value batch-norm mean", len(ws.BNValMean), outputsValue},
		{"value batch-norm stddev", len(ws.BNValStddev), outputsValue},
		{"value activation slopes", len(ws.ValAlpha), outputsValue},
		{"value hidden layer", len(ws.IP1ValW), outputsValue * intersections * valueHidden},
		{"value hidden bias", len(ws.IP1ValB), valueHidden},
		{"value output layer", len(ws.IP2ValW), valueHidden},
		{"value output bias", len(ws.IP2ValB), 1},
	}
	for _, hc := range headChecks {
		if err := check(hc.name, hc.got, hc.want); err != nil {
			return err
		}
	}
	return nil
}
