package net

// prepare converts a freshly loaded weight set into the form the compute
// pipes consume: tower filters move into the Winograd domain, batch-norm
// gamma folds into the pre-scaled stddev, and beta and head convolution
// biases fold into the batch-norm mean so inference needs no separate bias
// add. Idempotent; called once during engine construction.
func (ws *WeightSet) prepare() {
	if ws.prepared {
		return
	}
	ws.prepared = true

	ws.ConvWeights[0] = winogradTransformF(ws.ConvWeights[0], ws.Channels, inputChannels)
	for i := 1; i < len(ws.ConvWeights); i++ {
		ws.ConvWeights[i] = winogradTransformF(ws.ConvWeights[i], ws.Channels, ws.Channels)
	}

	for i := range ws.BNBetas {
		for j := range ws.BNBetas[i] {
			ws.BNStddevs[i][j] *= ws.BNGammas[i][j]
			ws.BNMeans[i][j] -= ws.BNBetas[i][j] / ws.BNStddevs[i][j]
		}
	}

	// The 1x1 head convolutions are the only ones with a bias that
	// precedes a batch-norm; the residual tower has none to fold.
	for i := range ws.BNValMean {
		ws.BNValMean[i] -= ws.ValConvB[i] / ws.BNValStddev[i]
		ws.ValConvB[i] = 0
	}
	for i := range ws.BNPolMean {
		ws.BNPolMean[i] -= ws.PolConvB[i] / ws.BNPolStddev[i]
		ws.PolConvB[i] = 0
	}
}
