package lstm

import (
	"context"
	"fmt"
	"math/rand"
)

// Architecture describes the layer sizes of a Network
type Architecture struct {
	Window int
	Units1 int
	Units2 int
	Hidden int
	Seed   int64
}

// DefaultArchitecture is LSTM(50, sequences) -> LSTM(50) -> Dense(25) -> Dense(1) over 60 steps
func DefaultArchitecture() Architecture {
	return Architecture{
		Window: 60,
		Units1: 50,
		Units2: 50,
		Hidden: 25,
		Seed:   42,
	}
}

// Network is the stacked LSTM regressor: one scaled close per step in, next scaled close out
type Network struct {
	Window int
	LSTM1  *LSTMLayer
	LSTM2  *LSTMLayer
	Dense1 *DenseLayer
	Dense2 *DenseLayer
}

// NewNetwork creates a freshly initialised network
func NewNetwork(arch Architecture) (*Network, error) {
	if arch.Window < 1 || arch.Units1 < 1 || arch.Units2 < 1 || arch.Hidden < 1 {
		return nil, fmt.Errorf("invalid architecture %+v", arch)
	}
	rng := rand.New(rand.NewSource(arch.Seed))
	return &Network{
		Window: arch.Window,
		LSTM1:  NewLSTMLayer(rng, 1, arch.Units1, true),
		LSTM2:  NewLSTMLayer(rng, arch.Units1, arch.Units2, false),
		Dense1: NewDenseLayer(rng, arch.Units2, arch.Hidden),
		Dense2: NewDenseLayer(rng, arch.Hidden, 1),
	}, nil
}

// Params returns every trainable tensor
func (n *Network) Params() []*Param {
	var ps []*Param
	ps = append(ps, n.LSTM1.params()...)
	ps = append(ps, n.LSTM2.params()...)
	ps = append(ps, n.Dense1.params()...)
	ps = append(ps, n.Dense2.params()...)
	return ps
}

type trace struct {
	seq    [][]float64
	steps1 []lstmStep
	steps2 []lstmStep
	h2     []float64
	d1     []float64
}

func (n *Network) forward(window []float64) (float64, *trace) {
	seq := make([][]float64, len(window))
	for i, v := range window {
		seq[i] = []float64{v}
	}
	hs1, steps1 := n.LSTM1.forward(seq)
	hs2, steps2 := n.LSTM2.forward(hs1)
	h2 := hs2[len(hs2)-1]
	d1 := n.Dense1.forward(h2)
	out := n.Dense2.forward(d1)
	return out[0], &trace{seq: seq, steps1: steps1, steps2: steps2, h2: h2, d1: d1}
}

func (n *Network) backward(tr *trace, dy float64) {
	dd1 := n.Dense2.backward(tr.d1, []float64{dy})
	dh2 := n.Dense1.backward(tr.h2, dd1)

	dhOut2 := make([][]float64, len(tr.steps2))
	dhOut2[len(dhOut2)-1] = dh2
	dhs1 := n.LSTM2.backward(tr.steps2, dhOut2)
	n.LSTM1.backward(tr.steps1, dhs1)
}

// Predict returns the model output for one input window
func (n *Network) Predict(window []float64) (float64, error) {
	if len(window) != n.Window {
		return 0, fmt.Errorf("input window has %d steps, model expects %d", len(window), n.Window)
	}
	y, _ := n.forward(window)
	return y, nil
}

// PredictAll runs Predict over every window
func (n *Network) PredictAll(ctx context.Context, windows [][]float64) ([]float64, error) {
	out := make([]float64, len(windows))
	for i, w := range windows {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		y, err := n.Predict(w)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

// FitOptions controls a call to Fit
type FitOptions struct {
	Epochs    int
	BatchSize int
	// OnEpoch is called after every completed epoch with its mean loss
	OnEpoch func(epoch int, loss float64)
}

// Fit trains the network with MSE loss and Adam over the samples in order.
// The context is checked before every epoch and between mini-batches.
func (n *Network) Fit(ctx context.Context, inputs [][]float64, targets []float64, opts FitOptions) ([]float64, error) {
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("inputs and targets differ in length: %d vs %d", len(inputs), len(targets))
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	if opts.Epochs < 1 {
		opts.Epochs = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	for i, w := range inputs {
		if len(w) != n.Window {
			return nil, fmt.Errorf("sample %d has %d steps, model expects %d", i, len(w), n.Window)
		}
	}

	params := n.Params()
	opt := NewAdam()
	history := make([]float64, 0, opts.Epochs)

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		var total float64
		for start := 0; start < len(inputs); start += opts.BatchSize {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			end := min(start+opts.BatchSize, len(inputs))
			size := end - start

			for _, p := range params {
				p.zeroGrad()
			}
			for i := start; i < end; i++ {
				y, tr := n.forward(inputs[i])
				diff := y - targets[i]
				total += diff * diff
				n.backward(tr, 2*diff)
			}
			opt.Step(params, size)
		}

		loss := total / float64(len(inputs))
		history = append(history, loss)
		if opts.OnEpoch != nil {
			opts.OnEpoch(epoch, loss)
		}
	}
	return history, nil
}
