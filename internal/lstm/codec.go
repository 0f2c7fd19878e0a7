package lstm

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/yourorg/stock-forecast/internal/model"
)

const snapshotVersion = 1

type lstmSnapshot struct {
	InputSize       int       `msgpack:"input_size"`
	Units           int       `msgpack:"units"`
	ReturnSequences bool      `msgpack:"return_sequences"`
	W               []float64 `msgpack:"kernel"`
	U               []float64 `msgpack:"recurrent_kernel"`
	B               []float64 `msgpack:"bias"`
}

type denseSnapshot struct {
	In  int       `msgpack:"in"`
	Out int       `msgpack:"out"`
	W   []float64 `msgpack:"kernel"`
	B   []float64 `msgpack:"bias"`
}

type snapshot struct {
	Version   int                  `msgpack:"version"`
	Window    int                  `msgpack:"window"`
	Signature model.ModelSignature `msgpack:"signature"`
	LSTM1     lstmSnapshot         `msgpack:"lstm_1"`
	LSTM2     lstmSnapshot         `msgpack:"lstm_2"`
	Dense1    denseSnapshot        `msgpack:"dense_1"`
	Dense2    denseSnapshot        `msgpack:"dense_2"`
}

// Signature describes the tensors the network consumes and produces
func (n *Network) Signature() model.ModelSignature {
	return model.ModelSignature{
		Inputs:  []model.TensorSpec{{Name: "input_1", DType: "float32", Shape: []int{-1, n.Window, 1}}},
		Outputs: []model.TensorSpec{{Name: "output", DType: "float32", Shape: []int{-1, 1}}},
	}
}

// Encode writes the network weights and signature as msgpack
func Encode(w io.Writer, n *Network) error {
	snap := snapshot{
		Version:   snapshotVersion,
		Window:    n.Window,
		Signature: n.Signature(),
		LSTM1:     lstmToSnapshot(n.LSTM1),
		LSTM2:     lstmToSnapshot(n.LSTM2),
		Dense1:    denseToSnapshot(n.Dense1),
		Dense2:    denseToSnapshot(n.Dense2),
	}
	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// Decode reads a network written by Encode
func Decode(r io.Reader) (*Network, model.ModelSignature, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, model.ModelSignature{}, fmt.Errorf("failed to decode model: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, model.ModelSignature{}, fmt.Errorf("unsupported model version %d", snap.Version)
	}

	n := &Network{Window: snap.Window}
	var err error
	if n.LSTM1, err = lstmFromSnapshot(snap.LSTM1); err != nil {
		return nil, model.ModelSignature{}, fmt.Errorf("lstm_1: %w", err)
	}
	if n.LSTM2, err = lstmFromSnapshot(snap.LSTM2); err != nil {
		return nil, model.ModelSignature{}, fmt.Errorf("lstm_2: %w", err)
	}
	if n.Dense1, err = denseFromSnapshot(snap.Dense1); err != nil {
		return nil, model.ModelSignature{}, fmt.Errorf("dense_1: %w", err)
	}
	if n.Dense2, err = denseFromSnapshot(snap.Dense2); err != nil {
		return nil, model.ModelSignature{}, fmt.Errorf("dense_2: %w", err)
	}
	if n.LSTM1.InputSize != 1 || n.LSTM2.InputSize != n.LSTM1.Units ||
		n.Dense1.In != n.LSTM2.Units || n.Dense2.In != n.Dense1.Out || n.Dense2.Out != 1 {
		return nil, model.ModelSignature{}, fmt.Errorf("inconsistent layer sizes")
	}
	return n, snap.Signature, nil
}

func lstmToSnapshot(l *LSTMLayer) lstmSnapshot {
	return lstmSnapshot{
		InputSize:       l.InputSize,
		Units:           l.Units,
		ReturnSequences: l.ReturnSequences,
		W:               l.W.Value,
		U:               l.U.Value,
		B:               l.B.Value,
	}
}

func lstmFromSnapshot(s lstmSnapshot) (*LSTMLayer, error) {
	if len(s.W) != 4*s.Units*s.InputSize || len(s.U) != 4*s.Units*s.Units || len(s.B) != 4*s.Units {
		return nil, fmt.Errorf("weight shapes do not match %d units over %d inputs", s.Units, s.InputSize)
	}
	return &LSTMLayer{
		InputSize:       s.InputSize,
		Units:           s.Units,
		ReturnSequences: s.ReturnSequences,
		W:               fromValues(s.W),
		U:               fromValues(s.U),
		B:               fromValues(s.B),
	}, nil
}

func denseToSnapshot(d *DenseLayer) denseSnapshot {
	return denseSnapshot{In: d.In, Out: d.Out, W: d.W.Value, B: d.B.Value}
}

func denseFromSnapshot(s denseSnapshot) (*DenseLayer, error) {
	if len(s.W) != s.In*s.Out || len(s.B) != s.Out {
		return nil, fmt.Errorf("weight shapes do not match %dx%d", s.Out, s.In)
	}
	return &DenseLayer{In: s.In, Out: s.Out, W: fromValues(s.W), B: fromValues(s.B)}, nil
}
