package lstm

import (
	"math"
	"math/rand"
)

// LSTMLayer is a recurrent layer with input, forget, cell and output gates, in that order.
// W is (4*Units x InputSize), U is (4*Units x Units), B is 4*Units.
type LSTMLayer struct {
	InputSize       int
	Units           int
	ReturnSequences bool
	W               *Param
	U               *Param
	B               *Param
}

// NewLSTMLayer creates a layer with Glorot-uniform weights and a forget gate bias of one
func NewLSTMLayer(rng *rand.Rand, inputSize, units int, returnSequences bool) *LSTMLayer {
	l := &LSTMLayer{
		InputSize:       inputSize,
		Units:           units,
		ReturnSequences: returnSequences,
		W:               newParam(4 * units * inputSize),
		U:               newParam(4 * units * units),
		B:               newParam(4 * units),
	}
	l.W.glorotUniform(rng, inputSize, 4*units)
	l.U.glorotUniform(rng, units, 4*units)
	for j := units; j < 2*units; j++ {
		l.B.Value[j] = 1
	}
	return l
}

func (l *LSTMLayer) params() []*Param {
	return []*Param{l.W, l.U, l.B}
}

type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	c, tc           []float64
}

// forward runs the layer over a sequence and returns the hidden state of every step
func (l *LSTMLayer) forward(seq [][]float64) ([][]float64, []lstmStep) {
	H := l.Units
	h := make([]float64, H)
	c := make([]float64, H)
	hs := make([][]float64, len(seq))
	steps := make([]lstmStep, len(seq))
	z := make([]float64, 4*H)

	for t, x := range seq {
		for r := 0; r < 4*H; r++ {
			sum := l.B.Value[r]
			wRow := l.W.Value[r*l.InputSize : (r+1)*l.InputSize]
			for k, xv := range x {
				sum += wRow[k] * xv
			}
			uRow := l.U.Value[r*H : (r+1)*H]
			for k, hv := range h {
				sum += uRow[k] * hv
			}
			z[r] = sum
		}

		st := lstmStep{
			x:     x,
			hPrev: h,
			cPrev: c,
			i:     make([]float64, H),
			f:     make([]float64, H),
			g:     make([]float64, H),
			o:     make([]float64, H),
			c:     make([]float64, H),
			tc:    make([]float64, H),
		}
		hNext := make([]float64, H)
		for j := 0; j < H; j++ {
			st.i[j] = sigmoid(z[j])
			st.f[j] = sigmoid(z[H+j])
			st.g[j] = math.Tanh(z[2*H+j])
			st.o[j] = sigmoid(z[3*H+j])
			st.c[j] = st.f[j]*c[j] + st.i[j]*st.g[j]
			st.tc[j] = math.Tanh(st.c[j])
			hNext[j] = st.o[j] * st.tc[j]
		}
		steps[t] = st
		hs[t] = hNext
		h = hNext
		c = st.c
	}
	return hs, steps
}

// backward accumulates parameter gradients and returns the gradient w.r.t. each input step.
// dhOut holds the upstream gradient of every step's hidden state; nil rows are zero.
func (l *LSTMLayer) backward(steps []lstmStep, dhOut [][]float64) [][]float64 {
	H := l.Units
	dxs := make([][]float64, len(steps))
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	dz := make([]float64, 4*H)

	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		for j := 0; j < H; j++ {
			dh := dhNext[j]
			if dhOut[t] != nil {
				dh += dhOut[t][j]
			}
			dc := dcNext[j] + dh*st.o[j]*(1-st.tc[j]*st.tc[j])

			dz[j] = dc * st.g[j] * st.i[j] * (1 - st.i[j])
			dz[H+j] = dc * st.cPrev[j] * st.f[j] * (1 - st.f[j])
			dz[2*H+j] = dc * st.i[j] * (1 - st.g[j]*st.g[j])
			dz[3*H+j] = dh * st.tc[j] * st.o[j] * (1 - st.o[j])
			dcNext[j] = dc * st.f[j]
		}

		dx := make([]float64, l.InputSize)
		dhPrev := make([]float64, H)
		for r := 0; r < 4*H; r++ {
			d := dz[r]
			if d == 0 {
				continue
			}
			l.B.Grad[r] += d
			wOff := r * l.InputSize
			for k, xv := range st.x {
				l.W.Grad[wOff+k] += d * xv
				dx[k] += d * l.W.Value[wOff+k]
			}
			uOff := r * H
			for k, hv := range st.hPrev {
				l.U.Grad[uOff+k] += d * hv
				dhPrev[k] += d * l.U.Value[uOff+k]
			}
		}
		dxs[t] = dx
		dhNext = dhPrev
	}
	return dxs
}

// DenseLayer is a fully connected layer with linear activation. W is (Out x In).
type DenseLayer struct {
	In  int
	Out int
	W   *Param
	B   *Param
}

// NewDenseLayer creates a dense layer with Glorot-uniform weights and zero bias
func NewDenseLayer(rng *rand.Rand, in, out int) *DenseLayer {
	d := &DenseLayer{
		In:  in,
		Out: out,
		W:   newParam(out * in),
		B:   newParam(out),
	}
	d.W.glorotUniform(rng, in, out)
	return d
}

func (d *DenseLayer) params() []*Param {
	return []*Param{d.W, d.B}
}

func (d *DenseLayer) forward(x []float64) []float64 {
	y := make([]float64, d.Out)
	for r := 0; r < d.Out; r++ {
		sum := d.B.Value[r]
		row := d.W.Value[r*d.In : (r+1)*d.In]
		for k, xv := range x {
			sum += row[k] * xv
		}
		y[r] = sum
	}
	return y
}

func (d *DenseLayer) backward(x, dy []float64) []float64 {
	dx := make([]float64, d.In)
	for r := 0; r < d.Out; r++ {
		g := dy[r]
		d.B.Grad[r] += g
		off := r * d.In
		for k, xv := range x {
			d.W.Grad[off+k] += g * xv
			dx[k] += g * d.W.Value[off+k]
		}
	}
	return dx
}
