package lstm

import (
	"math"
	"math/rand"
)

// Param is a trainable tensor stored flat, row-major, with its gradient and Adam moments
type Param struct {
	Value []float64
	Grad  []float64
	m     []float64
	v     []float64
}

func newParam(n int) *Param {
	return &Param{
		Value: make([]float64, n),
		Grad:  make([]float64, n),
		m:     make([]float64, n),
		v:     make([]float64, n),
	}
}

// fromValues wraps loaded weights in a Param with fresh optimizer state
func fromValues(values []float64) *Param {
	p := newParam(len(values))
	copy(p.Value, values)
	return p
}

func (p *Param) zeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// glorotUniform fills the param with U(-limit, limit), limit = sqrt(6 / (fanIn + fanOut))
func (p *Param) glorotUniform(rng *rand.Rand, fanIn, fanOut int) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range p.Value {
		p.Value[i] = (rng.Float64()*2 - 1) * limit
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
