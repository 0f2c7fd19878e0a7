package lstm

import "math"

// Adam implements the Adam optimizer
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	t            int
}

// NewAdam returns an optimizer with the usual Keras defaults
func NewAdam() *Adam {
	return &Adam{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// Step applies one update using the accumulated gradients scaled by 1/n
func (a *Adam) Step(params []*Param, n int) {
	a.t++
	scale := 1.0 / float64(n)
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))
	lr := a.LearningRate * math.Sqrt(c2) / c1

	for _, p := range params {
		for i, g := range p.Grad {
			g *= scale
			p.m[i] = a.Beta1*p.m[i] + (1-a.Beta1)*g
			p.v[i] = a.Beta2*p.v[i] + (1-a.Beta2)*g*g
			p.Value[i] -= lr * p.m[i] / (math.Sqrt(p.v[i]) + a.Epsilon)
		}
	}
}
