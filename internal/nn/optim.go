package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Optimizer updates model parameters from their accumulated gradients.
type Optimizer interface {
	ZeroGrad()
	Step()
	LR() float64
	SetLR(lr float64)
}

// SGD is plain stochastic gradient descent over dense parameters.
type SGD struct {
	params []*Param
	lr     float64
}

// NewSGD creates an SGD optimiser.
func NewSGD(params []*Param, lr float64) *SGD {
	return &SGD{params: params, lr: lr}
}

func (o *SGD) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

func (o *SGD) Step() {
	var delta mat.Dense
	for _, p := range o.params {
		delta.Reset()
		delta.Scale(-o.lr, p.Grad)
		p.Value.Add(p.Value, &delta)
	}
}

func (o *SGD) LR() float64      { return o.lr }
func (o *SGD) SetLR(lr float64) { o.lr = lr }

type adamState struct {
	step int
	m    *mat.Dense
	v    *mat.Dense
}

// SparseAdam is Adam restricted to the rows that received a gradient, with
// moment estimates kept per row.
type SparseAdam struct {
	params []*SparseParam
	state  []*adamState
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
}

// NewSparseAdam creates a SparseAdam optimiser with the usual betas.
func NewSparseAdam(params []*SparseParam, lr float64) *SparseAdam {
	state := make([]*adamState, len(params))
	for i, p := range params {
		rows, cols := p.Value.Dims()
		state[i] = &adamState{
			m: mat.NewDense(rows, cols, nil),
			v: mat.NewDense(rows, cols, nil),
		}
	}
	return &SparseAdam{
		params: params,
		state:  state,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
	}
}

func (o *SparseAdam) ZeroGrad() {
	for _, p := range o.params {
		p.ZeroGrad()
	}
}

func (o *SparseAdam) Step() {
	for i, p := range o.params {
		if len(p.Grad) == 0 {
			continue
		}
		st := o.state[i]
		st.step++
		bias1 := 1 - math.Pow(o.beta1, float64(st.step))
		bias2 := 1 - math.Pow(o.beta2, float64(st.step))
		stepSize := o.lr * math.Sqrt(bias2) / bias1

		for row, g := range p.Grad {
			m := st.m.RawRowView(row)
			v := st.v.RawRowView(row)
			value := p.Value.RawRowView(row)
			for j, gj := range g {
				m[j] = o.beta1*m[j] + (1-o.beta1)*gj
				v[j] = o.beta2*v[j] + (1-o.beta2)*gj*gj
				value[j] -= stepSize * m[j] / (math.Sqrt(v[j]) + o.eps)
			}
		}
	}
}

func (o *SparseAdam) LR() float64      { return o.lr }
func (o *SparseAdam) SetLR(lr float64) { o.lr = lr }

// CosineAnnealing decays the learning rate of an optimiser from its initial
// value to zero along half a cosine over period steps.
type CosineAnnealing struct {
	opt    Optimizer
	baseLR float64
	period int
	t      int
}

// NewCosineAnnealing captures the optimiser's current learning rate as the
// starting point.
func NewCosineAnnealing(opt Optimizer, period int) *CosineAnnealing {
	return &CosineAnnealing{opt: opt, baseLR: opt.LR(), period: period}
}

// Step advances the schedule by one step and updates the optimiser.
func (s *CosineAnnealing) Step() {
	s.t++
	s.opt.SetLR(s.At(s.t))
}

// At returns the learning rate after t steps.
func (s *CosineAnnealing) At(t int) float64 {
	if s.period <= 0 {
		return s.baseLR
	}
	return s.baseLR * (1 + math.Cos(math.Pi*float64(t)/float64(s.period))) / 2
}
