package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Param is a dense trainable tensor and its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// SparseParam is an embedding table whose gradient only touches the rows
// looked up in the current batch.
type SparseParam struct {
	Name  string
	Value *mat.Dense
	Grad  map[int][]float64
}

func newSparseParam(name string, rows, cols int) *SparseParam {
	return &SparseParam{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  make(map[int][]float64),
	}
}

// accumulate adds scale*v to the gradient of row.
func (p *SparseParam) accumulate(row int, scale float64, v []float64) {
	g, ok := p.Grad[row]
	if !ok {
		_, cols := p.Value.Dims()
		g = make([]float64, cols)
		p.Grad[row] = g
	}
	floats.AddScaled(g, scale, v)
}

// ZeroGrad drops every accumulated row gradient.
func (p *SparseParam) ZeroGrad() {
	clear(p.Grad)
}

// NamedTensor is a parameter value as stored in a checkpoint.
type NamedTensor struct {
	Name  string
	Value *mat.Dense
}

func fillUniform(m *mat.Dense, bound float64, rng *rand.Rand) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := 0; j < cols; j++ {
			row[j] = (2*rng.Float64() - 1) * bound
		}
	}
}
