package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const scoreClamp = 10.0

// SkipGram holds the center (u) and context (v) embedding tables of a
// skip-gram model trained with negative sampling.
type SkipGram struct {
	vocabSize int
	dim       int
	u         *SparseParam
	v         *SparseParam

	// cached by Forward for Backward
	center    []int
	context   []int
	negatives [][]int
	posCoef   []float64
	negCoef   [][]float64
}

// NewSkipGram creates a model with u drawn from uniform(-0.5/dim, 0.5/dim)
// and v set to zero.
func NewSkipGram(vocabSize, dim int, rng *rand.Rand) *SkipGram {
	m := &SkipGram{
		vocabSize: vocabSize,
		dim:       dim,
		u:         newSparseParam("u_embeddings", vocabSize, dim),
		v:         newSparseParam("v_embeddings", vocabSize, dim),
	}
	fillUniform(m.u.Value, 0.5/float64(dim), rng)
	return m
}

func (m *SkipGram) VocabSize() int { return m.vocabSize }
func (m *SkipGram) Dim() int       { return m.dim }

// Forward computes the mean negative-sampling loss of a batch. Scores are
// clamped to [-10, 10]; a clamped score contributes no gradient.
func (m *SkipGram) Forward(center, context []int, negatives [][]int) (float64, error) {
	n := len(center)
	if n == 0 {
		return 0, fmt.Errorf("skipgram: empty batch")
	}
	if len(context) != n || len(negatives) != n {
		return 0, fmt.Errorf("skipgram: batch length mismatch: center %d, context %d, negatives %d", n, len(context), len(negatives))
	}

	m.center, m.context, m.negatives = center, context, negatives
	m.posCoef = make([]float64, n)
	m.negCoef = make([][]float64, n)
	scale := 1 / float64(n)

	var total float64
	for b := 0; b < n; b++ {
		if err := m.checkID(center[b]); err != nil {
			return 0, err
		}
		if err := m.checkID(context[b]); err != nil {
			return 0, err
		}
		u := m.u.Value.RawRowView(center[b])

		s, clamped := clampScore(floats.Dot(u, m.v.Value.RawRowView(context[b])))
		total -= logSigmoid(s)
		if !clamped {
			m.posCoef[b] = (sigmoid(s) - 1) * scale
		}

		m.negCoef[b] = make([]float64, len(negatives[b]))
		for k, neg := range negatives[b] {
			if err := m.checkID(neg); err != nil {
				return 0, err
			}
			s, clamped := clampScore(floats.Dot(u, m.v.Value.RawRowView(neg)))
			total -= logSigmoid(-s)
			if !clamped {
				m.negCoef[b][k] = sigmoid(s) * scale
			}
		}
	}
	return total * scale, nil
}

// Backward accumulates row gradients for the batch seen by the last Forward.
func (m *SkipGram) Backward() {
	gradU := make([]float64, m.dim)
	for b, c := range m.center {
		clear(gradU)
		u := m.u.Value.RawRowView(c)

		ctx := m.context[b]
		floats.AddScaled(gradU, m.posCoef[b], m.v.Value.RawRowView(ctx))
		m.v.accumulate(ctx, m.posCoef[b], u)

		for k, neg := range m.negatives[b] {
			coef := m.negCoef[b][k]
			floats.AddScaled(gradU, coef, m.v.Value.RawRowView(neg))
			m.v.accumulate(neg, coef, u)
		}
		m.u.accumulate(c, 1, gradU)
	}
}

// Params returns the two sparse embedding tables.
func (m *SkipGram) Params() []*SparseParam {
	return []*SparseParam{m.u, m.v}
}

func (m *SkipGram) ZeroGrad() {
	m.u.ZeroGrad()
	m.v.ZeroGrad()
}

// Embedding returns a copy of the center vector of word id, which is what
// gets exported as the word's embedding.
func (m *SkipGram) Embedding(id int) []float64 {
	out := make([]float64, m.dim)
	copy(out, m.u.Value.RawRowView(id))
	return out
}

func (m *SkipGram) Architecture() Architecture {
	return Architecture{
		Kind: "skipgram",
		Dims: map[string]int{"vocab_size": m.vocabSize, "embedding_dim": m.dim},
	}
}

func (m *SkipGram) Tensors() []NamedTensor {
	return []NamedTensor{
		{Name: m.u.Name, Value: m.u.Value},
		{Name: m.v.Name, Value: m.v.Value},
	}
}

func (m *SkipGram) checkID(id int) error {
	if id < 0 || id >= m.vocabSize {
		return fmt.Errorf("skipgram: word id %d outside vocabulary of %d", id, m.vocabSize)
	}
	return nil
}

func clampScore(s float64) (float64, bool) {
	switch {
	case s > scoreClamp:
		return scoreClamp, true
	case s < -scoreClamp:
		return -scoreClamp, true
	default:
		return s, false
	}
}
