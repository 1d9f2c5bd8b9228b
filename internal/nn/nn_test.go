package nn

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const fdEps = 1e-6

func randomSequence(rng *rand.Rand, steps, dim int) *mat.Dense {
	data := make([]float64, steps*dim)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(steps, dim, data)
}

func TestSelectDevice(t *testing.T) {
	for _, name := range []string{"", "auto", "cpu", "CPU"} {
		d, err := SelectDevice(name)
		require.NoError(t, err, name)
		assert.Equal(t, CPU, d)
	}

	_, err := SelectDevice("accelerator")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = SelectDevice("tpu-9000")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestCrossEntropy(t *testing.T) {
	loss, grad := CrossEntropy([]float64{0, 0}, 1)
	assert.InDelta(t, math.Ln2, loss, 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, -0.5}, grad, 1e-12)

	// Large logits must not overflow.
	loss, grad = CrossEntropy([]float64{1000, 0}, 0)
	assert.InDelta(t, 0, loss, 1e-12)
	assert.True(t, IsFinite(grad[1]))
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, 1, ArgMax([]float64{0.1, 0.9}))
	assert.Equal(t, 0, ArgMax([]float64{0.5, 0.5}))
}

func TestLSTMGradientsMatchFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	model, err := NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 4, LayerDim: 2, OutputDim: 2}, rng)
	require.NoError(t, err)
	seq := randomSequence(rng, 5, 3)
	label := 1

	lossAt := func() float64 {
		logits, err := model.Forward(seq)
		require.NoError(t, err)
		loss, _ := CrossEntropy(logits, label)
		return loss
	}

	model.ZeroGrad()
	logits, err := model.Forward(seq)
	require.NoError(t, err)
	_, dlogits := CrossEntropy(logits, label)
	require.NoError(t, model.Backward(dlogits))

	for _, p := range model.Params() {
		rows, cols := p.Value.Dims()
		for _, idx := range [][2]int{{0, 0}, {rows - 1, cols - 1}, {rows / 2, cols / 2}} {
			r, c := idx[0], idx[1]
			orig := p.Value.At(r, c)
			p.Value.Set(r, c, orig+fdEps)
			plus := lossAt()
			p.Value.Set(r, c, orig-fdEps)
			minus := lossAt()
			p.Value.Set(r, c, orig)

			numeric := (plus - minus) / (2 * fdEps)
			assert.InDelta(t, numeric, p.Grad.At(r, c), 1e-6, "%s[%d,%d]", p.Name, r, c)
		}
	}
}

func TestLSTMRejectsWrongFeatureCount(t *testing.T) {
	model, err := NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 2, LayerDim: 1, OutputDim: 2}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = model.Forward(mat.NewDense(4, 5, nil))
	assert.Error(t, err)

	_, err = NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 0, LayerDim: 1, OutputDim: 2}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestLSTMTrainingReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	model, err := NewLSTM(LSTMConfig{InputDim: 2, HiddenDim: 6, LayerDim: 1, OutputDim: 2}, rng)
	require.NoError(t, err)
	opt := NewSGD(model.Params(), 0.1)
	seq := randomSequence(rng, 4, 2)

	var first, last float64
	for i := 0; i < 30; i++ {
		opt.ZeroGrad()
		logits, err := model.Forward(seq)
		require.NoError(t, err)
		loss, grad := CrossEntropy(logits, 0)
		require.NoError(t, model.Backward(grad))
		opt.Step()
		if i == 0 {
			first = loss
		}
		last = loss
	}
	assert.Less(t, last, first)
}

func TestSkipGramInitialisation(t *testing.T) {
	model := NewSkipGram(10, 4, rand.New(rand.NewSource(1)))
	for id := 0; id < 10; id++ {
		for _, x := range model.Embedding(id) {
			assert.LessOrEqual(t, math.Abs(x), 0.5/4)
		}
		for _, x := range model.v.Value.RawRowView(id) {
			assert.Zero(t, x)
		}
	}
	// With v at zero every score is zero.
	loss, err := model.Forward([]int{0}, []int{1}, [][]int{{2, 3}})
	require.NoError(t, err)
	assert.InDelta(t, 3*math.Ln2, loss, 1e-12)
}

func TestSkipGramGradientsMatchFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	model := NewSkipGram(6, 4, rng)
	fillUniform(model.v.Value, 0.5, rng)

	center := []int{0, 1}
	context := []int{2, 3}
	negatives := [][]int{{4, 5}, {3, 0}}

	_, err := model.Forward(center, context, negatives)
	require.NoError(t, err)
	model.Backward()

	for _, p := range model.Params() {
		for row := 0; row < 6; row++ {
			for col := 0; col < 4; col++ {
				orig := p.Value.At(row, col)
				p.Value.Set(row, col, orig+fdEps)
				plus, err := model.Forward(center, context, negatives)
				require.NoError(t, err)
				p.Value.Set(row, col, orig-fdEps)
				minus, err := model.Forward(center, context, negatives)
				require.NoError(t, err)
				p.Value.Set(row, col, orig)

				numeric := (plus - minus) / (2 * fdEps)
				var analytic float64
				if g, ok := p.Grad[row]; ok {
					analytic = g[col]
				}
				assert.InDelta(t, numeric, analytic, 1e-6, "%s[%d,%d]", p.Name, row, col)
			}
		}
	}
}

func TestSkipGramClampedScoreHasNoGradient(t *testing.T) {
	model := NewSkipGram(3, 2, rand.New(rand.NewSource(1)))
	model.u.Value.SetRow(0, []float64{5, 5})
	model.v.Value.SetRow(1, []float64{5, 5})

	loss, err := model.Forward([]int{0}, []int{1}, [][]int{{2}})
	require.NoError(t, err)
	assert.InDelta(t, -logSigmoid(10)+math.Ln2, loss, 1e-12)

	model.Backward()
	for _, x := range model.v.Grad[1] {
		assert.Zero(t, x)
	}
}

func TestSkipGramRejectsBadBatch(t *testing.T) {
	model := NewSkipGram(3, 2, rand.New(rand.NewSource(1)))
	_, err := model.Forward(nil, nil, nil)
	assert.Error(t, err)
	_, err = model.Forward([]int{0}, []int{1, 2}, [][]int{{2}})
	assert.Error(t, err)
	_, err = model.Forward([]int{0}, []int{7}, [][]int{{2}})
	assert.Error(t, err)
}

func TestSparseAdamOnlyTouchesRowsWithGradients(t *testing.T) {
	p := newSparseParam("table", 4, 2)
	p.Value.Copy(mat.NewDense(4, 2, []float64{1, 1, 1, 1, 1, 1, 1, 1}))
	opt := NewSparseAdam([]*SparseParam{p}, 0.01)

	p.accumulate(1, 1, []float64{1, -1})
	opt.Step()

	for _, row := range []int{0, 2, 3} {
		assert.Equal(t, []float64{1, 1}, p.Value.RawRowView(row))
	}
	assert.InDelta(t, 0.99, p.Value.At(1, 0), 1e-6)
	assert.InDelta(t, 1.01, p.Value.At(1, 1), 1e-6)

	opt.ZeroGrad()
	assert.Empty(t, p.Grad)
	before := mat.DenseCopyOf(p.Value)
	opt.Step()
	assert.True(t, mat.Equal(before, p.Value))
}

func TestCosineAnnealing(t *testing.T) {
	opt := NewSGD(nil, 0.1)
	sched := NewCosineAnnealing(opt, 4)

	assert.InDelta(t, 0.1, sched.At(0), 1e-12)
	assert.InDelta(t, 0.05, sched.At(2), 1e-12)
	assert.InDelta(t, 0, sched.At(4), 1e-12)

	sched.Step()
	sched.Step()
	assert.InDelta(t, 0.05, opt.LR(), 1e-12)

	flat := NewCosineAnnealing(NewSGD(nil, 0.3), 0)
	assert.Equal(t, 0.3, flat.At(10))
}

func TestCheckpointRoundTrip(t *testing.T) {
	cfg := LSTMConfig{InputDim: 3, HiddenDim: 4, LayerDim: 2, OutputDim: 2}
	saved, err := NewLSTM(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "models", "lstm.ckpt")
	require.NoError(t, SaveCheckpoint(path, saved))

	ckpt, err := LoadCheckpoint(path)
	require.NoError(t, err)

	fresh, err := NewLSTM(cfg, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	copied, err := ckpt.Apply(fresh)
	require.NoError(t, err)
	assert.Len(t, copied, len(fresh.Params()))

	seq := randomSequence(rand.New(rand.NewSource(5)), 3, 3)
	want, err := saved.Forward(seq)
	require.NoError(t, err)
	got, err := fresh.Forward(seq)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

func TestCheckpointArchitectureMismatch(t *testing.T) {
	saved, err := NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 4, LayerDim: 1, OutputDim: 2}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "lstm.ckpt")
	require.NoError(t, SaveCheckpoint(path, saved))
	ckpt, err := LoadCheckpoint(path)
	require.NoError(t, err)

	wider, err := NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 8, LayerDim: 1, OutputDim: 2}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, err = ckpt.Apply(wider)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "hidden_dim")

	_, err = ckpt.Apply(NewSkipGram(4, 2, rand.New(rand.NewSource(1))))
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestCheckpointInheritKeepsFreshHead(t *testing.T) {
	saved, err := NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 4, LayerDim: 1, OutputDim: 2}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "lstm.ckpt")
	require.NoError(t, SaveCheckpoint(path, saved))
	ckpt, err := LoadCheckpoint(path)
	require.NoError(t, err)

	target, err := NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 4, LayerDim: 1, OutputDim: 3}, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	headBefore := mat.DenseCopyOf(target.fcW.Value)

	copied, err := ckpt.Apply(target, "input_dim", "hidden_dim", "layer_dim")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lstm.0.weight_ih", "lstm.0.weight_hh", "lstm.0.bias"}, copied)
	assert.True(t, mat.Equal(saved.layers[0].wih.Value, target.layers[0].wih.Value))
	assert.True(t, mat.Equal(headBefore, target.fcW.Value))

	narrow, err := NewLSTM(LSTMConfig{InputDim: 3, HiddenDim: 2, LayerDim: 1, OutputDim: 2}, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	_, err = ckpt.Apply(narrow, "input_dim", "hidden_dim", "layer_dim")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	_, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.ckpt"))
	assert.ErrorIs(t, err, apperrors.ErrResource)
}
