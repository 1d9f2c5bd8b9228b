package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LSTMConfig describes the shape of a stacked LSTM classifier.
type LSTMConfig struct {
	InputDim  int
	HiddenDim int
	LayerDim  int
	OutputDim int
}

type lstmLayer struct {
	wih  *Param // 4H x in
	whh  *Param // 4H x H
	bias *Param // 4H x 1
}

type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	c, tanhC        []float64
}

// LSTM is a stacked LSTM with a linear head on the last hidden state of the
// top layer. Gates follow the input, forget, cell, output order.
type LSTM struct {
	cfg    LSTMConfig
	layers []lstmLayer
	fcW    *Param // out x H
	fcB    *Param // out x 1

	cache [][]lstmStep // [layer][time]
}

// NewLSTM creates a model with weights drawn from uniform(-1/sqrt(H), 1/sqrt(H)).
func NewLSTM(cfg LSTMConfig, rng *rand.Rand) (*LSTM, error) {
	if cfg.InputDim <= 0 || cfg.HiddenDim <= 0 || cfg.LayerDim <= 0 || cfg.OutputDim <= 0 {
		return nil, fmt.Errorf("lstm: dimensions must be positive, got %+v", cfg)
	}
	h := cfg.HiddenDim
	bound := 1 / math.Sqrt(float64(h))

	m := &LSTM{cfg: cfg}
	for l := 0; l < cfg.LayerDim; l++ {
		in := cfg.InputDim
		if l > 0 {
			in = h
		}
		layer := lstmLayer{
			wih:  newParam(fmt.Sprintf("lstm.%d.weight_ih", l), 4*h, in),
			whh:  newParam(fmt.Sprintf("lstm.%d.weight_hh", l), 4*h, h),
			bias: newParam(fmt.Sprintf("lstm.%d.bias", l), 4*h, 1),
		}
		fillUniform(layer.wih.Value, bound, rng)
		fillUniform(layer.whh.Value, bound, rng)
		fillUniform(layer.bias.Value, bound, rng)
		m.layers = append(m.layers, layer)
	}
	m.fcW = newParam("fc.weight", cfg.OutputDim, h)
	m.fcB = newParam("fc.bias", cfg.OutputDim, 1)
	fillUniform(m.fcW.Value, bound, rng)
	fillUniform(m.fcB.Value, bound, rng)
	return m, nil
}

// Config returns the model dimensions.
func (m *LSTM) Config() LSTMConfig { return m.cfg }

// Forward runs one sequence (rows are time steps) from zero initial state and
// returns the logits.
func (m *LSTM) Forward(seq mat.Matrix) ([]float64, error) {
	steps, cols := seq.Dims()
	if cols != m.cfg.InputDim {
		return nil, fmt.Errorf("lstm: sequence has %d features, model expects %d", cols, m.cfg.InputDim)
	}
	h := m.cfg.HiddenDim

	inputs := make([][]float64, steps)
	for t := 0; t < steps; t++ {
		inputs[t] = mat.Row(nil, t, seq)
	}

	m.cache = make([][]lstmStep, len(m.layers))
	var top []float64
	for l, layer := range m.layers {
		hPrev := make([]float64, h)
		cPrev := make([]float64, h)
		outputs := make([][]float64, steps)
		m.cache[l] = make([]lstmStep, steps)

		for t := 0; t < steps; t++ {
			var z, zh mat.VecDense
			z.MulVec(layer.wih.Value, mat.NewVecDense(len(inputs[t]), inputs[t]))
			zh.MulVec(layer.whh.Value, mat.NewVecDense(h, hPrev))
			z.AddVec(&z, &zh)
			z.AddVec(&z, layer.bias.Value.ColView(0))
			raw := z.RawVector().Data

			st := lstmStep{
				x:     inputs[t],
				hPrev: hPrev,
				cPrev: cPrev,
				i:     make([]float64, h),
				f:     make([]float64, h),
				g:     make([]float64, h),
				o:     make([]float64, h),
				c:     make([]float64, h),
				tanhC: make([]float64, h),
			}
			hNext := make([]float64, h)
			for j := 0; j < h; j++ {
				st.i[j] = sigmoid(raw[j])
				st.f[j] = sigmoid(raw[h+j])
				st.g[j] = math.Tanh(raw[2*h+j])
				st.o[j] = sigmoid(raw[3*h+j])
				st.c[j] = st.f[j]*cPrev[j] + st.i[j]*st.g[j]
				st.tanhC[j] = math.Tanh(st.c[j])
				hNext[j] = st.o[j] * st.tanhC[j]
			}
			m.cache[l][t] = st
			outputs[t] = hNext
			hPrev, cPrev = hNext, st.c
		}
		inputs = outputs
		top = hPrev
	}

	var logits mat.VecDense
	logits.MulVec(m.fcW.Value, mat.NewVecDense(h, top))
	logits.AddVec(&logits, m.fcB.Value.ColView(0))
	return mat.Col(nil, 0, &logits), nil
}

// Backward accumulates parameter gradients for the sequence seen by the last
// Forward, given the gradient of the loss with respect to the logits.
func (m *LSTM) Backward(dlogits []float64) error {
	if m.cache == nil {
		return fmt.Errorf("lstm: backward called before forward")
	}
	if len(dlogits) != m.cfg.OutputDim {
		return fmt.Errorf("lstm: got %d logit gradients, model has %d outputs", len(dlogits), m.cfg.OutputDim)
	}
	h := m.cfg.HiddenDim
	topLayer := m.cache[len(m.cache)-1]
	steps := len(topLayer)

	dl := mat.NewVecDense(len(dlogits), dlogits)
	last := make([]float64, h)
	if steps > 0 {
		last = lastHidden(topLayer[steps-1])
	}
	m.fcW.Grad.RankOne(m.fcW.Grad, 1, dl, mat.NewVecDense(h, last))
	m.fcB.Grad.RankOne(m.fcB.Grad, 1, dl, mat.NewVecDense(1, []float64{1}))
	if steps == 0 {
		return nil
	}

	var dTop mat.VecDense
	dTop.MulVec(m.fcW.Value.T(), dl)
	dAbove := make([][]float64, steps)
	dAbove[steps-1] = mat.Col(nil, 0, &dTop)

	dz := make([]float64, 4*h)
	dzVec := mat.NewVecDense(4*h, dz)
	for l := len(m.layers) - 1; l >= 0; l-- {
		layer := m.layers[l]
		dhNext := make([]float64, h)
		dcNext := make([]float64, h)
		dBelow := make([][]float64, steps)

		for t := steps - 1; t >= 0; t-- {
			st := m.cache[l][t]
			for j := 0; j < h; j++ {
				dh := dhNext[j]
				if dAbove[t] != nil {
					dh += dAbove[t][j]
				}
				do := dh * st.tanhC[j]
				dc := dcNext[j] + dh*st.o[j]*(1-st.tanhC[j]*st.tanhC[j])
				di := dc * st.g[j]
				df := dc * st.cPrev[j]
				dg := dc * st.i[j]
				dcNext[j] = dc * st.f[j]

				dz[j] = di * st.i[j] * (1 - st.i[j])
				dz[h+j] = df * st.f[j] * (1 - st.f[j])
				dz[2*h+j] = dg * (1 - st.g[j]*st.g[j])
				dz[3*h+j] = do * st.o[j] * (1 - st.o[j])
			}

			layer.wih.Grad.RankOne(layer.wih.Grad, 1, dzVec, mat.NewVecDense(len(st.x), st.x))
			layer.whh.Grad.RankOne(layer.whh.Grad, 1, dzVec, mat.NewVecDense(h, st.hPrev))
			layer.bias.Grad.RankOne(layer.bias.Grad, 1, dzVec, mat.NewVecDense(1, []float64{1}))

			var dh mat.VecDense
			dh.MulVec(layer.whh.Value.T(), dzVec)
			dhNext = mat.Col(nil, 0, &dh)
			if l > 0 {
				var dx mat.VecDense
				dx.MulVec(layer.wih.Value.T(), dzVec)
				dBelow[t] = mat.Col(nil, 0, &dx)
			}
		}
		dAbove = dBelow
	}
	return nil
}

func lastHidden(st lstmStep) []float64 {
	out := make([]float64, len(st.o))
	for j := range out {
		out[j] = st.o[j] * st.tanhC[j]
	}
	return out
}

// Params lists every trainable tensor, layers first and the head last.
func (m *LSTM) Params() []*Param {
	var out []*Param
	for _, layer := range m.layers {
		out = append(out, layer.wih, layer.whh, layer.bias)
	}
	return append(out, m.fcW, m.fcB)
}

func (m *LSTM) ZeroGrad() {
	for _, p := range m.Params() {
		p.ZeroGrad()
	}
}

func (m *LSTM) Architecture() Architecture {
	return Architecture{
		Kind: "lstm",
		Dims: map[string]int{
			"input_dim":  m.cfg.InputDim,
			"hidden_dim": m.cfg.HiddenDim,
			"layer_dim":  m.cfg.LayerDim,
			"output_dim": m.cfg.OutputDim,
		},
	}
}

func (m *LSTM) Tensors() []NamedTensor {
	params := m.Params()
	out := make([]NamedTensor, len(params))
	for i, p := range params {
		out[i] = NamedTensor{Name: p.Name, Value: p.Value}
	}
	return out
}
