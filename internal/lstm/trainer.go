// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package lstm trains and evaluates the LSTM document classifier over
// vector sequences drawn from a dataset.
package lstm

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/TFMV/VecTrainer/internal/dataset"
	"github.com/TFMV/VecTrainer/internal/nn"
	"github.com/TFMV/VecTrainer/pkg/config"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/utils"
	"gonum.org/v1/gonum/mat"
)

// WeightInit selects how model weights are set before training.
type WeightInit int

const (
	FromScratch WeightInit = iota
	Load
	Inherit
)

func (w WeightInit) String() string {
	switch w {
	case FromScratch:
		return "fromScratch"
	case Load:
		return "load"
	case Inherit:
		return "inherit"
	default:
		return fmt.Sprintf("WeightInit(%d)", int(w))
	}
}

// ParseWeightInit maps a configuration value to a WeightInit.
func ParseWeightInit(name string) (WeightInit, error) {
	switch strings.ToLower(name) {
	case "", "fromscratch":
		return FromScratch, nil
	case "load":
		return Load, nil
	case "inherit":
		return Inherit, nil
	default:
		return FromScratch, apperrors.Configf("parse weight init", "unsupported weight initialisation %q", name)
	}
}

// inheritedDims must match between a checkpoint and the model for Inherit.
var inheritedDims = []string{"input_dim", "hidden_dim", "layer_dim"}

// Model is the classifier being trained.
type Model interface {
	nn.Checkpointable
	Forward(seq mat.Matrix) ([]float64, error)
	Backward(dlogits []float64) error
	Params() []*nn.Param
}

// Sampler yields training or test samples.
type Sampler interface {
	Sample() (dataset.Sample, error)
}

// Observer receives training progress.
type Observer interface {
	ObserveStep(loss, lr float64)
	ObserveEpoch(epoch int, loss float64)
	ObserveAccuracy(negative, positive float64)
}

type nopObserver struct{}

func (nopObserver) ObserveStep(float64, float64)     {}
func (nopObserver) ObserveEpoch(int, float64)        {}
func (nopObserver) ObserveAccuracy(float64, float64) {}

// Trainer fits a Model with SGD and evaluates it per class.
type Trainer struct {
	cfg        config.LSTMConfig
	field      dataset.Field
	weightInit WeightInit
	device     nn.Device
	model      Model
	opt        *nn.SGD
	train      Sampler
	test       Sampler
	logger     *utils.Logger
	observer   Observer
}

// NewTrainer validates cfg and creates a freshly initialised LSTM. Weight
// loading happens when Train starts.
func NewTrainer(cfg config.LSTMConfig, device string, train, test Sampler, logger *utils.Logger, observer Observer) (*Trainer, error) {
	model, err := nn.NewLSTM(nn.LSTMConfig{
		InputDim:  cfg.InputDim,
		HiddenDim: cfg.HiddenDim,
		LayerDim:  cfg.LayerDim,
		OutputDim: cfg.OutputDim,
	}, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, apperrors.Configf("new lstm trainer", "%v", err)
	}
	return newTrainer(cfg, device, model, train, test, logger, observer)
}

func newTrainer(cfg config.LSTMConfig, device string, model Model, train, test Sampler, logger *utils.Logger, observer Observer) (*Trainer, error) {
	dev, err := nn.SelectDevice(device)
	if err != nil {
		return nil, err
	}
	field, err := dataset.ParseField(cfg.Category)
	if err != nil {
		return nil, err
	}
	weightInit, err := ParseWeightInit(cfg.WeightInit)
	if err != nil {
		return nil, err
	}
	if cfg.IterationsPerEpoch <= 0 || cfg.LearningRate <= 0 {
		return nil, apperrors.Configf("new lstm trainer", "iterations_per_epoch and learning_rate must be positive")
	}
	if cfg.OutputDim < 2 {
		return nil, apperrors.Configf("new lstm trainer", "output_dim must be at least 2 for binary labels, got %d", cfg.OutputDim)
	}
	if train == nil {
		return nil, apperrors.Configf("new lstm trainer", "no training set")
	}
	if cfg.ComputeAccuracies && test == nil {
		return nil, apperrors.Configf("new lstm trainer", "compute_accuracies needs a test set")
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Trainer{
		cfg:        cfg,
		field:      field,
		weightInit: weightInit,
		device:     dev,
		model:      model,
		opt:        nn.NewSGD(model.Params(), cfg.LearningRate),
		train:      train,
		test:       test,
		logger:     logger.Named("lstm"),
		observer:   observer,
	}, nil
}

func (t *Trainer) Model() Model { return t.model }

// InitWeights applies mode using the checkpoint at path.
func (t *Trainer) InitWeights(mode WeightInit, path string) error {
	switch mode {
	case FromScratch:
		return nil
	case Load, Inherit:
	default:
		return apperrors.Configf("init weights", "unsupported weight initialisation %v", mode)
	}
	if path == "" {
		return apperrors.Configf("init weights", "weight initialisation %v needs lstm.model_path", mode)
	}
	ckpt, err := nn.LoadCheckpoint(path)
	if err != nil {
		return err
	}
	if mode == Load {
		if _, err := ckpt.Apply(t.model); err != nil {
			return err
		}
		t.logger.Info("loaded %s from %s", ckpt.Architecture, path)
		return nil
	}
	copied, err := ckpt.Apply(t.model, inheritedDims...)
	if err != nil {
		return err
	}
	t.logger.Info("inherited %d tensors from %s (%s)", len(copied), path, strings.Join(copied, ", "))
	return nil
}

// runEvaluation reports whether step i ends the epoch.
func (t *Trainer) runEvaluation(i int) bool {
	ipe := t.cfg.IterationsPerEpoch
	if ipe == 1 {
		return true
	}
	return i > 0 && i%(ipe-1) == 0
}

// Train initialises weights and runs cfg.Epochs epochs of
// cfg.IterationsPerEpoch steps. Each epoch records its mean loss and, when
// enabled, the per-class test accuracy.
func (t *Trainer) Train(ctx context.Context) (utils.Curves, error) {
	var curves utils.Curves
	if err := t.InitWeights(t.weightInit, t.cfg.ModelPath); err != nil {
		return curves, err
	}
	t.logger.Info("training %s on %s", t.HyperParameters(), t.device)

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		var avgLoss float64
		for i := 0; ; i++ {
			if err := ctx.Err(); err != nil {
				return curves, err
			}
			sample, err := t.train.Sample()
			if err != nil {
				return curves, err
			}
			loss, err := t.step(sample)
			if err != nil {
				return curves, fmt.Errorf("epoch %d step %d: %w", epoch+1, i, err)
			}
			avgLoss += loss
			t.observer.ObserveStep(loss, t.opt.LR())

			if !t.runEvaluation(i) {
				continue
			}
			epochLoss := avgLoss / float64(t.cfg.IterationsPerEpoch)
			curves.Losses = append(curves.Losses, epochLoss)
			t.observer.ObserveEpoch(epoch+1, epochLoss)

			if t.cfg.ComputeAccuracies {
				ev, err := t.Evaluate(t.cfg.TestSamples, true, false)
				if err != nil {
					return curves, err
				}
				curves.NegativeAccuracy = append(curves.NegativeAccuracy, ev.Negative)
				curves.PositiveAccuracy = append(curves.PositiveAccuracy, ev.Positive)
				t.observer.ObserveAccuracy(ev.Negative, ev.Positive)
				t.logger.Debug("epoch %d loss %.6f accuracy neg %.3f pos %.3f", epoch+1, epochLoss, ev.Negative, ev.Positive)
			} else {
				t.logger.Debug("epoch %d loss %.6f", epoch+1, epochLoss)
			}
			break
		}
	}
	return curves, nil
}

func (t *Trainer) step(s dataset.Sample) (float64, error) {
	t.opt.ZeroGrad()
	logits, err := t.model.Forward(s.Sequence)
	if err != nil {
		return 0, err
	}
	loss, dlogits := nn.CrossEntropy(logits, int(s.Label))
	if !nn.IsFinite(loss) {
		return 0, apperrors.Numericalf("train lstm", "loss is %v on %s", loss, s.SourceID)
	}
	if err := t.model.Backward(dlogits); err != nil {
		return 0, err
	}
	t.opt.Step()
	return loss, nil
}

// SaveCheckpoint writes the model to dir under its hyperparameter name.
func (t *Trainer) SaveCheckpoint(dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, t.HyperParameters()+"_date_"+utils.TimestampedName(now))
	if err := nn.SaveCheckpoint(path, t.model); err != nil {
		return "", err
	}
	t.logger.Info("saved model to %s", path)
	return path, nil
}

// HyperParameters names a run by its settings.
func (t *Trainer) HyperParameters() string {
	return fmt.Sprintf("lr_%v_ipe_%d_in_%d_ct_%d_hd_%d_ly_%d_out_%d",
		t.cfg.LearningRate, t.cfg.IterationsPerEpoch, t.cfg.InputDim, int(t.field),
		t.cfg.HiddenDim, t.cfg.LayerDim, t.cfg.OutputDim)
}
