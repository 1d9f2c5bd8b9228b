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

// Package pipeline runs one CLI mode end to end: it loads inputs, drives the
// encoder or a trainer, and writes results, metrics and run records.
package pipeline

import (
	"context"
	"time"

	"github.com/TFMV/VecTrainer/internal/metrics"
	"github.com/TFMV/VecTrainer/pkg/config"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/utils"
)

// Mode names a pipeline.
type Mode string

const (
	ModeConvert    Mode = "convert"
	ModeWord2Vec   Mode = "word2vec"
	ModeLSTM       Mode = "lstm"
	ModeSimilarity Mode = "similarity"
	ModeProject    Mode = "project"
)

// ParseMode validates a mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case ModeConvert, ModeWord2Vec, ModeLSTM, ModeSimilarity, ModeProject:
		return m, nil
	default:
		return "", apperrors.Configf("parse mode", "unknown mode %q", name)
	}
}

// RunRecorder persists the curves of a finished run.
type RunRecorder interface {
	CreateRun(ctx context.Context, pipeline, description string) (int, error)
	SaveCurves(ctx context.Context, runID int, curves utils.Curves) error
}

// Options carries the per-invocation flags.
type Options struct {
	Queries []string
	K       int
}

// Summary reports how long a run spent loading inputs and processing them.
type Summary struct {
	Mode       Mode
	Loading    time.Duration
	Processing time.Duration
	Outputs    []string
}

// Runner executes pipelines against one configuration.
type Runner struct {
	cfg      *config.Config
	logger   *utils.Logger
	metrics  *metrics.Metrics
	recorder RunRecorder
	now      func() time.Time
}

// NewRunner creates a Runner. recorder may be nil.
func NewRunner(cfg *config.Config, logger *utils.Logger, m *metrics.Metrics, recorder RunRecorder) *Runner {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Runner{
		cfg:      cfg,
		logger:   logger.Named("pipeline"),
		metrics:  m,
		recorder: recorder,
		now:      time.Now,
	}
}

// stopwatch splits a run into its loading and processing phases.
type stopwatch struct {
	now     func() time.Time
	start   time.Time
	loaded  time.Time
	summary *Summary
}

func (r *Runner) newStopwatch(s *Summary) *stopwatch {
	t := r.now()
	return &stopwatch{now: r.now, start: t, loaded: t, summary: s}
}

func (w *stopwatch) markLoaded() {
	w.loaded = w.now()
	w.summary.Loading = w.loaded.Sub(w.start)
}

func (w *stopwatch) stop() {
	w.summary.Processing = w.now().Sub(w.loaded)
}

// Run executes mode and returns its timing summary.
func (r *Runner) Run(ctx context.Context, mode Mode, opts Options) (Summary, error) {
	summary := Summary{Mode: mode}
	sw := r.newStopwatch(&summary)
	r.metrics.Progress.Start(string(mode))

	var err error
	switch mode {
	case ModeConvert:
		err = r.convert(ctx, sw)
	case ModeWord2Vec:
		err = r.word2vec(ctx, sw)
	case ModeLSTM:
		err = r.lstm(ctx, sw)
	case ModeSimilarity:
		err = r.similarity(sw, opts)
	case ModeProject:
		err = r.project(sw)
	default:
		err = apperrors.Configf("run", "unknown mode %q", mode)
	}
	sw.stop()
	r.metrics.Progress.Finish(err)
	if err != nil {
		return summary, err
	}
	r.logger.Info("%s finished: loading %s, processing %s", mode, summary.Loading, summary.Processing)
	return summary, nil
}

// record stores a run's curves when a recorder is configured.
func (r *Runner) record(ctx context.Context, mode Mode, description string, curves utils.Curves) error {
	if r.recorder == nil {
		return nil
	}
	runID, err := r.recorder.CreateRun(ctx, string(mode), description)
	if err != nil {
		return err
	}
	if err := r.recorder.SaveCurves(ctx, runID, curves); err != nil {
		return err
	}
	r.logger.Info("stored %s run %d", mode, runID)
	return nil
}
