package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineUpdatesCollectors(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	w2v := m.Pipeline("word2vec")
	w2v.ObserveStep(1.5, 0.01)
	w2v.ObserveStep(1.25, 0.005)
	w2v.ObserveIteration(1, 1.3)
	w2v.CheckpointSaved()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrainingStepsTotal.WithLabelValues("word2vec")))
	assert.Equal(t, 1.25, testutil.ToFloat64(m.TrainingLoss.WithLabelValues("word2vec")))
	assert.Equal(t, 0.005, testutil.ToFloat64(m.LearningRate.WithLabelValues("word2vec")))
	assert.Equal(t, 1.3, testutil.ToFloat64(m.EpochLoss.WithLabelValues("word2vec")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EpochsCompleted.WithLabelValues("word2vec")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckpointsSaved.WithLabelValues("word2vec")))

	lstm := m.Pipeline("lstm")
	lstm.ObserveAccuracy(0.75, 0.5)
	lstm.RecordError()
	assert.Equal(t, 0.75, testutil.ToFloat64(m.ClassAccuracy.WithLabelValues("negative")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.ClassAccuracy.WithLabelValues("positive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordErrorsTotal))

	conv := m.Pipeline("convert")
	conv.DocumentConverted()
	conv.DocumentConverted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsConverted))
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestProgressSnapshot(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.Progress.now = func() time.Time { return clock }

	m.Progress.Start("lstm")
	p := m.Pipeline("lstm")
	p.ObserveStep(0.7, 0.01)
	p.ObserveStep(0.6, 0.01)
	p.ObserveEpoch(1, 0.65)
	p.ObserveAccuracy(1, 0.25)

	snap := m.Progress.Snapshot()
	assert.Equal(t, "lstm", snap.Pipeline)
	assert.Equal(t, "running", snap.Phase)
	assert.EqualValues(t, 2, snap.Steps)
	assert.Equal(t, 1, snap.Epoch)
	assert.Equal(t, 0.6, snap.Loss)
	assert.Equal(t, 0.65, snap.EpochLoss)
	assert.Equal(t, 0.25, snap.PositiveAccuracy)
	assert.Equal(t, clock, snap.StartedAt)

	m.Progress.Finish(errors.New("boom"))
	assert.Equal(t, "failed", m.Progress.Snapshot().Phase)

	m.Progress.Start("word2vec")
	m.Progress.Finish(nil)
	snap = m.Progress.Snapshot()
	assert.Equal(t, "done", snap.Phase)
	assert.Zero(t, snap.Steps)
}

func TestProgressStatus(t *testing.T) {
	p := NewProgress()
	_, started := p.Status()
	assert.False(t, started)

	p.Start("word2vec")
	status, started := p.Status()
	assert.True(t, started)
	require.IsType(t, Snapshot{}, status)
	assert.Equal(t, "word2vec", status.(Snapshot).Pipeline)
}
