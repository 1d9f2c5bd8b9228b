package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the running pipeline.
type Snapshot struct {
	Pipeline           string    `json:"pipeline"`
	Phase              string    `json:"phase"`
	Steps              int64     `json:"steps"`
	Epoch              int       `json:"epoch"`
	Loss               float64   `json:"loss"`
	EpochLoss          float64   `json:"epoch_loss"`
	LearningRate       float64   `json:"learning_rate"`
	NegativeAccuracy   float64   `json:"negative_accuracy"`
	PositiveAccuracy   float64   `json:"positive_accuracy"`
	DocumentsConverted int64     `json:"documents_converted"`
	StartedAt          time.Time `json:"started_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Progress is written by the training goroutine and read by the status
// endpoint.
type Progress struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

func NewProgress() *Progress {
	return &Progress{now: time.Now}
}

// Start resets the snapshot for a new pipeline run.
func (p *Progress) Start(pipeline string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.now()
	p.snap = Snapshot{Pipeline: pipeline, Phase: "running", StartedAt: t, UpdatedAt: t}
}

// Finish marks the run done, or failed when err is non-nil.
func (p *Progress) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Phase = "done"
	if err != nil {
		p.snap.Phase = "failed"
	}
	p.snap.UpdatedAt = p.now()
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Status reports the snapshot and whether any pipeline has started, in the
// shape the monitoring router expects.
func (p *Progress) Status() (any, bool) {
	s := p.Snapshot()
	return s, s.Pipeline != ""
}

func (p *Progress) step(pipeline string, loss, lr float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Pipeline = pipeline
	p.snap.Steps++
	p.snap.Loss = loss
	p.snap.LearningRate = lr
	p.snap.UpdatedAt = p.now()
}

func (p *Progress) epoch(pipeline string, epoch int, loss float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Pipeline = pipeline
	p.snap.Epoch = epoch
	p.snap.EpochLoss = loss
	p.snap.UpdatedAt = p.now()
}

func (p *Progress) accuracy(negative, positive float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.NegativeAccuracy = negative
	p.snap.PositiveAccuracy = positive
	p.snap.UpdatedAt = p.now()
}

func (p *Progress) converted(pipeline string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Pipeline = pipeline
	p.snap.DocumentsConverted++
	p.snap.UpdatedAt = p.now()
}
