package dataset

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/TFMV/VecTrainer/internal/encoder"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/utils"
	"gonum.org/v1/gonum/mat"
)

// ParsePolicy decides what happens when a vector file cannot be parsed.
type ParsePolicy int

const (
	// AbortOnError returns the parse error to the caller.
	AbortOnError ParsePolicy = iota
	// SkipAndLog logs the error and draws another file.
	SkipAndLog
)

// ParseParsePolicy maps a configuration value to a policy.
func ParseParsePolicy(name string) (ParsePolicy, error) {
	switch strings.ToLower(name) {
	case "", "abort":
		return AbortOnError, nil
	case "skip":
		return SkipAndLog, nil
	default:
		return AbortOnError, apperrors.Configf("parse policy", "unknown parse policy %q", name)
	}
}

const defaultMaxAttempts = 10

// Sample is one labelled sequence and where it came from.
type Sample struct {
	Sequence *mat.Dense
	Label    BinaryLabel
	Category CategoryCode
	SourceID string
	Index    int
}

// Options configures a VectorDataset.
type Options struct {
	Policy ParsePolicy
	Seed   int64
	// MaxAttempts bounds redraws under SkipAndLog.
	MaxAttempts int
	// OnRecordError, when set, is called for every skipped file.
	OnRecordError func()
}

// VectorDataset draws labelled vector sequences uniformly at random, with
// replacement, from a set of vector files.
type VectorDataset struct {
	name      string
	files     []string
	labels    []CategoryCode
	rows, dim int
	opts      Options
	rng       *rand.Rand
	logger    *utils.Logger
	skipped   int
}

// NewVectorDataset pairs files with their category codes. rows may be zero
// to accept sequences of any length.
func NewVectorDataset(name string, files []string, labels []CategoryCode, rows, dim int, opts Options, logger *utils.Logger) (*VectorDataset, error) {
	if len(files) == 0 {
		return nil, apperrors.Configf("new dataset", "%s set has no vector files", name)
	}
	if len(files) != len(labels) {
		return nil, apperrors.Configf("new dataset", "%s set has %d vector files but %d labels", name, len(files), len(labels))
	}
	for i, c := range labels {
		if !c.Valid() {
			return nil, apperrors.DataFormat(files[i], 0, fmt.Sprintf("category code %d outside %d..%d", int(c), MinCategory, MaxCategory), nil)
		}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	d := &VectorDataset{
		name:   name,
		files:  files,
		labels: labels,
		rows:   rows,
		dim:    dim,
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		logger: logger.Named("dataset").With("set", name),
	}
	d.logHistogram()
	return d, nil
}

// LoadVectorSet builds a dataset from a label file and the vector files
// {0..n-1}{ext} in vectorsDir, one per label.
func LoadVectorSet(name, vectorsDir, labelsFile string, field Field, ext string, rows, dim int, opts Options, logger *utils.Logger) (*VectorDataset, error) {
	labels, err := ReadLabels(labelsFile, field)
	if err != nil {
		return nil, err
	}
	if ext == "" {
		ext = ".vec"
	}
	files := utils.GenerateFilePaths(vectorsDir, len(labels), ext)
	return NewVectorDataset(name, files, labels, rows, dim, opts, logger)
}

// Len is the number of distinct files the dataset can draw from.
func (d *VectorDataset) Len() int { return len(d.files) }

// Skipped is the number of files dropped under SkipAndLog.
func (d *VectorDataset) Skipped() int { return d.skipped }

// Histogram counts documents per category code.
func (d *VectorDataset) Histogram() map[CategoryCode]int {
	hist := make(map[CategoryCode]int)
	for _, c := range d.labels {
		hist[c]++
	}
	return hist
}

func (d *VectorDataset) logHistogram() {
	hist := d.Histogram()
	codes := make([]int, 0, len(hist))
	for c := range hist {
		codes = append(codes, int(c))
	}
	sort.Ints(codes)
	for _, c := range codes {
		d.logger.Info("label %2d: %4d documents", c, hist[CategoryCode(c)])
	}
}

// Sample draws a random file and returns its sequence and label.
func (d *VectorDataset) Sample() (Sample, error) {
	var lastErr error
	for attempt := 0; attempt < d.opts.MaxAttempts; attempt++ {
		s, err := d.Load(d.rng.Intn(len(d.files)))
		if err == nil {
			return s, nil
		}
		if d.opts.Policy != SkipAndLog || !skippable(err) {
			return Sample{}, err
		}
		d.skipped++
		if d.opts.OnRecordError != nil {
			d.opts.OnRecordError()
		}
		d.logger.Warn("skipping unreadable vector file: %v", err)
		lastErr = err
	}
	return Sample{}, fmt.Errorf("%s set: no readable file in %d attempts: %w", d.name, d.opts.MaxAttempts, lastErr)
}

func skippable(err error) bool {
	return apperrors.IsRecoverable(err) || errors.Is(err, apperrors.ErrResource)
}

// Load reads the file at index.
func (d *VectorDataset) Load(index int) (Sample, error) {
	if index < 0 || index >= len(d.files) {
		return Sample{}, fmt.Errorf("%s set: index %d out of range", d.name, index)
	}
	seq, err := encoder.ReadSequence(d.files[index], d.rows, d.dim)
	if err != nil {
		return Sample{}, err
	}
	label, err := d.labels[index].Binary()
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Sequence: seq,
		Label:    label,
		Category: d.labels[index],
		SourceID: d.files[index],
		Index:    index,
	}, nil
}
