package word2vec

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/TFMV/VecTrainer/internal/encoder"
	"github.com/TFMV/VecTrainer/internal/nn"
	"github.com/TFMV/VecTrainer/pkg/config"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/utils"
	"github.com/TFMV/VecTrainer/pkg/vocab"
)

// Observer receives training progress. Implementations must be cheap; they
// are called on every step.
type Observer interface {
	ObserveStep(loss, lr float64)
	ObserveIteration(iteration int, runningLoss float64)
}

type nopObserver struct{}

func (nopObserver) ObserveStep(float64, float64)  {}
func (nopObserver) ObserveIteration(int, float64) {}

// Trainer fits a skip-gram model over primary and secondary documents.
type Trainer struct {
	cfg      config.Word2VecConfig
	device   nn.Device
	vocab    *vocab.FrequencyTable
	loaders  map[Corpus]*Loader
	model    *nn.SkipGram
	logger   *utils.Logger
	observer Observer
}

// NewTrainer builds the vocabulary from both document sets, one loader per
// corpus and a freshly initialised model.
func NewTrainer(cfg config.Word2VecConfig, device string, primary, secondary [][]string, logger *utils.Logger, observer Observer) (*Trainer, error) {
	dev, err := nn.SelectDevice(device)
	if err != nil {
		return nil, err
	}
	if cfg.EmbeddingDim <= 0 || cfg.BatchSize <= 0 || cfg.WindowSize <= 0 || cfg.Iterations <= 0 || cfg.InitialLR <= 0 {
		return nil, apperrors.Configf("new word2vec trainer", "embedding_dim, batch_size, window_size, iterations and initial_lr must be positive")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 500
	}
	if cfg.UnigramTableSize <= 0 {
		cfg.UnigramTableSize = 1_000_000
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if observer == nil {
		observer = nopObserver{}
	}

	all := make([][]string, 0, len(primary)+len(secondary))
	all = append(all, primary...)
	all = append(all, secondary...)
	table := vocab.Build(all, cfg.MinCount)
	if table.Len() == 0 {
		return nil, apperrors.Configf("new word2vec trainer", "no word occurs at least %d times in %d documents", cfg.MinCount, len(all))
	}

	counts := make([]int, table.Len())
	for id := range counts {
		counts[id] = table.Count(id)
	}
	unigram := NewUnigramTable(counts, cfg.UnigramTableSize)
	rng := rand.New(rand.NewSource(cfg.Seed))

	newLoader := func(docs [][]string) *Loader {
		ds := NewNegativeSamplingDataset(table, docs, unigram, cfg.WindowSize, cfg.Negatives, cfg.Subsample, rng)
		return NewLoader(ds, cfg.BatchSize)
	}

	t := &Trainer{
		cfg:    cfg,
		device: dev,
		vocab:  table,
		loaders: map[Corpus]*Loader{
			Combined:  newLoader(all),
			Primary:   newLoader(primary),
			Secondary: newLoader(secondary),
		},
		model:    nn.NewSkipGram(table.Len(), cfg.EmbeddingDim, rng),
		logger:   logger.Named("word2vec"),
		observer: observer,
	}
	t.logger.Info("vocabulary of %d words (%d tokens, longest document %d) on %s", table.Len(), table.Total(), table.MaxDocLength(), dev)
	return t, nil
}

func (t *Trainer) Vocabulary() *vocab.FrequencyTable { return t.vocab }
func (t *Trainer) Model() *nn.SkipGram               { return t.model }

// Train runs cfg.Iterations passes over corpus and then writes the embedding
// dictionary to outputFile. It returns the running loss at the end of every
// iteration.
func (t *Trainer) Train(ctx context.Context, corpus Corpus, outputFile string) ([]float64, error) {
	loader, ok := t.loaders[corpus]
	if !ok {
		return nil, apperrors.Configf("train word2vec", "unknown corpus %v", corpus)
	}
	if loader.Len() == 0 {
		return nil, apperrors.Configf("train word2vec", "%s corpus has no documents", corpus)
	}

	losses := make([]float64, 0, t.cfg.Iterations)
	for it := 0; it < t.cfg.Iterations; it++ {
		opt := nn.NewSparseAdam(t.model.Params(), t.cfg.InitialLR)
		sched := nn.NewCosineAnnealing(opt, loader.Len())

		var running float64
		for i := 0; i < loader.Len(); i++ {
			if err := ctx.Err(); err != nil {
				return losses, err
			}
			batch := loader.Batch(i)
			if batch.Len() < MinViableBatchSize {
				continue
			}

			opt.ZeroGrad()
			loss, err := t.model.Forward(batch.Center, batch.Context, batch.Negatives)
			if err != nil {
				return losses, err
			}
			if !nn.IsFinite(loss) {
				return losses, apperrors.Numericalf("train word2vec", "loss is %v at iteration %d, batch %d", loss, it, i)
			}
			t.model.Backward()
			opt.Step()
			sched.Step()

			running = running*0.9 + loss*0.1
			t.observer.ObserveStep(loss, opt.LR())
			if i > 0 && i%t.cfg.LogEvery == 0 {
				t.logger.Info("iteration %d batch %d/%d loss %.6f", it+1, i, loader.Len(), running)
			}
		}
		losses = append(losses, running)
		t.observer.ObserveIteration(it+1, running)
		t.logger.Info("iteration %d/%d done, loss %.6f", it+1, t.cfg.Iterations, running)
	}

	if err := t.WriteEmbedding(outputFile); err != nil {
		return losses, err
	}
	return losses, nil
}

// WriteEmbedding writes the center vectors as a dictionary in id order.
func (t *Trainer) WriteEmbedding(path string) error {
	dict := encoder.NewDictionary(t.cfg.EmbeddingDim)
	for id, word := range t.vocab.Words() {
		if err := dict.Add(word, t.model.Embedding(id)); err != nil {
			return fmt.Errorf("export embedding: %w", err)
		}
	}
	dict.SetMaxDocLength(t.vocab.MaxDocLength())
	if err := encoder.WriteDictionary(path, dict); err != nil {
		return err
	}
	t.logger.Info("wrote %d embeddings to %s", dict.Len(), path)
	return nil
}

// SaveCheckpoint writes the model to dir under its hyperparameter name.
func (t *Trainer) SaveCheckpoint(dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, t.HyperParameters()+"_date_"+utils.TimestampedName(now))
	if err := nn.SaveCheckpoint(path, t.model); err != nil {
		return "", err
	}
	return path, nil
}

// HyperParameters names a run by its settings.
func (t *Trainer) HyperParameters() string {
	return fmt.Sprintf("emb_%d_bs_%d_ws_%d_lr_%v_mc_%d_neg_%d_it_%d",
		t.cfg.EmbeddingDim, t.cfg.BatchSize, t.cfg.WindowSize, t.cfg.InitialLR,
		t.cfg.MinCount, t.cfg.Negatives, t.cfg.Iterations)
}
