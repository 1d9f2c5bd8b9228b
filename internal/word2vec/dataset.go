package word2vec

import (
	"math/rand"
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/vocab"
)

// MinViableBatchSize is the fewest pairs a document or a batch must yield to
// take part in training.
const MinViableBatchSize = 2

// Corpus selects which documents a loader scans.
type Corpus int

const (
	Combined Corpus = iota
	Primary
	Secondary
)

func (c Corpus) String() string {
	switch c {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "combined"
	}
}

// ParseCorpus maps a configuration value to a Corpus.
func ParseCorpus(name string) (Corpus, error) {
	switch strings.ToLower(name) {
	case "", "combined":
		return Combined, nil
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	default:
		return Combined, apperrors.Configf("parse corpus", "unknown corpus %q", name)
	}
}

// Pair is one skip-gram training sample.
type Pair struct {
	Center    int
	Context   int
	Negatives []int
}

// ContextPairs emits (ids[p], ids[p+o]) for every offset o in [-window, window]
// except 0 that stays inside the document.
func ContextPairs(ids []int, window int) [][2]int {
	var pairs [][2]int
	for p, center := range ids {
		for o := -window; o <= window; o++ {
			q := p + o
			if o == 0 || q < 0 || q >= len(ids) {
				continue
			}
			pairs = append(pairs, [2]int{center, ids[q]})
		}
	}
	return pairs
}

// NegativeSamplingDataset turns documents of word ids into skip-gram pairs.
type NegativeSamplingDataset struct {
	vocab     *vocab.FrequencyTable
	docs      [][]int
	window    int
	negatives int
	subsample float64
	unigram   *UnigramTable
	rng       *rand.Rand
}

// NewNegativeSamplingDataset maps docs through the vocabulary; words outside
// it are dropped.
func NewNegativeSamplingDataset(table *vocab.FrequencyTable, docs [][]string, unigram *UnigramTable, window, negatives int, subsample float64, rng *rand.Rand) *NegativeSamplingDataset {
	ids := make([][]int, len(docs))
	for i, doc := range docs {
		ids[i] = table.IDs(doc)
	}
	return &NegativeSamplingDataset{
		vocab:     table,
		docs:      ids,
		window:    window,
		negatives: negatives,
		subsample: subsample,
		unigram:   unigram,
		rng:       rng,
	}
}

// Len is the number of documents.
func (d *NegativeSamplingDataset) Len() int { return len(d.docs) }

// Item subsamples document i and returns its pairs with negatives. The
// subsampling draw is repeated on every call.
func (d *NegativeSamplingDataset) Item(i int) []Pair {
	kept := make([]int, 0, len(d.docs[i]))
	for _, id := range d.docs[i] {
		if d.subsample > 0 && d.rng.Float64() >= KeepProbability(d.vocab.Frequency(id), d.subsample) {
			continue
		}
		kept = append(kept, id)
	}

	raw := ContextPairs(kept, d.window)
	pairs := make([]Pair, len(raw))
	for j, p := range raw {
		pairs[j] = Pair{
			Center:    p[0],
			Context:   p[1],
			Negatives: d.unigram.Negatives(d.rng, d.negatives, p[1]),
		}
	}
	return pairs
}

// Batch is a flattened group of pairs ready for the model.
type Batch struct {
	Center    []int
	Context   []int
	Negatives [][]int
}

func (b Batch) Len() int { return len(b.Center) }

// Loader walks a dataset in order, batchSize documents at a time.
type Loader struct {
	ds        *NegativeSamplingDataset
	batchSize int
}

func NewLoader(ds *NegativeSamplingDataset, batchSize int) *Loader {
	return &Loader{ds: ds, batchSize: batchSize}
}

// Len is the number of batches per pass.
func (l *Loader) Len() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Batch collates batch i.
func (l *Loader) Batch(i int) Batch {
	start := i * l.batchSize
	end := min(start+l.batchSize, l.ds.Len())
	items := make([][]Pair, 0, end-start)
	for doc := start; doc < end; doc++ {
		items = append(items, l.ds.Item(doc))
	}
	return collate(items)
}

// collate flattens per-document pairs, dropping documents with fewer than
// MinViableBatchSize pairs.
func collate(items [][]Pair) Batch {
	var b Batch
	for _, pairs := range items {
		if len(pairs) < MinViableBatchSize {
			continue
		}
		for _, p := range pairs {
			b.Center = append(b.Center, p.Center)
			b.Context = append(b.Context, p.Context)
			b.Negatives = append(b.Negatives, p.Negatives)
		}
	}
	return b
}
