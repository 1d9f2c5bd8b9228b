package encoder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"strings"

	"github.com/TFMV/VecTrainer/internal/standardizer"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/utils"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// FallbackPolicy decides what an unknown word turns into.
type FallbackPolicy int

const (
	// FallbackZero maps unknown words to the zero vector.
	FallbackZero FallbackPolicy = iota
	// FallbackSkip drops unknown words from the document.
	FallbackSkip
	// FallbackRandom maps unknown words to a random vector derived from the
	// seed and the word, and adds it to the dictionary.
	FallbackRandom
)

func (p FallbackPolicy) String() string {
	switch p {
	case FallbackZero:
		return "zero"
	case FallbackSkip:
		return "skip"
	case FallbackRandom:
		return "random"
	default:
		return fmt.Sprintf("FallbackPolicy(%d)", int(p))
	}
}

// ParseFallback maps a configuration value to a policy.
func ParseFallback(name string) (FallbackPolicy, error) {
	switch strings.ToLower(name) {
	case "", "zero":
		return FallbackZero, nil
	case "skip":
		return FallbackSkip, nil
	case "random":
		return FallbackRandom, nil
	default:
		return FallbackZero, apperrors.Configf("parse fallback", "unknown fallback policy %q", name)
	}
}

// Options configures an Encoder.
type Options struct {
	// MaxDocumentLength fixes the sequence length. Zero means use the
	// dictionary header, then the longest converted document.
	MaxDocumentLength int
	Fallback          FallbackPolicy
	PadValue          float64
	Workers           int
	Seed              int64
	Extension         string
	// OnConverted, when set, is called once per written vector file.
	OnConverted func()
}

// Encoder converts documents to vector sequences.
type Encoder struct {
	dict   *Dictionary
	opts   Options
	logger *utils.Logger
}

// New creates an Encoder over dict.
func New(dict *Dictionary, opts Options, logger *utils.Logger) *Encoder {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Extension == "" {
		opts.Extension = ".vec"
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Encoder{dict: dict, opts: opts, logger: logger.Named("encoder")}
}

// Dictionary returns the dictionary used by the encoder, including any
// vectors added by the random fallback.
func (e *Encoder) Dictionary() *Dictionary { return e.dict }

// Encode maps words to a maxLen x dim sequence. Words beyond maxLen are
// dropped; missing positions are filled with the pad value.
func (e *Encoder) Encode(words []string, maxLen int) (*mat.Dense, error) {
	if maxLen <= 0 {
		return nil, apperrors.Configf("encode", "max document length must be positive, got %d", maxLen)
	}
	dim := e.dict.Dim()
	seq := mat.NewDense(maxLen, dim, nil)
	if e.opts.PadValue != 0 {
		for i := 0; i < maxLen; i++ {
			row := seq.RawRowView(i)
			for j := range row {
				row[j] = e.opts.PadValue
			}
		}
	}

	pos := 0
	for _, w := range words {
		if pos == maxLen {
			break
		}
		vec, ok := e.dict.Lookup(w)
		if !ok {
			switch e.opts.Fallback {
			case FallbackSkip:
				continue
			case FallbackRandom:
				var err error
				if vec, err = e.addRandom(w); err != nil {
					return nil, err
				}
			default:
				vec = make([]float64, dim)
			}
		}
		seq.SetRow(pos, vec)
		pos++
	}
	return seq, nil
}

// addRandom adds the random fallback vector for word unless another caller
// already did.
func (e *Encoder) addRandom(word string) ([]float64, error) {
	e.dict.mu.Lock()
	defer e.dict.mu.Unlock()
	if v, ok := e.dict.vectors[word]; ok {
		return v, nil
	}
	vec := RandomVector(e.opts.Seed, word, e.dict.dim)
	if err := e.dict.addLocked(word, vec); err != nil {
		return nil, err
	}
	return e.dict.vectors[word], nil
}

// RandomVector returns the fallback vector for word: uniform values in
// [-1, 1) drawn from a generator seeded by seed and the word's hash.
func RandomVector(seed int64, word string, dim int) []float64 {
	h := fnv.New64a()
	h.Write([]byte(word))
	rng := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = 2*rng.Float64() - 1
	}
	return vec
}

// ConvertDocuments reads, cleans and encodes every document and writes
// outDir/{index}{ext} for each, returning the written paths in input order.
// Reading and writing run concurrently; unknown words are resolved in
// document order in between so the dictionary grows deterministically.
func (e *Encoder) ConvertDocuments(ctx context.Context, paths []string, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperrors.Resource("convert documents", outDir, err)
	}

	docs, err := standardizer.ReadDocuments(ctx, paths, e.opts.Workers)
	if err != nil {
		return nil, err
	}

	maxLen := e.resolveMaxLength(docs)
	if maxLen == 0 {
		return nil, apperrors.Configf("convert documents", "no max document length configured and every document is empty")
	}
	if e.opts.Fallback == FallbackRandom {
		for _, words := range docs {
			for _, w := range words {
				if _, ok := e.dict.Lookup(w); !ok {
					if _, err := e.addRandom(w); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	out := utils.GenerateFilePaths(outDir, len(paths), e.opts.Extension)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seq, err := e.Encode(docs[i], maxLen)
			if err != nil {
				return err
			}
			if err := WriteSequence(out[i], seq); err != nil {
				return err
			}
			if e.opts.OnConverted != nil {
				e.opts.OnConverted()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.dict.SetMaxDocLength(maxLen)
	e.logger.Info("converted %d documents into %s (max length %d, dictionary size %d)", len(paths), outDir, maxLen, e.dict.Len())
	return out, nil
}

func (e *Encoder) resolveMaxLength(docs [][]string) int {
	if e.opts.MaxDocumentLength > 0 {
		return e.opts.MaxDocumentLength
	}
	if n := e.dict.MaxDocLength(); n > 0 {
		return n
	}
	longest := 0
	for _, words := range docs {
		n := len(words)
		if e.opts.Fallback == FallbackSkip {
			n = 0
			for _, w := range words {
				if _, ok := e.dict.Lookup(w); ok {
					n++
				}
			}
		}
		if n > longest {
			longest = n
		}
	}
	return longest
}
