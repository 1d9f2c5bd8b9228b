// Package similarity answers nearest-neighbour queries over a word vector
// dictionary.
package similarity

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/TFMV/VecTrainer/internal/encoder"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Cosine returns the cosine similarity of a and b, or 0 when either is zero
// or their lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	magA, magB := floats.Norm(a, 2), floats.Norm(b, 2)
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return floats.Dot(a, b) / (magA * magB)
}

// AngularDistance maps cosine similarity onto [0, 1]: 0 for vectors pointing
// the same way, 1 for opposite ones.
func AngularDistance(a, b []float64) float64 {
	c := math.Max(-1, math.Min(1, Cosine(a, b)))
	return math.Acos(c) / math.Pi
}

// Neighbour is a word and its similarity to a query.
type Neighbour struct {
	Word       string
	Similarity float64
}

// Index holds a dictionary's words and vectors for repeated queries.
type Index struct {
	words   []string
	vectors [][]float64
	lookup  map[string]int
}

func NewIndex(dict *encoder.Dictionary) *Index {
	idx := &Index{lookup: make(map[string]int)}
	for _, w := range dict.Words() {
		v, _ := dict.Lookup(w)
		idx.lookup[w] = len(idx.words)
		idx.words = append(idx.words, w)
		idx.vectors = append(idx.vectors, v)
	}
	return idx
}

// Nearest returns the k words most similar to word, excluding word itself,
// most similar first. Ties keep dictionary order.
func (idx *Index) Nearest(word string, k int) ([]Neighbour, error) {
	i, ok := idx.lookup[word]
	if !ok {
		return nil, apperrors.Configf("nearest", "word %q is not in the dictionary", word)
	}
	return idx.NearestTo(idx.vectors[i], k, word), nil
}

// NearestTo returns the k words most similar to vec, skipping exclude.
func (idx *Index) NearestTo(vec []float64, k int, exclude string) []Neighbour {
	all := make([]Neighbour, 0, len(idx.words))
	for j, w := range idx.words {
		if w == exclude {
			continue
		}
		all = append(all, Neighbour{Word: w, Similarity: Cosine(vec, idx.vectors[j])})
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Similarity > all[b].Similarity
	})
	if k > 0 && k < len(all) {
		all = all[:k]
	}
	return all
}

// DocumentVector averages the vectors of the words found in dict. It
// returns nil when none are.
func DocumentVector(dict *encoder.Dictionary, words []string) []float64 {
	return WeightedDocumentVector(dict, words, nil)
}

// WeightedDocumentVector is DocumentVector with each occurrence scaled by
// weight(word). A nil weight counts every word once.
func WeightedDocumentVector(dict *encoder.Dictionary, words []string, weight func(string) float64) []float64 {
	sum := make([]float64, dict.Dim())
	var total float64
	for _, w := range words {
		v, ok := dict.Lookup(w)
		if !ok {
			continue
		}
		scale := 1.0
		if weight != nil {
			scale = weight(w)
		}
		floats.AddScaled(sum, scale, v)
		total += scale
	}
	if total == 0 {
		return nil
	}
	floats.Scale(1/total, sum)
	return sum
}

// WriteNeighboursCSV writes "query,rank,neighbour,similarity" rows, queries
// in the given order.
func WriteNeighboursCSV(path string, queries []string, results map[string][]Neighbour) error {
	file, err := os.Create(path)
	if err != nil {
		return apperrors.Resource("write similarity csv", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"query", "rank", "neighbour", "similarity"}); err != nil {
		return apperrors.Resource("write similarity csv", path, err)
	}
	for _, q := range queries {
		for rank, n := range results[q] {
			row := []string{q, strconv.Itoa(rank + 1), n.Word, strconv.FormatFloat(n.Similarity, 'f', 6, 64)}
			if err := w.Write(row); err != nil {
				return apperrors.Resource("write similarity csv", path, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.Resource("write similarity csv", path, fmt.Errorf("flush: %w", err))
	}
	if err := file.Close(); err != nil {
		return apperrors.Resource("write similarity csv", path, err)
	}
	return nil
}

// AngularDistancesCSV writes the pairwise angular distance matrix of the
// given document vectors, one row per document. Documents without a vector
// get empty cells.
func AngularDistancesCSV(path string, docs [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return apperrors.Resource("write distance csv", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	for i := range docs {
		row := make([]string, len(docs))
		for j := range docs {
			if docs[i] == nil || docs[j] == nil {
				continue
			}
			row[j] = strconv.FormatFloat(AngularDistance(docs[i], docs[j]), 'f', 6, 64)
		}
		if err := w.Write(row); err != nil {
			return apperrors.Resource("write distance csv", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.Resource("write distance csv", path, err)
	}
	if err := file.Close(); err != nil {
		return apperrors.Resource("write distance csv", path, err)
	}
	return nil
}
