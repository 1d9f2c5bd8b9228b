// Package tfidf weights words by how rare they are across a corpus.
package tfidf

import (
	"math"
	"sort"
)

// Weights holds smoothed inverse document frequencies fitted on a corpus.
type Weights struct {
	idf  map[string]float64
	docs int
}

// Fit counts, for every term, the number of documents it appears in.
func Fit(docs [][]string) *Weights {
	docCount := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, term := range doc {
			if !seen[term] {
				docCount[term]++
				seen[term] = true
			}
		}
	}

	w := &Weights{idf: make(map[string]float64, len(docCount)), docs: len(docs)}
	for term, count := range docCount {
		w.idf[term] = smoothIDF(len(docs), count)
	}
	return w
}

// idf = ln((1+n)/(1+df)) + 1, so every weight is at least 1.
func smoothIDF(n, df int) float64 {
	return math.Log(float64(1+n)/float64(1+df)) + 1
}

// IDF returns the weight of term. Unseen terms weigh as much as a term
// found in no document.
func (w *Weights) IDF(term string) float64 {
	if v, ok := w.idf[term]; ok {
		return v
	}
	return smoothIDF(w.docs, 0)
}

// Len is the number of distinct terms seen by Fit.
func (w *Weights) Len() int { return len(w.idf) }

// Transform returns the tf-idf score of every term in doc.
func (w *Weights) Transform(doc []string) map[string]float64 {
	tf := make(map[string]float64, len(doc))
	for _, term := range doc {
		tf[term]++
	}
	for term, n := range tf {
		tf[term] = n * w.IDF(term)
	}
	return tf
}

// Top returns the k highest scoring terms of doc, ties broken alphabetically.
func (w *Weights) Top(doc []string, k int) []string {
	scores := w.Transform(doc)
	terms := make([]string, 0, len(scores))
	for term := range scores {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if scores[terms[i]] != scores[terms[j]] {
			return scores[terms[i]] > scores[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if k < len(terms) {
		terms = terms[:k]
	}
	return terms
}
