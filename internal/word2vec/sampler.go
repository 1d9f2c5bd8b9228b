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

// Package word2vec trains skip-gram word embeddings with negative sampling
// over a corpus of documents.
package word2vec

import (
	"math"
	"math/rand"
)

// unigramPower flattens the unigram distribution used for negatives.
const unigramPower = 0.75

// maxRedraws bounds how often a negative equal to the true context is redrawn.
const maxRedraws = 32

// UnigramTable draws word ids with probability proportional to count^0.75.
type UnigramTable struct {
	table []int
}

// NewUnigramTable fills a table of the given size from per-id counts. Every
// id with a positive count gets at least one slot.
func NewUnigramTable(counts []int, size int) *UnigramTable {
	var norm float64
	for _, c := range counts {
		norm += math.Pow(float64(c), unigramPower)
	}
	t := &UnigramTable{table: make([]int, 0, size)}
	if norm == 0 {
		return t
	}
	for id, c := range counts {
		if c <= 0 {
			continue
		}
		slots := int(math.Round(math.Pow(float64(c), unigramPower) / norm * float64(size)))
		if slots < 1 {
			slots = 1
		}
		for i := 0; i < slots; i++ {
			t.table = append(t.table, id)
		}
	}
	return t
}

func (t *UnigramTable) Len() int { return len(t.table) }

// Draw returns one id.
func (t *UnigramTable) Draw(rng *rand.Rand) int {
	return t.table[rng.Intn(len(t.table))]
}

// Negatives returns k ids, redrawing any that equal exclude. After
// maxRedraws attempts the last draw is kept, which only happens for a
// vocabulary dominated by the excluded word.
func (t *UnigramTable) Negatives(rng *rand.Rand, k, exclude int) []int {
	out := make([]int, k)
	for i := range out {
		id := t.Draw(rng)
		for attempt := 0; id == exclude && attempt < maxRedraws; attempt++ {
			id = t.Draw(rng)
		}
		out[i] = id
	}
	return out
}

// KeepProbability is the chance a word of relative frequency freq survives
// subsampling with threshold t. A zero threshold keeps everything.
func KeepProbability(freq, t float64) float64 {
	if t <= 0 || freq <= 0 {
		return 1
	}
	return math.Min(1, math.Sqrt(t/freq))
}
