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

// Package encoder turns documents into fixed-length vector sequences using a
// word vector dictionary, and reads and writes the dictionary and sequence
// file formats.
package encoder

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
)

const maxLineBytes = 4 * 1024 * 1024

// Dictionary maps words to vectors of one shared dimension. It only grows:
// a word, once added, keeps its vector, and words are written back in the
// order they were added.
type Dictionary struct {
	mu      sync.RWMutex
	dim     int
	maxLen  int
	words   []string
	vectors map[string][]float64
}

// NewDictionary returns an empty dictionary of the given dimension.
func NewDictionary(dim int) *Dictionary {
	return &Dictionary{dim: dim, vectors: make(map[string][]float64)}
}

// Add appends word with its vector.
func (d *Dictionary) Add(word string, vec []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addLocked(word, vec)
}

func (d *Dictionary) addLocked(word string, vec []float64) error {
	if word == "" {
		return fmt.Errorf("dictionary: empty word")
	}
	if _, ok := d.vectors[word]; ok {
		return fmt.Errorf("dictionary: word %q already present", word)
	}
	if len(vec) != d.dim {
		return apperrors.DataFormat("", 0, fmt.Sprintf("vector for %q has dimension %d, dictionary has %d", word, len(vec), d.dim), nil)
	}
	stored := make([]float64, len(vec))
	copy(stored, vec)
	d.vectors[word] = stored
	d.words = append(d.words, word)
	return nil
}

// Lookup returns the vector for word. The slice must not be modified.
func (d *Dictionary) Lookup(word string) ([]float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vectors[word]
	return v, ok
}

func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.words)
}

func (d *Dictionary) Dim() int { return d.dim }

// MaxDocLength is the maximum document length recorded in the header, or 0.
func (d *Dictionary) MaxDocLength() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxLen
}

func (d *Dictionary) SetMaxDocLength(n int) {
	d.mu.Lock()
	d.maxLen = n
	d.mu.Unlock()
}

// Words returns the words in insertion order.
func (d *Dictionary) Words() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.words))
	copy(out, d.words)
	return out
}

// ReadDictionary loads a dictionary file. The first line is a header of
// three integers "{count} {dim} {maxLen}"; files without one (GloVe style)
// take their dimension from the first row.
func ReadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Resource("read dictionary", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		dict     *Dictionary
		expected = -1
		lineNo   int
	)
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if dict == nil {
			if header, ok := parseHeader(fields); ok {
				dict = NewDictionary(header[1])
				dict.maxLen = header[2]
				expected = header[0]
				continue
			}
			if len(fields) < 2 {
				return nil, apperrors.DataFormat(path, lineNo, "row has no vector", nil)
			}
			dict = NewDictionary(len(fields) - 1)
		}

		if len(fields) != dict.dim+1 {
			return nil, apperrors.DataFormat(path, lineNo, fmt.Sprintf("expected %d values, got %d", dict.dim, len(fields)-1), nil)
		}
		vec := make([]float64, dict.dim)
		for i, tok := range fields[1:] {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, apperrors.DataFormat(path, lineNo, fmt.Sprintf("value %d of %q", i+1, fields[0]), err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, apperrors.DataFormat(path, lineNo, fmt.Sprintf("non-finite value %d of %q", i+1, fields[0]), nil)
			}
			vec[i] = v
		}
		if err := dict.addLocked(fields[0], vec); err != nil {
			return nil, apperrors.DataFormat(path, lineNo, "bad entry", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Resource("read dictionary", path, err)
	}
	if dict == nil {
		return nil, apperrors.DataFormat(path, 0, "empty dictionary file", nil)
	}
	if expected >= 0 && expected != len(dict.words) {
		return nil, apperrors.DataFormat(path, 1, fmt.Sprintf("header announces %d vectors, file has %d", expected, len(dict.words)), nil)
	}
	return dict, nil
}

func parseHeader(fields []string) ([3]int, bool) {
	var header [3]int
	if len(fields) != 3 {
		return header, false
	}
	for i, tok := range fields {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return header, false
		}
		header[i] = n
	}
	return header, header[1] > 0
}

// WriteDictionary writes d with a header line.
func WriteDictionary(path string, d *Dictionary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Resource("write dictionary", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Resource("write dictionary", path, err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d %d\n", len(d.words), d.dim, d.maxLen)
	for _, word := range d.words {
		w.WriteString(word)
		for _, v := range d.vectors[word] {
			w.WriteByte(' ')
			w.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return apperrors.Resource("write dictionary", path, err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Resource("write dictionary", path, err)
	}
	return nil
}
