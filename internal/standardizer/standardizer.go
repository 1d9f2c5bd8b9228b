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

// Package standardizer turns raw document text into the cleaned, lowercase
// word lists consumed by both training pipelines.
package standardizer

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/jdkato/prose/v2"
	"golang.org/x/sync/errgroup"
)

var (
	parenthetical = regexp.MustCompile(`\(.*?\)`)
	space         = regexp.MustCompile(`\s+`)
)

// asciiPunctuation matches Python's string.punctuation.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// StandardizeLine lowercases a line and strips parenthetical asides,
// punctuation and non-ASCII bytes.
func StandardizeLine(line string) string {
	line = strings.ToLower(line)
	line = parenthetical.ReplaceAllString(line, "")

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c >= 0x80 || strings.IndexByte(asciiPunctuation, c) >= 0 {
			continue
		}
		b.WriteByte(c)
	}

	// Remove extra spaces left behind by the removals
	return strings.TrimSpace(space.ReplaceAllString(b.String(), " "))
}

// Tokenize splits standardized text into words.
func Tokenize(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		if tok.Text == "" {
			continue
		}
		tokens = append(tokens, tok.Text)
	}
	return tokens, nil
}

// Words standardizes and tokenizes a single line.
func Words(line string) ([]string, error) {
	return Tokenize(StandardizeLine(line))
}

// ReadDocument reads a document file and returns its words in order.
func ReadDocument(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Resource("open document", path, err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineWords, err := Words(scanner.Text())
		if err != nil {
			return nil, apperrors.Resource("tokenize document", path, err)
		}
		words = append(words, lineWords...)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Resource("read document", path, err)
	}
	return words, nil
}

// ReadDocuments reads every path with at most workers files open at once.
// The result is index aligned with paths.
func ReadDocuments(ctx context.Context, paths []string, workers int) ([][]string, error) {
	if workers <= 0 {
		workers = 1
	}
	docs := make([][]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			words, err := ReadDocument(p)
			if err != nil {
				return err
			}
			docs[i] = words
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
