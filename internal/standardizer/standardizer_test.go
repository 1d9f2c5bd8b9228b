package standardizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizeLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Mixed case",
			input:    "The Flat At Main Street",
			expected: "the flat at main street",
		},
		{
			name:     "Punctuation",
			input:    "Flat 2/1, 10 High St.; (see plan) Glasgow!",
			expected: "flat 21 10 high st glasgow",
		},
		{
			name:     "Parenthetical asides",
			input:    "common stair (shared) and roof (in part)",
			expected: "common stair and roof",
		},
		{
			name:     "Non ASCII bytes",
			input:    "café naïve – ok",
			expected: "caf nave ok",
		},
		{
			name:     "Multiple spaces",
			input:    "  lots    of\tspace  ",
			expected: "lots of space",
		},
		{
			name:     "Empty after cleaning",
			input:    "(only an aside) ...",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StandardizeLine(tt.input))
		})
	}
}

func TestWords(t *testing.T) {
	words, err := Words("The (ground floor) flat, and the Garden.")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "flat", "and", "the", "garden"}, words)

	words, err = Words("   ")
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("First line here.\nSecond (aside) LINE\n\n"), 0o644))

	words, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "line", "here", "second", "line"}, words)

	_, err = ReadDocument(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, apperrors.ErrResource)
}

func TestReadDocumentsKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, text := range []string{"one two", "three", "", "four five six"} {
		p := filepath.Join(dir, string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(p, []byte(text+"\n"), 0o644))
		paths = append(paths, p)
	}

	docs, err := ReadDocuments(context.Background(), paths, 3)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, []string{"one", "two"}, docs[0])
	assert.Equal(t, []string{"three"}, docs[1])
	assert.Empty(t, docs[2])
	assert.Equal(t, []string{"four", "five", "six"}, docs[3])

	_, err = ReadDocuments(context.Background(), append(paths, filepath.Join(dir, "missing.txt")), 2)
	assert.ErrorIs(t, err, apperrors.ErrResource)
}
