package encoder

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func threeWordDictionary(t *testing.T) *Dictionary {
	t.Helper()
	d := NewDictionary(2)
	require.NoError(t, d.Add("alpha", []float64{1, 2}))
	require.NoError(t, d.Add("beta", []float64{3, 4}))
	require.NoError(t, d.Add("gamma", []float64{5, 6}))
	return d
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEncodePadsShortDocuments(t *testing.T) {
	enc := New(threeWordDictionary(t), Options{}, nil)

	seq, err := enc.Encode([]string{"alpha", "beta"}, 4)
	require.NoError(t, err)

	want := mat.NewDense(4, 2, []float64{
		1, 2,
		3, 4,
		0, 0,
		0, 0,
	})
	assert.True(t, mat.Equal(want, seq))
}

func TestEncodeTruncatesKeepingPrefix(t *testing.T) {
	enc := New(threeWordDictionary(t), Options{PadValue: -1}, nil)

	seq, err := enc.Encode([]string{"gamma", "alpha", "beta", "gamma"}, 2)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{5, 6, 1, 2}), seq))

	empty, err := enc.Encode(nil, 3)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(3, 2, []float64{-1, -1, -1, -1, -1, -1}), empty))

	_, err = enc.Encode([]string{"alpha"}, 0)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestEncodeFallbackPolicies(t *testing.T) {
	t.Run("zero", func(t *testing.T) {
		enc := New(threeWordDictionary(t), Options{Fallback: FallbackZero}, nil)
		seq, err := enc.Encode([]string{"delta", "alpha"}, 2)
		require.NoError(t, err)
		assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{0, 0, 1, 2}), seq))
		assert.Equal(t, 3, enc.Dictionary().Len())
	})

	t.Run("skip", func(t *testing.T) {
		enc := New(threeWordDictionary(t), Options{Fallback: FallbackSkip}, nil)
		seq, err := enc.Encode([]string{"delta", "alpha"}, 2)
		require.NoError(t, err)
		assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 2, 0, 0}), seq))
	})

	t.Run("random", func(t *testing.T) {
		enc := New(threeWordDictionary(t), Options{Fallback: FallbackRandom, Seed: 42}, nil)
		seq, err := enc.Encode([]string{"delta", "delta"}, 2)
		require.NoError(t, err)

		vec, ok := enc.Dictionary().Lookup("delta")
		require.True(t, ok)
		assert.Equal(t, RandomVector(42, "delta", 2), vec)
		assert.Equal(t, vec, mat.Row(nil, 0, seq))
		assert.Equal(t, vec, mat.Row(nil, 1, seq))
		assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, enc.Dictionary().Words())

		for _, v := range vec {
			assert.True(t, v >= -1 && v < 1)
		}
		assert.NotEqual(t, RandomVector(43, "delta", 2), vec)
	})
}

func TestParseFallback(t *testing.T) {
	p, err := ParseFallback("random")
	require.NoError(t, err)
	assert.Equal(t, FallbackRandom, p)

	p, err = ParseFallback("")
	require.NoError(t, err)
	assert.Equal(t, FallbackZero, p)

	_, err = ParseFallback("nan")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestConvertDocuments(t *testing.T) {
	dir := t.TempDir()
	docs := []string{
		writeFile(t, dir, "doc0.txt", "Alpha beta.\n"),
		writeFile(t, dir, "doc1.txt", "(nothing here)\n"),
		writeFile(t, dir, "doc2.txt", "gamma alpha\nbeta gamma alpha\n"),
	}
	outDir := filepath.Join(dir, "vectors")

	var converted atomic.Int32
	enc := New(threeWordDictionary(t), Options{
		MaxDocumentLength: 4,
		Workers:           2,
		OnConverted:       func() { converted.Add(1) },
	}, nil)

	files, err := enc.ConvertDocuments(context.Background(), docs, outDir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(outDir, "0.vec"),
		filepath.Join(outDir, "1.vec"),
		filepath.Join(outDir, "2.vec"),
	}, files)
	assert.EqualValues(t, 3, converted.Load())

	first, err := ReadSequence(files[0], 4, 2)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(4, 2, []float64{1, 2, 3, 4, 0, 0, 0, 0}), first))

	empty, err := ReadSequence(files[1], 4, 2)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(4, 2, nil), empty))

	long, err := ReadSequence(files[2], 4, 2)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(4, 2, []float64{5, 6, 1, 2, 3, 4, 5, 6}), long))

	assert.Equal(t, 4, enc.Dictionary().MaxDocLength())
}

func TestConvertDocumentsInfersMaxLength(t *testing.T) {
	dir := t.TempDir()
	docs := []string{
		writeFile(t, dir, "a.txt", "alpha\n"),
		writeFile(t, dir, "b.txt", "beta gamma beta\n"),
	}
	enc := New(threeWordDictionary(t), Options{}, nil)

	files, err := enc.ConvertDocuments(context.Background(), docs, filepath.Join(dir, "out"))
	require.NoError(t, err)

	seq, err := ReadSequence(files[0], 0, 2)
	require.NoError(t, err)
	rows, _ := seq.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, enc.Dictionary().MaxDocLength())
}

func TestConvertDocumentsMissingFile(t *testing.T) {
	dir := t.TempDir()
	enc := New(threeWordDictionary(t), Options{MaxDocumentLength: 2}, nil)

	_, err := enc.ConvertDocuments(context.Background(), []string{filepath.Join(dir, "absent.txt")}, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, apperrors.ErrResource)
}

func TestConvertDocumentsHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "a.txt", "alpha\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc := New(threeWordDictionary(t), Options{MaxDocumentLength: 2}, nil)
	_, err := enc.ConvertDocuments(ctx, []string{doc}, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDictionaryRoundTrip(t *testing.T) {
	d := threeWordDictionary(t)
	d.SetMaxDocLength(7)
	path := filepath.Join(t.TempDir(), "dict", "words.txt")
	require.NoError(t, WriteDictionary(path, d))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3 2 7\nalpha 1 2\nbeta 3 4\ngamma 5 6\n", string(raw))

	back, err := ReadDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, d.Words(), back.Words())
	assert.Equal(t, 2, back.Dim())
	assert.Equal(t, 7, back.MaxDocLength())
	vec, ok := back.Lookup("beta")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, vec)
}

func TestReadDictionaryWithoutHeader(t *testing.T) {
	path := writeFile(t, t.TempDir(), "glove.txt", "the 0.1 0.2 0.3\nof -0.5 1e-3 2\n")

	d, err := ReadDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Dim())
	assert.Equal(t, 0, d.MaxDocLength())
	assert.Equal(t, []string{"the", "of"}, d.Words())
}

func TestReadDictionaryErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{"bad float", "2 2 4\nalpha 1 2\nbeta 3 x\n", 3},
		{"short row", "1 2 4\nalpha 1\n", 2},
		{"duplicate word", "2 2 4\nalpha 1 2\nalpha 3 4\n", 3},
		{"count mismatch", "3 2 4\nalpha 1 2\n", 1},
		{"nan value", "2 2 4\nalpha 1 2\nbeta NaN 4\n", 3},
		{"infinite value", "1 2 4\nalpha -Inf 2\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".txt", tt.content)
			_, err := ReadDictionary(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrDataFormat)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, path, appErr.Path)
			assert.Equal(t, tt.line, appErr.Line)
		})
	}

	_, err := ReadDictionary(filepath.Join(dir, "absent.txt"))
	assert.ErrorIs(t, err, apperrors.ErrResource)
}

func TestDictionaryAdd(t *testing.T) {
	d := NewDictionary(2)
	require.NoError(t, d.Add("alpha", []float64{1, 2}))
	assert.Error(t, d.Add("alpha", []float64{3, 4}))
	assert.ErrorIs(t, d.Add("beta", []float64{1, 2, 3}), apperrors.ErrDataFormat)
	assert.Equal(t, 1, d.Len())

	vec, _ := d.Lookup("alpha")
	assert.Equal(t, []float64{1, 2}, vec)
}

func TestReadSequenceErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSequence(writeFile(t, dir, "cols.vec", "1 2\n3\n"), 2, 2)
	assert.ErrorIs(t, err, apperrors.ErrDataFormat)

	_, err = ReadSequence(writeFile(t, dir, "nan.vec", "1 2\n3 abc\n"), 2, 2)
	assert.ErrorIs(t, err, apperrors.ErrDataFormat)

	_, err = ReadSequence(writeFile(t, dir, "rows.vec", "1 2\n"), 3, 2)
	assert.ErrorIs(t, err, apperrors.ErrDataFormat)

	_, err = ReadSequence(filepath.Join(dir, "absent.vec"), 3, 2)
	assert.ErrorIs(t, err, apperrors.ErrResource)
}

func TestReadSequenceRejectsNonFinite(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{"nan", "NaN 1\nInf 2\n", 1},
		{"inf after blank line", "1 2\n\n3 +Inf\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".vec", tt.content)
			_, err := ReadSequence(path, 0, 2)
			require.ErrorIs(t, err, apperrors.ErrDataFormat)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.line, appErr.Line)
			assert.True(t, apperrors.IsRecoverable(err))
		})
	}
}

func TestWritersReportDeviceErrors(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	seq := mat.NewDense(1, 2, []float64{1, 2})
	assert.ErrorIs(t, WriteSequence("/dev/full", seq), apperrors.ErrResource)

	d := NewDictionary(2)
	require.NoError(t, d.Add("alpha", []float64{1, 2}))
	assert.ErrorIs(t, WriteDictionary("/dev/full", d), apperrors.ErrResource)
}
