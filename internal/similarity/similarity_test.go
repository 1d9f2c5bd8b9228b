package similarity

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/VecTrainer/internal/encoder"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDictionary(t *testing.T) *encoder.Dictionary {
	t.Helper()
	d := encoder.NewDictionary(2)
	require.NoError(t, d.Add("flat", []float64{1, 0}))
	require.NoError(t, d.Add("apartment", []float64{0.9, 0.1}))
	require.NoError(t, d.Add("garden", []float64{0, 1}))
	require.NoError(t, d.Add("basement", []float64{-1, 0}))
	return d
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical", []float64{1, 2}, []float64{1, 2}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 3}, 0},
		{"opposite", []float64{1, 1}, []float64{-2, -2}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-12)
		})
	}
}

func TestAngularDistance(t *testing.T) {
	assert.InDelta(t, 0, AngularDistance([]float64{1, 0}, []float64{2, 0}), 1e-7)
	assert.InDelta(t, 0.5, AngularDistance([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.InDelta(t, 1, AngularDistance([]float64{1, 0}, []float64{-1, 0}), 1e-12)
}

func TestNearest(t *testing.T) {
	idx := NewIndex(testDictionary(t))

	got, err := idx.Nearest("flat", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "apartment", got[0].Word)
	assert.Equal(t, "garden", got[1].Word)
	assert.InDelta(t, 0.9/math.Sqrt(0.82), got[0].Similarity, 1e-12)

	all, err := idx.Nearest("flat", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "basement", all[2].Word)

	_, err = idx.Nearest("castle", 3)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestDocumentVector(t *testing.T) {
	d := testDictionary(t)
	assert.Equal(t, []float64{0.5, 0.5}, DocumentVector(d, []string{"flat", "garden", "unknown"}))
	assert.Nil(t, DocumentVector(d, []string{"unknown"}))

	weight := func(w string) float64 {
		if w == "flat" {
			return 3
		}
		return 1
	}
	assert.Equal(t, []float64{0.75, 0.25}, WeightedDocumentVector(d, []string{"flat", "garden"}, weight))
}

func TestWriteNeighboursCSV(t *testing.T) {
	idx := NewIndex(testDictionary(t))
	res, err := idx.Nearest("garden", 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sim.csv")
	require.NoError(t, WriteNeighboursCSV(path, []string{"garden"}, map[string][]Neighbour{"garden": res}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"query", "rank", "neighbour", "similarity"}, rows[0])
	assert.Equal(t, "garden", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "apartment", rows[1][2])
}

func TestAngularDistancesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist.csv")
	require.NoError(t, AngularDistancesCSV(path, [][]float64{{1, 0}, nil, {0, 1}}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"0.000000", "", "0.500000"}, rows[0])
	assert.Equal(t, []string{"", "", ""}, rows[1])
}
