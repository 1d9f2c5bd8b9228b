package pca

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type PCA struct {
	NumComponents int
	svd           *mat.SVD
	mean          []float64
}

// NewPCA creates a new PCA instance with the specified number of components.
func NewPCA(numComponents int) *PCA {
	return &PCA{NumComponents: numComponents}
}

// FitTransform fits the PCA model to the data and transforms it.
func (pca *PCA) FitTransform(X *mat.Dense) (*mat.Dense, error) {
	if err := pca.Fit(X); err != nil {
		return nil, err
	}
	return pca.Transform(X)
}

// Fit fits the PCA model to the data. X is not modified.
func (pca *PCA) Fit(X *mat.Dense) error {
	if pca.NumComponents < 0 {
		return errors.New("number of components can't be less than zero")
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return errors.New("cannot fit PCA on an empty matrix")
	}

	pca.mean = mean(X)
	centered := matrixSubVector(X, pca.mean)

	pca.svd = &mat.SVD{}
	if ok := pca.svd.Factorize(centered, mat.SVDThin); !ok {
		return errors.New("unable to factorize")
	}
	return nil
}

// Transform projects X onto the fitted components.
func (pca *PCA) Transform(X *mat.Dense) (*mat.Dense, error) {
	if pca.svd == nil {
		return nil, errors.New("you should fit the PCA model first")
	}
	numSamples, numFeatures := X.Dims()
	if numFeatures != len(pca.mean) {
		return nil, fmt.Errorf("expected %d features, got %d", len(pca.mean), numFeatures)
	}

	var vTemp mat.Dense
	pca.svd.VTo(&vTemp)

	projected := compute(matrixSubVector(X, pca.mean), &vTemp)
	if pca.NumComponents == 0 || pca.NumComponents > numFeatures {
		return projected, nil
	}
	result := mat.NewDense(numSamples, pca.NumComponents, nil)
	result.Copy(projected)
	return result, nil
}

// ExplainedVarianceRatio returns the share of the total variance carried by
// each kept component.
func (pca *PCA) ExplainedVarianceRatio() ([]float64, error) {
	if pca.svd == nil {
		return nil, errors.New("you should fit the PCA model first")
	}
	values := pca.svd.Values(nil)
	var total float64
	for _, v := range values {
		total += v * v
	}
	n := len(values)
	if pca.NumComponents > 0 && pca.NumComponents < n {
		n = pca.NumComponents
	}
	ratios := make([]float64, n)
	if total == 0 {
		return ratios, nil
	}
	for i := range ratios {
		ratios[i] = values[i] * values[i] / total
	}
	return ratios, nil
}

// Helper functions

// mean computes the mean of the columns of the input matrix.
func mean(matrix *mat.Dense) []float64 {
	rows, cols := matrix.Dims()
	meanVector := make([]float64, cols)
	for i := 0; i < cols; i++ {
		meanVector[i] = mat.Sum(matrix.ColView(i)) / float64(rows)
	}
	return meanVector
}

// matrixSubVector returns a copy of m with vec subtracted from every row.
func matrixSubVector(m *mat.Dense, vec []float64) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j)-vec[j])
		}
	}
	return out
}

// compute multiplies the input matrix X by the matrix Y.
func compute(X, Y mat.Matrix) *mat.Dense {
	var ret mat.Dense
	ret.Mul(X, Y)
	return &ret
}
