package encoder

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// WriteSequence writes one line per row with space separated values.
func WriteSequence(path string, seq mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Resource("write sequence", path, err)
	}

	rows, cols := seq.Dims()
	w := bufio.NewWriter(f)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.FormatFloat(seq.At(i, j), 'g', -1, 64))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return apperrors.Resource("write sequence", path, err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Resource("write sequence", path, err)
	}
	return nil
}

// ReadSequence reads a vector file written by WriteSequence. Every line must
// hold dim values; when rows is positive the file must hold exactly rows lines.
func ReadSequence(path string, rows, dim int) (*mat.Dense, error) {
	if dim <= 0 {
		return nil, apperrors.Configf("read sequence", "dimension must be positive, got %d", dim)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Resource("read sequence", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var data []float64
	lineNo, n := 0, 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n++
		fields := strings.Fields(line)
		if len(fields) != dim {
			return nil, apperrors.DataFormat(path, lineNo, fmt.Sprintf("expected %d values, got %d", dim, len(fields)), nil)
		}
		for _, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, apperrors.DataFormat(path, lineNo, "bad value", err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, apperrors.DataFormat(path, lineNo, "non-finite value", nil)
			}
			data = append(data, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Resource("read sequence", path, err)
	}
	if n == 0 {
		return nil, apperrors.DataFormat(path, 0, "empty sequence file", nil)
	}
	if rows > 0 && n != rows {
		return nil, apperrors.DataFormat(path, lineNo, fmt.Sprintf("expected %d rows, got %d", rows, n), nil)
	}
	return mat.NewDense(n, dim, data), nil
}
