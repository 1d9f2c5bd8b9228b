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

package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
)

// TimestampLayout is the layout used in every generated file name.
const TimestampLayout = "2006_01_02_15_04_05"

// TimestampedName formats t for use in file names.
func TimestampedName(t time.Time) string {
	return t.Format(TimestampLayout)
}

// GenerateFilePaths returns dir/0ext ... dir/(n-1)ext in order.
func GenerateFilePaths(dir string, n int, ext string) []string {
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		paths[i] = filepath.Join(dir, strconv.Itoa(i)+ext)
	}
	return paths
}

// WriteSeriesCSV writes one "index,value" row per element of values.
func WriteSeriesCSV(path string, values []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Resource("create csv directory", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return apperrors.Resource("create csv", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	for i, v := range values {
		row := []string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.Resource("flush csv", path, err)
	}
	if err := file.Close(); err != nil {
		return apperrors.Resource("close csv", path, err)
	}
	return nil
}

// ReadSeriesCSV reads a file written by WriteSeriesCSV.
func ReadSeriesCSV(path string) ([]int, []float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.Resource("open csv", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, apperrors.DataFormat(path, 0, "reading csv", err)
	}

	xs := make([]int, 0, len(records))
	ys := make([]float64, 0, len(records))
	for i, record := range records {
		x, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, nil, apperrors.DataFormat(path, i+1, "index is not an integer", err)
		}
		y, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, nil, apperrors.DataFormat(path, i+1, "value is not a float", err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys, nil
}

// Curves holds the series produced by one training run.
type Curves struct {
	Losses           []float64
	NegativeAccuracy []float64
	PositiveAccuracy []float64
}

// ResultsToCSV writes the loss curve to lossDir and, when accuracyDir is set
// and accuracies were recorded, one file per class to accuracyDir. It
// returns the paths it wrote.
func ResultsToCSV(curves Curves, info, lossDir, accuracyDir string, now time.Time) ([]string, error) {
	timestamp := TimestampedName(now)
	var written []string

	lossFile := filepath.Join(lossDir, "lss_"+info+"_date_"+timestamp+".csv")
	if err := WriteSeriesCSV(lossFile, curves.Losses); err != nil {
		return written, err
	}
	written = append(written, lossFile)

	if accuracyDir == "" || len(curves.NegativeAccuracy) == 0 {
		return written, nil
	}

	series := []struct {
		prefix string
		values []float64
	}{
		{"acc_neg_", curves.NegativeAccuracy},
		{"acc_pos_", curves.PositiveAccuracy},
	}
	for _, s := range series {
		path := filepath.Join(accuracyDir, s.prefix+info+"_date_"+timestamp+".csv")
		if err := WriteSeriesCSV(path, s.values); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
