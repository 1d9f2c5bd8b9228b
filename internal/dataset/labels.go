package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
)

// ReadLabels reads one category code per line. Lines with several columns,
// separated by commas or whitespace, use the column selected by field.
func ReadLabels(path string, field Field) ([]CategoryCode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Resource("read labels", path, err)
	}
	defer f.Close()

	var codes []CategoryCode
	scanner := bufio.NewScanner(f)
	lineNo, blank := 0, 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if blank == 0 {
				blank = lineNo
			}
			continue
		}
		// Only trailing blank lines are allowed; an interior one would shift
		// every later label onto the wrong vector file.
		if blank > 0 {
			return nil, apperrors.DataFormat(path, blank, "blank line between labels", nil)
		}
		cols := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		col := cols[0]
		if len(cols) > 1 {
			if int(field) >= len(cols) {
				return nil, apperrors.DataFormat(path, lineNo, fmt.Sprintf("no column for field %s", field), nil)
			}
			col = cols[field]
		}
		n, err := strconv.Atoi(col)
		if err != nil {
			return nil, apperrors.DataFormat(path, lineNo, "bad category code", err)
		}
		code := CategoryCode(n)
		if !code.Valid() {
			return nil, apperrors.DataFormat(path, lineNo, fmt.Sprintf("category code %d outside %d..%d", n, MinCategory, MaxCategory), nil)
		}
		codes = append(codes, code)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Resource("read labels", path, err)
	}
	return codes, nil
}

// WriteLabels writes one code per line, index aligned with the vector files.
func WriteLabels(path string, codes []CategoryCode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Resource("write labels", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Resource("write labels", path, err)
	}

	w := bufio.NewWriter(f)
	for _, c := range codes {
		w.WriteString(strconv.Itoa(int(c)))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return apperrors.Resource("write labels", path, err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Resource("write labels", path, err)
	}
	return nil
}
