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

// Package dataset serves labelled vector sequences for classifier training
// and holds the category and label file types shared with the converter.
package dataset

import (
	"fmt"
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
)

// CategoryCode is the integer category assigned to a document, 0 to 9.
type CategoryCode int

const (
	MinCategory CategoryCode = 0
	MaxCategory CategoryCode = 9
)

// BinaryLabel is the two-class target derived from a CategoryCode.
type BinaryLabel int

const (
	Negative BinaryLabel = 0
	Positive BinaryLabel = 1
)

func (l BinaryLabel) String() string {
	if l == Positive {
		return "positive"
	}
	return "negative"
}

// categoryToBinary maps every valid code to its class: 0-4 negative, 5-9 positive.
var categoryToBinary = [...]BinaryLabel{
	0: Negative, 1: Negative, 2: Negative, 3: Negative, 4: Negative,
	5: Positive, 6: Positive, 7: Positive, 8: Positive, 9: Positive,
}

func (c CategoryCode) Valid() bool {
	return c >= MinCategory && c <= MaxCategory
}

// Binary returns the class of c.
func (c CategoryCode) Binary() (BinaryLabel, error) {
	if !c.Valid() {
		return Negative, apperrors.DataFormat("", 0, fmt.Sprintf("category code %d outside %d..%d", int(c), MinCategory, MaxCategory), nil)
	}
	return categoryToBinary[c], nil
}

// Field selects which column of a multi-column label file is used.
type Field int

const (
	PropertyType Field = iota
	TenementSteading
	ExclusiveStrata
	ExclusiveSolum
	CommonStrata
	CommonSolum
	AdditionalInfo
	CharCount
)

var fieldNames = [...]string{
	PropertyType:     "property_type",
	TenementSteading: "tenement_steading",
	ExclusiveStrata:  "exclusive_strata",
	ExclusiveSolum:   "exclusive_solum",
	CommonStrata:     "common_strata",
	CommonSolum:      "common_solum",
	AdditionalInfo:   "additional_info",
	CharCount:        "char_count",
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField maps a configured field name to its column.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return Field(i), nil
		}
	}
	return 0, apperrors.Configf("parse field", "unknown label field %q (want one of %s)", name, strings.Join(fieldNames[:], ", "))
}
