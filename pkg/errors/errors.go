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

// Package errors defines the error taxonomy shared by the conversion and
// training pipelines. Every error raised by this module wraps one of the
// sentinel kinds so callers can decide between aborting and skipping with
// errors.Is.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrDataFormat    = errors.New("data format error")
	ErrResource      = errors.New("resource error")
	ErrNumerical     = errors.New("numerical error")
)

// Error carries the kind of failure together with the location it was
// detected at.
type Error struct {
	Kind    error
	Op      string
	Path    string
	Line    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Configf reports an invalid or unsupported configuration.
func Configf(op string, format string, args ...any) error {
	return &Error{
		Kind:    ErrConfiguration,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// DataFormat reports a malformed record at path:line.
func DataFormat(path string, line int, message string, err error) error {
	return &Error{
		Kind:    ErrDataFormat,
		Path:    path,
		Line:    line,
		Message: message,
		Err:     err,
	}
}

// Resource reports a missing or unreadable file.
func Resource(op, path string, err error) error {
	return &Error{
		Kind: ErrResource,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Numericalf reports a non-finite value produced during training.
func Numericalf(op string, format string, args ...any) error {
	return &Error{
		Kind:    ErrNumerical,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsRecoverable reports whether err only affects a single record.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDataFormat)
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	default:
		return 1
	}
}
