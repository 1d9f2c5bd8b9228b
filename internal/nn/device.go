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

// Package nn holds the numeric models driven by the trainers: a skip-gram
// embedding model and a stacked LSTM classifier, their losses, optimisers,
// learning-rate schedule and checkpoint format. All math runs on gonum
// matrices on the calling goroutine.
package nn

import (
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
)

// Device names where model math runs. It is chosen once when a trainer is
// constructed and never changes during a run.
type Device int

const (
	CPU Device = iota
	Accelerator
)

func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case Accelerator:
		return "accelerator"
	default:
		return "unknown"
	}
}

// SelectDevice resolves a configured device name. Only the CPU backend is
// built into this module, so asking for an accelerator is a configuration
// error rather than a silent fallback.
func SelectDevice(name string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto", "cpu":
		return CPU, nil
	case "accelerator", "cuda", "gpu":
		return Accelerator, apperrors.Configf("select device", "device %q requested but no accelerator backend is available", name)
	default:
		return CPU, apperrors.Configf("select device", "unknown device %q", name)
	}
}
