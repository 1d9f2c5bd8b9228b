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
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
)

// JSONResponse represents the structure of a typical JSON response
type JSONResponse struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	ZuluTime string      `json:"zuluTime"`
}

// SendJSON sends a JSON response with the given status code, message, and data
func SendJSON(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, JSONResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// SendError sends a JSON error response, deriving the status code from the
// error kind.
func SendError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusForError(err), JSONResponse{
		Status:  "error",
		Message: err.Error(),
	})
}

// StatusForError maps the error taxonomy onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrConfiguration), errors.Is(err, apperrors.ErrDataFormat):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrResource):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, response JSONResponse) {
	response.ZuluTime = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
