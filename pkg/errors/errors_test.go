package errors

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		code int
	}{
		{"configuration", Configf("weight init", "mode %q not supported", "bogus"), ErrConfiguration, 2},
		{"data format", DataFormat("doc.vec", 3, "bad float", nil), ErrDataFormat, 1},
		{"resource", Resource("open", "missing.txt", fs.ErrNotExist), ErrResource, 1},
		{"numerical", Numericalf("train", "loss is %v", "NaN"), ErrNumerical, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.Equal(t, tt.code, ExitCode(tt.err))
		})
	}
}

func TestResourceKeepsCause(t *testing.T) {
	err := Resource("open", "missing.txt", fs.ErrNotExist)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.txt")

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "missing.txt", e.Path)
}

func TestDataFormatMessage(t *testing.T) {
	err := DataFormat("doc.vec", 7, "expected 2 columns", nil)
	assert.Equal(t, "data format error: doc.vec:7: expected 2 columns", err.Error())
	assert.True(t, IsRecoverable(err))
	assert.False(t, IsRecoverable(Configf("x", "y")))
	assert.Equal(t, 0, ExitCode(nil))
}
