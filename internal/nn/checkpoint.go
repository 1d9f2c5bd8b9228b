package nn

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Architecture identifies a model family and the dimensions that determine
// its parameter shapes.
type Architecture struct {
	Kind string
	Dims map[string]int
}

func (a Architecture) String() string {
	keys := make([]string, 0, len(a.Dims))
	for k := range a.Dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, a.Dims[k])
	}
	return a.Kind + "(" + strings.Join(parts, ", ") + ")"
}

// Checkpointable is a model whose parameters can be saved and restored.
type Checkpointable interface {
	Architecture() Architecture
	Tensors() []NamedTensor
}

type tensorData struct {
	Rows, Cols int
	Data       []float64
}

// Checkpoint is the on-disk form of a model's parameters.
type Checkpoint struct {
	Architecture Architecture
	Tensors      map[string]tensorData
}

// SaveCheckpoint writes the model's parameters to path with gob encoding.
// The file is written next to path and renamed into place.
func SaveCheckpoint(path string, model Checkpointable) error {
	ckpt := Checkpoint{
		Architecture: model.Architecture(),
		Tensors:      make(map[string]tensorData),
	}
	for _, t := range model.Tensors() {
		rows, cols := t.Value.Dims()
		data := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			data = append(data, t.Value.RawRowView(i)...)
		}
		ckpt.Tensors[t.Name] = tensorData{Rows: rows, Cols: cols, Data: data}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Resource("save checkpoint", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ckpt-*")
	if err != nil {
		return apperrors.Resource("save checkpoint", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(&ckpt); err != nil {
		tmp.Close()
		return apperrors.Resource("save checkpoint", path, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Resource("save checkpoint", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.Resource("save checkpoint", path, err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Resource("load checkpoint", path, err)
	}
	defer f.Close()

	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, apperrors.Resource("load checkpoint", path, fmt.Errorf("decode: %w", err))
	}
	return &ckpt, nil
}

// Apply copies the checkpoint into model. With no required dimensions the
// architectures must match exactly. Otherwise only the listed dimensions must
// match, and tensors whose shape differs keep the model's fresh values.
// It returns the names of the tensors that were copied.
func (c *Checkpoint) Apply(model Checkpointable, required ...string) ([]string, error) {
	want := model.Architecture()
	if c.Architecture.Kind != want.Kind {
		return nil, apperrors.Configf("apply checkpoint", "checkpoint holds a %s model, expected %s", c.Architecture.Kind, want.Kind)
	}

	var mismatches []string
	check := func(name string) {
		if c.Architecture.Dims[name] != want.Dims[name] {
			mismatches = append(mismatches, fmt.Sprintf("%s: checkpoint %d, model %d", name, c.Architecture.Dims[name], want.Dims[name]))
		}
	}
	if len(required) == 0 {
		for name := range want.Dims {
			check(name)
		}
		for name := range c.Architecture.Dims {
			if _, ok := want.Dims[name]; !ok {
				check(name)
			}
		}
	} else {
		for _, name := range required {
			check(name)
		}
	}
	if len(mismatches) > 0 {
		sort.Strings(mismatches)
		return nil, apperrors.Configf("apply checkpoint", "architecture mismatch: %s", strings.Join(mismatches, "; "))
	}

	var copied []string
	for _, t := range model.Tensors() {
		saved, ok := c.Tensors[t.Name]
		rows, cols := t.Value.Dims()
		if !ok || saved.Rows != rows || saved.Cols != cols || len(saved.Data) != rows*cols {
			if len(required) == 0 {
				return nil, apperrors.Configf("apply checkpoint", "tensor %s missing or misshapen in checkpoint", t.Name)
			}
			continue
		}
		t.Value.Copy(mat.NewDense(rows, cols, saved.Data))
		copied = append(copied, t.Name)
	}
	return copied, nil
}
