package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/VecTrainer/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitQueries(t *testing.T) {
	assert.Nil(t, splitQueries(""))
	assert.Equal(t, []string{"alpha", "beta"}, splitQueries(" alpha, ,beta "))
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad config is exit code 2", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("lstm:\n  hiden_dim: 3\n"), 0o644))
		assert.Equal(t, 2, run(path, "lstm", pipeline.Options{}))
	})

	t.Run("unknown mode is exit code 2", func(t *testing.T) {
		assert.Equal(t, 2, run("", "serve", pipeline.Options{}))
	})

	t.Run("missing dictionary is exit code 1", func(t *testing.T) {
		path := filepath.Join(dir, "project.yaml")
		content := "logging:\n  level: error\npaths:\n  dictionary_file: " + filepath.Join(dir, "nope.txt") +
			"\n  projection_csv: " + filepath.Join(dir, "p.csv") + "\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		assert.Equal(t, 1, run(path, "project", pipeline.Options{}))
	})

	t.Run("project succeeds", func(t *testing.T) {
		dict := filepath.Join(dir, "dictionary.txt")
		require.NoError(t, os.WriteFile(dict, []byte("3 2 0\nalpha 1 0\nbeta 0 1\ngamma 1 1\n"), 0o644))
		path := filepath.Join(dir, "ok.yaml")
		content := "logging:\n  level: error\npaths:\n  dictionary_file: " + dict +
			"\n  projection_csv: " + filepath.Join(dir, "out", "p.csv") + "\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		assert.Equal(t, 0, run(path, "project", pipeline.Options{}))
		assert.FileExists(t, filepath.Join(dir, "out", "p.csv"))
	})
}
