package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bin", "b.bin", "c.txt"} {
		writeFile(t, filepath.Join(dir, name), name)
	}
	argFile := filepath.Join(dir, "args")
	writeFile(t, argFile, "c.txt\n\n   \nsub/d.bin\n")

	paths, err := expandPaths([]string{filepath.Join(dir, "*.bin"), filepath.Join(dir, "none-*.bin")}, argFile)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.bin"),
		filepath.Join(dir, "b.bin"),
		filepath.Join(dir, "none-*.bin"),
		filepath.Join(cwd, "c.txt"),
		filepath.Join(cwd, "sub", "d.bin"),
	}, paths)
}

func TestExpandPathsErrors(t *testing.T) {
	_, err := expandPaths([]string{"[bad"}, "")
	require.Error(t, err)

	_, err = expandPaths(nil, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	paths, err := expandPaths(nil, "")
	require.NoError(t, err)
	assert.Empty(t, paths)
}
