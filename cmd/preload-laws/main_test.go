package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("# civil law\n001706\n\n  009999  # collateral\n#000001\n"), 0644))

	ids, err := readIDs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"001706", "009999"}, ids)

	_, err = readIDs(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
