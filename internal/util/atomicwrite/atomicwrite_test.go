package atomicwrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLines_ReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snap.jsonl")

	require.NoError(t, WriteLines(path, [][]byte{[]byte("a"), []byte("b")}, 0o600))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(got))

	require.NoError(t, WriteLines(path, nil, 0o600))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, WriteFile(path, []byte("x"), 0o644))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}
