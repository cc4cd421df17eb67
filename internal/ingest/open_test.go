package ingest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnappy(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := snappy.NewBufferedWriter(f)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestOpenFile_Snappy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kills.txt.sz")
	writeSnappy(t, path, killLog)

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	events, err := ReadKills(f)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestOpenFile_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kills.txt")
	require.NoError(t, os.WriteFile(path, []byte(killLog), 0644))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, killLog, string(data))
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
