package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	files map[string][]byte
}

type memWriter struct {
	store *memStore
	name  string
	buf   bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *memWriter) Close() error {
	w.store.files[w.name] = w.buf.Bytes()
	return nil
}

func (s *memStore) WriteFile(name string) (io.WriteCloser, error) {
	return &memWriter{store: s, name: name}, nil
}

func TestUploadTree(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0775))
		require.NoError(t, os.WriteFile(path, []byte(content), 0664))
	}
	write("meta.json", "{}")
	write(filepath.Join("Germany", "tile_1.tif"), "raster-bytes")

	store := &memStore{files: map[string][]byte{}}
	require.NoError(t, UploadTree(logs.NewTestingLog(t), store, root, "preds/exp_00001"))

	require.Len(t, store.files, 2)
	require.Equal(t, []byte("{}"), store.files["preds/exp_00001/meta.json"])
	require.Equal(t, []byte("raster-bytes"), store.files["preds/exp_00001/Germany/tile_1.tif"])
}
