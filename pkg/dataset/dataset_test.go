package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/floodmap/pkg/tensor"
	"github.com/stretchr/testify/require"
)

func TestPadToSize(t *testing.T) {
	a := tensor.NewCHW(1, 2, 3)
	for i := range a.Data {
		a.Data[i] = float32(i + 1)
	}
	p := PadToSize(a, 5, 4)
	require.Equal(t, 5, p.W)
	require.Equal(t, 4, p.H)
	// left = (5-3)/2 = 1, top = (4-2)/2 = 1
	require.Equal(t, float32(0), p.At(0, 0, 0))
	require.Equal(t, a.At(0, 0, 0), p.At(0, 1, 1))
	require.Equal(t, a.At(0, 1, 2), p.At(0, 2, 3))
	require.Equal(t, float32(0), p.At(0, 3, 4))

	// Padding then center-cropping recovers the original exactly
	back := p.CenterCrop(3, 2)
	require.Equal(t, a.Data, back.Data)

	// Already at target size: no copy needed
	same := PadToSize(a, 3, 2)
	require.Equal(t, a, same)

	require.Panics(t, func() { PadToSize(a, 2, 2) })
}

func TestDiscoverTiles(t *testing.T) {
	root := t.TempDir()
	mkTile := func(parts ...string) {
		path := filepath.Join(append([]string{root}, parts...)...)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0775))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0664))
	}
	mkTile("Germany", "PRE-event", "tile_2.tif")
	mkTile("Germany", "PRE-event", "tile_1.tif")
	mkTile("Germany", "POST-event", "tile_1.tif")
	mkTile("Louisiana", "PRE-event", "tile_9.tif")
	mkTile("Louisiana", "POST-event", "tile_9.tif")
	mkTile("Louisiana", "POST-event-2", "tile_9.tif")

	tiles, err := DiscoverTiles(root)
	require.NoError(t, err)
	require.Len(t, tiles, 3)

	// Sorted by pre path, so the order is deterministic for every loader
	require.Equal(t, filepath.Join(root, "Germany", "PRE-event", "tile_1.tif"), tiles[0].PrePath)
	require.Equal(t, filepath.Join(root, "Germany", "PRE-event", "tile_2.tif"), tiles[1].PrePath)
	require.Equal(t, filepath.Join(root, "Louisiana", "PRE-event", "tile_9.tif"), tiles[2].PrePath)

	require.Equal(t, filepath.Join(root, "Germany", "POST-event", "tile_1.tif"), tiles[0].PostAPath)
	require.Equal(t, "", tiles[0].PostBPath)
	require.Equal(t, "", tiles[1].PostAPath)
	require.NotEqual(t, "", tiles[2].PostAPath)
	require.NotEqual(t, "", tiles[2].PostBPath)

	_, err = DiscoverTiles(filepath.Join(root, "empty"))
	require.Error(t, err)
}

func TestNewTileLoaderPostImageChecks(t *testing.T) {
	config := testModelConfig(2)
	tiles := []Tile{{PrePath: "/d/A/PRE-event/t.tif", PostAPath: "/d/A/POST-event/t.tif"}}
	_, err := NewTileLoader(tiles, testVariant(), config, 1)
	require.Error(t, err) // POST-event-2 missing

	config = testModelConfig(0)
	loader, err := NewTileLoader(tiles, testVariant(), config, 4)
	require.NoError(t, err)
	require.Equal(t, 1, loader.NumBatches())

	_, err = NewTileLoader(tiles, testVariant(), config, 0)
	require.Error(t, err)
}

func TestNumBatches(t *testing.T) {
	config := testModelConfig(0)
	tiles := make([]Tile, 7)
	for i := range tiles {
		tiles[i].PrePath = "/d/A/PRE-event/t.tif"
	}
	loader, err := NewTileLoader(tiles, testVariant(), config, 3)
	require.NoError(t, err)
	require.Equal(t, 3, loader.NumBatches())
}
