package dataset

// Package dataset feeds georeferenced tiles to the inference pipeline.
// One Loader is created per active TTA variant; all loaders walk the same tile
// list in the same order, so the pipeline can iterate them in lockstep and
// trust that batch i holds the same samples in every loader.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cyclopcam/floodmap/pkg/nn"
	"github.com/cyclopcam/floodmap/pkg/raster"
	"github.com/cyclopcam/floodmap/pkg/tensor"
)

// Sample is one georeferenced tile instance, ready for the network.
// Image tensors are scaled to [0,1], padded up to the model input size, and
// flipped according to the loader's TTA variant. Nodata pixels stay exactly
// zero through all of that, which is what the rectifier's masking relies on.
type Sample struct {
	PreImagePath   string // Identity key, and georeference source for the output
	OriginalWidth  int    // Raster width before padding
	OriginalHeight int    // Raster height before padding
	Image          tensor.CHW
	ImagePostA     *tensor.CHW // Present iff the run is configured with >= 1 post images
	ImagePostB     *tensor.CHW // Present iff the run is configured with 2 post images
}

// Batch is a group of samples processed in one forward pass
type Batch struct {
	Samples []Sample
}

// Loader yields batches of samples. Next returns io.EOF after the last batch.
type Loader interface {
	Next() (*Batch, error)
	NumBatches() int
}

// Tile is one discovered tile on disk: the pre-event image plus whichever
// post-event images exist alongside it.
type Tile struct {
	PrePath   string
	PostAPath string // "" if absent
	PostBPath string // "" if absent
}

// DiscoverTiles finds tiles under root. The expected layout is
// root/<AOI>/PRE-event/<filename>, with post-event captures of the same
// filename under POST-event and POST-event-2.
// The returned list is sorted by pre-image path, so every caller sees the
// same deterministic order.
func DiscoverTiles(root string) ([]Tile, error) {
	pres, err := filepath.Glob(filepath.Join(root, "*", "PRE-event", "*"))
	if err != nil {
		return nil, err
	}
	tiles := []Tile{}
	for _, prePath := range pres {
		info, err := os.Stat(prePath)
		if err != nil || info.IsDir() {
			continue
		}
		aoiDir := filepath.Dir(filepath.Dir(prePath))
		filename := filepath.Base(prePath)
		tile := Tile{PrePath: prePath}
		postA := filepath.Join(aoiDir, "POST-event", filename)
		if _, err := os.Stat(postA); err == nil {
			tile.PostAPath = postA
		}
		postB := filepath.Join(aoiDir, "POST-event-2", filename)
		if _, err := os.Stat(postB); err == nil {
			tile.PostBPath = postB
		}
		tiles = append(tiles, tile)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].PrePath < tiles[j].PrePath })
	if len(tiles) == 0 {
		return nil, fmt.Errorf("No tiles found under %v", root)
	}
	return tiles, nil
}

// TileLoader is the disk-backed Loader. It reads tiles with GDAL, scales to
// [0,1], pads to the model input size, and applies its variant's flips.
type TileLoader struct {
	tiles         []Tile
	variant       nn.Variant
	batchSize     int
	targetWidth   int
	targetHeight  int
	numPostImages int
	next          int
}

// NewTileLoader creates a loader over a shared tile list.
// All loaders of a run must be given the same tile list, in the same order.
func NewTileLoader(tiles []Tile, variant nn.Variant, config *nn.ModelConfig, batchSize int) (*TileLoader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("Invalid batch size %v", batchSize)
	}
	for _, t := range tiles {
		if config.NumPostImages >= 1 && t.PostAPath == "" {
			return nil, fmt.Errorf("Model expects %v post images, but %v has no POST-event capture", config.NumPostImages, t.PrePath)
		}
		if config.NumPostImages >= 2 && t.PostBPath == "" {
			return nil, fmt.Errorf("Model expects 2 post images, but %v has no POST-event-2 capture", t.PrePath)
		}
	}
	return &TileLoader{
		tiles:         tiles,
		variant:       variant,
		batchSize:     batchSize,
		targetWidth:   config.Width,
		targetHeight:  config.Height,
		numPostImages: config.NumPostImages,
	}, nil
}

func (l *TileLoader) NumBatches() int {
	return (len(l.tiles) + l.batchSize - 1) / l.batchSize
}

func (l *TileLoader) Next() (*Batch, error) {
	if l.next >= len(l.tiles) {
		return nil, io.EOF
	}
	end := min(l.next+l.batchSize, len(l.tiles))
	batch := &Batch{}
	for _, tile := range l.tiles[l.next:end] {
		sample, err := l.loadSample(tile)
		if err != nil {
			return nil, err
		}
		batch.Samples = append(batch.Samples, sample)
	}
	l.next = end
	return batch, nil
}

func (l *TileLoader) loadSample(tile Tile) (Sample, error) {
	pre, origW, origH, err := l.loadImage(tile.PrePath)
	if err != nil {
		return Sample{}, err
	}
	sample := Sample{
		PreImagePath:   tile.PrePath,
		OriginalWidth:  origW,
		OriginalHeight: origH,
		Image:          pre,
	}
	if l.numPostImages >= 1 {
		post, _, _, err := l.loadImage(tile.PostAPath)
		if err != nil {
			return Sample{}, err
		}
		sample.ImagePostA = &post
	}
	if l.numPostImages >= 2 {
		post, _, _, err := l.loadImage(tile.PostBPath)
		if err != nil {
			return Sample{}, err
		}
		sample.ImagePostB = &post
	}
	return sample, nil
}

func (l *TileLoader) loadImage(path string) (img tensor.CHW, origW, origH int, err error) {
	raw, err := raster.ReadImage(path)
	if err != nil {
		return tensor.CHW{}, 0, 0, err
	}
	origW = raw.W
	origH = raw.H
	for i, v := range raw.Data {
		raw.Data[i] = v / 255.0
	}
	img = PadToSize(raw, l.targetWidth, l.targetHeight)
	if l.variant.FlipV {
		img.FlipVertical()
	}
	if l.variant.FlipH {
		img.FlipHorizontal()
	}
	return img, origW, origH, nil
}
