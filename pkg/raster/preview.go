package raster

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/floodmap/pkg/tensor"
)

// PreviewImage packs the first (up to) three channels of a probability tensor
// into an RGB image so you can eyeball predictions without GIS tooling.
// This is an explicitly lossy format reduction: channels beyond the third are
// dropped. The georeferenced GeoTIFF output keeps every channel; when you need
// all of them, use that.
func PreviewImage(prob tensor.CHW) *cimg.Image {
	nchan := min(prob.C, 3)
	img := cimg.NewImage(prob.W, prob.H, cimg.PixelFormatRGB)
	for c := 0; c < nchan; c++ {
		plane := prob.Channel(c)
		for i, v := range plane {
			img.Pixels[i*3+c] = uint8(v * 255)
		}
	}
	return img
}

// WritePreview writes the lossy RGB preview as a JPEG
func WritePreview(prob tensor.CHW, dstPath string) error {
	img := PreviewImage(prob)
	jpg, err := cimg.Compress(img, cimg.MakeCompressParams(cimg.Sampling444, 95, 0))
	if err != nil {
		return fmt.Errorf("Failed to compress preview: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0775); err != nil {
		return err
	}
	return os.WriteFile(dstPath, jpg, 0664)
}
