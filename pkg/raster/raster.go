package raster

// Package raster reads satellite tiles and writes georeferenced prediction
// rasters, via GDAL. The writer copies the geotransform and CRS from a
// reference image, so outputs land on exactly the same geographic footprint
// as the tile they were predicted from.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/floodmap/pkg/tensor"
	"github.com/lukeroth/gdal"
)

// ReadImage loads a raster into a CHW float32 tensor, one channel per band
func ReadImage(path string) (tensor.CHW, error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return tensor.CHW{}, fmt.Errorf("Failed to open raster %v: %w", path, err)
	}
	defer ds.Close()

	w := ds.RasterXSize()
	h := ds.RasterYSize()
	nBands := ds.RasterCount()
	img := tensor.NewCHW(nBands, h, w)
	for b := 1; b <= nBands; b++ {
		band := ds.RasterBand(b)
		if err := band.IO(gdal.RWFlag(gdal.Read), 0, 0, w, h, img.Channel(b-1), w, h, 0, 0); err != nil {
			return tensor.CHW{}, fmt.Errorf("Failed to read band %v of %v: %w", b, path, err)
		}
	}
	return img, nil
}

// WriteGeoref writes a uint8 raster of shape [c,h,w] to dstPath as a GeoTIFF,
// copying the geotransform and projection from refPath. Destination
// directories are created as needed.
func WriteGeoref(data []uint8, c, h, w int, refPath, dstPath string) error {
	if len(data) != c*h*w {
		return fmt.Errorf("Raster data has %v bytes, shape %vx%vx%v needs %v", len(data), c, h, w, c*h*w)
	}
	ref, err := gdal.Open(refPath, gdal.ReadOnly)
	if err != nil {
		return fmt.Errorf("Failed to open georeference source %v: %w", refPath, err)
	}
	defer ref.Close()

	if err := os.MkdirAll(filepath.Dir(dstPath), 0775); err != nil {
		return fmt.Errorf("Failed to create output directory for %v: %w", dstPath, err)
	}

	driver, err := gdal.GetDriverByName("GTiff")
	if err != nil {
		return fmt.Errorf("GTiff driver unavailable: %w", err)
	}
	dst := driver.Create(dstPath, w, h, c, gdal.Byte, nil)
	defer dst.Close()

	dst.SetGeoTransform(ref.GeoTransform())
	if err := dst.SetProjection(ref.Projection()); err != nil {
		return fmt.Errorf("Failed to set projection on %v: %w", dstPath, err)
	}
	for b := 1; b <= c; b++ {
		band := dst.RasterBand(b)
		plane := data[(b-1)*h*w : b*h*w]
		if err := band.IO(gdal.RWFlag(gdal.Write), 0, 0, w, h, plane, w, h, 0, 0); err != nil {
			return fmt.Errorf("Failed to write band %v of %v: %w", b, dstPath, err)
		}
	}
	return nil
}

// Quantize converts a probability tensor in [0,1] to 8-bit by multiplying by
// 255 and truncating
func Quantize(prob tensor.CHW) []uint8 {
	out := make([]uint8, len(prob.Data))
	for i, v := range prob.Data {
		out[i] = uint8(v * 255)
	}
	return out
}
