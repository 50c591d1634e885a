package predict

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/floodmap/pkg/raster"
	"github.com/cyclopcam/floodmap/pkg/tensor"
)

// Accumulating in float32 can overshoot the mathematical [0,1] bound by a few
// ulps when the normalized weights don't sum to exactly 1 in float. Anything
// beyond this tolerance is a genuine invariant break.
const boundsEpsilon = 1e-5

// materialize quantizes the accumulated probability map and writes it as a
// georeferenced raster against the sample's pre-image. All class channels are
// preserved in the raster; only the optional preview is channel-reduced.
func (p *Pipeline) materialize(acc tensor.CHW, preImagePath, outPath string) error {
	mn, mx := acc.MinMax()
	if mn < 0 || mx > 1+boundsEpsilon {
		return fmt.Errorf("%w: sample %v accumulated to [%v, %v]", ErrProbabilityBounds, preImagePath, mn, mx)
	}
	for i, v := range acc.Data {
		acc.Data[i] = min(v, 1)
	}

	if err := p.writer.WriteGeoref(raster.Quantize(acc), acc.C, acc.H, acc.W, preImagePath, outPath); err != nil {
		return fmt.Errorf("Failed to write prediction for %v: %w", preImagePath, err)
	}
	if p.options.WritePreviews {
		// Lossy by design: only the first three channels survive into the JPEG
		if err := raster.WritePreview(acc, previewPath(outPath)); err != nil {
			return fmt.Errorf("Failed to write preview for %v: %w", preImagePath, err)
		}
	}
	return nil
}

func previewPath(outPath string) string {
	ext := filepath.Ext(outPath)
	return strings.TrimSuffix(outPath, ext) + ".preview.jpg"
}

// runMeta is the per-run descriptor written next to the outputs, so that
// downstream consumers can interpret the channel order of the rasters
type runMeta struct {
	Groups  []string            `json:"groups"`
	Classes map[string][]string `json:"classes"`
}

// writeMeta writes <outRoot>/meta.json, once per run, before the first batch
func (p *Pipeline) writeMeta() error {
	meta := runMeta{
		Groups:  []string{},
		Classes: map[string][]string{},
	}
	for _, g := range p.model.Config().ClassGroups {
		meta.Groups = append(meta.Groups, g.Name)
		meta.Classes[g.Name] = g.Classes
	}
	if err := os.MkdirAll(p.options.OutRoot, 0775); err != nil {
		return fmt.Errorf("Failed to create output root %v: %w", p.options.OutRoot, err)
	}
	b, err := json.Marshal(&meta)
	if err != nil {
		return err
	}
	metaPath := filepath.Join(p.options.OutRoot, "meta.json")
	if err := os.WriteFile(metaPath, b, 0664); err != nil {
		return fmt.Errorf("Failed to write %v: %w", metaPath, err)
	}
	return nil
}
