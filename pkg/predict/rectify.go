package predict

import (
	"path/filepath"

	"github.com/cyclopcam/floodmap/pkg/dataset"
	"github.com/cyclopcam/floodmap/pkg/nn"
	"github.com/cyclopcam/floodmap/pkg/tensor"
)

// rectify transforms one variant's raw probability map into canonical space:
// nodata-masked, unflipped, and cropped to the sample's pre-padding size.
//
// Masks are computed from the sample's (augmented) source images, so they line
// up with the still-augmented probability map; the masking must therefore
// happen before the inverse flips. The center crop is last, after the map is
// back in canonical orientation.
//
// The probability map is modified in place; the returned tensor is a fresh
// cropped copy.
func (p *Pipeline) rectify(prob tensor.CHW, sample *dataset.Sample, variant nn.Variant) tensor.CHW {
	// Nodata in the pre-event capture invalidates every class
	prob.ZeroMaskedAll(sample.Image.NodataMask())

	// Nodata in the post-event captures invalidates only the classes that are
	// conditioned on them. With two post images, a pixel counts as nodata only
	// when both captures are missing there.
	if sample.ImagePostA != nil {
		postMask := sample.ImagePostA.NodataMask()
		if sample.ImagePostB != nil {
			postMask.And(sample.ImagePostB.NodataMask())
		}
		for ci, class := range p.classes {
			if nn.IsPostConditioned(class) {
				prob.ZeroMasked(ci, postMask)
			}
		}
	}

	// Undo the variant's geometric transform. The flips are independent and
	// commute; vertical goes first by convention.
	if variant.FlipV {
		prob.FlipVertical()
	}
	if variant.FlipH {
		prob.FlipHorizontal()
	}

	// Remove the preprocessing padding. CenterCrop panics if the target
	// exceeds the map size, which can only mean broken upstream padding.
	return prob.CenterCrop(sample.OriginalWidth, sample.OriginalHeight)
}

// OutputPath derives the destination for a sample from its pre-image path.
// Tiles live at <dataRoot>/<AOI>/PRE-event/<filename>; outputs mirror that as
// <outRoot>/<AOI>/<filename>. Every variant of a sample must derive the same
// path, which the accumulator verifies.
func OutputPath(outRoot, preImagePath string) string {
	aoi := filepath.Base(filepath.Dir(filepath.Dir(preImagePath)))
	return filepath.Join(outRoot, aoi, filepath.Base(preImagePath))
}
