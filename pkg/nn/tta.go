package nn

// Test-time augmentation (TTA) descriptors. The set of augmentations is small
// and closed: identity, horizontal flip, vertical flip. Adding a new kind means
// adding a variant here plus its inverse transform in the rectifier.

// Variant is one TTA configuration. The identity variant has both flips false.
type Variant struct {
	FlipH  bool    // Mirror along the width axis
	FlipV  bool    // Mirror along the height axis
	Weight float64 // Ensemble weight, > 0. Normalized across active variants before use.
}

func (v Variant) Name() string {
	switch {
	case v.FlipH && v.FlipV:
		return "hvflip"
	case v.FlipH:
		return "hflip"
	case v.FlipV:
		return "vflip"
	}
	return "identity"
}

// ActiveVariants returns the variant list for a run, in the fixed order:
// identity first, then horizontal flip, then vertical flip. Weights are
// normalized to sum to 1.
func ActiveVariants(ttaHFlip, ttaVFlip bool) []Variant {
	variants := []Variant{{Weight: 1.0}}
	if ttaHFlip {
		variants = append(variants, Variant{FlipH: true, Weight: 1.0})
	}
	if ttaVFlip {
		variants = append(variants, Variant{FlipV: true, Weight: 1.0})
	}
	return NormalizeWeights(variants)
}

// NormalizeWeights scales the variant weights so that they sum to 1
func NormalizeWeights(variants []Variant) []Variant {
	total := 0.0
	for _, v := range variants {
		total += v.Weight
	}
	out := make([]Variant, len(variants))
	for i, v := range variants {
		v.Weight = v.Weight / total
		out[i] = v
	}
	return out
}
