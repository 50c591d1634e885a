package dataset

import "github.com/cyclopcam/floodmap/pkg/nn"

func testModelConfig(numPost int) *nn.ModelConfig {
	return &nn.ModelConfig{
		Architecture:  "unet-test",
		Width:         8,
		Height:        8,
		NumPostImages: numPost,
		ClassGroups: []nn.ClassGroup{
			{Name: "damage", Classes: []string{"building"}},
		},
	}
}

func testVariant() nn.Variant {
	return nn.Variant{Weight: 1.0}
}
