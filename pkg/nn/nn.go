package nn

// Package nn is the neural network interface layer.
// To load a model, use the nnload package.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclopcam/floodmap/pkg/tensor"
)

// Model is an opaque segmentation network. Any encoder-decoder satisfying this
// contract is substitutable; the pipeline never looks inside it.
type Model interface {
	// Close closes the model (you MUST call this when finished, because there's
	// a C runtime object underneath)
	Close()

	// Forward runs one inference pass on a batch of images and returns raw
	// (pre-activation) logits of shape [B,C,H,W], in host memory.
	// postA and postB are nil unless the model was configured with 1 or 2
	// post-event inputs respectively.
	Forward(pre tensor.NCHW, postA, postB *tensor.NCHW) (tensor.NCHW, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant, so don't change it
	// once the model has been created.
	Config() *ModelConfig
}

// ClassGroup is a named group of output classes (eg group "building" holding
// classes building and flood_building).
type ClassGroup struct {
	Name    string   `json:"name"`
	Classes []string `json:"classes"`
}

// ModelConfig is saved in a JSON file along with the weights of the NN model
type ModelConfig struct {
	Architecture  string       `json:"architecture"`  // eg "unet-efficientnet-b7"
	Width         int          `json:"width"`         // NN input width, eg 1312
	Height        int          `json:"height"`        // NN input height, eg 1312
	NumPostImages int          `json:"numPostImages"` // Number of post-event input images (0, 1 or 2)
	ClassGroups   []ClassGroup `json:"classGroups"`   // Ordered class groups; concatenation defines output channel order
}

// FlattenClasses returns the ordered concatenation of all class names across
// groups. Channel i of every probability tensor in a run corresponds to
// FlattenClasses()[i].
func (c *ModelConfig) FlattenClasses() []string {
	classes := []string{}
	for _, g := range c.ClassGroups {
		classes = append(classes, g.Classes...)
	}
	return classes
}

// Validate checks the parts of the config that would otherwise only blow up
// deep inside a run
func (c *ModelConfig) Validate() error {
	if c.NumPostImages < 0 || c.NumPostImages > 2 {
		return fmt.Errorf("Invalid numPostImages %v (must be 0, 1 or 2)", c.NumPostImages)
	}
	if len(c.FlattenClasses()) == 0 {
		return fmt.Errorf("Model config has no output classes")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("Invalid model input size %vx%v", c.Width, c.Height)
	}
	return nil
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid model config %v: %w", filename, err)
	}
	return config, nil
}

// IsPostConditioned returns true for classes whose prediction depends on the
// post-event capture. These are the only channels masked by the post-image
// nodata mask.
func IsPostConditioned(class string) bool {
	switch class {
	case "flood", "flood_building", "flood_road":
		return true
	}
	return false
}
