package onnx

// package onnx runs segmentation models through ONNX Runtime
// (https://github.com/microsoft/onnxruntime), via the onnxruntime_go bindings.

import (
	"fmt"
	"sync"

	"github.com/cyclopcam/floodmap/pkg/nn"
	"github.com/cyclopcam/floodmap/pkg/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

var initOnce sync.Once
var initErr error

// initRuntime initializes the ONNX Runtime environment once per process.
// The environment is global to the C library, so we must not initialize it
// per-model.
func initRuntime(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// Model is an ONNX Runtime-backed segmentation model
type Model struct {
	session    *ort.DynamicAdvancedSession
	config     nn.ModelConfig
	inputNames []string
}

// NewModel loads an .onnx model file.
// libraryPath is the path to the onnxruntime shared library ("" = use the
// platform default search path).
// Input tensor names follow the export convention "image", "image_post_a",
// "image_post_b"; the output is "logits".
func NewModel(config *nn.ModelConfig, modelFile, libraryPath string) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := initRuntime(libraryPath); err != nil {
		return nil, fmt.Errorf("Failed to initialize ONNX runtime: %w", err)
	}

	inputNames := []string{"image"}
	if config.NumPostImages >= 1 {
		inputNames = append(inputNames, "image_post_a")
	}
	if config.NumPostImages >= 2 {
		inputNames = append(inputNames, "image_post_b")
	}

	session, err := ort.NewDynamicAdvancedSession(modelFile, inputNames, []string{"logits"}, nil)
	if err != nil {
		return nil, fmt.Errorf("Failed to create ONNX session for '%v': %w", modelFile, err)
	}

	return &Model{
		session:    session,
		config:     *config,
		inputNames: inputNames,
	}, nil
}

func (m *Model) Close() {
	m.session.Destroy()
}

func (m *Model) Config() *nn.ModelConfig {
	return &m.config
}

// Forward runs one batch through the network and returns raw logits [B,C,H,W]
// in host memory. ONNX inference holds no gradient state, so there is nothing
// extra to disable here.
func (m *Model) Forward(pre tensor.NCHW, postA, postB *tensor.NCHW) (tensor.NCHW, error) {
	batches := []tensor.NCHW{pre}
	if m.config.NumPostImages >= 1 {
		if postA == nil {
			return tensor.NCHW{}, fmt.Errorf("Model expects %v post images, but post A is missing", m.config.NumPostImages)
		}
		batches = append(batches, *postA)
	}
	if m.config.NumPostImages >= 2 {
		if postB == nil {
			return tensor.NCHW{}, fmt.Errorf("Model expects 2 post images, but post B is missing")
		}
		batches = append(batches, *postB)
	}

	inputs := make([]ort.Value, 0, len(batches))
	defer func() {
		for _, in := range inputs {
			in.Destroy()
		}
	}()
	for i, b := range batches {
		shape := ort.NewShape(int64(b.N), int64(b.C), int64(b.H), int64(b.W))
		in, err := ort.NewTensor(shape, b.Data)
		if err != nil {
			return tensor.NCHW{}, fmt.Errorf("Failed to create input tensor %v: %w", m.inputNames[i], err)
		}
		inputs = append(inputs, in)
	}

	// Let ONNX Runtime allocate the output, then copy it into our own buffer
	outputs := []ort.Value{nil}
	if err := m.session.Run(inputs, outputs); err != nil {
		return tensor.NCHW{}, fmt.Errorf("ONNX inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return tensor.NCHW{}, fmt.Errorf("ONNX model produced %T, expected a float32 tensor", outputs[0])
	}
	shape := out.GetShape()
	if len(shape) != 4 {
		return tensor.NCHW{}, fmt.Errorf("ONNX model output has rank %v, expected 4 (BCHW)", len(shape))
	}

	logits := tensor.NewNCHW(int(shape[0]), int(shape[1]), int(shape[2]), int(shape[3]))
	copy(logits.Data, out.GetData())
	return logits, nil
}
