package nnload

// Package nnload wraps up our 'nn' interface layer, and has concrete references
// to our neural network implementation (ONNX Runtime), so that you can just
// call one function to load a model, and not need to know about the
// implementation details.

import (
	"fmt"
	"os"
	"strings"

	"github.com/cyclopcam/floodmap/pkg/nn"
	"github.com/cyclopcam/floodmap/pkg/onnx"
	"github.com/cyclopcam/logs"
)

// LoadModel loads a segmentation model from modelFile (a .onnx file).
// The model config is expected alongside the weights, with the extension
// replaced by .json (eg foo.onnx -> foo.json).
// ortLibraryPath is the onnxruntime shared library ("" = platform default).
func LoadModel(logger logs.Log, modelFile, ortLibraryPath string) (nn.Model, error) {
	configFile := replaceExtension(modelFile, ".json")
	if _, err := os.Stat(configFile); err != nil {
		return nil, fmt.Errorf("Model config %v not found next to %v: %w", configFile, modelFile, err)
	}
	config, err := nn.LoadModelConfig(configFile)
	if err != nil {
		return nil, err
	}
	logger.Infof("Loading model %v (%v, %vx%v, %v post images, %v classes)",
		modelFile, config.Architecture, config.Width, config.Height, config.NumPostImages, len(config.FlattenClasses()))
	return onnx.NewModel(config, modelFile, ortLibraryPath)
}

func replaceExtension(filename, newExt string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return filename + newExt
	}
	return filename[:i] + newExt
}
