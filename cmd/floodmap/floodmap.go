package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/floodmap/pkg/dataset"
	"github.com/cyclopcam/floodmap/pkg/nnload"
	"github.com/cyclopcam/floodmap/pkg/predict"
	"github.com/cyclopcam/floodmap/pkg/storage"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("floodmap", "Run flood segmentation inference over satellite tiles")
	input := parser.String("i", "input", &argparse.Options{Help: "Data root, containing <AOI>/PRE-event tiles", Required: true})
	outRoot := parser.String("o", "out", &argparse.Options{Help: "Output root for prediction rasters", Required: true})
	modelFile := parser.String("n", "model", &argparse.Options{Help: "Path to ONNX model file", Required: true})
	ortLib := parser.String("", "ortlib", &argparse.Options{Help: "Path to the onnxruntime shared library", Required: false, Default: ""})
	batchSize := parser.Int("b", "batchsize", &argparse.Options{Help: "Samples per forward pass", Required: false, Default: 1})
	ttaHFlip := parser.Flag("", "tta-hflip", &argparse.Options{Help: "Enable horizontal flip TTA"})
	ttaVFlip := parser.Flag("", "tta-vflip", &argparse.Options{Help: "Enable vertical flip TTA"})
	previews := parser.Flag("", "previews", &argparse.Options{Help: "Also write lossy RGB preview JPEGs"})
	upload := parser.String("", "upload", &argparse.Options{Help: "GCS bucket to upload the prediction tree to", Required: false, Default: ""})
	uploadPrefix := parser.String("", "upload-prefix", &argparse.Options{Help: "Object name prefix for --upload", Required: false, Default: "preds"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	model, err := nnload.LoadModel(logger, *modelFile, *ortLib)
	check(err)
	defer model.Close()

	pipeline, err := predict.NewPipeline(logger, model, nil, predict.Options{
		OutRoot:       *outRoot,
		TTAHFlip:      *ttaHFlip,
		TTAVFlip:      *ttaVFlip,
		WritePreviews: *previews,
	})
	check(err)

	tiles, err := dataset.DiscoverTiles(*input)
	check(err)
	logger.Infof("Found %v tiles under %v", len(tiles), *input)

	variants := pipeline.Variants()
	for _, v := range variants {
		if v.FlipH || v.FlipV {
			logger.Infof("%v TTA is enabled (weight %.3f)", v.Name(), v.Weight)
		}
	}
	loaders := make([]dataset.Loader, len(variants))
	for i, v := range variants {
		loaders[i], err = dataset.NewTileLoader(tiles, v, model.Config(), *batchSize)
		check(err)
	}

	check(pipeline.Run(loaders))

	if *upload != "" {
		store, err := storage.NewStorageGCS(logger, *upload)
		check(err)
		check(storage.UploadTree(logger, store, *outRoot, *uploadPrefix))
	}
}
