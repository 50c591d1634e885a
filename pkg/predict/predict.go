package predict

// Package predict is the multi-pass inference-and-reconstruction pipeline.
// For every batch we run one forward pass per active TTA variant, undo each
// variant's geometric transform, mask nodata pixels, crop away preprocessing
// padding, and accumulate the variants into one probability map per sample,
// which is then quantized and written as a georeferenced raster.

import (
	"errors"
	"fmt"
	"io"

	"github.com/cyclopcam/floodmap/pkg/dataset"
	"github.com/cyclopcam/floodmap/pkg/nn"
	"github.com/cyclopcam/floodmap/pkg/perfstats"
	"github.com/cyclopcam/floodmap/pkg/raster"
	"github.com/cyclopcam/floodmap/pkg/tensor"
	"github.com/cyclopcam/logs"
)

// These all indicate upstream contract breaks (bad padding, misconfigured
// class schema, misaligned dataloaders), not transient conditions, so the run
// aborts rather than retrying or skipping.
var (
	ErrBadPostImageCount = errors.New("Post image count must be 0, 1 or 2")
	ErrShapeMismatch     = errors.New("Model output shape does not match the class schema")
	ErrIdentityMismatch  = errors.New("Sample resolved to different outputs across TTA variants")
	ErrProbabilityBounds = errors.New("Accumulated probability outside [0,1]")
	ErrMisalignedLoaders = errors.New("TTA dataloaders are not aligned")
)

// RasterWriter is the georeferenced output collaborator. The default is the
// GDAL-backed writer in pkg/raster; tests substitute their own.
type RasterWriter interface {
	// WriteGeoref writes a uint8 raster [c,h,w] to dstPath, copying the
	// geotransform and CRS from refPath
	WriteGeoref(data []uint8, c, h, w int, refPath, dstPath string) error
}

// Options configures a pipeline run
type Options struct {
	OutRoot       string // Root directory for prediction rasters, mirrored as <OutRoot>/<AOI>/<filename>
	TTAHFlip      bool   // Enable horizontal flip TTA
	TTAVFlip      bool   // Enable vertical flip TTA
	WritePreviews bool   // Also emit lossy RGB preview JPEGs next to the rasters
}

// Pipeline ties the model, class schema and writer together for one run.
// The model handle is created once and read-only from here on; the pipeline
// itself keeps no state across batches.
type Pipeline struct {
	log      logs.Log
	model    nn.Model
	writer   RasterWriter
	classes  []string
	variants []nn.Variant
	options  Options
	stats    perfstats.RunStats
}

// NewPipeline validates the configuration and prepares a run.
// writer may be nil, in which case the GDAL GeoTIFF writer is used.
func NewPipeline(logger logs.Log, model nn.Model, writer RasterWriter, options Options) (*Pipeline, error) {
	config := model.Config()
	if config.NumPostImages < 0 || config.NumPostImages > 2 {
		return nil, fmt.Errorf("%w (have %v)", ErrBadPostImageCount, config.NumPostImages)
	}
	if writer == nil {
		writer = geoWriter{}
	}
	return &Pipeline{
		log:      logger,
		model:    model,
		writer:   writer,
		classes:  config.FlattenClasses(),
		variants: nn.ActiveVariants(options.TTAHFlip, options.TTAVFlip),
		options:  options,
	}, nil
}

// Variants returns the active TTA variants in their fixed processing order.
// Callers use this to construct one aligned dataloader per variant.
func (p *Pipeline) Variants() []nn.Variant {
	return p.variants
}

// Run drives the whole inference. loaders must hold one dataloader per active
// variant (in Variants() order), all yielding the same samples in the same
// order. Any invariant violation aborts the run; there are no retries.
func (p *Pipeline) Run(loaders []dataset.Loader) error {
	if len(loaders) != len(p.variants) {
		return fmt.Errorf("%w: %v loaders for %v variants", ErrMisalignedLoaders, len(loaders), len(p.variants))
	}
	if err := p.writeMeta(); err != nil {
		return err
	}

	numBatches := loaders[0].NumBatches()
	batchIdx := 0
	for {
		batches := make([]*dataset.Batch, len(loaders))
		done := 0
		for i, loader := range loaders {
			var b *dataset.Batch
			var err error
			p.stats.Load.Time(func() {
				b, err = loader.Next()
			})
			if err == io.EOF {
				done++
				continue
			}
			if err != nil {
				return fmt.Errorf("Failed to load batch %v for variant %v: %w", batchIdx, p.variants[i].Name(), err)
			}
			batches[i] = b
		}
		if done == len(loaders) {
			break
		}
		if done != 0 {
			return fmt.Errorf("%w: some loaders ended at batch %v, others did not", ErrMisalignedLoaders, batchIdx)
		}
		if err := p.runBatch(batches); err != nil {
			return fmt.Errorf("Batch %v: %w", batchIdx, err)
		}
		batchIdx++
		p.log.Infof("Processed batch %v/%v", batchIdx, numBatches)
	}
	p.log.Infof("Run complete: %v batches, outputs under %v", batchIdx, p.options.OutRoot)
	p.stats.LogSummary(p.log)
	return nil
}

// runBatch accumulates all variants for one aligned batch, then materializes
// every sample. Nothing is emitted until all variants have contributed.
func (p *Pipeline) runBatch(batches []*dataset.Batch) error {
	batchSize := len(batches[0].Samples)
	for i, b := range batches[1:] {
		if len(b.Samples) != batchSize {
			return fmt.Errorf("%w: variant %v yielded %v samples, expected %v", ErrMisalignedLoaders, p.variants[i+1].Name(), len(b.Samples), batchSize)
		}
	}

	accum := make([]tensor.CHW, batchSize)
	outputPaths := make([]string, batchSize)

	for vi, variant := range p.variants {
		batch := batches[vi]
		var probs tensor.NCHW
		var err error
		p.stats.Forward.Time(func() {
			probs, err = p.forward(batch)
		})
		if err != nil {
			return fmt.Errorf("Variant %v: %w", variant.Name(), err)
		}
		for i := range batch.Samples {
			sample := &batch.Samples[i]
			rect := p.rectify(probs.Image(i), sample, variant)
			outPath := OutputPath(p.options.OutRoot, sample.PreImagePath)
			if vi == 0 {
				accum[i] = tensor.NewCHW(rect.C, rect.H, rect.W)
				outputPaths[i] = outPath
			} else if outputPaths[i] != outPath {
				return fmt.Errorf("%w: sample %v of variant %v resolves to %v, first variant resolved to %v",
					ErrIdentityMismatch, i, variant.Name(), outPath, outputPaths[i])
			}
			accum[i].MulAdd(rect, float32(variant.Weight))
		}
	}

	for i := range accum {
		sample := &batches[0].Samples[i]
		var err error
		p.stats.Materialize.Time(func() {
			err = p.materialize(accum[i], sample.PreImagePath, outputPaths[i])
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// geoWriter adapts the GDAL writer to the RasterWriter interface
type geoWriter struct{}

func (geoWriter) WriteGeoref(data []uint8, c, h, w int, refPath, dstPath string) error {
	return raster.WriteGeoref(data, c, h, w, refPath, dstPath)
}
