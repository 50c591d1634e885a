package predict

import (
	"fmt"

	"github.com/cyclopcam/floodmap/pkg/dataset"
	"github.com/cyclopcam/floodmap/pkg/tensor"
)

// forward packs one variant's batch into NCHW tensors, runs the network, and
// returns per-pixel class probabilities [B,C,H,W] in host memory (sigmoid
// applied to the raw logits).
func (p *Pipeline) forward(batch *dataset.Batch) (tensor.NCHW, error) {
	config := p.model.Config()
	n := len(batch.Samples)

	pre := tensor.NewNCHW(n, 3, config.Height, config.Width)
	var postA, postB *tensor.NCHW
	if config.NumPostImages >= 1 {
		t := tensor.NewNCHW(n, 3, config.Height, config.Width)
		postA = &t
	}
	if config.NumPostImages >= 2 {
		t := tensor.NewNCHW(n, 3, config.Height, config.Width)
		postB = &t
	}
	for i, sample := range batch.Samples {
		pre.SetImage(i, sample.Image)
		if postA != nil {
			if sample.ImagePostA == nil {
				return tensor.NCHW{}, fmt.Errorf("%w: sample %v has no post A image", ErrBadPostImageCount, sample.PreImagePath)
			}
			postA.SetImage(i, *sample.ImagePostA)
		}
		if postB != nil {
			if sample.ImagePostB == nil {
				return tensor.NCHW{}, fmt.Errorf("%w: sample %v has no post B image", ErrBadPostImageCount, sample.PreImagePath)
			}
			postB.SetImage(i, *sample.ImagePostB)
		}
	}

	logits, err := p.model.Forward(pre, postA, postB)
	if err != nil {
		return tensor.NCHW{}, err
	}
	if logits.C != len(p.classes) {
		return tensor.NCHW{}, fmt.Errorf("%w: model produced %v channels, class schema has %v", ErrShapeMismatch, logits.C, len(p.classes))
	}
	if logits.N != n {
		return tensor.NCHW{}, fmt.Errorf("%w: model produced %v samples, batch has %v", ErrShapeMismatch, logits.N, n)
	}

	for i := 0; i < logits.N; i++ {
		logits.Image(i).Sigmoid()
	}
	return logits, nil
}
