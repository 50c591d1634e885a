package dataset

import (
	"fmt"

	"github.com/cyclopcam/floodmap/pkg/tensor"
)

// PadToSize grows a tensor to targetW x targetH by zero-padding equal margins
// on each side (extra pixel on the right/bottom when a margin is odd). The
// margins mirror the center crop in the rectifier, so cropping the padded
// size back to the original size recovers the original content exactly.
// Zero padding also means padded pixels read as nodata, which keeps them out
// of the final probabilities.
// Panics if the tensor is already larger than the target; tiles bigger than
// the model input are a configuration problem that must be caught upstream.
func PadToSize(t tensor.CHW, targetW, targetH int) tensor.CHW {
	if t.W > targetW || t.H > targetH {
		panic(fmt.Sprintf("PadToSize: tensor %vx%v exceeds target %vx%v", t.W, t.H, targetW, targetH))
	}
	if t.W == targetW && t.H == targetH {
		return t
	}
	left := (targetW - t.W) / 2
	top := (targetH - t.H) / 2
	out := tensor.NewCHW(t.C, targetH, targetW)
	for c := 0; c < t.C; c++ {
		src := t.Channel(c)
		dst := out.Channel(c)
		for y := 0; y < t.H; y++ {
			copy(dst[(top+y)*targetW+left:(top+y)*targetW+left+t.W], src[y*t.W:(y+1)*t.W])
		}
	}
	return out
}
