package tensor

// Package tensor holds the small dense float32 tensor types that flow through
// the inference pipeline. Layout is CHW (or NCHW for batches), matching what
// the NN runtimes expect, so we can hand Data straight to them without copies.

import (
	"fmt"

	"github.com/chewxy/math32"
)

// CHW is a dense float32 tensor in channel-height-width order.
// Data is packed, so element (c,y,x) lives at Data[(c*H+y)*W+x].
type CHW struct {
	C, H, W int
	Data    []float32
}

// NewCHW returns a zero-filled tensor of the given shape
func NewCHW(c, h, w int) CHW {
	return CHW{
		C:    c,
		H:    h,
		W:    w,
		Data: make([]float32, c*h*w),
	}
}

// WrapCHW wraps an existing packed slice. Panics if len(data) does not match the shape.
func WrapCHW(c, h, w int, data []float32) CHW {
	if len(data) != c*h*w {
		panic(fmt.Sprintf("WrapCHW: have %v elements, shape %vx%vx%v needs %v", len(data), c, h, w, c*h*w))
	}
	return CHW{C: c, H: h, W: w, Data: data}
}

func (t CHW) At(c, y, x int) float32 {
	return t.Data[(c*t.H+y)*t.W+x]
}

func (t CHW) Set(c, y, x int, v float32) {
	t.Data[(c*t.H+y)*t.W+x] = v
}

// Channel returns the packed [H*W] slice of one channel (a view, not a copy)
func (t CHW) Channel(c int) []float32 {
	return t.Data[c*t.H*t.W : (c+1)*t.H*t.W]
}

func (t CHW) Clone() CHW {
	c := CHW{C: t.C, H: t.H, W: t.W, Data: make([]float32, len(t.Data))}
	copy(c.Data, t.Data)
	return c
}

// FlipVertical reverses the tensor along the height axis, in place
func (t CHW) FlipVertical() {
	for c := 0; c < t.C; c++ {
		ch := t.Channel(c)
		for y := 0; y < t.H/2; y++ {
			top := ch[y*t.W : (y+1)*t.W]
			bot := ch[(t.H-1-y)*t.W : (t.H-y)*t.W]
			for x := range top {
				top[x], bot[x] = bot[x], top[x]
			}
		}
	}
}

// FlipHorizontal reverses the tensor along the width axis, in place
func (t CHW) FlipHorizontal() {
	for c := 0; c < t.C; c++ {
		ch := t.Channel(c)
		for y := 0; y < t.H; y++ {
			row := ch[y*t.W : (y+1)*t.W]
			for x := 0; x < t.W/2; x++ {
				row[x], row[t.W-1-x] = row[t.W-1-x], row[x]
			}
		}
	}
}

// CenterCrop returns a new tensor holding the central cropW x cropH region.
// Margins are split evenly, with the extra pixel going to the right/bottom when
// a margin is odd (left = (W - cropW) / 2).
// Panics if the target size exceeds the tensor size in either dimension. That
// can only happen when upstream padding is broken, and there is no way to
// recover from it here.
func (t CHW) CenterCrop(cropW, cropH int) CHW {
	if cropW > t.W || cropH > t.H {
		panic(fmt.Sprintf("CenterCrop %vx%v exceeds tensor size %vx%v", cropW, cropH, t.W, t.H))
	}
	left := (t.W - cropW) / 2
	top := (t.H - cropH) / 2
	out := NewCHW(t.C, cropH, cropW)
	for c := 0; c < t.C; c++ {
		src := t.Channel(c)
		dst := out.Channel(c)
		for y := 0; y < cropH; y++ {
			copy(dst[y*cropW:(y+1)*cropW], src[(top+y)*t.W+left:(top+y)*t.W+left+cropW])
		}
	}
	return out
}

// Sigmoid applies the logistic function element-wise, in place
func (t CHW) Sigmoid() {
	for i, v := range t.Data {
		t.Data[i] = 1.0 / (1.0 + math32.Exp(-v))
	}
}

// MulAdd computes t += other * weight, in place. Shapes must match.
func (t CHW) MulAdd(other CHW, weight float32) {
	if t.C != other.C || t.H != other.H || t.W != other.W {
		panic(fmt.Sprintf("MulAdd shape mismatch: %vx%vx%v vs %vx%vx%v", t.C, t.H, t.W, other.C, other.H, other.W))
	}
	for i, v := range other.Data {
		t.Data[i] += v * weight
	}
}

// MinMax returns the smallest and largest element. Panics on an empty tensor.
func (t CHW) MinMax() (mn, mx float32) {
	mn = t.Data[0]
	mx = t.Data[0]
	for _, v := range t.Data {
		mn = min(mn, v)
		mx = max(mx, v)
	}
	return mn, mx
}

// NCHW is a batch of CHW tensors
type NCHW struct {
	N, C, H, W int
	Data       []float32
}

func NewNCHW(n, c, h, w int) NCHW {
	return NCHW{
		N:    n,
		C:    c,
		H:    h,
		W:    w,
		Data: make([]float32, n*c*h*w),
	}
}

// Image returns sample i as a CHW view sharing the batch's storage
func (b NCHW) Image(i int) CHW {
	size := b.C * b.H * b.W
	return CHW{C: b.C, H: b.H, W: b.W, Data: b.Data[i*size : (i+1)*size]}
}

// SetImage copies a CHW tensor into batch slot i. Shapes must match.
func (b NCHW) SetImage(i int, img CHW) {
	if img.C != b.C || img.H != b.H || img.W != b.W {
		panic(fmt.Sprintf("SetImage shape mismatch: batch %vx%vx%v, image %vx%vx%v", b.C, b.H, b.W, img.C, img.H, img.W))
	}
	copy(b.Image(i).Data, img.Data)
}
