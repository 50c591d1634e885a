package tensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mkSequential(c, h, w int) CHW {
	t := NewCHW(c, h, w)
	for i := range t.Data {
		t.Data[i] = float32(i)
	}
	return t
}

func TestFlipRoundTrip(t *testing.T) {
	// Flipping and flipping back must restore the original bit-for-bit
	orig := mkSequential(2, 5, 4)
	flipped := orig.Clone()

	flipped.FlipVertical()
	require.NotEqual(t, orig.Data, flipped.Data)
	flipped.FlipVertical()
	require.Equal(t, orig.Data, flipped.Data)

	flipped.FlipHorizontal()
	require.NotEqual(t, orig.Data, flipped.Data)
	flipped.FlipHorizontal()
	require.Equal(t, orig.Data, flipped.Data)

	// Both axes together
	flipped.FlipVertical()
	flipped.FlipHorizontal()
	flipped.FlipVertical()
	flipped.FlipHorizontal()
	require.Equal(t, orig.Data, flipped.Data)
}

func TestFlipValues(t *testing.T) {
	a := mkSequential(1, 2, 3)
	// rows: [0 1 2] [3 4 5]
	a.FlipVertical()
	require.Equal(t, []float32{3, 4, 5, 0, 1, 2}, a.Data)
	a.FlipHorizontal()
	require.Equal(t, []float32{5, 4, 3, 2, 1, 0}, a.Data)
}

func TestCenterCrop(t *testing.T) {
	a := mkSequential(1, 6, 7)
	c := a.CenterCrop(3, 4)
	require.Equal(t, 3, c.W)
	require.Equal(t, 4, c.H)
	// left = (7-3)/2 = 2, top = (6-4)/2 = 1
	require.Equal(t, a.At(0, 1, 2), c.At(0, 0, 0))
	require.Equal(t, a.At(0, 4, 4), c.At(0, 3, 2))

	// Odd margins floor on the left/top side
	c = a.CenterCrop(4, 3)
	// left = (7-4)/2 = 1, top = (6-3)/2 = 1
	require.Equal(t, a.At(0, 1, 1), c.At(0, 0, 0))

	// Crop to the same size is the identity
	c = a.CenterCrop(7, 6)
	require.Equal(t, a.Data, c.Data)

	require.Panics(t, func() { a.CenterCrop(8, 6) })
	require.Panics(t, func() { a.CenterCrop(7, 7) })
}

func TestSigmoid(t *testing.T) {
	a := WrapCHW(1, 1, 5, []float32{-100, -1, 0, 1, 100})
	a.Sigmoid()
	require.Equal(t, float32(0.5), a.Data[2])
	for _, v := range a.Data {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
	require.InDelta(t, 0.26894143, a.Data[1], 1e-6)
	require.InDelta(t, 0.7310586, a.Data[3], 1e-6)
}

func TestMulAdd(t *testing.T) {
	acc := NewCHW(1, 2, 2)
	a := WrapCHW(1, 2, 2, []float32{1, 2, 3, 4})
	acc.MulAdd(a, 0.5)
	acc.MulAdd(a, 0.5)
	require.Equal(t, a.Data, acc.Data)

	b := NewCHW(1, 2, 3)
	require.Panics(t, func() { acc.MulAdd(b, 1) })
}

func TestNodataMask(t *testing.T) {
	img := NewCHW(3, 2, 2)
	// Pixel (0,0): all channels zero -> nodata.
	// Pixel (0,1): one channel nonzero -> valid.
	img.Set(1, 0, 1, 0.5)
	// Pixel (1,0): valid
	img.Set(0, 1, 0, 0.1)
	img.Set(2, 1, 0, 0.2)

	m := img.NodataMask()
	require.True(t, m.At(0, 0))
	require.False(t, m.At(0, 1))
	require.False(t, m.At(1, 0))
	require.True(t, m.At(1, 1))
}

func TestZeroMaskedIdempotent(t *testing.T) {
	prob := mkSequential(2, 2, 2)
	m := NewMask(2, 2)
	m.Set(0, 1, true)

	prob.ZeroMaskedAll(m)
	once := prob.Clone()
	prob.ZeroMaskedAll(m)
	require.Equal(t, once.Data, prob.Data)

	require.Equal(t, float32(0), prob.At(0, 0, 1))
	require.Equal(t, float32(0), prob.At(1, 0, 1))
	require.NotEqual(t, float32(0), prob.At(0, 1, 1))
}

func TestMaskAnd(t *testing.T) {
	a := NewMask(1, 3)
	b := NewMask(1, 3)
	a.Set(0, 0, true)
	a.Set(0, 1, true)
	b.Set(0, 1, true)
	b.Set(0, 2, true)
	a.And(b)
	require.False(t, a.At(0, 0))
	require.True(t, a.At(0, 1))
	require.False(t, a.At(0, 2))

	c := NewMask(2, 2)
	require.Panics(t, func() { a.And(c) })
}

func TestBatchImageView(t *testing.T) {
	b := NewNCHW(2, 1, 2, 2)
	img := WrapCHW(1, 2, 2, []float32{1, 2, 3, 4})
	b.SetImage(1, img)
	require.Equal(t, []float32{0, 0, 0, 0}, b.Image(0).Data)
	require.Equal(t, img.Data, b.Image(1).Data)

	// Image returns a view: mutations land in the batch
	b.Image(0).Set(0, 0, 0, 9)
	require.Equal(t, float32(9), b.Data[0])
}
