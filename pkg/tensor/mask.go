package tensor

import "fmt"

// Mask is a boolean raster the same size as one tensor channel.
// We use it to mark nodata pixels (locations where a capture has no data).
type Mask struct {
	H, W int
	Bits []bool
}

func NewMask(h, w int) Mask {
	return Mask{H: h, W: w, Bits: make([]bool, h*w)}
}

func (m Mask) At(y, x int) bool {
	return m.Bits[y*m.W+x]
}

func (m Mask) Set(y, x int, v bool) {
	m.Bits[y*m.W+x] = v
}

// And mutates m to the logical AND of itself and other
func (m Mask) And(other Mask) {
	if m.H != other.H || m.W != other.W {
		panic(fmt.Sprintf("Mask And size mismatch: %vx%v vs %vx%v", m.W, m.H, other.W, other.H))
	}
	for i := range m.Bits {
		m.Bits[i] = m.Bits[i] && other.Bits[i]
	}
}

// NodataMask marks pixels where the sum over all channels is zero.
// Satellite tiles encode missing capture as all-zero pixels, so a zero
// channel-sum is our nodata signal.
func (t CHW) NodataMask() Mask {
	m := NewMask(t.H, t.W)
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			sum := float32(0)
			for c := 0; c < t.C; c++ {
				sum += t.At(c, y, x)
			}
			m.Bits[y*t.W+x] = sum == 0
		}
	}
	return m
}

// ZeroMasked sets channel c to zero wherever the mask is true.
// The mask must be the same size as a channel plane.
func (t CHW) ZeroMasked(c int, m Mask) {
	if m.H != t.H || m.W != t.W {
		panic(fmt.Sprintf("ZeroMasked size mismatch: tensor %vx%v, mask %vx%v", t.W, t.H, m.W, m.H))
	}
	ch := t.Channel(c)
	for i, bad := range m.Bits {
		if bad {
			ch[i] = 0
		}
	}
}

// ZeroMaskedAll applies ZeroMasked to every channel
func (t CHW) ZeroMaskedAll(m Mask) {
	for c := 0; c < t.C; c++ {
		t.ZeroMasked(c, m)
	}
}
