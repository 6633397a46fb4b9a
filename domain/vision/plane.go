// Package vision owns region/template geometry, capture crops, and the
// masked template matching that turns pixels into confidence scores.
package vision

import "image"

// Plane is a dense W x H pixel block with C interleaved channels (1 or 3).
// It is the working representation for captured crops, filtered images and
// template masks.
type Plane struct {
	Pix []uint8
	W   int
	H   int
	C   int
}

// NewPlane allocates a zeroed plane.
func NewPlane(w, h, c int) Plane {
	return Plane{Pix: make([]uint8, w*h*c), W: w, H: h, C: c}
}

// PlaneFromRGBA converts an RGBA capture into a 3-channel RGB plane.
func PlaneFromRGBA(img *image.RGBA) Plane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p := NewPlane(w, h, 3)
	for y := 0; y < h; y++ {
		row := img.Pix[(y+b.Min.Y-img.Rect.Min.Y)*img.Stride:]
		for x := 0; x < w; x++ {
			src := (x + b.Min.X - img.Rect.Min.X) * 4
			dst := (y*w + x) * 3
			p.Pix[dst] = row[src]
			p.Pix[dst+1] = row[src+1]
			p.Pix[dst+2] = row[src+2]
		}
	}
	return p
}

// PlaneFromImage converts any image into a 3-channel RGB plane.
func PlaneFromImage(img image.Image) Plane {
	if rgba, ok := img.(*image.RGBA); ok {
		return PlaneFromRGBA(rgba)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p := NewPlane(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst := (y*w + x) * 3
			p.Pix[dst] = uint8(r >> 8)
			p.Pix[dst+1] = uint8(g >> 8)
			p.Pix[dst+2] = uint8(bl >> 8)
		}
	}
	return p
}

// Empty reports whether the plane holds no pixels.
func (p Plane) Empty() bool { return p.W <= 0 || p.H <= 0 || len(p.Pix) == 0 }

// Crop copies out the sub-plane [x0,x1) x [y0,y1).
func (p Plane) Crop(x0, y0, x1, y1 int) Plane {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > p.W {
		x1 = p.W
	}
	if y1 > p.H {
		y1 = p.H
	}
	if x1 <= x0 || y1 <= y0 {
		return Plane{C: p.C}
	}
	out := NewPlane(x1-x0, y1-y0, p.C)
	rowLen := (x1 - x0) * p.C
	for y := y0; y < y1; y++ {
		src := (y*p.W + x0) * p.C
		dst := (y - y0) * rowLen
		copy(out.Pix[dst:dst+rowLen], p.Pix[src:src+rowLen])
	}
	return out
}

// NonzeroCount returns the number of nonzero elements across all channels.
func (p Plane) NonzeroCount() int {
	n := 0
	for _, v := range p.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Size returns the total element count (pixels times channels).
func (p Plane) Size() int { return p.W * p.H * p.C }
