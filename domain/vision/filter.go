package vision

import "fmt"

// FilterKind enumerates the post-processing filters that can be applied to
// region crops and templates. Filters are value-keyed so that cached
// scaled-and-filtered variants can be looked up without relying on
// function identity.
type FilterKind int

const (
	FilterNone FilterKind = iota
	// FilterGray converts RGB to single-channel luminance.
	FilterGray
	// FilterHSV converts RGB to full-range HSV (all channels 0..255).
	FilterHSV
	// FilterInRange thresholds each pixel against [Lower, Upper] per
	// channel, yielding a binary single-channel mask (0 or 255).
	FilterInRange
	// FilterHSVInRange converts to HSV first, then thresholds. Supports
	// hue wraparound when Lower[0] > Upper[0] (red hues).
	FilterHSVInRange
)

// FilterSpec names a filter kind plus its parameters. The zero value is
// "no filter".
type FilterSpec struct {
	Kind  FilterKind
	Lower [3]uint8
	Upper [3]uint8
}

// ParseFilterSpec maps a config record onto a FilterSpec.
func ParseFilterSpec(kind string, lower, upper [3]uint8) (FilterSpec, error) {
	switch kind {
	case "", "none":
		return FilterSpec{}, nil
	case "gray":
		return FilterSpec{Kind: FilterGray}, nil
	case "hsv":
		return FilterSpec{Kind: FilterHSV}, nil
	case "in_range":
		return FilterSpec{Kind: FilterInRange, Lower: lower, Upper: upper}, nil
	case "hsv_in_range":
		return FilterSpec{Kind: FilterHSVInRange, Lower: lower, Upper: upper}, nil
	default:
		return FilterSpec{}, fmt.Errorf("unknown filter kind %q", kind)
	}
}

// IsZero reports whether the spec means "no filter".
func (f FilterSpec) IsZero() bool { return f.Kind == FilterNone }

// Key returns a stable cache key for the filter.
func (f FilterSpec) Key() string {
	if f.Kind == FilterNone {
		return ""
	}
	return fmt.Sprintf("%d:%v:%v", f.Kind, f.Lower, f.Upper)
}

// Apply runs the filter over a 3-channel plane. FilterNone returns the
// input unchanged.
func (f FilterSpec) Apply(p Plane) Plane {
	switch f.Kind {
	case FilterGray:
		return toGray(p)
	case FilterHSV:
		return toHSV(p)
	case FilterInRange:
		return inRange(p, f.Lower, f.Upper)
	case FilterHSVInRange:
		return inRange(toHSV(p), f.Lower, f.Upper)
	default:
		return p
	}
}

func toGray(p Plane) Plane {
	if p.C != 3 {
		return p
	}
	out := NewPlane(p.W, p.H, 1)
	for i := 0; i < p.W*p.H; i++ {
		r := uint32(p.Pix[i*3])
		g := uint32(p.Pix[i*3+1])
		b := uint32(p.Pix[i*3+2])
		out.Pix[i] = uint8((77*r + 150*g + 29*b) >> 8)
	}
	return out
}

// toHSV converts RGB to full-range HSV: hue, saturation and value all span
// the whole 0..255 byte.
func toHSV(p Plane) Plane {
	if p.C != 3 {
		return p
	}
	out := NewPlane(p.W, p.H, 3)
	for i := 0; i < p.W*p.H; i++ {
		r := float64(p.Pix[i*3])
		g := float64(p.Pix[i*3+1])
		b := float64(p.Pix[i*3+2])
		maxc := r
		if g > maxc {
			maxc = g
		}
		if b > maxc {
			maxc = b
		}
		minc := r
		if g < minc {
			minc = g
		}
		if b < minc {
			minc = b
		}
		delta := maxc - minc

		var hue float64
		if delta > 0 {
			switch maxc {
			case r:
				hue = 60 * (g - b) / delta
			case g:
				hue = 120 + 60*(b-r)/delta
			default:
				hue = 240 + 60*(r-g)/delta
			}
			if hue < 0 {
				hue += 360
			}
		}
		var sat float64
		if maxc > 0 {
			sat = 255 * delta / maxc
		}
		out.Pix[i*3] = uint8(hue*255/360 + 0.5)
		out.Pix[i*3+1] = uint8(sat + 0.5)
		out.Pix[i*3+2] = uint8(maxc)
	}
	return out
}

// inRange produces a binary mask. When lower[0] > upper[0] the first
// channel wraps around (hue near red), matching the union of
// [0, upper[0]] and [lower[0], 255].
func inRange(p Plane, lower, upper [3]uint8) Plane {
	out := NewPlane(p.W, p.H, 1)
	wrap := lower[0] > upper[0]
	for i := 0; i < p.W*p.H; i++ {
		ok := true
		for c := 0; c < p.C && c < 3; c++ {
			v := p.Pix[i*p.C+c]
			if c == 0 && wrap {
				if v > upper[0] && v < lower[0] {
					ok = false
					break
				}
				continue
			}
			if v < lower[c] || v > upper[c] {
				ok = false
				break
			}
		}
		if ok {
			out.Pix[i] = 255
		}
	}
	return out
}
