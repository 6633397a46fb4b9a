package geometry

import "fmt"

// ScalePolicy selects how authored geometry maps onto the anchor rect.
type ScalePolicy int

const (
	// PolicyStretch scales x/width by the anchor/reference width ratio and
	// y/height by the height ratio independently. Authored content is
	// expected to stretch with the window.
	PolicyStretch ScalePolicy = iota
	// PolicyAspectFit applies the smaller of the two ratios uniformly and
	// centers the result; the anchor's excess dimension becomes letterbox
	// or pillarbox.
	PolicyAspectFit
)

func (p ScalePolicy) String() string {
	switch p {
	case PolicyStretch:
		return "stretch"
	case PolicyAspectFit:
		return "aspect_fit"
	default:
		return "unknown"
	}
}

// ParseScalePolicy maps a config string onto a ScalePolicy.
func ParseScalePolicy(s string) (ScalePolicy, error) {
	switch s {
	case "", "stretch":
		return PolicyStretch, nil
	case "aspect_fit":
		return PolicyAspectFit, nil
	default:
		return PolicyStretch, fmt.Errorf("unknown scale policy %q", s)
	}
}

// Scaler maps rectangles authored against a reference resolution onto the
// current anchor rect. Scaled output is in absolute screen coordinates for
// both policies.
type Scaler struct {
	Policy ScalePolicy
	RefW   int
	RefH   int
}

// NewScaler returns a Scaler for the given reference resolution. Zero or
// negative reference dimensions fall back to 1920x1080.
func NewScaler(policy ScalePolicy, refW, refH int) Scaler {
	if refW <= 0 || refH <= 0 {
		refW, refH = 1920, 1080
	}
	return Scaler{Policy: policy, RefW: refW, RefH: refH}
}

// Params returns the uniform scale factor and centered offsets for the
// aspect-fit policy against the given anchor.
func (s Scaler) Params(anchor Rect) (scale, offsetX, offsetY float64) {
	sx := float64(anchor.Width) / float64(s.RefW)
	sy := float64(anchor.Height) / float64(s.RefH)
	scale = sx
	if sy < scale {
		scale = sy
	}
	offsetX = (float64(anchor.Width) - float64(s.RefW)*scale) / 2
	offsetY = (float64(anchor.Height) - float64(s.RefH)*scale) / 2
	return scale, offsetX, offsetY
}

// ScaleRect maps an authored rect onto the anchor.
func (s Scaler) ScaleRect(authored, anchor Rect) Rect {
	x, y, w, h := s.scale(float64(authored.Left), float64(authored.Top),
		float64(authored.Width), float64(authored.Height), anchor)
	return Rect{Left: int(x), Top: int(y), Width: int(w), Height: int(h)}
}

// ScaleExtent maps an authored width/height pair onto the anchor, ignoring
// position. Results are clamped to at least 1 pixel.
func (s Scaler) ScaleExtent(w, h int, anchor Rect) (int, int) {
	_, _, sw, sh := s.scale(0, 0, float64(w), float64(h), anchor)
	return max(1, int(sw)), max(1, int(sh))
}

func (s Scaler) scale(x, y, w, h float64, anchor Rect) (float64, float64, float64, float64) {
	switch s.Policy {
	case PolicyAspectFit:
		scale, ox, oy := s.Params(anchor)
		x = x*scale + ox + float64(anchor.Left)
		y = y*scale + oy + float64(anchor.Top)
		w *= scale
		h *= scale
	default:
		rx := float64(anchor.Width) / float64(s.RefW)
		ry := float64(anchor.Height) / float64(s.RefH)
		x = x*rx + float64(anchor.Left)
		y = y*ry + float64(anchor.Top)
		w *= rx
		h *= ry
	}
	return x, y, w, h
}
