package vision

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/soocke/gamewatch-go/domain/geometry"
)

// filteredCacheSize bounds how many filtered variants of one scaled
// template are kept alive. Profiles rarely use more than two filters per
// template.
const filteredCacheSize = 8

// Template owns an authored image, a match threshold and an optional mask
// color. Scaling and filtering are cached: the scaled image, its mask and
// the normalization size are recomputed only when the anchor changes, and
// filtered variants are kept in an LRU keyed by filter spec.
type Template struct {
	name      string
	threshold float64
	maskColor *[3]uint8
	scaler    geometry.Scaler
	original  image.Image
	origW     int
	origH     int

	scaled   Plane // unfiltered scaled template (3 channels)
	mask     Plane // single channel, 255 = participates in matching
	size     int   // nonzero mask elements * channels * 255^2
	isScaled bool
	filtered *lru.Cache[string, Plane]
}

func NewTemplate(name string, img image.Image, threshold float64, maskColor *[3]uint8, scaler geometry.Scaler) (*Template, error) {
	if img == nil {
		return nil, errors.New("template image is nil")
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, errors.New("template image is empty")
	}
	cache, err := lru.New[string, Plane](filteredCacheSize)
	if err != nil {
		return nil, err
	}
	return &Template{
		name:      name,
		threshold: threshold,
		maskColor: maskColor,
		scaler:    scaler,
		original:  img,
		origW:     b.Dx(),
		origH:     b.Dy(),
		filtered:  cache,
	}, nil
}

func (t *Template) Name() string       { return t.name }
func (t *Template) Threshold() float64 { return t.threshold }

// Size returns the normalization denominator for the confidence formula:
// unmasked pixel count times channel count times 255 squared.
func (t *Template) Size() int { return t.size }

// Scale resizes the template for the given anchor, rebuilds the mask and
// normalization size, and drops all filtered variants. Resizing is the
// expensive step, so callers must only invoke this when the anchor
// actually changed.
func (t *Template) Scale(anchor geometry.Rect) {
	w, h := t.scaler.ScaleExtent(t.origW, t.origH, anchor)

	img := t.original
	if w != t.origW || h != t.origH {
		img = imaging.Resize(t.original, w, h, imaging.NearestNeighbor)
	}
	t.scaled = PlaneFromImage(img)
	t.mask = t.buildMask(t.scaled)
	t.size = t.mask.NonzeroCount() * t.scaled.C * 255 * 255
	t.isScaled = true
	t.filtered.Purge()
}

// buildMask marks every pixel equal to the mask color as excluded. With no
// mask color configured the mask covers the full image.
func (t *Template) buildMask(p Plane) Plane {
	mask := NewPlane(p.W, p.H, 1)
	if t.maskColor == nil {
		for i := range mask.Pix {
			mask.Pix[i] = 255
		}
		return mask
	}
	mc := *t.maskColor
	for i := 0; i < p.W*p.H; i++ {
		if p.Pix[i*3] == mc[0] && p.Pix[i*3+1] == mc[1] && p.Pix[i*3+2] == mc[2] {
			continue
		}
		mask.Pix[i] = 255
	}
	return mask
}

// ScaledAndFiltered returns the scaled template under the given filter,
// plus the mask. The filtered variant is computed lazily and cached until
// the next Scale.
func (t *Template) ScaledAndFiltered(f FilterSpec) (Plane, Plane, error) {
	if !t.isScaled {
		return Plane{}, Plane{}, errors.New("template has not been scaled yet")
	}
	if f.IsZero() {
		return t.scaled, t.mask, nil
	}
	key := f.Key()
	if p, ok := t.filtered.Get(key); ok {
		return p, t.mask, nil
	}
	p := f.Apply(t.scaled)
	t.filtered.Add(key, p)
	return p, t.mask, nil
}
