package vision

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/soocke/gamewatch-go/domain/geometry"
)

// ErrNoCapture is returned when a match is requested before a successful
// capture was taken this frame. That ordering is a programming error in
// the caller, not a runtime condition.
var ErrNoCapture = errors.New("no capture taken; call Capture and check its result first")

// Grabber provides rect-bounded screen captures. Implementations live
// outside this package (screenshot library, test fakes).
type Grabber interface {
	Grab(rect geometry.Rect) (*image.RGBA, error)
}

// Result is one match or fill-ratio record, keyed the way trigger command
// lists and label templates reference it.
type Result map[string]any

// FullDiv is the no-op sub-crop: full width, full height.
var FullDiv = [4]float64{0, 1, 0, 1}

// Engine holds the configured regions and templates, tracks the anchor
// rect, and serves matches against the current frame's capture. One
// engine belongs to one frame cycle; it is not safe for concurrent use.
type Engine struct {
	logger    *slog.Logger
	grabber   Grabber
	regions   map[string]*Region
	templates map[string]*Template

	anchor    geometry.Rect
	hasAnchor bool
	enabled   bool
	capture   *captureState
	rescales  int
}

// captureState is one frame's capture: the grabbed plane, its absolute
// offset, and the per-(region, filter) crop cache.
type captureState struct {
	plane   Plane
	offsetX int
	offsetY int
	crops   map[string]Plane
}

func NewEngine(logger *slog.Logger, grabber Grabber) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:    logger,
		grabber:   grabber,
		regions:   map[string]*Region{},
		templates: map[string]*Template{},
	}
}

func (e *Engine) AddRegion(r *Region)     { e.regions[r.Name()] = r }
func (e *Engine) AddTemplate(t *Template) { e.templates[t.Name()] = t }

// Rescales returns how many times the engine re-derived scaled geometry.
// Exposed for change-detection verification.
func (e *Engine) Rescales() int { return e.rescales }

// Configured reports whether any regions are loaded. An engine without
// regions has nothing to capture and is skipped by the frame cycle.
func (e *Engine) Configured() bool { return len(e.regions) > 0 }

// SetAnchor refreshes the anchor rect for this frame and drops the
// previous capture. Regions and templates are rescaled only when the
// anchor actually changed; template resizing is expensive.
func (e *Engine) SetAnchor(anchor geometry.Rect, enabled bool) {
	e.capture = nil
	e.enabled = enabled
	if e.hasAnchor && anchor == e.anchor {
		return
	}
	e.rescaleAll(anchor)
	e.anchor = anchor
	e.hasAnchor = true
}

func (e *Engine) rescaleAll(anchor geometry.Rect) {
	for _, r := range e.regions {
		r.Scale(anchor)
	}
	for _, t := range e.templates {
		t.Scale(anchor)
	}
	e.rescales++
}

// Capture grabs the union bounding box of the named regions (all regions
// when none are named). A still image path substitutes for the live
// screen: the anchor becomes the image bounds, matching how authored
// profiles are tuned against reference screenshots. The bool result is
// false when no usable capture is available this frame; the error is
// reserved for authoring mistakes (unknown region name).
func (e *Engine) Capture(regionNames []string, stillPath string) (bool, error) {
	if stillPath != "" {
		img, err := imaging.Open(stillPath)
		if err != nil {
			return false, fmt.Errorf("open still image: %w", err)
		}
		b := img.Bounds()
		e.SetAnchor(geometry.NewRect(0, 0, b.Dx(), b.Dy()), true)
		bbox, err := e.regionsBBox(regionNames)
		if err != nil {
			return false, err
		}
		plane := PlaneFromImage(img).Crop(bbox.Left, bbox.Top, bbox.Right(), bbox.Bottom())
		e.capture = &captureState{plane: plane, offsetX: bbox.Left, offsetY: bbox.Top, crops: map[string]Plane{}}
		return true, nil
	}

	if !e.enabled || !e.hasAnchor {
		return false, nil
	}
	bbox, err := e.regionsBBox(regionNames)
	if err != nil {
		return false, err
	}
	img, err := e.grabber.Grab(bbox)
	if err != nil || img == nil {
		e.logger.Warn("capture failed", "rect", bbox, "error", err)
		return false, nil
	}
	e.capture = &captureState{
		plane:   PlaneFromRGBA(img),
		offsetX: bbox.Left,
		offsetY: bbox.Top,
		crops:   map[string]Plane{},
	}
	return true, nil
}

func (e *Engine) regionsBBox(names []string) (geometry.Rect, error) {
	if len(names) == 0 {
		for name := range e.regions {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return geometry.Rect{}, errors.New("no regions configured")
	}
	var bbox geometry.Rect
	for _, name := range names {
		r, ok := e.regions[name]
		if !ok {
			return geometry.Rect{}, fmt.Errorf("unknown region %q", name)
		}
		rect, ok := r.Rect()
		if !ok {
			return geometry.Rect{}, fmt.Errorf("region %q has no scaled rect", name)
		}
		bbox = bbox.Union(rect)
	}
	return bbox, nil
}

// MatchTemplate matches one scaled template against one region crop under
// an optional filter and sub-crop. It implements
// confidence = 1 - minSqDiff/size with size = unmasked pixels * channels * 255^2.
func (e *Engine) MatchTemplate(templateName, regionName string, f FilterSpec, div [4]float64) (Result, error) {
	if e.capture == nil {
		return nil, ErrNoCapture
	}
	tmplObj, ok := e.templates[templateName]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", templateName)
	}
	crop, err := e.regionCrop(regionName, f, div)
	if err != nil {
		return nil, err
	}
	tmpl, mask, err := tmplObj.ScaledAndFiltered(f)
	if err != nil {
		return nil, err
	}

	result := Result{
		"success":          false,
		"region":           regionName,
		"template":         templateName,
		"confidence":       0.0,
		"h_pos_percentage": 0.0,
		"v_pos_percentage": 0.0,
	}
	if crop.W < tmpl.W || crop.H < tmpl.H || crop.C != tmpl.C {
		e.logger.Warn("template does not fit region crop",
			"template", templateName, "region", regionName,
			"crop_w", crop.W, "crop_h", crop.H, "tmpl_w", tmpl.W, "tmpl_h", tmpl.H)
		return result, nil
	}
	if tmplObj.Size() == 0 {
		e.logger.Warn("template mask excludes every pixel", "template", templateName)
		return result, nil
	}

	minVal, minX, minY := maskedSqDiff(crop, tmpl, mask)
	confidence := 1 - minVal/float64(tmplObj.Size())
	result["success"] = confidence >= tmplObj.Threshold()
	result["confidence"] = confidence
	result["h_pos_percentage"] = float64(minX) / float64(crop.W)
	result["v_pos_percentage"] = float64(minY) / float64(crop.H)
	return result, nil
}

// FillRatio counts nonzero elements in a filtered, optionally sub-cropped
// region and reports the covered fraction. Used for bars and gauges.
func (e *Engine) FillRatio(regionName string, f FilterSpec, div [4]float64) (Result, error) {
	if e.capture == nil {
		return nil, ErrNoCapture
	}
	crop, err := e.regionCrop(regionName, f, div)
	if err != nil {
		return nil, err
	}
	if crop.Size() == 0 {
		return nil, fmt.Errorf("region %q crop is empty", regionName)
	}
	ratio := float64(crop.NonzeroCount()) / float64(crop.Size())
	return Result{"region": regionName, "fill": ratio}, nil
}

// regionCrop returns the filtered crop for a region, pulling from the
// per-capture cache when the same (region, filter) pair was already cut
// this frame. The div sub-crop is applied after filtering and is not
// cached.
func (e *Engine) regionCrop(regionName string, f FilterSpec, div [4]float64) (Plane, error) {
	region, ok := e.regions[regionName]
	if !ok {
		return Plane{}, fmt.Errorf("unknown region %q", regionName)
	}
	rect, ok := region.Rect()
	if !ok {
		return Plane{}, fmt.Errorf("region %q has no scaled rect", regionName)
	}

	key := regionName + "|" + f.Key()
	crop, cached := e.capture.crops[key]
	if !cached {
		x0 := rect.Left - e.capture.offsetX
		y0 := rect.Top - e.capture.offsetY
		x1 := x0 + rect.Width
		y1 := y0 + rect.Height
		if x0 < 0 || y0 < 0 || x1 > e.capture.plane.W || y1 > e.capture.plane.H {
			return Plane{}, fmt.Errorf("region %q out of capture bounds: region=%v capture=%dx%d+%d+%d",
				regionName, rect, e.capture.plane.W, e.capture.plane.H, e.capture.offsetX, e.capture.offsetY)
		}
		crop = e.capture.plane.Crop(x0, y0, x1, y1)
		if !f.IsZero() {
			crop = f.Apply(crop)
		}
		e.capture.crops[key] = crop
	}

	if div == FullDiv || div == ([4]float64{}) {
		return crop, nil
	}
	left := int(float64(crop.W) * div[0])
	right := int(float64(crop.W) * div[1])
	top := int(float64(crop.H) * div[2])
	bottom := int(float64(crop.H) * div[3])
	if !(0 <= left && left <= right && right <= crop.W && 0 <= top && top <= bottom && bottom <= crop.H) {
		return Plane{}, fmt.Errorf("invalid div %v for region %q", div, regionName)
	}
	return crop.Crop(left, top, right, bottom), nil
}
