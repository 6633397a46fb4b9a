package vision

import "github.com/soocke/gamewatch-go/domain/geometry"

// Region is an authored rectangle plus the scaling policy that maps it
// onto the current anchor. The scaled rect is recomputed only when the
// anchor changes (the engine drives that).
type Region struct {
	name     string
	authored geometry.Rect
	scaler   geometry.Scaler

	scaled    geometry.Rect
	hasScaled bool
}

func NewRegion(name string, authored geometry.Rect, scaler geometry.Scaler) *Region {
	return &Region{name: name, authored: authored, scaler: scaler}
}

func (r *Region) Name() string { return r.name }

// Rect returns the scaled rect in absolute screen coordinates. Only valid
// after Scale has been called at least once.
func (r *Region) Rect() (geometry.Rect, bool) { return r.scaled, r.hasScaled }

// Scale recomputes the scaled rect against the given anchor.
func (r *Region) Scale(anchor geometry.Rect) {
	r.scaled = r.scaler.ScaleRect(r.authored, anchor)
	r.hasScaled = true
}
