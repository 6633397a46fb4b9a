package geometry

import "fmt"

// Rect is an axis-aligned integer rectangle. Treat values as immutable:
// consumers compare whole Rects for change detection, so a changed
// rectangle is always a new value, never an in-place mutation.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func NewRect(left, top, width, height int) Rect {
	return Rect{Left: left, Top: top, Width: width, Height: height}
}

func (r Rect) Right() int  { return r.Left + r.Width }
func (r Rect) Bottom() int { return r.Top + r.Height }

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Union returns the smallest rect covering both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	left := min(r.Left, o.Left)
	top := min(r.Top, o.Top)
	right := max(r.Right(), o.Right())
	bottom := max(r.Bottom(), o.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Translate returns r shifted by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Width: r.Width, Height: r.Height}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.Left, r.Top, r.Width, r.Height)
}
