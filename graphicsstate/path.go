package graphicsstate

import (
	"math"

	"github.com/tsawler/pdfengine/model"
)

// PathSegmentType defines the type of path segment
type PathSegmentType int

const (
	// PathMoveTo starts a new subpath
	PathMoveTo PathSegmentType = iota
	// PathLineTo draws a line to a point
	PathLineTo
	// PathCurveTo draws a cubic Bézier curve
	PathCurveTo
	// PathClosePath closes the current subpath
	PathClosePath
)

func (t PathSegmentType) String() string {
	switch t {
	case PathMoveTo:
		return "m"
	case PathLineTo:
		return "l"
	case PathCurveTo:
		return "c"
	case PathClosePath:
		return "h"
	}
	return "?"
}

// PathSegment represents a single segment of a path
type PathSegment struct {
	Type PathSegmentType

	// For MoveTo and LineTo: single point
	// For CurveTo: control point 1, control point 2, end point
	Points []model.Point
}

// Path represents a graphics path being constructed
type Path struct {
	Segments []PathSegment

	CurrentPoint model.Point

	// SubpathStart is the start of the current subpath (for closepath)
	SubpathStart model.Point

	HasCurrentPoint bool
}

// NewPath creates a new empty path
func NewPath() *Path {
	return &Path{}
}

// MoveTo starts a new subpath at the specified point (m operator)
func (p *Path) MoveTo(x, y float64) {
	pt := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{
		Type:   PathMoveTo,
		Points: []model.Point{pt},
	})
	p.CurrentPoint = pt
	p.SubpathStart = pt
	p.HasCurrentPoint = true
}

// LineTo appends a line segment from current point to (x, y) (l operator)
func (p *Path) LineTo(x, y float64) {
	if !p.HasCurrentPoint {
		p.MoveTo(x, y)
		return
	}

	pt := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{
		Type:   PathLineTo,
		Points: []model.Point{pt},
	})
	p.CurrentPoint = pt
}

// CurveTo appends a cubic Bézier curve (c operator)
// Control points (x1, y1) and (x2, y2), end point (x3, y3)
func (p *Path) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		p.MoveTo(x1, y1)
	}

	p.Segments = append(p.Segments, PathSegment{
		Type: PathCurveTo,
		Points: []model.Point{
			{X: x1, Y: y1},
			{X: x2, Y: y2},
			{X: x3, Y: y3},
		},
	})
	p.CurrentPoint = model.Point{X: x3, Y: y3}
}

// CurveToV appends a curve whose first control point is the current point (v operator)
func (p *Path) CurveToV(x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(p.CurrentPoint.X, p.CurrentPoint.Y, x2, y2, x3, y3)
}

// CurveToY appends a curve whose second control point is the end point (y operator)
func (p *Path) CurveToY(x1, y1, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(x1, y1, x3, y3, x3, y3)
}

// ClosePath closes the current subpath (h operator)
func (p *Path) ClosePath() {
	if !p.HasCurrentPoint {
		return
	}

	p.Segments = append(p.Segments, PathSegment{
		Type: PathClosePath,
	})
	p.CurrentPoint = p.SubpathStart
}

// Rectangle appends a rectangle as a complete subpath (re operator)
func (p *Path) Rectangle(x, y, width, height float64) {
	p.MoveTo(x, y)
	p.LineTo(x+width, y)
	p.LineTo(x+width, y+height)
	p.LineTo(x, y+height)
	p.ClosePath()
}

// Clear resets the path
func (p *Path) Clear() {
	p.Segments = p.Segments[:0]
	p.HasCurrentPoint = false
}

// IsEmpty returns true if the path has no segments
func (p *Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// Clone returns a deep copy of p.
func (p *Path) Clone() *Path {
	c := *p
	c.Segments = make([]PathSegment, len(p.Segments))
	for i, s := range p.Segments {
		c.Segments[i] = PathSegment{Type: s.Type, Points: append([]model.Point(nil), s.Points...)}
	}
	return &c
}

// Transform returns a copy of p with every point mapped through m.
func (p *Path) Transform(m model.Matrix) *Path {
	c := p.Clone()
	for _, s := range c.Segments {
		for i, pt := range s.Points {
			s.Points[i] = m.Transform(pt)
		}
	}
	c.CurrentPoint = m.Transform(p.CurrentPoint)
	c.SubpathStart = m.Transform(p.SubpathStart)
	return c
}

// Bounds returns the box enclosing every point of the path, including
// curve control points. It reports false for a path without points.
func (p *Path) Bounds() (model.BBox, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range p.Segments {
		for _, pt := range s.Points {
			minX = math.Min(minX, pt.X)
			minY = math.Min(minY, pt.Y)
			maxX = math.Max(maxX, pt.X)
			maxY = math.Max(maxY, pt.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return model.BBox{}, false
	}
	return model.BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Rect reports whether the path is a single axis-aligned rectangle, as
// drawn by re, and returns it.
func (p *Path) Rect() (model.BBox, bool) {
	segs := p.Segments
	if len(segs) < 4 || segs[0].Type != PathMoveTo {
		return model.BBox{}, false
	}

	corners := []model.Point{segs[0].Points[0]}
	for _, s := range segs[1:] {
		switch s.Type {
		case PathLineTo:
			corners = append(corners, s.Points[0])
		case PathClosePath:
		default:
			return model.BBox{}, false
		}
	}
	if len(corners) == 5 && pointsEqual(corners[0], corners[4], 1e-9) {
		corners = corners[:4]
	}
	if len(corners) != 4 {
		return model.BBox{}, false
	}

	// Each edge must be horizontal or vertical, alternating.
	for i := 0; i < 4; i++ {
		a, b, c := corners[i], corners[(i+1)%4], corners[(i+2)%4]
		horiz1, vert1 := a.Y == b.Y, a.X == b.X
		horiz2, vert2 := b.Y == c.Y, b.X == c.X
		if !(horiz1 && vert2) && !(vert1 && horiz2) {
			return model.BBox{}, false
		}
	}
	return p.Bounds()
}

func pointsEqual(a, b model.Point, tolerance float64) bool {
	return math.Abs(a.X-b.X) < tolerance && math.Abs(a.Y-b.Y) < tolerance
}
