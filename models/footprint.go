package models

import (
	"math"

	"github.com/aukilabs/askr/spatial"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/uuid"
)

// Error types returned by footprint operations.
const (
	ErrTypeInvalidFootprint   = "invalid_footprint"
	ErrTypeDuplicateFootprint = "duplicate_footprint"
)

// Footprint is a convex polygon in the ground plane, such as the projected
// outline of a scanned area. It implements spatial.Primitive.
type Footprint struct {
	ID      string           `json:"id"`
	Corners []spatial.Vector `json:"corners"`

	bounds spatial.BBox
}

// NewFootprint returns a footprint with the given corners, ordered along
// the polygon boundary in either winding. A uuid is generated when id is
// empty.
func NewFootprint(id string, corners []spatial.Vector) (*Footprint, error) {
	if len(corners) < 3 {
		return nil, errors.New("footprint needs at least three corners").
			WithType(ErrTypeInvalidFootprint).
			WithTag("corners", len(corners))
	}

	var bounds spatial.BBox
	for _, c := range corners {
		if len(c) != 2 {
			return nil, errors.New("footprint corners must be two dimensional").
				WithType(ErrTypeInvalidFootprint).
				WithTag("corner_dim", len(c))
		}
		if math.IsNaN(c[0]) || math.IsInf(c[0], 0) || math.IsNaN(c[1]) || math.IsInf(c[1], 0) {
			return nil, errors.New("footprint corners must be finite").
				WithType(ErrTypeInvalidFootprint)
		}
		bounds.Grow(c)
	}
	if !isConvex(corners) {
		return nil, errors.New("footprint corners must describe a convex polygon").
			WithType(ErrTypeInvalidFootprint)
	}

	if id == "" {
		id = uuid.NewString()
	}

	cloned := make([]spatial.Vector, len(corners))
	for i, c := range corners {
		cloned[i] = c.Clone()
	}
	return &Footprint{
		ID:      id,
		Corners: cloned,
		bounds:  bounds,
	}, nil
}

// NewRectFootprint returns an axis-aligned rectangular footprint.
func NewRectFootprint(id string, min, max spatial.Vector) (*Footprint, error) {
	if len(min) != 2 || len(max) != 2 || min[0] > max[0] || min[1] > max[1] {
		return nil, errors.New("malformed rectangle").
			WithType(ErrTypeInvalidFootprint).
			WithTag("min", min).
			WithTag("max", max)
	}
	return NewFootprint(id, []spatial.Vector{
		{min[0], min[1]},
		{max[0], min[1]},
		{max[0], max[1]},
		{min[0], max[1]},
	})
}

// BoundingBox implements spatial.Primitive.
func (f *Footprint) BoundingBox() spatial.BBox {
	return f.bounds
}

// Contains implements spatial.Primitive. A point on the polygon boundary
// counts as contained.
func (f *Footprint) Contains(p spatial.Vector) bool {
	if len(p) != 2 {
		return false
	}

	// Convexity means p is inside iff it sits on the same side of every
	// edge. Degenerate loops (segments, points) zero out every cross
	// product, leaving the closed envelope check below.
	sign := 0.0
	for i := range f.Corners {
		a := f.Corners[i]
		b := f.Corners[(i+1)%len(f.Corners)]
		cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
			continue
		}
		if (cross > 0) != (sign > 0) {
			return false
		}
	}

	for i := range p {
		if p[i] < f.bounds.Min[i] || p[i] > f.bounds.Max[i] {
			return false
		}
	}
	return true
}

// isConvex reports whether the corner loop only ever turns one way.
// Collinear runs are allowed, so degenerate loops pass.
func isConvex(corners []spatial.Vector) bool {
	sign := 0.0
	n := len(corners)
	for i := 0; i < n; i++ {
		a := corners[i]
		b := corners[(i+1)%n]
		c := corners[(i+2)%n]
		cross := (b[0]-a[0])*(c[1]-b[1]) - (b[1]-a[1])*(c[0]-b[0])
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
			continue
		}
		if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}
