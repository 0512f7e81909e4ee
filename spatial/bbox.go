package spatial

// BBox is an axis-aligned box. Min and Max have the same dimension, with
// Min[i] <= Max[i] on every axis.
type BBox struct {
	Min Vector
	Max Vector
}

// Dim returns the dimension of the box.
func (b BBox) Dim() int {
	return len(b.Min)
}

// ContainsPoint reports whether p lies inside b. Containment is half-open:
// points on a min face are inside, points on a max face are not.
func (b BBox) ContainsPoint(p Vector) bool {
	if len(p) != len(b.Min) {
		return false
	}
	for i := range b.Min {
		if p[i] < b.Min[i] || p[i] >= b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsBox reports whether c lies entirely inside b. Containment is
// closed: a box sharing a face with b is still contained.
func (b BBox) ContainsBox(c BBox) bool {
	if len(c.Min) != len(b.Min) {
		return false
	}
	for i := range b.Min {
		if c.Min[i] < b.Min[i] || c.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether the interiors of b and c intersect. Boxes that
// only touch on a face, edge or corner do not overlap.
func (b BBox) Overlaps(c BBox) bool {
	if len(c.Min) != len(b.Min) {
		return false
	}
	for i := range b.Min {
		if c.Min[i] >= b.Max[i] || b.Min[i] >= c.Max[i] {
			return false
		}
	}
	return true
}

// Grow expands b as needed to include p. Growing a zero value box
// initializes it to the single point p.
func (b *BBox) Grow(p Vector) {
	if b.Min == nil {
		b.Min = p.Clone()
		b.Max = p.Clone()
		return
	}
	for i := range b.Min {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Center returns the midpoint of b.
func (b BBox) Center() Vector {
	c := make(Vector, len(b.Min))
	for i := range b.Min {
		c[i] = mid(b.Min[i], b.Max[i])
	}
	return c
}

func (b BBox) clone() BBox {
	return BBox{Min: b.Min.Clone(), Max: b.Max.Clone()}
}

func mid(lo, hi float64) float64 {
	return lo + (hi-lo)/2
}
