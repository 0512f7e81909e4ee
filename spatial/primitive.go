package spatial

// Primitive is implemented by geometry that can be indexed by a Tree: an
// axis-aligned envelope plus an exact containment test for the points the
// envelope over-approximates.
//
// A Tree stores primitives by reference and never copies or mutates them.
// A primitive's bounding box must not change while it is indexed.
type Primitive interface {
	// BoundingBox returns the primitive's axis-aligned envelope.
	BoundingBox() BBox

	// Contains reports whether the primitive itself contains p.
	Contains(p Vector) bool
}

// Pair is an unordered pair of distinct indexed primitives whose bounding
// boxes overlap.
type Pair struct {
	A Primitive
	B Primitive
}
