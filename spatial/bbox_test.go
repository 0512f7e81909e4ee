package spatial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBBoxContainsPoint(t *testing.T) {
	b := BBox{Min: Vector{0, 0}, Max: Vector{4, 2}}

	t.Run("interior point is contained", func(t *testing.T) {
		require.True(t, b.ContainsPoint(Vector{1, 1}))
	})

	t.Run("point on a min face is contained", func(t *testing.T) {
		require.True(t, b.ContainsPoint(Vector{0, 1}))
		require.True(t, b.ContainsPoint(Vector{0, 0}))
	})

	t.Run("point on a max face is not contained", func(t *testing.T) {
		require.False(t, b.ContainsPoint(Vector{4, 1}))
		require.False(t, b.ContainsPoint(Vector{1, 2}))
		require.False(t, b.ContainsPoint(Vector{4, 2}))
	})

	t.Run("outside point is not contained", func(t *testing.T) {
		require.False(t, b.ContainsPoint(Vector{-1, 1}))
		require.False(t, b.ContainsPoint(Vector{5, 1}))
	})

	t.Run("mismatched dimension is not contained", func(t *testing.T) {
		require.False(t, b.ContainsPoint(Vector{1}))
	})

	t.Run("zero extent box contains nothing", func(t *testing.T) {
		p := BBox{Min: Vector{1, 1}, Max: Vector{1, 1}}
		require.False(t, p.ContainsPoint(Vector{1, 1}))
	})
}

func TestBBoxContainsBox(t *testing.T) {
	b := BBox{Min: Vector{0, 0}, Max: Vector{4, 4}}

	t.Run("inner box is contained", func(t *testing.T) {
		require.True(t, b.ContainsBox(BBox{Min: Vector{1, 1}, Max: Vector{2, 2}}))
	})

	t.Run("equal box is contained", func(t *testing.T) {
		require.True(t, b.ContainsBox(b))
	})

	t.Run("box sharing a face is contained", func(t *testing.T) {
		require.True(t, b.ContainsBox(BBox{Min: Vector{2, 2}, Max: Vector{4, 4}}))
	})

	t.Run("protruding box is not contained", func(t *testing.T) {
		require.False(t, b.ContainsBox(BBox{Min: Vector{2, 2}, Max: Vector{5, 4}}))
		require.False(t, b.ContainsBox(BBox{Min: Vector{-1, 2}, Max: Vector{3, 3}}))
	})
}

func TestBBoxOverlaps(t *testing.T) {
	b := BBox{Min: Vector{0, 0}, Max: Vector{2, 2}}

	t.Run("intersecting interiors overlap", func(t *testing.T) {
		require.True(t, b.Overlaps(BBox{Min: Vector{1, 1}, Max: Vector{3, 3}}))
	})

	t.Run("containment overlaps both ways", func(t *testing.T) {
		inner := BBox{Min: Vector{0.5, 0.5}, Max: Vector{1, 1}}
		require.True(t, b.Overlaps(inner))
		require.True(t, inner.Overlaps(b))
	})

	t.Run("face contact does not overlap", func(t *testing.T) {
		require.False(t, b.Overlaps(BBox{Min: Vector{2, 0}, Max: Vector{3, 2}}))
	})

	t.Run("corner contact does not overlap", func(t *testing.T) {
		require.False(t, b.Overlaps(BBox{Min: Vector{2, 2}, Max: Vector{3, 3}}))
	})

	t.Run("disjoint boxes do not overlap", func(t *testing.T) {
		require.False(t, b.Overlaps(BBox{Min: Vector{5, 5}, Max: Vector{6, 6}}))
	})
}

func TestBBoxGrow(t *testing.T) {
	t.Run("growing a zero value box pins it to the point", func(t *testing.T) {
		var b BBox
		b.Grow(Vector{1, 2})
		require.True(t, b.Min.Equal(Vector{1, 2}))
		require.True(t, b.Max.Equal(Vector{1, 2}))
	})

	t.Run("growing extends only the exceeded axes", func(t *testing.T) {
		var b BBox
		b.Grow(Vector{1, 2})
		b.Grow(Vector{0, 5})
		require.True(t, b.Min.Equal(Vector{0, 2}))
		require.True(t, b.Max.Equal(Vector{1, 5}))

		b.Grow(Vector{0.5, 3})
		require.True(t, b.Min.Equal(Vector{0, 2}))
		require.True(t, b.Max.Equal(Vector{1, 5}))
	})

	t.Run("growing does not alias the given point", func(t *testing.T) {
		var b BBox
		p := Vector{1, 1}
		b.Grow(p)
		p[0] = 9
		require.True(t, b.Min.Equal(Vector{1, 1}))
	})
}

func TestBBoxCenter(t *testing.T) {
	b := BBox{Min: Vector{0, -2}, Max: Vector{4, 2}}
	require.True(t, b.Center().Equal(Vector{2, 0}))
}
