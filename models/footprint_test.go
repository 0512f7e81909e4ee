package models

import (
	"math"
	"testing"

	"github.com/aukilabs/askr/spatial"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewFootprint(t *testing.T) {
	t.Run("id is generated when empty", func(t *testing.T) {
		f, err := NewFootprint("", []spatial.Vector{{0, 0}, {1, 0}, {0, 1}})
		require.NoError(t, err)
		require.NotEmpty(t, f.ID)
	})

	t.Run("given id is kept", func(t *testing.T) {
		f, err := NewFootprint("floor-plan", []spatial.Vector{{0, 0}, {1, 0}, {0, 1}})
		require.NoError(t, err)
		require.Equal(t, "floor-plan", f.ID)
	})

	t.Run("corners are copied", func(t *testing.T) {
		corners := []spatial.Vector{{0, 0}, {1, 0}, {0, 1}}
		f, err := NewFootprint("", corners)
		require.NoError(t, err)

		corners[0][0] = 9
		require.True(t, f.Corners[0].Equal(spatial.Vector{0, 0}))
	})

	t.Run("bounding box wraps all corners", func(t *testing.T) {
		f, err := NewFootprint("", []spatial.Vector{{1, 0}, {3, 1}, {2, 4}, {0, 2}})
		require.NoError(t, err)

		bb := f.BoundingBox()
		require.True(t, bb.Min.Equal(spatial.Vector{0, 0}))
		require.True(t, bb.Max.Equal(spatial.Vector{3, 4}))
	})

	t.Run("too few corners are rejected", func(t *testing.T) {
		_, err := NewFootprint("", []spatial.Vector{{0, 0}, {1, 1}})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidFootprint))
	})

	t.Run("three dimensional corners are rejected", func(t *testing.T) {
		_, err := NewFootprint("", []spatial.Vector{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidFootprint))
	})

	t.Run("non finite corners are rejected", func(t *testing.T) {
		_, err := NewFootprint("", []spatial.Vector{{0, 0}, {math.NaN(), 0}, {0, 1}})
		require.Error(t, err)

		_, err = NewFootprint("", []spatial.Vector{{0, 0}, {math.Inf(1), 0}, {0, 1}})
		require.Error(t, err)
	})

	t.Run("concave corners are rejected", func(t *testing.T) {
		_, err := NewFootprint("", []spatial.Vector{{0, 0}, {4, 0}, {1, 1}, {0, 4}})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidFootprint))
	})
}

func TestNewRectFootprint(t *testing.T) {
	t.Run("rectangle corners and bounds", func(t *testing.T) {
		f, err := NewRectFootprint("rect", spatial.Vector{1, 2}, spatial.Vector{3, 5})
		require.NoError(t, err)
		require.Len(t, f.Corners, 4)

		bb := f.BoundingBox()
		require.True(t, bb.Min.Equal(spatial.Vector{1, 2}))
		require.True(t, bb.Max.Equal(spatial.Vector{3, 5}))
	})

	t.Run("inverted rectangle is rejected", func(t *testing.T) {
		_, err := NewRectFootprint("", spatial.Vector{3, 2}, spatial.Vector{1, 5})
		require.Error(t, err)
	})

	t.Run("degenerate rectangle is allowed", func(t *testing.T) {
		f, err := NewRectFootprint("", spatial.Vector{1, 1}, spatial.Vector{1, 1})
		require.NoError(t, err)
		require.True(t, f.Contains(spatial.Vector{1, 1}))
		require.False(t, f.Contains(spatial.Vector{1, 1.1}))
	})
}

func TestFootprintContains(t *testing.T) {
	t.Run("square", func(t *testing.T) {
		f, err := NewRectFootprint("", spatial.Vector{0, 0}, spatial.Vector{4, 4})
		require.NoError(t, err)

		require.True(t, f.Contains(spatial.Vector{2, 2}))
		require.True(t, f.Contains(spatial.Vector{0, 0}))
		require.True(t, f.Contains(spatial.Vector{4, 2}))
		require.False(t, f.Contains(spatial.Vector{4.1, 2}))
		require.False(t, f.Contains(spatial.Vector{-0.1, 2}))
		require.False(t, f.Contains(spatial.Vector{2, 5}))
	})

	t.Run("triangle", func(t *testing.T) {
		f, err := NewFootprint("", []spatial.Vector{{0, 0}, {4, 0}, {0, 4}})
		require.NoError(t, err)

		require.True(t, f.Contains(spatial.Vector{1, 1}))
		require.True(t, f.Contains(spatial.Vector{2, 2}))
		require.False(t, f.Contains(spatial.Vector{3, 3}))
		require.False(t, f.Contains(spatial.Vector{-1, 1}))
	})

	t.Run("winding direction does not matter", func(t *testing.T) {
		ccw, err := NewFootprint("", []spatial.Vector{{0, 0}, {4, 0}, {4, 4}, {0, 4}})
		require.NoError(t, err)
		cw, err := NewFootprint("", []spatial.Vector{{0, 4}, {4, 4}, {4, 0}, {0, 0}})
		require.NoError(t, err)

		for _, p := range []spatial.Vector{{2, 2}, {0, 0}, {4, 4}, {5, 2}, {2, -1}} {
			require.Equal(t, ccw.Contains(p), cw.Contains(p))
		}
	})

	t.Run("mismatched dimension is not contained", func(t *testing.T) {
		f, err := NewRectFootprint("", spatial.Vector{0, 0}, spatial.Vector{4, 4})
		require.NoError(t, err)
		require.False(t, f.Contains(spatial.Vector{2}))
	})
}
