package spatial

import (
	"fmt"
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// vrmlPalette cycles with node depth. Resident primitives use the doubled
// color of their node's depth.
var vrmlPalette = [7][3]float64{
	{0.5, 0, 0},
	{0, 0.5, 0},
	{0, 0, 0.5},
	{0.5, 0, 0.5},
	{0, 0.5, 0.5},
	{0.5, 0.5, 0},
	{0.5, 0.5, 0.5},
}

// WriteVRML writes a VRML 2.0 scene outlining every node region and
// resident primitive on the first two axes: one wireframe rectangle per
// Print line, in the same order, stacked at z = -depth/2 and colored by
// depth. The scene is translated so the root region is centered on the
// origin. Trees need at least two dimensions.
func (t *Tree) WriteVRML(w io.Writer) error {
	if t.dim < 2 {
		return errors.New("vrml scenes need at least two dimensions").
			WithType(ErrTypeUnsupportedDim).
			WithTag("dim", t.dim)
	}

	center := t.root.bounds.Center()
	if _, err := fmt.Fprintf(w, "#VRML V2.0 utf8\n#\nTransform {\n  translation %s %s 0\n  children [\n",
		formatCoord(neg(center[0])), formatCoord(neg(center[1]))); err != nil {
		return err
	}
	if err := t.root.writeVRML(w, 0); err != nil {
		return err
	}
	_, err := io.WriteString(w, "  ]\n}\n")
	return err
}

func (n *node) writeVRML(w io.Writer, depth int) error {
	color := vrmlPalette[depth%len(vrmlPalette)]
	if err := writeVRMLShape(w, n.bounds, depth, color); err != nil {
		return err
	}
	for _, p := range n.primitives {
		doubled := [3]float64{color[0] * 2, color[1] * 2, color[2] * 2}
		if err := writeVRMLShape(w, p.BoundingBox(), depth, doubled); err != nil {
			return err
		}
	}
	for _, c := range n.children {
		if err := c.writeVRML(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func writeVRMLShape(w io.Writer, b BBox, depth int, color [3]float64) error {
	z := formatCoord(neg(float64(depth) / 2))
	x0, y0 := formatCoord(b.Min[0]), formatCoord(b.Min[1])
	x1, y1 := formatCoord(b.Max[0]), formatCoord(b.Max[1])

	_, err := fmt.Fprintf(w, `    Shape {
      appearance Appearance {
        material Material {
          emissiveColor %s %s %s
        }
      }
      geometry IndexedLineSet {
        coord Coordinate {
          point [
            %s %s %s,
            %s %s %s,
            %s %s %s,
            %s %s %s,
          ]
        }
        coordIndex [ 0, 1, 2, 3, 0, -1, ]
      }
    }
`,
		formatCoord(color[0]), formatCoord(color[1]), formatCoord(color[2]),
		x0, y0, z,
		x0, y1, z,
		x1, y1, z,
		x1, y0, z,
	)
	return err
}

// neg negates v, mapping 0 to 0 rather than -0 so rendered scenes never
// carry a negative zero.
func neg(v float64) float64 {
	if v == 0 {
		return 0
	}
	return -v
}
