package spatial

import (
	"strconv"
	"strings"
)

// Vector is a point or offset in D-dimensional space. Its length is the
// dimension.
type Vector []float64

// Dim returns the number of components.
func (v Vector) Dim() int {
	return len(v)
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// Equal reports whether v and w have the same dimension and components.
func (v Vector) Equal(w Vector) bool {
	if len(v) != len(w) {
		return false
	}
	for i := range v {
		if v[i] != w[i] {
			return false
		}
	}
	return true
}

// String renders v as VectorD(c0,c1,...), each component in the shortest
// decimal form that round-trips.
func (v Vector) String() string {
	var sb strings.Builder
	sb.WriteString("Vector")
	sb.WriteString(strconv.Itoa(len(v)))
	sb.WriteByte('(')
	for i, c := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(formatCoord(c))
	}
	sb.WriteByte(')')
	return sb.String()
}

func formatCoord(c float64) string {
	return strconv.FormatFloat(c, 'g', -1, 64)
}
